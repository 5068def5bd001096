package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/docleaks/internal/domain/detection"
	"github.com/ahrav/docleaks/internal/domain/scanning"
	"github.com/ahrav/docleaks/internal/infra/storage"
	"github.com/ahrav/docleaks/pkg/common/logger"
)

var _ scanning.ResultStore = (*ResultStore)(nil)

// ResultStore appends to the findings and error logs. Every append re-reads
// the whole array, adds one entry and rewrites the file.
type ResultStore struct {
	mu sync.Mutex

	fs           afero.Fs
	findingsPath string
	errorsPath   string

	logger *logger.Logger
	tracer trace.Tracer
}

// NewResultStore creates a ResultStore writing findings to findingsPath and
// per-file errors to errorsPath.
func NewResultStore(
	fs afero.Fs,
	findingsPath, errorsPath string,
	log *logger.Logger,
	tracer trace.Tracer,
) *ResultStore {
	return &ResultStore{
		fs:           fs,
		findingsPath: findingsPath,
		errorsPath:   errorsPath,
		logger:       log.With("component", "result_store"),
		tracer:       tracer,
	}
}

// AppendFinding records matches for path in the findings log.
func (s *ResultStore) AppendFinding(ctx context.Context, path string, matches detection.MatchSet) error {
	attrs := []attribute.KeyValue{
		attribute.String("state_file", s.findingsPath),
		attribute.String("path", path),
		attribute.Int("categories", len(matches)),
	}
	return storage.ExecuteAndTrace(ctx, s.tracer, "jsonfile.append_finding", attrs, func(ctx context.Context) error {
		rec := scanning.FindingRecord{FilePath: path, Matches: matches}
		if err := appendRecord(ctx, s, s.findingsPath, rec); err != nil {
			s.logger.Error(ctx, "Error saving sensitive data", "path", path, "error", err)
			return scanning.NewPersistenceError(path, err)
		}
		return nil
	})
}

// AppendError records the failure message for path in the error log.
func (s *ResultStore) AppendError(ctx context.Context, path, message string) error {
	attrs := []attribute.KeyValue{
		attribute.String("state_file", s.errorsPath),
		attribute.String("path", path),
	}
	return storage.ExecuteAndTrace(ctx, s.tracer, "jsonfile.append_error", attrs, func(ctx context.Context) error {
		rec := scanning.ErrorRecord{FilePath: path, Error: message}
		if err := appendRecord(ctx, s, s.errorsPath, rec); err != nil {
			s.logger.Error(ctx, "Error saving error data", "path", path, "error", err)
			return scanning.NewPersistenceError(path, err)
		}
		return nil
	})
}

// Findings returns the persisted findings. A missing file yields no records.
func (s *ResultStore) Findings(ctx context.Context) ([]scanning.FindingRecord, error) {
	return readRecords[scanning.FindingRecord](s.fs, s.findingsPath)
}

// Errors returns the persisted per-file errors. A missing file yields no records.
func (s *ResultStore) Errors(ctx context.Context) ([]scanning.ErrorRecord, error) {
	return readRecords[scanning.ErrorRecord](s.fs, s.errorsPath)
}

// Reset removes both logs.
func (s *ResultStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range []string{s.findingsPath, s.errorsPath} {
		if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return scanning.NewPersistenceError(p, err)
		}
	}
	s.logger.Info(ctx, "Result logs cleared")
	return nil
}

func appendRecord[T any](ctx context.Context, s *ResultStore, path string, rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := readRecords[T](s.fs, path)
	if err != nil {
		// A corrupt log is replaced rather than blocking every later append.
		s.logger.Error(ctx, "Error reading state file, starting a new collection", "state_file", path, "error", err)
		records = nil
	}
	records = append(records, rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	return storage.WriteFileAtomic(s.fs, path, data, 0o644)
}

func readRecords[T any](fs afero.Fs, path string) ([]T, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}
