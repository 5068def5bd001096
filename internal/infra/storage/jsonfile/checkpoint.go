// Package jsonfile persists scan state as plain files: the checkpoint as a
// single-line text file and the findings and error logs as indented JSON arrays.
package jsonfile

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/docleaks/internal/domain/scanning"
	"github.com/ahrav/docleaks/internal/infra/storage"
	"github.com/ahrav/docleaks/pkg/common/logger"
)

var _ scanning.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore keeps the full path of the last processed file.
type CheckpointStore struct {
	fs   afero.Fs
	path string

	logger *logger.Logger
	tracer trace.Tracer
}

// NewCheckpointStore creates a CheckpointStore backed by the file at path.
func NewCheckpointStore(fs afero.Fs, path string, log *logger.Logger, tracer trace.Tracer) *CheckpointStore {
	return &CheckpointStore{
		fs:     fs,
		path:   path,
		logger: log.With("component", "checkpoint_store"),
		tracer: tracer,
	}
}

// Read returns the trimmed checkpoint. A missing, empty or unreadable file
// means no checkpoint; read errors are logged and never returned.
func (s *CheckpointStore) Read(ctx context.Context) (string, bool) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Error(ctx, "Error reading last processed file", "path", s.path, "error", err)
		}
		return "", false
	}

	cp := strings.TrimSpace(string(data))
	if cp == "" {
		return "", false
	}
	return cp, true
}

// Write replaces the checkpoint with path.
func (s *CheckpointStore) Write(ctx context.Context, path string) error {
	attrs := []attribute.KeyValue{
		attribute.String("state_file", s.path),
		attribute.String("checkpoint", path),
	}
	return storage.ExecuteAndTrace(ctx, s.tracer, "jsonfile.write_checkpoint", attrs, func(ctx context.Context) error {
		if err := storage.WriteFileAtomic(s.fs, s.path, []byte(path), 0o644); err != nil {
			return scanning.NewPersistenceError(path, err)
		}
		return nil
	})
}

// Clear removes the checkpoint so the next run starts from the first file.
func (s *CheckpointStore) Clear(ctx context.Context) error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return scanning.NewPersistenceError(s.path, err)
	}
	s.logger.Info(ctx, "Checkpoint cleared", "path", s.path)
	return nil
}
