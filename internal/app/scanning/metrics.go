package scanning

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ahrav/docleaks/internal/domain/detection"
)

// ScanMetrics defines the metrics recorded while scanning a corpus.
type ScanMetrics interface {
	// File metrics
	TrackFile(ctx context.Context, f func() error) error
	IncFilesProcessed(ctx context.Context)
	IncFileErrors(ctx context.Context, kind string)

	// Finding metrics
	ObserveFindings(ctx context.Context, matches detection.MatchSet)

	// Persistence metrics
	IncPersistenceErrors(ctx context.Context, store string)
}

// scanMetrics implements ScanMetrics with OpenTelemetry instruments.
type scanMetrics struct {
	filesProcessed   metric.Int64Counter
	fileErrors       metric.Int64Counter
	fileScanDuration metric.Float64Histogram
	activeFiles      metric.Int64UpDownCounter

	findings          metric.Int64Counter
	findingCategories metric.Int64Histogram

	persistenceErrors metric.Int64Counter
}

const namespace = "docscan"

// NewScanMetrics creates the scan instruments on the given meter provider.
func NewScanMetrics(mp metric.MeterProvider) (*scanMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	s := new(scanMetrics)
	var err error

	if s.filesProcessed, err = meter.Int64Counter(
		"files_processed_total",
		metric.WithDescription("Total number of files successfully scanned"),
	); err != nil {
		return nil, err
	}

	if s.fileErrors, err = meter.Int64Counter(
		"file_errors_total",
		metric.WithDescription("Total number of files that failed validation or extraction"),
	); err != nil {
		return nil, err
	}

	if s.fileScanDuration, err = meter.Float64Histogram(
		"file_scan_duration_seconds",
		metric.WithDescription("Time spent extracting and scanning a single file"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if s.activeFiles, err = meter.Int64UpDownCounter(
		"active_files",
		metric.WithDescription("Number of files currently being scanned"),
	); err != nil {
		return nil, err
	}

	if s.findings, err = meter.Int64Counter(
		"findings_total",
		metric.WithDescription("Total number of matched substrings across all files, by category"),
	); err != nil {
		return nil, err
	}

	if s.findingCategories, err = meter.Int64Histogram(
		"finding_categories_per_file",
		metric.WithDescription("Number of categories matched per flagged file"),
	); err != nil {
		return nil, err
	}

	if s.persistenceErrors, err = meter.Int64Counter(
		"persistence_errors_total",
		metric.WithDescription("Total number of failed checkpoint or result writes"),
	); err != nil {
		return nil, err
	}

	return s, nil
}

func (m *scanMetrics) TrackFile(ctx context.Context, f func() error) error {
	m.activeFiles.Add(ctx, 1)
	defer m.activeFiles.Add(ctx, -1)

	start := time.Now()
	err := f()
	m.fileScanDuration.Record(ctx, time.Since(start).Seconds())
	return err
}

func (m *scanMetrics) IncFilesProcessed(ctx context.Context) {
	m.filesProcessed.Add(ctx, 1)
}

func (m *scanMetrics) IncFileErrors(ctx context.Context, kind string) {
	m.fileErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *scanMetrics) ObserveFindings(ctx context.Context, matches detection.MatchSet) {
	for category, found := range matches {
		m.findings.Add(ctx, int64(len(found)), metric.WithAttributes(attribute.String("category", category)))
	}
	m.findingCategories.Record(ctx, int64(matches.Categories()))
}

func (m *scanMetrics) IncPersistenceErrors(ctx context.Context, store string) {
	m.persistenceErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("store", store)))
}
