// Package progressreporter reports the progress of a corpus scan. Bar draws a
// terminal progress bar, Log writes periodic structured log lines and span
// events, and Multi fans out to several reporters.
package progressreporter

import (
	"context"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/docleaks/internal/domain/scanning"
	"github.com/ahrav/docleaks/pkg/common/logger"
)

var (
	_ scanning.ProgressReporter = (*Bar)(nil)
	_ scanning.ProgressReporter = (*Log)(nil)
	_ scanning.ProgressReporter = Multi(nil)
)

// Bar renders a single progress bar to w. The bar starts at the resume index
// so resumed runs show the files already done.
type Bar struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

// NewBar creates a Bar writing to w.
func NewBar(w io.Writer) *Bar { return &Bar{w: w} }

// Start creates the bar for total files with start already complete.
func (b *Bar) Start(_ context.Context, total, start int) {
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.w),
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(b.w, "\n") }),
	)
	_ = b.bar.Set(start)
}

// Advance moves the bar by one file.
func (b *Bar) Advance(context.Context, scanning.ScanTarget, bool) {
	if b.bar == nil {
		return
	}
	_ = b.bar.Add(1)
}

// Finish completes the bar.
func (b *Bar) Finish(context.Context, scanning.RunReport) {
	if b.bar == nil {
		return
	}
	_ = b.bar.Finish()
}

// Log reports progress through the logger every interval files and records a
// span event for each recorded file.
type Log struct {
	interval int

	total, done, failed int

	logger *logger.Logger
}

// NewLog creates a Log reporter. An interval below 1 logs every file.
func NewLog(log *logger.Logger, interval int) *Log {
	if interval < 1 {
		interval = 1
	}
	return &Log{interval: interval, logger: log.With("component", "progress_reporter")}
}

func (l *Log) Start(ctx context.Context, total, start int) {
	l.total, l.done, l.failed = total, start, 0
	l.logger.Info(ctx, "Scan started", "total_files", total, "start_index", start)
}

func (l *Log) Advance(ctx context.Context, target scanning.ScanTarget, failed bool) {
	l.done++
	if failed {
		l.failed++
	}

	trace.SpanFromContext(ctx).AddEvent("file_recorded", trace.WithAttributes(
		attribute.String("path", target.RelPath()),
		attribute.Bool("failed", failed),
	))

	if l.done%l.interval == 0 || l.done == l.total {
		l.logger.Info(ctx, "Scan progress",
			"done", l.done,
			"total_files", l.total,
			"failed", l.failed,
		)
	}
}

func (l *Log) Finish(ctx context.Context, report scanning.RunReport) {
	l.logger.Debug(ctx, "Scan finished",
		"total_files", report.Total,
		"skipped", report.Skipped,
		"analyzed", len(report.AnalyzedFiles),
		"with_findings", len(report.WithFindings()),
		"errors", len(report.Errors),
	)
}

// Multi forwards every call to each reporter in order.
type Multi []scanning.ProgressReporter

func (m Multi) Start(ctx context.Context, total, start int) {
	for _, r := range m {
		r.Start(ctx, total, start)
	}
}

func (m Multi) Advance(ctx context.Context, target scanning.ScanTarget, failed bool) {
	for _, r := range m {
		r.Advance(ctx, target, failed)
	}
}

func (m Multi) Finish(ctx context.Context, report scanning.RunReport) {
	for _, r := range m {
		r.Finish(ctx, report)
	}
}
