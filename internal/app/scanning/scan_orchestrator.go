// Package scanning provides the service that drives a resumable scan of a local
// document corpus: enumeration, per-file extraction and detection, result
// recording and checkpointing.
package scanning

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/docleaks/internal/domain/detection"
	domain "github.com/ahrav/docleaks/internal/domain/scanning"
	"github.com/ahrav/docleaks/pkg/common/logger"
)

// Detector finds sensitive substrings in text.
type Detector interface {
	Detect(text string) detection.MatchSet
}

// OrchestratorConfig holds the corpus settings used by a run.
type OrchestratorConfig struct {
	// Root is the absolute corpus root.
	Root string
	// ExcludedExtensions are filtered out during enumeration.
	ExcludedExtensions []string
	// RetainExtractedText keeps extracted text on returned results.
	RetainExtractedText bool
}

// Orchestrator processes corpus files strictly one at a time in enumeration
// order. After every file, whatever its outcome, the checkpoint is advanced so
// an interrupted run resumes at the next file.
type Orchestrator struct {
	cfg OrchestratorConfig
	fs  afero.Fs

	extractor  domain.TextExtractor
	detector   Detector
	checkpoint domain.CheckpointStore
	results    domain.ResultStore
	progress   domain.ProgressReporter

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics ScanMetrics
}

// NewOrchestrator creates an Orchestrator over the corpus described by cfg.
func NewOrchestrator(
	cfg OrchestratorConfig,
	fs afero.Fs,
	extractor domain.TextExtractor,
	detector Detector,
	checkpoint domain.CheckpointStore,
	results domain.ResultStore,
	progress domain.ProgressReporter,
	log *logger.Logger,
	tracer trace.Tracer,
	metrics ScanMetrics,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		fs:         fs,
		extractor:  extractor,
		detector:   detector,
		checkpoint: checkpoint,
		results:    results,
		progress:   progress,
		logger:     log.With("component", "scan_orchestrator"),
		tracer:     tracer,
		metrics:    metrics,
	}
}

// ScanAll scans every enumerated file from the checkpoint onwards. Per-file
// failures are collected in the report and never stop the run. If the corpus
// cannot be enumerated the report holds a single error naming the root.
// Cancellation of ctx is observed between files only: the file in flight
// runs to completion and is checkpointed before the run stops.
func (o *Orchestrator) ScanAll(ctx context.Context) domain.RunReport {
	runID := uuid.New()
	log := o.logger.With("run_id", runID.String())

	ctx, span := o.tracer.Start(ctx, "scan_orchestrator.scan_all",
		trace.WithAttributes(
			attribute.String("run_id", runID.String()),
			attribute.String("root", o.cfg.Root),
		))
	defer span.End()

	report := domain.RunReport{
		AnalyzedFiles: []domain.AnalyzedFile{},
		Errors:        []domain.FileFailure{},
	}

	files, err := Enumerate(o.fs, o.cfg.Root, o.cfg.ExcludedExtensions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enumeration failed")
		log.Error(ctx, "Error collecting files", "root", o.cfg.Root, "error", err)
		report.Errors = append(report.Errors, domain.FileFailure{FilePath: o.cfg.Root, Error: err.Error()})
		return report
	}

	start := 0
	if cp, ok := o.checkpoint.Read(ctx); ok {
		start = ResumeIndex(files, cp)
		log.Info(ctx, "Resuming scan", "checkpoint", cp, "start_index", start)
	}
	report.Total = len(files)
	report.Skipped = start
	span.SetAttributes(attribute.Int("total_files", len(files)), attribute.Int("start_index", start))

	o.progress.Start(ctx, len(files), start)

	for i := start; i < len(files); i++ {
		if err := ctx.Err(); err != nil {
			log.Warn(ctx, "Scan interrupted", "next_file", files[i], "error", err)
			span.AddEvent("scan_interrupted")
			break
		}

		full := files[i]
		target, err := domain.TargetFromAbs(o.cfg.Root, full)
		if err != nil {
			target = domain.NewScanTarget(o.cfg.Root, full)
		}

		fileCtx := context.WithoutCancel(ctx)
		prog := domain.NewFileProgress(target)
		result, err := o.analyze(fileCtx, prog)
		if err != nil {
			report.Errors = append(report.Errors, domain.FileFailure{FilePath: target.RelPath(), Error: err.Error()})
		} else {
			report.AnalyzedFiles = append(report.AnalyzedFiles, domain.AnalyzedFile{FilePath: target.RelPath(), Result: result})
		}

		if err := prog.Advance(domain.FileStateRecorded); err != nil || !prog.State().IsTerminal() {
			log.Error(ctx, "Unexpected file state", "path", full, "state", prog.State(), "error", err)
		}
		if err := o.checkpoint.Write(fileCtx, full); err != nil {
			o.persistenceFailed(fileCtx, "checkpoint", full, err)
		}

		o.progress.Advance(ctx, target, prog.Err() != nil)
	}

	o.progress.Finish(ctx, report)
	span.SetAttributes(
		attribute.Int("analyzed_files", len(report.AnalyzedFiles)),
		attribute.Int("errors", len(report.Errors)),
	)
	log.Info(ctx, fmt.Sprintf("Scan completed: %d files analyzed, %d errors",
		len(report.AnalyzedFiles), len(report.Errors)))

	return report
}

// AnalyzeFile validates, extracts and scans the file at relPath under the
// corpus root. Findings are appended to the findings log; any failure is
// appended to the error log and returned.
func (o *Orchestrator) AnalyzeFile(ctx context.Context, relPath string) (domain.ScanResult, error) {
	return o.analyze(ctx, domain.NewFileProgress(domain.NewScanTarget(o.cfg.Root, relPath)))
}

func (o *Orchestrator) analyze(ctx context.Context, prog *domain.FileProgress) (domain.ScanResult, error) {
	target := prog.Target()
	ctx, span := o.tracer.Start(ctx, "scan_orchestrator.analyze_file",
		trace.WithAttributes(
			attribute.String("path", target.RelPath()),
			attribute.String("extension", target.Ext()),
		))
	defer span.End()

	var result domain.ScanResult
	err := o.metrics.TrackFile(ctx, func() error {
		var err error
		result, err = o.runStages(ctx, prog)
		return err
	})
	if err != nil {
		if ferr := prog.Fail(err); ferr != nil {
			o.logger.Error(ctx, "Unexpected file state", "path", target.RelPath(), "error", ferr)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "file failed")
		o.metrics.IncFileErrors(ctx, errorKind(err))
		o.logger.Error(ctx, "Error analyzing file", "path", target.RelPath(), "error", err)

		if perr := o.results.AppendError(ctx, target.FullPath(), err.Error()); perr != nil {
			o.persistenceFailed(ctx, "error_log", target.FullPath(), perr)
		}
		return domain.ScanResult{}, err
	}

	o.metrics.IncFilesProcessed(ctx)
	span.SetAttributes(attribute.Bool("has_sensitive_data", result.HasSensitiveData))

	if result.HasSensitiveData {
		o.metrics.ObserveFindings(ctx, result.Matches)
		o.logger.Warn(ctx, "Sensitive data found",
			"path", target.FullPath(),
			"categories", result.Matches.Categories(),
			"matches", result.Matches.Total(),
		)
		if perr := o.results.AppendFinding(ctx, target.FullPath(), result.Matches); perr != nil {
			o.persistenceFailed(ctx, "findings_log", target.FullPath(), perr)
		}
	}

	if !o.cfg.RetainExtractedText {
		result = result.WithoutText()
	}
	return result, nil
}

// runStages moves prog through validation, extraction and detection. On error
// prog is left in the stage that failed.
func (o *Orchestrator) runStages(ctx context.Context, prog *domain.FileProgress) (domain.ScanResult, error) {
	target := prog.Target()
	if err := target.Validate(); err != nil {
		return domain.ScanResult{}, err
	}

	if err := prog.Advance(domain.FileStateExtracting); err != nil {
		return domain.ScanResult{}, err
	}
	text, err := o.extractor.Extract(ctx, target.FullPath())
	if err != nil {
		var fe *domain.FileError
		if !errors.As(err, &fe) {
			err = domain.NewExtractionError(target.FullPath(), err)
		}
		return domain.ScanResult{}, err
	}

	if err := prog.Advance(domain.FileStateDetecting); err != nil {
		return domain.ScanResult{}, err
	}
	return domain.NewScanResult(o.detector.Detect(text), text), nil
}

func (o *Orchestrator) persistenceFailed(ctx context.Context, store, path string, err error) {
	o.metrics.IncPersistenceErrors(ctx, store)
	o.logger.Error(ctx, "Failed to persist scan state", "store", store, "path", path, "error", err)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrPathValidation):
		return "path_validation"
	case errors.Is(err, domain.ErrExtraction):
		return "extraction"
	default:
		return "unknown"
	}
}
