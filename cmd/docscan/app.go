package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/term"

	"github.com/ahrav/docleaks/internal/app/scanning"
	"github.com/ahrav/docleaks/internal/config"
	"github.com/ahrav/docleaks/internal/config/fileloader"
	"github.com/ahrav/docleaks/internal/domain/detection"
	domain "github.com/ahrav/docleaks/internal/domain/scanning"
	"github.com/ahrav/docleaks/internal/infra/extraction"
	"github.com/ahrav/docleaks/internal/infra/extraction/heic"
	"github.com/ahrav/docleaks/internal/infra/extraction/ocr"
	progressreporter "github.com/ahrav/docleaks/internal/infra/progress_reporter"
	"github.com/ahrav/docleaks/internal/infra/scanner"
	"github.com/ahrav/docleaks/internal/infra/storage/jsonfile"
	"github.com/ahrav/docleaks/pkg/common/logger"
	"github.com/ahrav/docleaks/pkg/common/otel"
)

// progressLogInterval is how many files pass between progress log lines when
// no terminal bar is drawn.
const progressLogInterval = 100

// app holds the wired components shared by the subcommands.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	fs     afero.Fs
	tracer trace.Tracer

	checkpoint *jsonfile.CheckpointStore
	results    *jsonfile.ResultStore

	providers otel.Providers
	shutdown  func(ctx context.Context)
}

func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log.Info(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0), "build", build)
	log.Info(ctx, "startup", "status", "initializing tracing and metrics support")

	providers, shutdown, err := otel.InitTelemetry(log, otel.Config{
		ServiceName:      cfg.Telemetry.ServiceName,
		ExporterEndpoint: cfg.Telemetry.Endpoint,
		Probability:      cfg.Telemetry.SamplingRatio,
		InsecureExporter: cfg.Telemetry.Insecure,
		ResourceAttributes: map[string]string{
			"corpus_root": cfg.LocalDir,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("starting telemetry: %w", err)
	}

	fs := afero.NewOsFs()
	tracer := providers.Tracer.Tracer(cfg.Telemetry.ServiceName)

	return &app{
		cfg:        cfg,
		log:        log,
		fs:         fs,
		tracer:     tracer,
		checkpoint: jsonfile.NewCheckpointStore(fs, cfg.CheckpointFile(), log, tracer),
		results:    jsonfile.NewResultStore(fs, cfg.SensitiveFile(), cfg.ErrorFile(), log, tracer),
		providers:  providers,
		shutdown:   shutdown,
	}, nil
}

// buildRegistry returns the built-in rules extended by the optional rules file.
func (a *app) buildRegistry(ctx context.Context) (*detection.Registry, error) {
	registry := detection.DefaultRegistry()
	if a.cfg.RulesFile == "" {
		return registry, nil
	}

	rf, err := fileloader.NewFileLoader(a.fs, a.cfg.RulesFile).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	extra := make([]detection.Rule, 0, len(rf.Rules))
	for _, spec := range rf.Rules {
		if registry.Has(spec.Name) {
			return nil, fmt.Errorf("%w: rule %q redefines a built-in category", domain.ErrConfiguration, spec.Name)
		}
		rule, err := detection.NewRule(spec.Name, spec.Pattern, spec.CaseInsensitive)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
		}
		extra = append(extra, rule)
	}

	registry, err = registry.Extend(extra...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	a.log.Info(ctx, "Custom detection rules loaded", "rules_file", a.cfg.RulesFile, "num_rules", len(extra))

	return registry, nil
}

func (a *app) buildDetector(ctx context.Context) (*detection.Detector, error) {
	registry, err := a.buildRegistry(ctx)
	if err != nil {
		return nil, err
	}
	a.log.Info(ctx, "Detection rules ready", "num_rules", registry.Len())
	for _, rule := range registry.Rules() {
		a.log.Debug(ctx, "Detection rule", "category", rule.Name(), "pattern", rule.Pattern())
	}

	var matchers []detection.Matcher
	if a.cfg.Detection.GitleaksRules {
		gl, err := scanner.NewGitleaksMatcher(ctx, a.log)
		if err != nil {
			return nil, fmt.Errorf("loading gitleaks ruleset: %w", err)
		}
		a.log.Info(ctx, "Gitleaks ruleset enabled", "num_rules", len(gl.RuleIDs()))
		matchers = append(matchers, gl)
	}

	return detection.NewDetector(registry, matchers...), nil
}

func (a *app) buildProgress() domain.ProgressReporter {
	logReporter := progressreporter.NewLog(a.log, progressLogInterval)
	if a.cfg.Progress.Bar && term.IsTerminal(int(os.Stderr.Fd())) {
		return progressreporter.Multi{progressreporter.NewBar(os.Stderr), logReporter}
	}
	return logReporter
}

func (a *app) buildOrchestrator(ctx context.Context) (*scanning.Orchestrator, error) {
	detector, err := a.buildDetector(ctx)
	if err != nil {
		return nil, err
	}

	metrics, err := scanning.NewScanMetrics(a.providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("creating scan metrics: %w", err)
	}

	extractor := extraction.NewDispatcher(
		a.fs,
		ocr.NewTesseractEngine(a.cfg.OCR.Languages, a.cfg.OCR.TessdataPrefix),
		heic.NewConverter(),
		a.log,
		a.tracer,
	)

	return scanning.NewOrchestrator(
		scanning.OrchestratorConfig{
			Root:                a.cfg.LocalDir,
			ExcludedExtensions:  a.cfg.ExcludedExtensions,
			RetainExtractedText: a.cfg.RetainExtractedText,
		},
		a.fs,
		extractor,
		detector,
		a.checkpoint,
		a.results,
		a.buildProgress(),
		a.log,
		a.tracer,
		metrics,
	), nil
}

func (a *app) close(ctx context.Context) {
	a.shutdown(ctx)
}
