// Command docscan scans a local document corpus for sensitive data. Runs are
// resumable: progress is checkpointed after every file and findings and
// per-file errors are appended to JSON logs in the state directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/ahrav/docleaks/internal/config"
	"github.com/ahrav/docleaks/pkg/common/logger"
	"github.com/ahrav/docleaks/pkg/common/otel"
)

var build = "develop"

const serviceType = "docscan"

var configFile string

var rootCmd = &cobra.Command{
	Use:   "docscan",
	Short: "Scan a document corpus for sensitive data",
	Long: `docscan walks the directory named by LOCAL_DIR, extracts text from every
non-excluded file (plain text, PDF, DOCX, images via OCR) and records files
containing sensitive data. Interrupted runs resume after the last processed file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runScan,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")
}

func main() {
	_, _ = maxprocs.Set()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "docscan: interrupt received, stopping after the current file")
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and builds the process logger.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(cfg), nil
}

func newLogger(cfg *config.Config) *logger.Logger {
	hostname, _ := os.Hostname()

	traceIDFn := func(ctx context.Context) string {
		return otel.GetTraceID(ctx)
	}

	metadata := map[string]string{
		"hostname": hostname,
		"app":      serviceType,
		"build":    build,
	}

	level := logger.ParseLevel(cfg.Log.Level)
	if cfg.Log.Format == "text" {
		return logger.NewText(os.Stdout, level, cfg.Telemetry.ServiceName, traceIDFn)
	}
	return logger.NewWithMetadata(os.Stdout, level, cfg.Telemetry.ServiceName, traceIDFn, logger.Events{}, metadata)
}
