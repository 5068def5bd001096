package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	domain "github.com/ahrav/docleaks/internal/domain/scanning"
	"github.com/ahrav/docleaks/internal/infra/mirror/s3"
	"github.com/ahrav/docleaks/pkg/common"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the configured S3 bucket into LOCAL_DIR",
	Long: `Download every object of S3_BUCKET_NAME (optionally under S3_PREFIX) into
LOCAL_DIR. Objects whose local file already exists are skipped.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		return a.runSync(ctx)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func (a *app) runSync(ctx context.Context) error {
	s3cfg := a.cfg.S3
	if !s3cfg.Enabled() {
		return fmt.Errorf("%w: S3_BUCKET_NAME is not configured", domain.ErrConfiguration)
	}

	client, err := s3.NewClient(ctx, s3.ClientConfig{
		Region: s3cfg.Region,
		Key:    s3cfg.Key,
		Secret: s3cfg.Secret,
	})
	if err != nil {
		return err
	}

	retry := common.DefaultRetryConfig()
	retry.MaxRetries = s3cfg.MaxRetries

	mirror := s3.NewMirror(
		client,
		a.fs,
		s3.Config{
			Bucket:      s3cfg.Bucket,
			Prefix:      s3cfg.Prefix,
			Root:        a.cfg.LocalDir,
			Concurrency: s3cfg.Concurrency,
			Retry:       retry,
		},
		common.NewRateLimiter(s3cfg.RateLimit, s3cfg.Concurrency),
		a.log,
		a.tracer,
	)

	res, err := mirror.Sync(ctx)
	if err != nil {
		return fmt.Errorf("syncing bucket %s: %w", s3cfg.Bucket, err)
	}
	fmt.Printf("Download completed. Successfully downloaded: %d, Failed: %d\n",
		len(res.Downloaded)+len(res.Existing), len(res.Failed))

	return nil
}
