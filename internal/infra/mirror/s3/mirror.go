// Package s3 mirrors an S3 bucket into the local corpus directory so it can be
// scanned. Keys ending in "/" are skipped, as are files already present
// locally; everything else is downloaded with bounded concurrency, a request
// rate limit and retries.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cenkalti/backoff"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/docleaks/internal/domain/scanning"
	"github.com/ahrav/docleaks/pkg/common"
	"github.com/ahrav/docleaks/pkg/common/logger"
	"github.com/ahrav/docleaks/pkg/common/otel"
)

// API is the subset of the S3 client the mirror uses.
type API interface {
	ListObjectsV2(ctx context.Context, params *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// ClientConfig holds the connection settings for NewClient.
type ClientConfig struct {
	Region string
	Key    string
	Secret string
}

// NewClient builds an S3 client. Static credentials are used when both key and
// secret are set; otherwise the default AWS credential chain applies.
func NewClient(ctx context.Context, cfg ClientConfig) (*awss3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Key != "" && cfg.Secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return awss3.NewFromConfig(awsCfg), nil
}

// Config describes what to mirror and where.
type Config struct {
	Bucket string
	Prefix string
	// Root is the local corpus directory objects are written under.
	Root        string
	Concurrency int
	Retry       common.RetryConfig
}

// Result lists the outcome per key.
type Result struct {
	// Downloaded holds local paths of objects fetched by this sync.
	Downloaded []string
	// Existing holds local paths that were already present and left alone.
	Existing []string
	// Failed holds the keys that could not be mirrored.
	Failed []string
}

// Mirror downloads bucket objects into a local directory.
type Mirror struct {
	client  API
	fs      afero.Fs
	cfg     Config
	limiter *common.RateLimiter

	logger *logger.Logger
	tracer trace.Tracer
}

// NewMirror creates a Mirror. A nil limiter disables rate limiting.
func NewMirror(
	client API,
	fs afero.Fs,
	cfg Config,
	limiter *common.RateLimiter,
	log *logger.Logger,
	tracer trace.Tracer,
) *Mirror {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if limiter == nil {
		limiter = common.NewRateLimiter(0, 1)
	}
	return &Mirror{
		client:  client,
		fs:      fs,
		cfg:     cfg,
		limiter: limiter,
		logger:  log.With("component", "s3_mirror", "bucket", cfg.Bucket),
		tracer:  tracer,
	}
}

// ListKeys returns every object key under the configured prefix.
func (m *Mirror) ListKeys(ctx context.Context) ([]string, error) {
	ctx, span := m.tracer.Start(ctx, "s3_mirror.list_keys",
		trace.WithAttributes(attribute.String("prefix", m.cfg.Prefix)))
	defer span.End()

	input := &awss3.ListObjectsV2Input{Bucket: aws.String(m.cfg.Bucket)}
	if m.cfg.Prefix != "" {
		input.Prefix = aws.String(m.cfg.Prefix)
	}

	var keys []string
	paginator := awss3.NewListObjectsV2Paginator(m.client, input)
	for paginator.HasMorePages() {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := paginator.NextPage(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "list failed")
			return nil, fmt.Errorf("Failed to list files: %w", err)
		}
		for _, obj := range page.Contents {
			if key := aws.ToString(obj.Key); key != "" {
				keys = append(keys, key)
			}
		}
	}
	span.SetAttributes(attribute.Int("num_keys", len(keys)))

	return keys, nil
}

// Sync mirrors every listed object that is not already present locally.
// Per-object failures are collected in the result; the returned error is
// reserved for listing failures and cancellation.
func (m *Mirror) Sync(ctx context.Context) (Result, error) {
	ctx, span := m.tracer.Start(ctx, "s3_mirror.sync",
		trace.WithAttributes(
			attribute.String("bucket", m.cfg.Bucket),
			attribute.String("root", m.cfg.Root),
			attribute.Int("concurrency", m.cfg.Concurrency),
			attribute.Bool("rate_limited", !m.limiter.Unlimited()),
		))
	defer span.End()

	m.logger.Info(ctx, "Start looking for files", "rate_limited", !m.limiter.Unlimited())
	keys, err := m.ListKeys(ctx)
	if err != nil {
		return Result{}, err
	}
	m.logger.Info(ctx, fmt.Sprintf("Found %d files", len(keys)))

	if err := m.fs.MkdirAll(m.cfg.Root, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create corpus root: %w", err)
	}

	var (
		mu  sync.Mutex
		res Result
	)
	record := func(dst *[]string, v string) {
		mu.Lock()
		*dst = append(*dst, v)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)

	for _, key := range keys {
		if strings.HasSuffix(key, "/") {
			m.logger.Debug(ctx, "Skipping directory key", "key", key)
			continue
		}

		local, err := m.localPath(key)
		if err != nil {
			m.logger.Error(ctx, "Failed to download", "key", key, "error", err)
			record(&res.Failed, key)
			continue
		}

		if info, err := m.fs.Stat(local); err == nil && info.Mode().IsRegular() {
			record(&res.Existing, local)
			continue
		}

		key := key
		g.Go(func() error {
			if err := m.download(gctx, key, local); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				m.logger.Error(gctx, "Failed to download", "key", key, "error", err)
				record(&res.Failed, key)
				return nil
			}
			record(&res.Downloaded, local)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync interrupted")
		return res, err
	}

	span.SetAttributes(
		attribute.Int("downloaded", len(res.Downloaded)),
		attribute.Int("existing", len(res.Existing)),
		attribute.Int("failed", len(res.Failed)),
	)
	m.logger.Info(ctx, fmt.Sprintf("Download completed. Successfully downloaded: %d, Failed: %d",
		len(res.Downloaded)+len(res.Existing), len(res.Failed)))

	return res, nil
}

// localPath maps key to a path under Root, rejecting keys that would escape it.
func (m *Mirror) localPath(key string) (string, error) {
	local := filepath.Join(m.cfg.Root, filepath.FromSlash(key))
	rel, err := filepath.Rel(m.cfg.Root, local)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("key %s resolves outside of %s", key, m.cfg.Root)
	}
	return local, nil
}

func (m *Mirror) download(ctx context.Context, key, local string) error {
	ctx, span := otel.AddSpan(ctx, m.tracer, "s3_mirror.download", attribute.String("key", key))
	defer span.End()

	op := func() error {
		if err := m.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := m.fetch(ctx, key, local)
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return backoff.Permanent(err)
		}
		return err
	}
	onRetry := func(err error) {
		m.logger.Warn(ctx, "Download attempt failed", "key", key, "error", err)
	}

	if err := common.RetryWithBackoff(ctx, m.cfg.Retry, op, onRetry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "download failed")
		return err
	}
	return nil
}

// fetch streams the object into a temp file next to local and renames it into
// place, so partial downloads never look like mirrored files.
func (m *Mirror) fetch(ctx context.Context, key, local string) error {
	out, err := m.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	defer out.Body.Close()

	dir := filepath.Dir(local)
	if err := m.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := afero.TempFile(m.fs, dir, scanning.PartialDownloadPattern(filepath.Base(local)))
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		_ = m.fs.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = m.fs.Remove(tmpName)
		return err
	}
	if err := m.fs.Chmod(tmpName, 0o644); err != nil && !errors.Is(err, os.ErrPermission) {
		_ = m.fs.Remove(tmpName)
		return err
	}
	return m.fs.Rename(tmpName, local)
}
