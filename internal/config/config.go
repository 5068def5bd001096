// Package config loads and validates process-wide configuration. Values come
// from defaults, an optional YAML file and environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/ahrav/docleaks/internal/domain/scanning"
)

// State file names, relative to StateDir.
const (
	SensitiveFileName  = "sensitive-files.json"
	ErrorFileName      = "error-files.json"
	CheckpointFileName = "last-processed.txt"
)

// Config represents the top-level configuration.
type Config struct {
	// LocalDir is the corpus root. Required.
	LocalDir string `mapstructure:"local_dir" validate:"required"`
	// StateDir holds the checkpoint and the two result logs.
	StateDir string `mapstructure:"state_dir" validate:"required"`
	// ExcludedExtensions are skipped during enumeration, never extracted.
	ExcludedExtensions []string `mapstructure:"excluded_extensions" validate:"dive,startswith=."`
	// RetainExtractedText keeps each file's text on its in-memory result.
	RetainExtractedText bool `mapstructure:"retain_extracted_text"`
	// RulesFile optionally points at a YAML file with extra detection rules.
	RulesFile string `mapstructure:"rules_file"`

	OCR       OCRConfig       `mapstructure:"ocr"`
	Detection DetectionConfig `mapstructure:"detection"`
	Log       LogConfig       `mapstructure:"log"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	S3        S3Config        `mapstructure:"s3"`
}

// OCRConfig configures the tesseract engine.
type OCRConfig struct {
	Languages      []string `mapstructure:"languages" validate:"min=1,dive,required"`
	TessdataPrefix string   `mapstructure:"tessdata_prefix"`
}

// DetectionConfig toggles optional rule sources.
type DetectionConfig struct {
	// GitleaksRules adds the embedded gitleaks default ruleset to the detector.
	GitleaksRules bool `mapstructure:"gitleaks_rules"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// ProgressConfig controls the terminal progress bar.
type ProgressConfig struct {
	Bar bool `mapstructure:"bar"`
}

// TelemetryConfig configures OTLP export. An empty endpoint disables export.
type TelemetryConfig struct {
	Endpoint      string  `mapstructure:"endpoint"`
	ServiceName   string  `mapstructure:"service_name" validate:"required"`
	SamplingRatio float64 `mapstructure:"sampling_ratio" validate:"gte=0,lte=1"`
	Insecure      bool    `mapstructure:"insecure"`
}

// S3Config configures the optional corpus mirror.
type S3Config struct {
	Bucket      string  `mapstructure:"bucket"`
	Prefix      string  `mapstructure:"prefix"`
	Region      string  `mapstructure:"region"`
	Key         string  `mapstructure:"key"`
	Secret      string  `mapstructure:"secret"`
	Concurrency int     `mapstructure:"concurrency" validate:"min=1"`
	RateLimit   float64 `mapstructure:"rate_limit" validate:"gte=0"`
	MaxRetries  uint64  `mapstructure:"max_retries"`
}

// Enabled reports whether a bucket is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// SensitiveFile returns the findings log path.
func (c *Config) SensitiveFile() string { return filepath.Join(c.StateDir, SensitiveFileName) }

// ErrorFile returns the error log path.
func (c *Config) ErrorFile() string { return filepath.Join(c.StateDir, ErrorFileName) }

// CheckpointFile returns the checkpoint path.
func (c *Config) CheckpointFile() string { return filepath.Join(c.StateDir, CheckpointFileName) }

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"local_dir":                "LOCAL_DIR",
	"state_dir":                "STATE_DIR",
	"excluded_extensions":      "EXCLUDED_EXTENSIONS",
	"retain_extracted_text":    "RETAIN_EXTRACTED_TEXT",
	"rules_file":               "RULES_FILE",
	"ocr.languages":            "OCR_LANGUAGES",
	"ocr.tessdata_prefix":      "TESSDATA_PREFIX",
	"detection.gitleaks_rules": "DETECTION_GITLEAKS_RULES",
	"log.level":                "LOG_LEVEL",
	"log.format":               "LOG_FORMAT",
	"progress.bar":             "PROGRESS_BAR",
	"telemetry.endpoint":       "OTEL_EXPORTER_OTLP_ENDPOINT",
	"telemetry.service_name":   "OTEL_SERVICE_NAME",
	"telemetry.sampling_ratio": "OTEL_SAMPLING_RATIO",
	"telemetry.insecure":       "OTEL_EXPORTER_OTLP_INSECURE",
	"s3.bucket":                "S3_BUCKET_NAME",
	"s3.prefix":                "S3_PREFIX",
	"s3.region":                "S3_REGION",
	"s3.key":                   "S3_KEY",
	"s3.secret":                "S3_SECRET",
	"s3.concurrency":           "S3_CONCURRENCY",
	"s3.rate_limit":            "S3_RATE_LIMIT",
	"s3.max_retries":           "S3_MAX_RETRIES",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("state_dir", ".")
	v.SetDefault("excluded_extensions", []string{".csv", ".xls"})
	v.SetDefault("retain_extracted_text", true)
	v.SetDefault("ocr.languages", []string{"eng"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("progress.bar", true)
	v.SetDefault("telemetry.service_name", "docscan")
	v.SetDefault("telemetry.sampling_ratio", 0.05)
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("s3.concurrency", 4)
	v.SetDefault("s3.max_retries", 3)
}

// Load reads configuration from defaults, configFile (when non-empty) and the
// environment. A missing corpus root or any invalid value returns an error
// wrapping scanning.ErrConfiguration.
func Load(configFile string) (*Config, error) {
	return LoadWith(viper.New(), configFile)
}

// LoadWith is Load over a caller supplied viper instance.
func LoadWith(v *viper.Viper, configFile string) (*Config, error) {
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("%w: bind %s: %v", scanning.ErrConfiguration, env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read config file: %v", scanning.ErrConfiguration, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode config: %v", scanning.ErrConfiguration, err)
	}

	if cfg.LocalDir == "" {
		return nil, fmt.Errorf("%w: LOCAL_DIR is not defined in configuration", scanning.ErrConfiguration)
	}

	cfg.normalize()
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(cfg.LocalDir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve LOCAL_DIR: %v", scanning.ErrConfiguration, err)
	}
	cfg.LocalDir = abs

	return &cfg, nil
}

func (c *Config) normalize() {
	exts := make([]string, 0, len(c.ExcludedExtensions))
	for _, e := range c.ExcludedExtensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	c.ExcludedExtensions = exts
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
}

func validate(cfg *Config) error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", scanning.ErrConfiguration, strings.Join(fields, "; "))
	}
	return fmt.Errorf("%w: %v", scanning.ErrConfiguration, err)
}
