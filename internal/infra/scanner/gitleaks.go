// Package scanner adapts the gitleaks detection engine to the detection.Matcher
// interface so its embedded secrets ruleset can run next to the built-in
// sensitive data rules.
package scanner

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/spf13/viper"
	"github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"

	"github.com/ahrav/docleaks/internal/domain/detection"
	"github.com/ahrav/docleaks/pkg/common/logger"
)

// CategoryPrefix is prepended to gitleaks rule IDs to form match categories.
const CategoryPrefix = "gitleaks:"

var _ detection.Matcher = (*GitleaksMatcher)(nil)

// GitleaksMatcher reports every gitleaks finding under "gitleaks:<rule-id>"
// with the matched secret as the value.
type GitleaksMatcher struct {
	detector *detect.Detector
}

// NewGitleaksMatcher creates a matcher over the embedded gitleaks default
// configuration.
func NewGitleaksMatcher(ctx context.Context, log *logger.Logger) (*GitleaksMatcher, error) {
	detector, err := setupGitleaksDetector()
	if err != nil {
		return nil, err
	}

	log.With("component", "gitleaks_matcher").Info(ctx, "Gitleaks ruleset loaded",
		"num_rules", len(detector.Config.Rules))

	return &GitleaksMatcher{detector: detector}, nil
}

// setupGitleaksDetector initializes the Gitleaks detector using the embedded default configuration.
func setupGitleaksDetector() (*detect.Detector, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(bytes.NewBufferString(config.DefaultConfig)); err != nil {
		return nil, fmt.Errorf("failed to read embedded config: %w", err)
	}

	var vc config.ViperConfig
	if err := v.Unmarshal(&vc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedded config: %w", err)
	}

	cfg, err := vc.Translate()
	if err != nil {
		return nil, fmt.Errorf("failed to translate ViperConfig to Config: %w", err)
	}

	return detect.NewDetector(cfg), nil
}

// Match runs the gitleaks detector over text.
func (m *GitleaksMatcher) Match(text string) detection.MatchSet {
	findings := m.detector.DetectString(text)
	if len(findings) == 0 {
		return nil
	}

	matches := make(detection.MatchSet)
	for _, f := range findings {
		secret := f.Secret
		if secret == "" {
			secret = f.Match
		}
		category := CategoryPrefix + f.RuleID
		matches[category] = append(matches[category], secret)
	}
	return matches
}

// RuleIDs returns the loaded gitleaks rule IDs in sorted order.
func (m *GitleaksMatcher) RuleIDs() []string {
	ids := make([]string, 0, len(m.detector.Config.Rules))
	for id := range m.detector.Config.Rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
