package config

import "context"

// RuleSpec describes a user supplied detection rule.
type RuleSpec struct {
	Name            string `yaml:"name"`
	Pattern         string `yaml:"pattern"`
	CaseInsensitive bool   `yaml:"case_insensitive"`
}

// RulesFile is the on-disk shape of a custom rules file.
type RulesFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// RulesLoader provides custom detection rules. It abstracts the source so the
// rules can come from a file, a test fixture or elsewhere.
type RulesLoader interface {
	// Load retrieves and parses the rules from the underlying source.
	Load(ctx context.Context) (*RulesFile, error)
}
