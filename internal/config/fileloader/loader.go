package fileloader

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/docleaks/internal/config"
)

// FileLoader loads custom detection rules from a YAML file. It implements the
// config.RulesLoader interface.
type FileLoader struct {
	fs   afero.Fs
	path string
}

// NewFileLoader creates a new FileLoader that reads rules from path on fs.
func NewFileLoader(fs afero.Fs, path string) *FileLoader {
	return &FileLoader{fs: fs, path: path}
}

// Load reads and parses the rules file. Every rule must carry a name and a
// pattern; compilation is left to the detection registry.
func (l *FileLoader) Load(ctx context.Context) (*config.RulesFile, error) {
	data, err := afero.ReadFile(l.fs, l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rf config.RulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	for i, r := range rf.Rules {
		if r.Name == "" || r.Pattern == "" {
			return nil, fmt.Errorf("rule %d in %s: name and pattern are required", i, l.path)
		}
	}

	return &rf, nil
}
