package fileloader

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/docleaks/internal/config"
)

func TestFileLoader_Load(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		want    []config.RuleSpec
		wantErr bool
	}{
		{
			name: "valid rules",
			content: `
rules:
  - name: employeeId
    pattern: 'EMP-\d{6}'
  - name: projectCode
    pattern: 'project\s+falcon'
    case_insensitive: true
`,
			want: []config.RuleSpec{
				{Name: "employeeId", Pattern: `EMP-\d{6}`},
				{Name: "projectCode", Pattern: `project\s+falcon`, CaseInsensitive: true},
			},
		},
		{
			name:    "empty file",
			content: "",
			want:    nil,
		},
		{
			name:    "missing pattern",
			content: "rules:\n  - name: broken\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			content: "rules: [\n",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "/rules.yaml", []byte(tc.content), 0o644))

			rf, err := NewFileLoader(fs, "/rules.yaml").Load(context.Background())
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, rf.Rules)
		})
	}
}

func TestFileLoader_MissingFile(t *testing.T) {
	_, err := NewFileLoader(afero.NewMemMapFs(), "/nope.yaml").Load(context.Background())
	assert.ErrorContains(t, err, "failed to read rules file")
}
