package scanning

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPartialDownload(t *testing.T) {
	tests := []struct {
		name string
		base string
		want bool
	}{
		{name: "temp file from pattern", base: strings.Replace(PartialDownloadPattern("report.pdf"), "*", "93821", 1), want: true},
		{name: "mirrored file", base: "report.pdf", want: false},
		{name: "visible name with marker", base: "notes.part-1.txt", want: false},
		{name: "dotfile without marker", base: ".keep", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPartialDownload(tt.base))
		})
	}
}

func TestScanTarget_ValidateCleanedPaths(t *testing.T) {
	tests := []struct {
		name    string
		rel     string
		wantErr bool
	}{
		{name: "nested file", rel: "docs/a.txt"},
		{name: "parent escape", rel: "../a.txt", wantErr: true},
		{name: "cleaned back inside", rel: "docs/../a.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewScanTarget("/corpus", tt.rel).Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPathValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}
