package scanning

import (
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/afero"

	domain "github.com/ahrav/docleaks/internal/domain/scanning"
)

// Enumerate walks root and returns every regular file whose extension is not
// excluded, as root-joined paths in ascending order. Directories, symlinks and
// leftover partial mirror downloads are not returned. Any walk error aborts the
// enumeration.
func Enumerate(fs afero.Fs, root string, excluded []string) ([]string, error) {
	skip := make(map[string]struct{}, len(excluded))
	for _, ext := range excluded {
		skip[strings.ToLower(ext)] = struct{}{}
	}

	var files []string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() || domain.IsPartialDownload(info.Name()) {
			return nil
		}
		if _, ok := skip[strings.ToLower(filepath.Ext(path))]; ok {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// ResumeIndex returns the position after checkpoint in files, or 0 when the
// checkpoint is empty or no longer enumerated.
func ResumeIndex(files []string, checkpoint string) int {
	if checkpoint == "" {
		return 0
	}
	if i := slices.Index(files, checkpoint); i >= 0 {
		return i + 1
	}
	return 0
}
