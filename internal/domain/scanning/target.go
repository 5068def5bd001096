package scanning

import (
	"path/filepath"
	"strings"
)

// partialMarker separates a mirrored file's name from the random suffix of its
// in-progress download.
const partialMarker = ".part-"

// PartialDownloadPattern returns the temp file pattern under which a mirrored
// file named base is written before being renamed into place.
func PartialDownloadPattern(base string) string { return "." + base + partialMarker + "*" }

// IsPartialDownload reports whether base names an unfinished mirror download.
// Such files are left behind only when the mirror is killed mid-write.
func IsPartialDownload(base string) bool {
	return strings.HasPrefix(base, ".") && strings.Contains(base, partialMarker)
}

// ScanTarget identifies one file of the corpus by its path relative to the
// corpus root. Two targets are the same file iff their relative paths are equal.
type ScanTarget struct {
	root string
	rel  string
}

// NewScanTarget creates a target for rel under root.
func NewScanTarget(root, rel string) ScanTarget {
	return ScanTarget{root: root, rel: rel}
}

// TargetFromAbs builds a target from a root-joined path as produced by corpus
// enumeration.
func TargetFromAbs(root, abs string) (ScanTarget, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return ScanTarget{}, err
	}
	return ScanTarget{root: root, rel: rel}, nil
}

// RelPath returns the path relative to the corpus root.
func (t ScanTarget) RelPath() string { return t.rel }

// FullPath returns the root-joined path. This is the form written to the
// checkpoint and to the persisted logs.
func (t ScanTarget) FullPath() string { return filepath.Join(t.root, t.rel) }

// Ext returns the lower-cased file extension including the leading dot.
func (t ScanTarget) Ext() string { return strings.ToLower(filepath.Ext(t.rel)) }

// Validate rejects targets that resolve outside the corpus root.
func (t ScanTarget) Validate() error {
	full := t.FullPath()
	rel, err := filepath.Rel(filepath.Clean(t.root), full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return &FileError{
			Kind: ErrPathValidation,
			Path: t.rel,
			Err:  &pathEscapeError{rel: t.rel},
		}
	}
	return nil
}

type pathEscapeError struct{ rel string }

func (e *pathEscapeError) Error() string {
	return "Invalid file path: " + e.rel + " is outside of allowed directory"
}
