package scanning

import "errors"

// Error kinds. Every per-file failure is a *FileError whose Kind is one of
// these, so callers can branch with errors.Is.
var (
	// ErrConfiguration is fatal and only raised at startup.
	ErrConfiguration = errors.New("configuration error")
	// ErrPathValidation marks a target that escapes the corpus root.
	ErrPathValidation = errors.New("path validation error")
	// ErrExtraction marks a format-specific extractor failure.
	ErrExtraction = errors.New("extraction error")
	// ErrPersistence marks a checkpoint or result store failure. It is
	// logged, never propagated as a file failure.
	ErrPersistence = errors.New("persistence error")
)

// FileError describes the failure of one stage for one file.
type FileError struct {
	Kind error
	Path string
	Err  error
}

// Error returns the cause message alone; this is what lands in error-files.json.
func (e *FileError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Err.Error()
}

// Unwrap exposes the cause.
func (e *FileError) Unwrap() error { return e.Err }

// Is matches the error kind.
func (e *FileError) Is(target error) bool { return e.Kind == target }

// NewExtractionError wraps err as an extraction failure for path.
func NewExtractionError(path string, err error) *FileError {
	return &FileError{Kind: ErrExtraction, Path: path, Err: err}
}

// NewPersistenceError wraps err as a store failure for path.
func NewPersistenceError(path string, err error) *FileError {
	return &FileError{Kind: ErrPersistence, Path: path, Err: err}
}
