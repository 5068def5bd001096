package scanning

import "fmt"

// FileState is the lifecycle position of a single file within a run.
type FileState string

const (
	FileStatePending    FileState = "PENDING"
	FileStateExtracting FileState = "EXTRACTING"
	FileStateDetecting  FileState = "DETECTING"
	FileStateFailed     FileState = "FAILED"
	FileStateRecorded   FileState = "RECORDED"
)

// String returns the string representation of the FileState.
func (s FileState) String() string { return string(s) }

// IsTerminal reports whether no further transition is possible.
func (s FileState) IsTerminal() bool { return s == FileStateRecorded }

// IsValidTransition checks if moving from s to target is allowed.
//
//	PENDING -> EXTRACTING -> DETECTING -> RECORDED
//	PENDING | EXTRACTING | DETECTING -> FAILED -> RECORDED
func (s FileState) IsValidTransition(target FileState) bool {
	switch s {
	case FileStatePending:
		return target == FileStateExtracting || target == FileStateFailed
	case FileStateExtracting:
		return target == FileStateDetecting || target == FileStateFailed
	case FileStateDetecting:
		return target == FileStateRecorded || target == FileStateFailed
	case FileStateFailed:
		return target == FileStateRecorded
	default:
		return false
	}
}

// ValidateTransition returns an error when moving from s to target is not allowed.
func (s FileState) ValidateTransition(target FileState) error {
	if !s.IsValidTransition(target) {
		return fmt.Errorf("invalid file state transition from %s to %s", s, target)
	}
	return nil
}

// FileProgress tracks one file through its states. It is owned by the
// orchestrator for the duration of that file only.
type FileProgress struct {
	target ScanTarget
	state  FileState
	err    error
}

// NewFileProgress starts tracking target in the PENDING state.
func NewFileProgress(target ScanTarget) *FileProgress {
	return &FileProgress{target: target, state: FileStatePending}
}

// Target returns the tracked file.
func (p *FileProgress) Target() ScanTarget { return p.target }

// State returns the current state.
func (p *FileProgress) State() FileState { return p.state }

// Err returns the failure cause once the file has FAILED.
func (p *FileProgress) Err() error { return p.err }

// Advance moves to target, enforcing the transition table.
func (p *FileProgress) Advance(target FileState) error {
	if err := p.state.ValidateTransition(target); err != nil {
		return err
	}
	p.state = target
	return nil
}

// Fail records err and moves to FAILED.
func (p *FileProgress) Fail(err error) error {
	if err := p.Advance(FileStateFailed); err != nil {
		return err
	}
	p.err = err
	return nil
}
