// Package scanning provides the domain types and ports of the resumable
// corpus scan: targets, per-file results and states, the persisted record
// shapes and the interfaces the orchestrator drives.
package scanning

import (
	"context"

	"github.com/ahrav/docleaks/internal/domain/detection"
)

// TextExtractor turns a file into plain text or fails with a descriptive error.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// CheckpointStore persists the path of the last processed file.
type CheckpointStore interface {
	// Read returns the checkpointed path. ok is false when there is no usable
	// checkpoint; read failures are reported that way too.
	Read(ctx context.Context) (path string, ok bool)
	// Write replaces the checkpoint. It is called once per processed file.
	Write(ctx context.Context, path string) error
}

// ResultStore persists the findings and error logs.
type ResultStore interface {
	AppendFinding(ctx context.Context, path string, matches detection.MatchSet) error
	AppendError(ctx context.Context, path, message string) error
}

// ProgressReporter receives run progress. Implementations must be cheap; they
// are called synchronously between files.
type ProgressReporter interface {
	// Start is called once with the total file count and the resume index.
	Start(ctx context.Context, total, start int)
	// Advance is called after each file is recorded.
	Advance(ctx context.Context, target ScanTarget, failed bool)
	// Finish is called once with the final report.
	Finish(ctx context.Context, report RunReport)
}
