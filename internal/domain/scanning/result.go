package scanning

import "github.com/ahrav/docleaks/internal/domain/detection"

// ScanResult is the outcome of successfully extracting and scanning one file.
// HasSensitiveData is derived from Matches at construction and the value is
// not modified afterwards.
type ScanResult struct {
	HasSensitiveData bool               `json:"hasSensitiveData"`
	Matches          detection.MatchSet `json:"matches"`
	ExtractedText    string             `json:"extractedText,omitempty"`
}

// NewScanResult builds a ScanResult from a match set and the text it was
// computed from.
func NewScanResult(matches detection.MatchSet, text string) ScanResult {
	if matches == nil {
		matches = detection.MatchSet{}
	}
	return ScanResult{
		HasSensitiveData: len(matches) > 0,
		Matches:          matches,
		ExtractedText:    text,
	}
}

// WithoutText returns a copy of the result with the extracted text dropped.
func (r ScanResult) WithoutText() ScanResult {
	r.ExtractedText = ""
	return r
}

// FindingRecord is one entry of sensitive-files.json.
type FindingRecord struct {
	FilePath string             `json:"filePath"`
	Matches  detection.MatchSet `json:"matches"`
}

// ErrorRecord is one entry of error-files.json.
type ErrorRecord struct {
	FilePath string `json:"filePath"`
	Error    string `json:"error"`
}

// AnalyzedFile pairs a relative path with its scan result.
type AnalyzedFile struct {
	FilePath string     `json:"filePath"`
	Result   ScanResult `json:"result"`
}

// FileFailure pairs a relative path with the message of the error that stopped it.
type FileFailure struct {
	FilePath string `json:"filePath"`
	Error    string `json:"error"`
}

// RunReport is the return value of a full corpus scan.
type RunReport struct {
	AnalyzedFiles []AnalyzedFile `json:"analyzedFiles"`
	Errors        []FileFailure  `json:"errors"`
	// Total is the number of enumerated, non-excluded files.
	Total int `json:"total"`
	// Skipped is the number of files before the resume index.
	Skipped int `json:"skipped"`
}

// Processed returns how many files this run handled.
func (r RunReport) Processed() int { return len(r.AnalyzedFiles) + len(r.Errors) }

// WithFindings returns the analyzed files that matched at least one category.
func (r RunReport) WithFindings() []AnalyzedFile {
	var out []AnalyzedFile
	for _, f := range r.AnalyzedFiles {
		if f.Result.HasSensitiveData {
			out = append(out, f)
		}
	}
	return out
}
