package domain

import (
	"errors"
	"fmt"
)

// RejectionReason classifies why an uploaded file was refused.
type RejectionReason string

const (
	// RejectUnknownFile marks a file whose name is not in the schema registry.
	RejectUnknownFile RejectionReason = "unknown_file"
	// RejectEmptyFile marks a registered file with zero data rows.
	RejectEmptyFile RejectionReason = "empty_file"
	// RejectSchemaMismatch marks a header that differs from the registered
	// column list in any position.
	RejectSchemaMismatch RejectionReason = "schema_mismatch"
	// RejectUnreadable marks content that could not be parsed as CSV at all.
	RejectUnreadable RejectionReason = "unreadable"
)

// Rejection reports one refused file. Expected and Found carry the full
// column lists for schema mismatches.
type Rejection struct {
	FileName string
	Reason   RejectionReason
	Expected []string
	Found    []string
	Err      error
}

func (r Rejection) String() string {
	switch r.Reason {
	case RejectSchemaMismatch:
		return fmt.Sprintf("%s: %s (expected %v, found %v)", r.FileName, r.Reason, r.Expected, r.Found)
	case RejectUnreadable:
		return fmt.Sprintf("%s: %s (%v)", r.FileName, r.Reason, r.Err)
	default:
		return fmt.Sprintf("%s: %s", r.FileName, r.Reason)
	}
}

// MissingControlBaselineError reports a row whose (drug, cell line) pair has
// no control baseline. Scoped to that row; the batch continues.
type MissingControlBaselineError struct {
	Key BaselineKey
}

func (e MissingControlBaselineError) Error() string {
	return fmt.Sprintf("no control baseline for %s", e.Key)
}

// ErrNoControlBaselines halts normalization before any survival rate is
// produced when the baseline set is entirely empty.
var ErrNoControlBaselines = errors.New("no control baselines in experiment data")

// ErrNoValidFiles halts the upload stage when every file was rejected.
var ErrNoValidFiles = errors.New("no valid files to upload")

// ErrExperimentNotFound halts analysis when no row matches the requested
// experiment number.
var ErrExperimentNotFound = errors.New("no rows match the requested experiment number")
