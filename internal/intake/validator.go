// Package intake validates uploaded CSV files against the fixed schema
// registry and stamps accepted rows with the owning session id.
package intake

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"pdtcore/pkg/domain"
)

// Validator checks uploaded files against the schema registry. It has no
// side effects; reporting is the caller's concern.
type Validator struct {
	sessionID string
}

// NewValidator returns a validator stamping rows with the given session id.
func NewValidator(sessionID string) *Validator {
	return &Validator{sessionID: sessionID}
}

// Validate checks each file in order. Valid files are re-encoded with a
// trailing session-id column; invalid files are reported individually.
// Partial success is allowed: output order preserves input order within each
// list.
func (v *Validator) Validate(files []domain.UploadedFile) ([]domain.ValidatedFile, []domain.Rejection) {
	var valid []domain.ValidatedFile
	var rejected []domain.Rejection
	for _, file := range files {
		expected, ok := domain.SchemaColumns(file.Name)
		if !ok {
			rejected = append(rejected, domain.Rejection{FileName: file.Name, Reason: domain.RejectUnknownFile})
			continue
		}
		records, err := parseCSV(file.Content)
		if err != nil {
			rejected = append(rejected, domain.Rejection{FileName: file.Name, Reason: domain.RejectUnreadable, Err: err})
			continue
		}
		if len(records) <= 1 {
			rejected = append(rejected, domain.Rejection{FileName: file.Name, Reason: domain.RejectEmptyFile})
			continue
		}
		header := records[0]
		if !equalColumns(header, expected) {
			rejected = append(rejected, domain.Rejection{
				FileName: file.Name,
				Reason:   domain.RejectSchemaMismatch,
				Expected: expected,
				Found:    append([]string(nil), header...),
			})
			continue
		}
		stamped, err := v.stamp(records)
		if err != nil {
			rejected = append(rejected, domain.Rejection{FileName: file.Name, Reason: domain.RejectUnreadable, Err: err})
			continue
		}
		valid = append(valid, domain.ValidatedFile{Name: file.Name, Content: stamped, SessionID: v.sessionID})
	}
	return valid, rejected
}

// stamp appends the session column to the header and the session id to every
// data row, returning re-encoded CSV bytes.
func (v *Validator) stamp(records [][]string) ([]byte, error) {
	out := make([][]string, 0, len(records))
	out = append(out, append(append([]string(nil), records[0]...), domain.SessionColumn))
	for _, row := range records[1:] {
		out = append(out, append(append([]string(nil), row...), v.sessionID))
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(out); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func parseCSV(content []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

func equalColumns(found, expected []string) bool {
	if len(found) != len(expected) {
		return false
	}
	for i := range found {
		if found[i] != expected[i] {
			return false
		}
	}
	return true
}
