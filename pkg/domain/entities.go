// Package domain defines the core value types of the photodynamic-therapy
// data pipeline: uploaded files, combined result rows, derived statistics,
// control baselines, survival rows, and plot partitions.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ReplicateCount is the fixed number of replicate measurement columns per
// result row (result_001..result_012).
const ReplicateCount = 12

// UploadedFile is a named byte blob handed to the validator by the upload
// surface. Transient; discarded after validation.
type UploadedFile struct {
	Name    string
	Content []byte
}

// ValidatedFile is an uploaded file that passed schema validation. Its
// content is re-encoded CSV with a trailing user_id column stamped with the
// owning session id on every data row.
type ValidatedFile struct {
	Name      string
	Content   []byte
	SessionID string
}

// ResultRow is one record of the session-scoped combined view: a single
// (experiment, treatment time, drug, cell line) condition with its replicate
// measurements. Replicate entries may be nil when the source cell was empty.
type ResultRow struct {
	ExperimentID      string
	ExperimentNumber  int
	CellLineCode      string
	CellLineName      string
	DrugCode          string
	DrugName          string
	TreatmentTime     string
	DrugConcentration float64
	Replicates        [ReplicateCount]*float64
	SessionID         string
}

// AnalyzedRow is a ResultRow plus its row-wise mean and sample standard
// deviation across the non-nil replicates, rounded to two decimals. Both are
// nil when every replicate is nil.
type AnalyzedRow struct {
	ResultRow
	Mean *float64
	Std  *float64
}

// IsControl reports whether the row is an untreated control: zero treatment
// time and zero drug concentration.
func (r ResultRow) IsControl() bool {
	minutes, err := TreatmentMinutes(r.TreatmentTime)
	return err == nil && minutes == 0 && r.DrugConcentration == 0
}

// BaselineKey groups control rows by the pair that defines a baseline.
type BaselineKey struct {
	DrugName     string
	CellLineName string
}

func (k BaselineKey) String() string {
	return fmt.Sprintf("%s/%s", k.DrugName, k.CellLineName)
}

// ControlBaseline is the averaged control mean for one (drug, cell line)
// pair. At most one baseline exists per pair.
type ControlBaseline struct {
	Key  BaselineKey
	Mean float64
}

// SurvivalRow is an AnalyzedRow joined to its control baseline, carrying the
// survival rate as a percentage of the baseline mean. SurvivalRate is nil
// when the row mean is nil.
type SurvivalRow struct {
	AnalyzedRow
	BaselineMean float64
	SurvivalRate *float64
}

// FilterType selects the dimension a plot partition is filtered on.
type FilterType string

const (
	// FilterDrug partitions rows for a single drug, colored by cell line.
	FilterDrug FilterType = "drug"
	// FilterCellLine partitions rows for a single cell line, colored by drug.
	FilterCellLine FilterType = "cell_line"
)

// PlotPartition is one chart-ready subset of survival rows: a single
// (filter, selected value, treatment time) triple plus display metadata.
type PlotPartition struct {
	Filter        FilterType
	SelectedValue string
	TreatmentTime string
	ColorColumn   string
	XColumn       string
	YColumn       string
	Title         string
	XTitle        string
	YTitle        string
	Rows          []SurvivalRow
}

// TreatmentMinutes extracts the numeric magnitude of a treatment time label.
// Labels carry a leading integer and an optional unit suffix ("5 min", "60").
func TreatmentMinutes(label string) (int, error) {
	trimmed := strings.TrimSpace(label)
	end := 0
	for end < len(trimmed) && (trimmed[end] >= '0' && trimmed[end] <= '9' || end == 0 && (trimmed[end] == '-' || trimmed[end] == '+')) {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("treatment time %q has no numeric prefix", label)
	}
	minutes, err := strconv.Atoi(trimmed[:end])
	if err != nil {
		return 0, fmt.Errorf("treatment time %q: %w", label, err)
	}
	return minutes, nil
}
