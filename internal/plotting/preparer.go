// Package plotting partitions survival rows into chart-ready subsets, one
// per treatment time, with display metadata for the rendering layer.
package plotting

import (
	"fmt"
	"sort"
	"strings"

	"pdtcore/pkg/domain"
)

// Default axis bindings mirror the interactive surface's presets.
const (
	DefaultXColumn = "drug_concentration"
	DefaultYColumn = "survival_rate"
)

// Partition filters rows to the selected drug or cell line and produces one
// partition per distinct treatment time, sorted ascending by the numeric
// magnitude of the time label. Empty partitions are valid output. Times
// whose labels cannot be parsed sort after all numeric labels.
func Partition(rows []domain.SurvivalRow, filter domain.FilterType, selected, xColumn, yColumn string) ([]domain.PlotPartition, error) {
	if filter != domain.FilterDrug && filter != domain.FilterCellLine {
		return nil, fmt.Errorf("unknown filter type %q", filter)
	}
	if xColumn == "" {
		xColumn = DefaultXColumn
	}
	if yColumn == "" {
		yColumn = DefaultYColumn
	}
	filtered := make([]domain.SurvivalRow, 0, len(rows))
	for _, row := range rows {
		if filterValue(row, filter) == selected {
			filtered = append(filtered, row)
		}
	}
	times := distinctTimes(filtered)

	colorColumn := "cell_line_name"
	if filter == domain.FilterCellLine {
		colorColumn = "drug_name"
	}

	partitions := make([]domain.PlotPartition, 0, len(times))
	for _, tt := range times {
		var subset []domain.SurvivalRow
		for _, row := range filtered {
			if row.TreatmentTime == tt {
				subset = append(subset, row)
			}
		}
		partitions = append(partitions, domain.PlotPartition{
			Filter:        filter,
			SelectedValue: selected,
			TreatmentTime: tt,
			ColorColumn:   colorColumn,
			XColumn:       xColumn,
			YColumn:       yColumn,
			Title:         fmt.Sprintf("%s, treatment time %s", selected, tt),
			XTitle:        AxisTitle(xColumn),
			YTitle:        AxisTitle(yColumn),
			Rows:          subset,
		})
	}
	return partitions, nil
}

// AxisTitle turns a column identifier into display text: underscores become
// spaces and each word is capitalized.
func AxisTitle(column string) string {
	words := strings.Split(strings.ReplaceAll(column, "_", " "), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}

func filterValue(row domain.SurvivalRow, filter domain.FilterType) string {
	if filter == domain.FilterDrug {
		return row.DrugName
	}
	return row.CellLineName
}

// distinctTimes returns the unique treatment-time labels sorted by their
// leading integer, not lexicographically ("5 min" before "10 min").
func distinctTimes(rows []domain.SurvivalRow) []string {
	seen := make(map[string]bool)
	var times []string
	for _, row := range rows {
		if !seen[row.TreatmentTime] {
			seen[row.TreatmentTime] = true
			times = append(times, row.TreatmentTime)
		}
	}
	sort.SliceStable(times, func(i, j int) bool {
		a, errA := domain.TreatmentMinutes(times[i])
		b, errB := domain.TreatmentMinutes(times[j])
		if errA != nil {
			return false
		}
		if errB != nil {
			return true
		}
		return a < b
	})
	return times
}
