// Package analysis implements the experiment statistics: replicate summary
// statistics, control baselines, and control-normalized survival rates.
package analysis

import (
	"math"
	"sort"

	"pdtcore/pkg/domain"
)

// Round2 rounds to two decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SelectExperiment filters rows to an exact experiment-number match. A pure
// function; an empty result means the experiment was not found and is valid.
func SelectExperiment(rows []domain.ResultRow, number int) []domain.ResultRow {
	var out []domain.ResultRow
	for _, row := range rows {
		if row.ExperimentNumber == number {
			out = append(out, row)
		}
	}
	return out
}

// Summarize computes each row's mean and sample standard deviation across
// its non-nil replicates, rounded to two decimals. A row with no replicate
// values gets nil for both; a single value yields a mean but no deviation.
func Summarize(rows []domain.ResultRow) []domain.AnalyzedRow {
	out := make([]domain.AnalyzedRow, 0, len(rows))
	for _, row := range rows {
		analyzed := domain.AnalyzedRow{ResultRow: row}
		values := make([]float64, 0, domain.ReplicateCount)
		for _, rep := range row.Replicates {
			if rep != nil {
				values = append(values, *rep)
			}
		}
		if len(values) > 0 {
			mean := Round2(mean(values))
			analyzed.Mean = &mean
		}
		if len(values) > 1 {
			std := Round2(sampleStd(values))
			analyzed.Std = &std
		}
		out = append(out, analyzed)
	}
	return out
}

// ComputeControls averages the mean of every control row (zero treatment
// time and zero concentration) per (drug, cell line) pair. Rows without a
// computable mean are skipped. Output is sorted by key for determinism.
func ComputeControls(rows []domain.AnalyzedRow) []domain.ControlBaseline {
	sums := make(map[domain.BaselineKey]struct {
		total float64
		count int
	})
	for _, row := range rows {
		if !row.IsControl() || row.Mean == nil {
			continue
		}
		key := domain.BaselineKey{DrugName: row.DrugName, CellLineName: row.CellLineName}
		agg := sums[key]
		agg.total += *row.Mean
		agg.count++
		sums[key] = agg
	}
	out := make([]domain.ControlBaseline, 0, len(sums))
	for key, agg := range sums {
		out = append(out, domain.ControlBaseline{Key: key, Mean: Round2(agg.total / float64(agg.count))})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.DrugName != out[j].Key.DrugName {
			return out[i].Key.DrugName < out[j].Key.DrugName
		}
		return out[i].Key.CellLineName < out[j].Key.CellLineName
	})
	return out
}

// Normalize joins each analyzed row to its baseline by (drug, cell line) and
// derives the survival rate as a percentage of the baseline mean. A baseline
// of exactly zero is substituted with 1 instead of signaling degeneracy;
// this mirrors the historical behavior and is deliberate.
//
// Rows whose pair has no baseline are reported in the returned miss list and
// excluded from the output; the batch continues. An entirely empty baseline
// set stops normalization before any survival rate is produced.
func Normalize(rows []domain.AnalyzedRow, baselines []domain.ControlBaseline) ([]domain.SurvivalRow, []domain.MissingControlBaselineError, error) {
	if len(baselines) == 0 {
		return nil, nil, domain.ErrNoControlBaselines
	}
	byKey := make(map[domain.BaselineKey]float64, len(baselines))
	for _, baseline := range baselines {
		byKey[baseline.Key] = baseline.Mean
	}
	var out []domain.SurvivalRow
	var misses []domain.MissingControlBaselineError
	for _, row := range rows {
		key := domain.BaselineKey{DrugName: row.DrugName, CellLineName: row.CellLineName}
		baseline, ok := byKey[key]
		if !ok {
			misses = append(misses, domain.MissingControlBaselineError{Key: key})
			continue
		}
		survival := domain.SurvivalRow{AnalyzedRow: row, BaselineMean: baseline}
		if row.Mean != nil {
			effective := baseline
			if effective == 0 {
				effective = 1
			}
			rate := Round2(*row.Mean / effective * 100)
			survival.SurvivalRate = &rate
		}
		out = append(out, survival)
	}
	return out, misses, nil
}

func mean(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// sampleStd is the n-1 denominator standard deviation.
func sampleStd(values []float64) float64 {
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
