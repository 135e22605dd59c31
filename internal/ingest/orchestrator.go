// Package ingest drives the warehouse refresh cycle: staging resets, pipe
// triggers with settling, snapshot fetches, dimension/fact merges, and the
// session-scoped combined view.
package ingest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"pdtcore/internal/observability"
	"pdtcore/internal/warehouse"
	"pdtcore/pkg/domain"
)

// Staging tables and the pipes that feed them.
const (
	TableStagingCellLines = "stg_cell_lines"
	TableStagingDrugs     = "stg_drugs"
	TableStagingResults   = "stg_results"

	PipeCellLines = "update_stg_cell_lines"
	PipeDrugs     = "update_stg_drugs"
	PipeResults   = "update_stg_results"

	// CombinedView joins the merged dimension and fact tables per session.
	CombinedView = "combined_results"
)

// StagingPipes returns the default table-to-pipe registration.
func StagingPipes() map[string]string {
	return map[string]string{
		TableStagingCellLines: PipeCellLines,
		TableStagingDrugs:     PipeDrugs,
		TableStagingResults:   PipeResults,
	}
}

// mergeProcedures in execution order: dimensions strictly before facts so
// the fact merge resolves foreign keys against already-merged dimensions.
var mergeProcedures = []string{
	"merge_into_dim_cell_lines",
	"merge_into_dim_drugs",
	"merge_into_fac_results",
}

// TableResult is the typed outcome of one table refresh. Callers must check
// Err before using the snapshot; a failed table never aborts its siblings.
type TableResult struct {
	Table   string
	Columns []string
	Rows    [][]any
	Err     error
}

// Orchestrator runs the refresh workflow over a warehouse executor.
type Orchestrator struct {
	exec    warehouse.Executor
	settle  SettleStrategy
	log     *zap.Logger
	metrics observability.Recorder
}

// New constructs an orchestrator. Nil settle defaults to the historical
// fixed delay; nil logger and recorder default to no-ops.
func New(exec warehouse.Executor, settle SettleStrategy, log *zap.Logger, metrics observability.Recorder) *Orchestrator {
	if settle == nil {
		settle = FixedDelay{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.Noop{}
	}
	return &Orchestrator{exec: exec, settle: settle, log: log, metrics: metrics}
}

// ResetStaging truncates all staging tables for a clean load.
func (o *Orchestrator) ResetStaging(ctx context.Context) error {
	for _, table := range []string{TableStagingCellLines, TableStagingDrugs, TableStagingResults} {
		if err := o.exec.Exec(ctx, "TRUNCATE TABLE "+table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// Refresh triggers each registered pipe, settles, and fetches the staged
// snapshot. Tables are processed in sorted name order for determinism.
// Communication failures are logged and recorded per table; the batch
// always completes.
func (o *Orchestrator) Refresh(ctx context.Context, pipes map[string]string) map[string]TableResult {
	tables := make([]string, 0, len(pipes))
	for table := range pipes {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	results := make(map[string]TableResult, len(tables))
	for _, table := range tables {
		results[table] = o.refreshTable(ctx, table, pipes[table])
	}
	return results
}

func (o *Orchestrator) refreshTable(ctx context.Context, table, pipe string) TableResult {
	result := TableResult{Table: table}
	if err := o.exec.Exec(ctx, fmt.Sprintf("ALTER PIPE %s REFRESH", pipe)); err != nil {
		o.log.Warn("pipe trigger failed", zap.String("table", table), zap.String("pipe", pipe), zap.Error(err))
		o.metrics.RefreshResult(table, false)
		result.Err = fmt.Errorf("trigger pipe %s: %w", pipe, err)
		return result
	}
	start := time.Now()
	err := o.settle.Settle(ctx, func(ctx context.Context) bool {
		_, rows, err := o.exec.Query(ctx, "SELECT * FROM "+table)
		return err == nil && len(rows) > 0
	})
	o.metrics.SettleDuration(time.Since(start))
	if err != nil {
		o.log.Warn("settle failed", zap.String("table", table), zap.Error(err))
		o.metrics.RefreshResult(table, false)
		result.Err = fmt.Errorf("settle %s: %w", table, err)
		return result
	}
	columns, rows, err := o.exec.Query(ctx, "SELECT * FROM "+table)
	if err != nil {
		o.log.Warn("snapshot fetch failed", zap.String("table", table), zap.Error(err))
		o.metrics.RefreshResult(table, false)
		result.Err = fmt.Errorf("fetch %s: %w", table, err)
		return result
	}
	o.log.Info("table refreshed", zap.String("table", table), zap.Int("rows", len(rows)))
	o.metrics.RefreshResult(table, true)
	result.Columns = columns
	result.Rows = rows
	return result
}

// Merge folds staging contents into the normalized tables by calling the
// idempotent upsert procedures, dimensions before facts. Any failure aborts
// the merge; the procedures are safe to re-run.
func (o *Orchestrator) Merge(ctx context.Context) error {
	for _, proc := range mergeProcedures {
		if err := o.exec.Exec(ctx, fmt.Sprintf("CALL %s()", proc)); err != nil {
			return fmt.Errorf("call %s: %w", proc, err)
		}
		o.log.Info("merge procedure completed", zap.String("procedure", proc))
	}
	return nil
}

// FetchCombinedView queries the denormalized view filtered to the session,
// de-duplicated, and maps it into typed rows.
func (o *Orchestrator) FetchCombinedView(ctx context.Context, sessionID string) ([]domain.ResultRow, error) {
	columns, rows, err := o.exec.Query(ctx,
		fmt.Sprintf("SELECT DISTINCT * FROM %s WHERE %s = $1", CombinedView, domain.SessionColumn), sessionID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", CombinedView, err)
	}
	return MapRows(columns, rows)
}

// MapRows converts a raw result set into typed combined-view rows. Column
// matching is case-insensitive; the warehouse upper-cases identifiers.
func MapRows(columns []string, rows [][]any) ([]domain.ResultRow, error) {
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[strings.ToLower(col)] = i
	}
	replicateIdx := make([]int, domain.ReplicateCount)
	for i := 0; i < domain.ReplicateCount; i++ {
		name := fmt.Sprintf("result_%03d", i+1)
		pos, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("combined view missing column %s", name)
		}
		replicateIdx[i] = pos
	}
	required := []string{"experiment_id", "experiment_number", "cell_line_code", "cell_line_name",
		"drug_code", "drug_name", "treatment_time", "drug_concentration", domain.SessionColumn}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("combined view missing column %s", name)
		}
	}

	out := make([]domain.ResultRow, 0, len(rows))
	for n, raw := range rows {
		row := domain.ResultRow{
			ExperimentID:  asString(raw[index["experiment_id"]]),
			CellLineCode:  asString(raw[index["cell_line_code"]]),
			CellLineName:  asString(raw[index["cell_line_name"]]),
			DrugCode:      asString(raw[index["drug_code"]]),
			DrugName:      asString(raw[index["drug_name"]]),
			TreatmentTime: asString(raw[index["treatment_time"]]),
			SessionID:     asString(raw[index[domain.SessionColumn]]),
		}
		number, err := asInt(raw[index["experiment_number"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: experiment_number: %w", n, err)
		}
		row.ExperimentNumber = number
		concentration, err := asFloat(raw[index["drug_concentration"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: drug_concentration: %w", n, err)
		}
		if concentration != nil {
			row.DrugConcentration = *concentration
		}
		for i, pos := range replicateIdx {
			value, err := asFloat(raw[pos])
			if err != nil {
				return nil, fmt.Errorf("row %d: result_%03d: %w", n, i+1, err)
			}
			row.Replicates[i] = value
		}
		out = append(out, row)
	}
	return out, nil
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// asFloat returns nil for NULL or empty cells.
func asFloat(v any) (*float64, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return &t, nil
	case float32:
		f := float64(t)
		return &f, nil
	case int64:
		f := float64(t)
		return &f, nil
	case int:
		f := float64(t)
		return &f, nil
	case []byte:
		return parseFloat(string(t))
	case string:
		return parseFloat(t)
	default:
		return nil, fmt.Errorf("unsupported numeric type %T", v)
	}
}

func parseFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func asInt(v any) (int, error) {
	f, err := asFloat(v)
	if err != nil {
		return 0, err
	}
	if f == nil {
		return 0, fmt.Errorf("unexpected NULL")
	}
	return int(*f), nil
}
