package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pdtcore/internal/warehouse"
)

func scriptedExecutor() *warehouse.Fake {
	f := warehouse.NewFake()
	f.Respond("SELECT * FROM stg_cell_lines", warehouse.ResultSet{Columns: []string{"cell_line_code"}, Rows: [][]any{{"CL1"}}})
	f.Respond("SELECT * FROM stg_drugs", warehouse.ResultSet{Columns: []string{"drug_code"}, Rows: [][]any{{"D1"}}})
	f.Respond("SELECT * FROM stg_results", warehouse.ResultSet{Columns: []string{"experiment_id"}, Rows: [][]any{{"E1"}}})
	return f
}

func TestResetStagingTruncatesAllTables(t *testing.T) {
	f := warehouse.NewFake()
	o := New(f, NoSettle{}, nil, nil)
	if err := o.ResetStaging(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	want := []string{
		"TRUNCATE TABLE stg_cell_lines",
		"TRUNCATE TABLE stg_drugs",
		"TRUNCATE TABLE stg_results",
	}
	if len(f.Commands) != len(want) {
		t.Fatalf("commands %v", f.Commands)
	}
	for i, cmd := range want {
		if f.Commands[i] != cmd {
			t.Fatalf("command %d = %q, want %q", i, f.Commands[i], cmd)
		}
	}
}

func TestResetStagingStopsOnError(t *testing.T) {
	f := warehouse.NewFake()
	f.FailOn("TRUNCATE TABLE stg_drugs", errors.New("down"))
	o := New(f, NoSettle{}, nil, nil)
	if err := o.ResetStaging(context.Background()); err == nil {
		t.Fatalf("expected truncate error")
	}
}

func TestRefreshAllTables(t *testing.T) {
	f := scriptedExecutor()
	o := New(f, NoSettle{}, nil, nil)
	results := o.Refresh(context.Background(), StagingPipes())
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for table, result := range results {
		if result.Err != nil {
			t.Fatalf("%s: %v", table, result.Err)
		}
		if len(result.Rows) != 1 {
			t.Fatalf("%s: expected snapshot rows", table)
		}
	}
	var pipeCommands []string
	for _, cmd := range f.Commands {
		if strings.HasPrefix(cmd, "ALTER PIPE") {
			pipeCommands = append(pipeCommands, cmd)
		}
	}
	// sorted table order: cell_lines, drugs, results
	want := []string{
		"ALTER PIPE update_stg_cell_lines REFRESH",
		"ALTER PIPE update_stg_drugs REFRESH",
		"ALTER PIPE update_stg_results REFRESH",
	}
	for i, cmd := range want {
		if pipeCommands[i] != cmd {
			t.Fatalf("pipe command %d = %q, want %q", i, pipeCommands[i], cmd)
		}
	}
}

func TestRefreshIsBestEffortPerTable(t *testing.T) {
	f := scriptedExecutor()
	f.FailOn("ALTER PIPE update_stg_drugs", errors.New("pipe gone"))
	o := New(f, NoSettle{}, nil, nil)
	results := o.Refresh(context.Background(), StagingPipes())
	if results["stg_drugs"].Err == nil {
		t.Fatalf("expected drugs refresh failure")
	}
	if results["stg_cell_lines"].Err != nil || results["stg_results"].Err != nil {
		t.Fatalf("sibling tables must not be aborted: %+v", results)
	}
}

func TestRefreshFetchFailureIsTyped(t *testing.T) {
	f := scriptedExecutor()
	f.FailOn("SELECT * FROM stg_results", errors.New("timeout"))
	o := New(f, NoSettle{}, nil, nil)
	results := o.Refresh(context.Background(), StagingPipes())
	r := results["stg_results"]
	if r.Err == nil || r.Rows != nil {
		t.Fatalf("expected typed failure with no rows, got %+v", r)
	}
}

func TestMergeOrderDimensionsBeforeFacts(t *testing.T) {
	f := warehouse.NewFake()
	o := New(f, NoSettle{}, nil, nil)
	if err := o.Merge(context.Background()); err != nil {
		t.Fatalf("merge: %v", err)
	}
	want := []string{
		"CALL merge_into_dim_cell_lines()",
		"CALL merge_into_dim_drugs()",
		"CALL merge_into_fac_results()",
	}
	if len(f.Commands) != len(want) {
		t.Fatalf("commands %v", f.Commands)
	}
	for i, cmd := range want {
		if f.Commands[i] != cmd {
			t.Fatalf("merge %d = %q, want %q", i, f.Commands[i], cmd)
		}
	}
}

func TestMergeAbortsOnProcedureFailure(t *testing.T) {
	f := warehouse.NewFake()
	f.FailOn("CALL merge_into_dim_drugs", errors.New("no proc"))
	o := New(f, NoSettle{}, nil, nil)
	if err := o.Merge(context.Background()); err == nil {
		t.Fatalf("expected merge error")
	}
	for _, cmd := range f.Commands {
		if cmd == "CALL merge_into_fac_results()" {
			t.Fatalf("fact merge must not run after a dimension failure")
		}
	}
}

func combinedColumns() []string {
	cols := []string{"EXPERIMENT_ID", "EXPERIMENT_NUMBER", "CELL_LINE_CODE", "CELL_LINE_NAME",
		"DRUG_CODE", "DRUG_NAME", "TREATMENT_TIME", "DRUG_CONCENTRATION"}
	for _, suffix := range []string{"001", "002", "003", "004", "005", "006", "007", "008", "009", "010", "011", "012"} {
		cols = append(cols, "RESULT_"+suffix)
	}
	return append(cols, "USER_ID")
}

func combinedRow(number int, session string) []any {
	row := []any{"E1", int64(number), "CL1", "HeLa", "D1", "Cisplatin", "0 min", 0.0}
	for i := 0; i < 12; i++ {
		row = append(row, 100.0)
	}
	return append(row, session)
}

func TestFetchCombinedViewMapsTypedRows(t *testing.T) {
	f := warehouse.NewFake()
	f.Respond("SELECT DISTINCT * FROM combined_results", warehouse.ResultSet{
		Columns: combinedColumns(),
		Rows:    [][]any{combinedRow(1, "s1")},
	})
	o := New(f, NoSettle{}, nil, nil)
	rows, err := o.FetchCombinedView(context.Background(), "s1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.ExperimentNumber != 1 || row.DrugName != "Cisplatin" || row.SessionID != "s1" {
		t.Fatalf("unexpected row %+v", row)
	}
	for i, rep := range row.Replicates {
		if rep == nil || *rep != 100 {
			t.Fatalf("replicate %d = %v", i, rep)
		}
	}
}

func TestMapRowsNullAndStringCells(t *testing.T) {
	row := []any{"E1", "2", []byte("CL1"), "HeLa", "D1", "Cisplatin", "5 min", "0.5"}
	for i := 0; i < 12; i++ {
		if i < 3 {
			row = append(row, nil)
		} else {
			row = append(row, "50")
		}
	}
	row = append(row, "s1")
	rows, err := MapRows(combinedColumns(), [][]any{row})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	got := rows[0]
	if got.ExperimentNumber != 2 || got.DrugConcentration != 0.5 || got.CellLineCode != "CL1" {
		t.Fatalf("unexpected row %+v", got)
	}
	if got.Replicates[0] != nil || got.Replicates[11] == nil {
		t.Fatalf("null mapping broken: %+v", got.Replicates)
	}
}

func TestMapRowsMissingColumn(t *testing.T) {
	if _, err := MapRows([]string{"EXPERIMENT_ID"}, nil); err == nil {
		t.Fatalf("expected missing column error")
	}
}
