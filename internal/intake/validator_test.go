package intake

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"pdtcore/pkg/domain"
)

func cellLinesCSV(rows ...string) []byte {
	lines := append([]string{"cell_line_code,cell_line_name"}, rows...)
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestValidateRoundTripStampsSession(t *testing.T) {
	v := NewValidator("abc123def0")
	files := []domain.UploadedFile{
		{Name: domain.FileCellLines, Content: cellLinesCSV("CL1,HeLa", "CL2,A549")},
	}
	valid, rejected := v.Validate(files)
	if len(rejected) != 0 {
		t.Fatalf("unexpected rejections: %v", rejected)
	}
	if len(valid) != 1 {
		t.Fatalf("expected 1 valid file, got %d", len(valid))
	}
	records, err := csv.NewReader(bytes.NewReader(valid[0].Content)).ReadAll()
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	wantHeader := []string{"cell_line_code", "cell_line_name", "user_id"}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Fatalf("header %v, want %v", records[0], wantHeader)
		}
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d records", len(records))
	}
	for _, row := range records[1:] {
		if row[len(row)-1] != "abc123def0" {
			t.Fatalf("row %v missing session id", row)
		}
	}
	if records[1][0] != "CL1" || records[1][1] != "HeLa" {
		t.Fatalf("data rows must pass through unchanged, got %v", records[1])
	}
}

func TestValidateAllThreeRegisteredKinds(t *testing.T) {
	resultsHeader, _ := domain.SchemaColumns(domain.FileResults)
	resultsRow := make([]string, len(resultsHeader))
	for i := range resultsRow {
		resultsRow[i] = "1"
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.WriteAll([][]string{resultsHeader, resultsRow})
	w.Flush()

	v := NewValidator("s1")
	valid, rejected := v.Validate([]domain.UploadedFile{
		{Name: domain.FileCellLines, Content: cellLinesCSV("CL1,HeLa")},
		{Name: domain.FileDrugs, Content: []byte("drug_code,drug_name\nD1,Cisplatin\n")},
		{Name: domain.FileResults, Content: buf.Bytes()},
	})
	if len(rejected) != 0 {
		t.Fatalf("unexpected rejections: %v", rejected)
	}
	if len(valid) != 3 {
		t.Fatalf("expected 3 valid files, got %d", len(valid))
	}
	for i, name := range []string{domain.FileCellLines, domain.FileDrugs, domain.FileResults} {
		if valid[i].Name != name {
			t.Fatalf("output order must preserve input order, got %s at %d", valid[i].Name, i)
		}
	}
}

func TestValidateRejectsUnknownFile(t *testing.T) {
	v := NewValidator("s1")
	valid, rejected := v.Validate([]domain.UploadedFile{{Name: "mystery.csv", Content: []byte("a,b\n1,2\n")}})
	if len(valid) != 0 || len(rejected) != 1 {
		t.Fatalf("expected single rejection, got %v %v", valid, rejected)
	}
	if rejected[0].Reason != domain.RejectUnknownFile {
		t.Fatalf("expected unknown_file, got %s", rejected[0].Reason)
	}
}

func TestValidateRejectsEmptyFile(t *testing.T) {
	v := NewValidator("s1")
	_, rejected := v.Validate([]domain.UploadedFile{
		{Name: domain.FileDrugs, Content: []byte("drug_code,drug_name\n")},
	})
	if len(rejected) != 1 || rejected[0].Reason != domain.RejectEmptyFile {
		t.Fatalf("header-only file must be rejected as empty, got %v", rejected)
	}
	_, rejected = v.Validate([]domain.UploadedFile{{Name: domain.FileDrugs, Content: nil}})
	if len(rejected) != 1 || rejected[0].Reason != domain.RejectEmptyFile {
		t.Fatalf("zero-byte file must be rejected as empty, got %v", rejected)
	}
}

func TestValidateRejectsSchemaMismatch(t *testing.T) {
	cases := []struct {
		name   string
		header string
		row    string
	}{
		{"renamed", "drug_id,drug_name", "D1,x"},
		{"reordered", "drug_name,drug_code", "x,D1"},
		{"missing", "drug_code", "D1"},
		{"extra", "drug_code,drug_name,notes", "D1,x,n"},
	}
	for _, tc := range cases {
		v := NewValidator("s1")
		_, rejected := v.Validate([]domain.UploadedFile{
			{Name: domain.FileDrugs, Content: []byte(tc.header + "\n" + tc.row + "\n")},
		})
		if len(rejected) != 1 {
			t.Fatalf("%s: expected rejection", tc.name)
		}
		r := rejected[0]
		if r.Reason != domain.RejectSchemaMismatch {
			t.Fatalf("%s: expected schema_mismatch, got %s", tc.name, r.Reason)
		}
		if len(r.Expected) != 2 || r.Expected[0] != "drug_code" || r.Expected[1] != "drug_name" {
			t.Fatalf("%s: mismatch must name the expected columns, got %v", tc.name, r.Expected)
		}
		if strings.Join(r.Found, ",") != tc.header {
			t.Fatalf("%s: mismatch must name the found columns, got %v", tc.name, r.Found)
		}
	}
}

func TestValidatePartialSuccess(t *testing.T) {
	v := NewValidator("s1")
	valid, rejected := v.Validate([]domain.UploadedFile{
		{Name: "bogus.csv", Content: []byte("x\n1\n")},
		{Name: domain.FileCellLines, Content: cellLinesCSV("CL1,HeLa")},
	})
	if len(valid) != 1 || len(rejected) != 1 {
		t.Fatalf("expected one of each, got %d valid %d rejected", len(valid), len(rejected))
	}
}

func TestValidateRejectsMalformedCSV(t *testing.T) {
	v := NewValidator("s1")
	_, rejected := v.Validate([]domain.UploadedFile{
		{Name: domain.FileDrugs, Content: []byte("drug_code,drug_name\n\"unterminated\n")},
	})
	if len(rejected) != 1 || rejected[0].Reason != domain.RejectUnreadable {
		t.Fatalf("malformed csv must be rejected as unreadable, got %v", rejected)
	}
}
