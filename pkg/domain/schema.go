package domain

// Canonical file names accepted by the upload surface.
const (
	FileCellLines = "data_photodynamic_therapy_cell_lines.csv"
	FileDrugs     = "data_photodynamic_therapy_drugs.csv"
	FileResults   = "data_photodynamic_therapy_results.csv"
)

// SessionColumn is appended to every validated file so warehouse rows can be
// filtered back to the uploading session.
const SessionColumn = "user_id"

// schemaRegistry maps each registered file name to its required header, in
// order. Immutable for the process lifetime.
var schemaRegistry = map[string][]string{
	FileCellLines: {"cell_line_code", "cell_line_name"},
	FileDrugs:     {"drug_code", "drug_name"},
	FileResults: {
		"experiment_id",
		"experiment_number",
		"cell_line_code",
		"treatment_time",
		"drug_code",
		"drug_concentration",
		"result_001",
		"result_002",
		"result_003",
		"result_004",
		"result_005",
		"result_006",
		"result_007",
		"result_008",
		"result_009",
		"result_010",
		"result_011",
		"result_012",
	},
}

// SchemaColumns returns the registered column list for a file name, or false
// when the name is not registered. The returned slice is a copy.
func SchemaColumns(name string) ([]string, bool) {
	cols, ok := schemaRegistry[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(cols))
	copy(out, cols)
	return out, true
}

// RegisteredFiles lists the registered file names in a stable order.
func RegisteredFiles() []string {
	return []string{FileCellLines, FileDrugs, FileResults}
}
