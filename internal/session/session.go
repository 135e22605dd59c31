// Package session mints per-session identifiers and tracks pipeline progress
// as an explicit linear state machine.
package session

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// idLength is the number of hex characters kept from the minted UUID. The id
// is a row-filter key, never a security credential.
const idLength = 10

// NewID returns a short probabilistically-unique session identifier.
func NewID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return raw[:idLength]
}

// State is one phase of the interactive pipeline.
type State int

// Pipeline phases in order. Transitions are strictly forward, one step at a
// time; no state is re-entered within a session.
const (
	Start State = iota
	FilesUploaded
	DataIngested
	TablesMerged
	ExperimentSelected
	Analyzed
	Plotted
)

var stateNames = map[State]string{
	Start:              "start",
	FilesUploaded:      "files_uploaded",
	DataIngested:       "data_ingested",
	TablesMerged:       "tables_merged",
	ExperimentSelected: "experiment_selected",
	Analyzed:           "analyzed",
	Plotted:            "plotted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Workflow tracks one session's progress through the pipeline. Construct it
// once per session and pass it explicitly; a failed stage leaves the state
// unchanged so the caller can retry that stage.
type Workflow struct {
	id    string
	state State
}

// NewWorkflow mints a fresh session id and starts at Start.
func NewWorkflow() *Workflow {
	return &Workflow{id: NewID(), state: Start}
}

// ID returns the session identifier attached to every uploaded row.
func (w *Workflow) ID() string { return w.id }

// State returns the current pipeline phase.
func (w *Workflow) State() State { return w.state }

// Done reports whether the terminal phase has been reached.
func (w *Workflow) Done() bool { return w.state == Plotted }

// Advance moves to the next phase. It fails unless next is exactly one step
// ahead of the current state.
func (w *Workflow) Advance(next State) error {
	if next != w.state+1 {
		return fmt.Errorf("invalid transition %s -> %s", w.state, next)
	}
	w.state = next
	return nil
}
