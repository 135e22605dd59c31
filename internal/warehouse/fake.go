package warehouse

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ResultSet is one scripted query response.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Fake is a scriptable Executor for tests. Responses are matched by query
// prefix; executed statements are recorded in order.
type Fake struct {
	mu        sync.Mutex
	responses map[string]ResultSet
	failOn    map[string]error
	Commands  []string
	Queries   []string
}

// NewFake returns an empty scriptable executor.
func NewFake() *Fake {
	return &Fake{responses: make(map[string]ResultSet), failOn: make(map[string]error)}
}

// Respond scripts a result set for queries starting with prefix.
func (f *Fake) Respond(prefix string, rs ResultSet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = rs
}

// FailOn scripts an error for statements or queries starting with prefix.
func (f *Fake) FailOn(prefix string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[prefix] = err
}

// Exec records the statement, honoring scripted failures.
func (f *Fake) Exec(_ context.Context, query string, _ ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Commands = append(f.Commands, query)
	for prefix, err := range f.failOn {
		if strings.HasPrefix(query, prefix) {
			return err
		}
	}
	return nil
}

// Query records the query and returns the scripted response.
func (f *Fake) Query(_ context.Context, query string, _ ...any) ([]string, [][]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, query)
	for prefix, err := range f.failOn {
		if strings.HasPrefix(query, prefix) {
			return nil, nil, err
		}
	}
	for prefix, rs := range f.responses {
		if strings.HasPrefix(query, prefix) {
			return rs.Columns, rs.Rows, nil
		}
	}
	return nil, nil, fmt.Errorf("no scripted response for %q", query)
}

// Close is a no-op.
func (f *Fake) Close() error { return nil }
