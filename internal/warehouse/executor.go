// Package warehouse abstracts the SQL command/query executor backing the
// staging, merge, and combined-view operations. Table DDL and merge
// procedures are owned by the warehouse itself.
package warehouse

import "context"

// Executor runs parameterized commands and queries against the warehouse.
// Implementations wrap database/sql; the fake in fake.go is scriptable for
// tests.
type Executor interface {
	// Exec runs a statement with no result set (TRUNCATE, CALL, ALTER PIPE).
	Exec(ctx context.Context, query string, args ...any) error
	// Query returns the full result set with its column names.
	Query(ctx context.Context, query string, args ...any) (columns []string, rows [][]any, err error)
	Close() error
}
