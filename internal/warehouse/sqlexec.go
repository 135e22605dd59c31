package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// Driver identifies a concrete warehouse backend.
type Driver string

const (
	// DriverSQLite is the embedded default, suitable for local runs.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres targets a PostgreSQL server via pgx.
	DriverPostgres Driver = "postgres"
)

const (
	sqliteDriverName   = "sqlite"
	postgresDriverName = "pgx"

	defaultSQLitePath  = "pdtcore.db"
	defaultPostgresDSN = "postgres://localhost/pdtcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// SQLExecutor implements Executor over database/sql.
type SQLExecutor struct {
	db *sql.DB
}

// Open connects to the selected backend and verifies the connection.
// Placeholders use the $N style, which both pgx and sqlite accept.
func Open(ctx context.Context, driver Driver, dsn string) (*SQLExecutor, error) {
	var name string
	switch driver {
	case DriverSQLite, "":
		name = sqliteDriverName
		if dsn == "" {
			dsn = defaultSQLitePath
		}
	case DriverPostgres:
		name = postgresDriverName
		if dsn == "" {
			dsn = defaultPostgresDSN
		}
	default:
		return nil, fmt.Errorf("unknown warehouse driver %s", driver)
	}
	openMu.Lock()
	db, err := sqlOpen(name, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", name, err)
	}
	return &SQLExecutor{db: db}, nil
}

// DB exposes the underlying handle for integration hooks.
func (e *SQLExecutor) DB() *sql.DB { return e.db }

// Exec runs a statement with no result set.
func (e *SQLExecutor) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := e.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// Query materializes the full result set.
func (e *SQLExecutor) Query(ctx context.Context, query string, args ...any) ([]string, [][]any, error) {
	rs, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rs.Close() }()
	columns, err := rs.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("columns: %w", err)
	}
	var rows [][]any
	for rs.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan: %w", err)
		}
		rows = append(rows, values)
	}
	if err := rs.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate: %w", err)
	}
	return columns, rows, nil
}

// Close releases the connection pool.
func (e *SQLExecutor) Close() error { return e.db.Close() }

// OverrideSQLOpen swaps the open function for tests; returns a restore func.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
