package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"  // registers the "postgres" database/sql driver so ad-hoc tooling can open the same journal URL
	_ "modernc.org/sqlite" // pure-Go sqlite driver backing local mode
)

// Driver names a journal storage backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Rows is the subset of a SQL result cursor the journal scans.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// Connection is the minimal SQL surface the journal needs. Both
// backends satisfy it: sqlite over database/sql, postgres over a
// pgxpool. The journal only ever inserts and reads rows — no
// transactions, no migrations beyond its own CREATE TABLE.
type Connection interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Ping(ctx context.Context) error
	Close() error
	Driver() Driver
}

// DefaultSQLitePath is where local mode keeps the journal when no path
// is configured.
func DefaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".scriptplan", "journal.db")
}

// OpenSQLite opens (creating if needed) the sqlite journal at path.
func OpenSQLite(ctx context.Context, path string) (Connection, error) {
	if path == "" {
		path = DefaultSQLitePath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create sqlite directory: %w", err)
	}

	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	// WAL plus a busy timeout keeps concurrent CLI invocations from
	// failing on the single-writer lock.
	dsn += "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: ping sqlite: %w", err)
	}
	return &sqliteConn{db: db}, nil
}

type sqliteConn struct {
	db *sql.DB
}

func (c *sqliteConn) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.db.ExecContext(ctx, query, args...)
	return err
}

func (c *sqliteConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

func (c *sqliteConn) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }
func (c *sqliteConn) Close() error                   { return c.db.Close() }
func (c *sqliteConn) Driver() Driver                 { return DriverSQLite }

// OpenPostgres connects a pgx pool to the journal database at url.
func OpenPostgres(ctx context.Context, url string) (Connection, error) {
	if url == "" {
		return nil, fmt.Errorf("journal: postgres URL is required")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("journal: open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("journal: ping postgres: %w", err)
	}
	return &pgConn{pool: pool}, nil
}

type pgConn struct {
	pool *pgxpool.Pool
}

func (c *pgConn) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.pool.Exec(ctx, query, args...)
	return err
}

func (c *pgConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &pgRows{rows: rows}, nil
}

func (c *pgConn) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *pgConn) Close() error {
	c.pool.Close()
	return nil
}

func (c *pgConn) Driver() Driver { return DriverPostgres }

// pgRows adapts pgx.Rows (whose Close returns nothing) to Rows.
type pgRows struct {
	rows interface {
		Next() bool
		Scan(dest ...any) error
		Close()
		Err() error
	}
}

func (r *pgRows) Next() bool             { return r.rows.Next() }
func (r *pgRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *pgRows) Err() error             { return r.rows.Err() }

func (r *pgRows) Close() error {
	r.rows.Close()
	return nil
}
