package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scriptplanner/scriptplan/internal/model"
)

const sqliteCreateTableSQL = `
CREATE TABLE IF NOT EXISTS schedule_journal (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	scenario     INTEGER NOT NULL,
	scheduled    INTEGER NOT NULL,
	unscheduled  INTEGER NOT NULL,
	warnings     TEXT NOT NULL,
	error_kind   TEXT NOT NULL,
	duration_ms  INTEGER NOT NULL,
	created_at   TEXT NOT NULL
)`

const postgresCreateTableSQL = `
CREATE TABLE IF NOT EXISTS schedule_journal (
	id           BIGSERIAL PRIMARY KEY,
	run_id       TEXT NOT NULL,
	scenario     INTEGER NOT NULL,
	scheduled    INTEGER NOT NULL,
	unscheduled  INTEGER NOT NULL,
	warnings     TEXT NOT NULL,
	error_kind   TEXT NOT NULL,
	duration_ms  BIGINT NOT NULL,
	created_at   TEXT NOT NULL
)`

// SQLRepository implements Repository over the journal Connection, so
// the same code serves both the sqlite and postgres backends — only the
// placeholder dialect and DDL type names differ per driver.
type SQLRepository struct {
	conn Connection
	pg   bool
}

// NewSQLRepository wraps an already-open Connection (OpenSQLite or
// OpenPostgres) and ensures the journal table exists.
func NewSQLRepository(ctx context.Context, conn Connection) (*SQLRepository, error) {
	r := &SQLRepository{conn: conn, pg: conn.Driver() == DriverPostgres}
	ddl := sqliteCreateTableSQL
	if r.pg {
		ddl = postgresCreateTableSQL
	}
	if err := conn.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("journal: create table: %w", err)
	}
	return r, nil
}

func (r *SQLRepository) Append(ctx context.Context, e *Entry) error {
	warnings, err := marshalWarnings(e.Warnings)
	if err != nil {
		return fmt.Errorf("journal: marshal warnings: %w", err)
	}
	query := `INSERT INTO schedule_journal (run_id, scenario, scheduled, unscheduled, warnings, error_kind, duration_ms, created_at)
		 VALUES (` + r.placeholders(8) + `)`
	err = r.conn.Exec(ctx, query,
		e.RunID.String(), int(e.Scenario), e.Scheduled, e.Unscheduled, warnings, e.ErrorKind, e.DurationMS, e.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("journal: insert: %w", err)
	}
	return nil
}

func (r *SQLRepository) List(ctx context.Context, runID uuid.UUID) ([]*Entry, error) {
	query := `SELECT id, run_id, scenario, scheduled, unscheduled, warnings, error_kind, duration_ms, created_at
		 FROM schedule_journal WHERE run_id = ` + r.placeholder(1) + ` ORDER BY scenario ASC`
	rows, err := r.conn.Query(ctx, query, runID.String())
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *SQLRepository) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, run_id, scenario, scheduled, unscheduled, warnings, error_kind, duration_ms, created_at
		 FROM schedule_journal ORDER BY id DESC LIMIT ` + r.placeholder(1)
	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// placeholder returns the nth bind parameter in this connection's dialect:
// "$n" for postgres (pgx requires positional dollar params), "?" for sqlite.
func (r *SQLRepository) placeholder(n int) string {
	if r.pg {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (r *SQLRepository) placeholders(count int) string {
	s := ""
	for i := 1; i <= count; i++ {
		if i > 1 {
			s += ", "
		}
		s += r.placeholder(i)
	}
	return s
}

func scanEntries(rows Rows) ([]*Entry, error) {
	var out []*Entry
	for rows.Next() {
		var (
			e         Entry
			runID     string
			warnings  string
			createdAt string
			scenario  int
		)
		if err := rows.Scan(&e.ID, &runID, &scenario, &e.Scheduled, &e.Unscheduled, &warnings, &e.ErrorKind, &e.DurationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		parsedID, err := uuid.Parse(runID)
		if err != nil {
			return nil, fmt.Errorf("journal: parse run_id: %w", err)
		}
		e.RunID = parsedID
		e.Scenario = model.ScenarioIndex(scenario)
		e.Warnings = unmarshalWarnings(warnings)
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			e.CreatedAt = t
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
