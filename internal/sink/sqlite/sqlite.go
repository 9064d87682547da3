// Package sqlite implements a SQLite-backed sink using database/sql.
// Appends run as batched INSERTs inside a transaction; SQLite has no bulk
// API like Postgres COPY, but transactions keep throughput acceptable for
// moderate volumes. Scans order by rowid, which matches insertion order for
// an append-only table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"stageload/internal/sink"
)

func init() {
	sink.Register("sqlite", func(ctx context.Context, cfg sink.Config) (sink.Sink, error) {
		return Open(ctx, cfg)
	})
	sink.RegisterDDL("sqlite", bootstrapDDL)
}

// Table is a SQLite-backed sink bound to one destination table.
type Table struct {
	db  *sql.DB
	cfg sink.Config
}

// Open connects to the SQLite database named by cfg.DSN, e.g.
//
//	"file:stage.db?cache=shared"
//	"stage.db"
func Open(ctx context.Context, cfg sink.Config) (*Table, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("sqlite: table must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Table{db: db, cfg: cfg}, nil
}

// Append inserts rows in order inside a single transaction.
func (t *Table) Append(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: append: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(t.cfg.Table),
		joinIdents(columns),
		strings.Join(placeholders, ", "),
	)

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: append: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, normalizeRow(row)...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		// Nothing persisted; the transaction rolled back.
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// Scan streams stored rows ordered by rowid (insertion order).
func (t *Table) Scan(ctx context.Context, columns []string, fn func(row []any) error) error {
	q := fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY rowid",
		joinIdents(columns),
		quoteIdent(t.cfg.Table),
	)
	rows, err := t.db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("sqlite: scan: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("sqlite: scan row: %w", err)
		}
		if err := fn(vals); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: scan: %w", err)
	}
	return nil
}

// Count returns the stored row count.
func (t *Table) Count(ctx context.Context) (int64, error) {
	var n int64
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(t.cfg.Table))
	if err := t.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count: %w", err)
	}
	return n, nil
}

// Truncate deletes all rows. SQLite has no TRUNCATE; an unqualified DELETE
// takes the truncate optimization path.
func (t *Table) Truncate(ctx context.Context) error {
	q := fmt.Sprintf("DELETE FROM %s", quoteIdent(t.cfg.Table))
	if _, err := t.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("sqlite: truncate: %w", err)
	}
	return nil
}

// Exec runs an arbitrary statement, typically DDL from the bootstrapper.
func (t *Table) Exec(ctx context.Context, q string) error {
	if strings.TrimSpace(q) == "" {
		return nil
	}
	if _, err := t.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

func (t *Table) Close() error { return t.db.Close() }

// normalizeRow converts values database/sql cannot bind directly: time.Time
// becomes an RFC3339 UTC string so scans round-trip through the text column.
func normalizeRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if ts, ok := v.(time.Time); ok {
			out[i] = ts.UTC().Format(time.RFC3339Nano)
			continue
		}
		out[i] = v
	}
	return out
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func joinIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
