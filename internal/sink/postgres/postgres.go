// Package postgres implements a Postgres-backed sink using pgx v5. Appends
// go through COPY (pgx CopyFrom), the fastest bulk-append path Postgres
// offers.
//
// Insertion order: auto-created tables carry a __seq bigserial column that
// scans order by. For pre-existing tables without it, Scan falls back to the
// table's natural order, which Postgres does not guarantee; callers that
// need strict ordering should let the bootstrapper create the table.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stageload/internal/sink"
)

func init() {
	sink.Register("postgres", func(ctx context.Context, cfg sink.Config) (sink.Sink, error) {
		return Open(ctx, cfg)
	})
	sink.RegisterDDL("postgres", bootstrapDDL)
}

// seqColumn is the ordering column added by the DDL bootstrapper.
const seqColumn = "__seq"

// Table is a Postgres-backed sink bound to one destination table.
type Table struct {
	pool    *pgxpool.Pool
	cfg     sink.Config
	ordered bool // table carries the __seq ordering column
}

// Open connects a pgx pool to cfg.DSN.
func Open(ctx context.Context, cfg sink.Config) (*Table, error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("postgres: table must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	return &Table{pool: pool, cfg: cfg, ordered: cfg.AutoCreate}, nil
}

// Append bulk-inserts rows via COPY, preserving their order.
func (t *Table) Append(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := t.pool.CopyFrom(
		ctx,
		tableIdent(t.cfg.Table),
		columns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return n, fmt.Errorf("postgres: copy: %w", err)
	}
	return n, nil
}

// Scan streams stored rows, ordered by __seq when the bootstrapper created
// the table.
func (t *Table) Scan(ctx context.Context, columns []string, fn func(row []any) error) error {
	q := fmt.Sprintf("SELECT %s FROM %s", joinIdents(columns), fqIdent(t.cfg.Table))
	if t.ordered {
		q += " ORDER BY " + quoteIdent(seqColumn)
	}
	rows, err := t.pool.Query(ctx, q)
	if err != nil {
		return fmt.Errorf("postgres: scan: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return fmt.Errorf("postgres: scan row: %w", err)
		}
		if err := fn(vals); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres: scan: %w", err)
	}
	return nil
}

// Count returns the stored row count.
func (t *Table) Count(ctx context.Context) (int64, error) {
	var n int64
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", fqIdent(t.cfg.Table))
	if err := t.pool.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count: %w", err)
	}
	return n, nil
}

// Truncate removes all rows and resets the __seq counter.
func (t *Table) Truncate(ctx context.Context) error {
	q := fmt.Sprintf("TRUNCATE %s RESTART IDENTITY", fqIdent(t.cfg.Table))
	if _, err := t.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("postgres: truncate: %w", err)
	}
	return nil
}

// Exec runs an arbitrary statement, typically DDL from the bootstrapper.
func (t *Table) Exec(ctx context.Context, q string) error {
	if strings.TrimSpace(q) == "" {
		return nil
	}
	if _, err := t.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	return nil
}

func (t *Table) Close() error {
	t.pool.Close()
	return nil
}

// tableIdent splits a possibly schema-qualified name for pgx.Identifier.
func tableIdent(name string) pgx.Identifier {
	parts := strings.Split(name, ".")
	return pgx.Identifier(parts)
}

// fqIdent renders a possibly schema-qualified name with quoting.
func fqIdent(name string) string {
	parts := strings.Split(name, ".")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = quoteIdent(p)
	}
	return strings.Join(quoted, ".")
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
