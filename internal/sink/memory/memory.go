// Package memory implements an in-process append-only sink. It is the
// default backend for library embedding and tests: rows live in insertion
// order in a slice and scans project columns without copying values.
package memory

import (
	"context"
	"fmt"
	"sync"

	"stageload/internal/sink"
)

func init() {
	sink.Register("memory", func(ctx context.Context, cfg sink.Config) (sink.Sink, error) {
		return New(cfg.Columns), nil
	})
}

// Table is an in-memory append-only sink. A mutex guards the row slice so
// independent goroutines may share one Table, though loads normally own a
// disjoint sink each.
type Table struct {
	mu      sync.RWMutex
	columns []string
	rows    [][]any
}

// New returns an empty Table with the given column order.
func New(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{columns: cols}
}

// Columns returns the table's column order.
func (t *Table) Columns() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.columns
}

// Append stores rows in arrival order. A Table constructed without explicit
// columns adopts the column order of the first Append.
func (t *Table) Append(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.columns) == 0 {
		t.columns = make([]string, len(columns))
		copy(t.columns, columns)
	}
	idx, err := t.projection(columns)
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("memory: row length %d != columns length %d", len(row), len(columns))
		}
		stored := make([]any, len(t.columns))
		for i, srcIdx := range idx {
			stored[srcIdx] = row[i]
		}
		t.rows = append(t.rows, stored)
	}
	return int64(len(rows)), nil
}

// Scan streams rows in insertion order, projecting the requested columns.
func (t *Table) Scan(ctx context.Context, columns []string, fn func(row []any) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, err := t.projection(columns)
	if err != nil {
		return err
	}
	for _, stored := range t.rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := make([]any, len(idx))
		for i, storedIdx := range idx {
			row[i] = stored[storedIdx]
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the stored row count.
func (t *Table) Count(ctx context.Context) (int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return int64(len(t.rows)), nil
}

// Truncate drops all rows, keeping the column order.
func (t *Table) Truncate(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = nil
	return nil
}

// Close is a no-op for the memory sink.
func (t *Table) Close() error { return nil }

// projection maps requested column names to stored positions. Callers must
// hold t.mu.
func (t *Table) projection(columns []string) ([]int, error) {
	idx := make([]int, len(columns))
	for i, name := range columns {
		pos := -1
		for j, col := range t.columns {
			if col == name {
				pos = j
				break
			}
		}
		if pos < 0 {
			return nil, fmt.Errorf("memory: unknown column %q", name)
		}
		idx[i] = pos
	}
	return idx, nil
}
