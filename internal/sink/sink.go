// Package sink contains the backend-agnostic append/scan contract for the
// tabular destinations that loads write into, plus a factory keyed by sink
// kind. Concrete backends (memory, sqlite, postgres) register themselves at
// init time; importing stageload/internal/sink/all enables all of them.
package sink

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Sink is an append-only tabular destination. Append must preserve the order
// of the rows it receives; repeated Append calls extend the table. The
// loader owns ordering across calls by flushing batches sequentially.
type Sink interface {
	// Append inserts rows (aligned to the columns order) and returns the
	// number of rows written.
	Append(ctx context.Context, columns []string, rows [][]any) (int64, error)

	// Scan streams stored rows to fn in insertion order, projecting the
	// requested columns. fn returning an error stops the scan.
	Scan(ctx context.Context, columns []string, fn func(row []any) error) error

	// Count returns the number of stored rows.
	Count(ctx context.Context) (int64, error)

	// Truncate removes all rows. Used by replace-then-load workflows and by
	// changelog restore.
	Truncate(ctx context.Context) error

	Close() error
}

// Execer is implemented by SQL-backed sinks that can run DDL. The factory's
// table bootstrap uses it; non-SQL sinks simply don't implement it.
type Execer interface {
	Exec(ctx context.Context, sql string) error
}

// Config selects and configures a sink backend.
type Config struct {
	// Kind names the backend: "memory", "sqlite", or "postgres".
	Kind string `json:"kind"`

	// DSN is the backend connection string. Unused by the memory sink.
	DSN string `json:"dsn,omitempty"`

	// Table is the destination table name. Unused by the memory sink.
	Table string `json:"table,omitempty"`

	// Columns is the ordered list of destination columns.
	Columns []string `json:"columns,omitempty"`

	// AutoCreate asks the factory to create the destination table from the
	// contract before the first load.
	AutoCreate bool `json:"auto_create,omitempty"`
}

// Factory constructs a Sink for a Config.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for a sink kind. Backends call
// it from init().
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a sink of the configured kind.
func New(ctx context.Context, cfg Config) (Sink, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sink: unknown kind %q (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend names, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
