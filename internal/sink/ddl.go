package sink

import (
	"context"
	"fmt"
	"sync"

	"stageload/internal/schema"
)

// DDLBootstrapper infers a table definition from a contract and applies the
// appropriate CREATE TABLE through the sink. SQL backends register their
// implementation per kind at init time; the memory sink needs none.
type DDLBootstrapper func(ctx context.Context, s Sink, c schema.Contract, cfg Config) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers a DDLBootstrapper for the given sink kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable creates the destination table for cfg.Kind from the contract.
// Kinds without a registered bootstrapper (e.g. "memory") are a no-op.
func EnsureTable(ctx context.Context, s Sink, c schema.Contract, cfg Config) error {
	ddlMu.RLock()
	fn, ok := ddlFns[cfg.Kind]
	ddlMu.RUnlock()
	if !ok {
		return nil
	}
	if err := fn(ctx, s, c, cfg); err != nil {
		return fmt.Errorf("sink: ensure table for kind %q: %w", cfg.Kind, err)
	}
	return nil
}
