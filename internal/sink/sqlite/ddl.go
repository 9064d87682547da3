package sqlite

import (
	"context"
	"fmt"
	"strings"

	"stageload/internal/schema"
	"stageload/internal/sink"
)

// bootstrapDDL creates the destination table from a contract. Timestamps and
// dates are stored as TEXT (RFC3339); the coercion layer owns layout
// handling on the way in and the query layer re-parses on the way out.
func bootstrapDDL(ctx context.Context, s sink.Sink, c schema.Contract, cfg sink.Config) error {
	ex, ok := s.(sink.Execer)
	if !ok {
		return fmt.Errorf("sqlite: sink does not support DDL")
	}
	cols := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		sqlType := "TEXT"
		switch f.Type {
		case schema.TypeInteger:
			sqlType = "INTEGER"
		case schema.TypeFloat:
			sqlType = "REAL"
		}
		col := fmt.Sprintf("%s %s", quoteIdent(f.Name), sqlType)
		if !f.Nullable {
			col += " NOT NULL"
		}
		cols[i] = col
	}
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)",
		quoteIdent(cfg.Table),
		strings.Join(cols, ", "),
	)
	return ex.Exec(ctx, ddl)
}
