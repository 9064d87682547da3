package postgres

import (
	"context"
	"fmt"
	"strings"

	"stageload/internal/schema"
	"stageload/internal/sink"
)

// bootstrapDDL creates the destination table from a contract, adding the
// __seq bigserial column that gives scans a stable insertion order.
func bootstrapDDL(ctx context.Context, s sink.Sink, c schema.Contract, cfg sink.Config) error {
	ex, ok := s.(sink.Execer)
	if !ok {
		return fmt.Errorf("postgres: sink does not support DDL")
	}
	cols := make([]string, 0, len(c.Fields)+1)
	cols = append(cols, quoteIdent(seqColumn)+" bigserial")
	for _, f := range c.Fields {
		sqlType := "text"
		switch f.Type {
		case schema.TypeInteger:
			sqlType = "bigint"
		case schema.TypeFloat:
			sqlType = "double precision"
		case schema.TypeTimestamp:
			sqlType = "timestamptz"
		case schema.TypeDate:
			sqlType = "date"
		}
		col := fmt.Sprintf("%s %s", quoteIdent(f.Name), sqlType)
		if !f.Nullable {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)",
		fqIdent(cfg.Table),
		strings.Join(cols, ", "),
	)
	return ex.Exec(ctx, ddl)
}
