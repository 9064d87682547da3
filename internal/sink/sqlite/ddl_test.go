package sqlite

import (
	"context"
	"strings"
	"testing"

	"stageload/internal/schema"
	"stageload/internal/sink"
)

// execCapture records DDL without touching a database.
type execCapture struct {
	sink.Sink
	sql string
}

func (e *execCapture) Exec(ctx context.Context, sql string) error {
	e.sql = sql
	return nil
}

func TestBootstrapDDL(t *testing.T) {
	c := schema.Contract{
		Name: "trips",
		Fields: []schema.Field{
			{Name: "ride_id", Type: schema.TypeString},
			{Name: "duration", Type: schema.TypeInteger, Nullable: true},
			{Name: "distance_km", Type: schema.TypeFloat},
			{Name: "started_at", Type: schema.TypeTimestamp},
		},
	}
	ex := &execCapture{}
	err := bootstrapDDL(context.Background(), ex, c, sink.Config{Table: "trips"})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "trips"`,
		`"ride_id" TEXT NOT NULL`,
		`"duration" INTEGER`,
		`"distance_km" REAL NOT NULL`,
		`"started_at" TEXT NOT NULL`,
	} {
		if !strings.Contains(ex.sql, want) {
			t.Fatalf("ddl %q missing %q", ex.sql, want)
		}
	}
	if strings.Contains(ex.sql, `"duration" INTEGER NOT NULL`) {
		t.Fatalf("nullable column must not be NOT NULL: %q", ex.sql)
	}
}

func TestBootstrapDDLNeedsExecer(t *testing.T) {
	c := schema.Contract{Name: "t", Fields: []schema.Field{{Name: "a"}}}
	var plain sink.Sink // nil interface has no Execer
	if err := bootstrapDDL(context.Background(), plain, c, sink.Config{Table: "t"}); err == nil {
		t.Fatal("want error for sink without DDL support")
	}
}
