package changelog_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"stageload/internal/changelog"
	"stageload/internal/loader"
	csvparser "stageload/internal/parser/csv"
	"stageload/internal/schema"
	"stageload/internal/sink/memory"
)

var cols = []string{"id", "v"}

func appendBatch(t *testing.T, rec *changelog.Recorder, rows [][]any) {
	t.Helper()
	n, err := rec.Append(context.Background(), cols, rows)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if n != int64(len(rows)) {
		t.Fatalf("n=%d want %d", n, len(rows))
	}
}

func TestRecorderLogsBatches(t *testing.T) {
	lg := changelog.NewLog()
	rec := changelog.NewRecorder(memory.New(cols), lg)

	appendBatch(t, rec, [][]any{{"a", 1.0}, {"b", 2.0}})
	appendBatch(t, rec, [][]any{{"c", 3.0}})

	if lg.Seq() != 2 {
		t.Fatalf("seq=%d want 2", lg.Seq())
	}
	entries := lg.Entries(2)
	if len(entries) != 2 {
		t.Fatalf("entries=%d want 2", len(entries))
	}
	if entries[0].Seq != 1 || len(entries[0].Rows) != 2 {
		t.Fatalf("entry 1 = %+v", entries[0])
	}
	if entries[1].Seq != 2 || len(entries[1].Rows) != 1 {
		t.Fatalf("entry 2 = %+v", entries[1])
	}
}

func TestLoaderBatchesStayIntact(t *testing.T) {
	// The loader reuses its batch backing array between flushes; each logged
	// entry must keep the rows it was appended with, not alias the buffer.
	ctx := context.Background()
	in := "ride_id,duration\nr1,60\nr2,120\nr3,180\nr4,240\n"
	contract := schema.Contract{
		Name: "trips",
		Fields: []schema.Field{
			{Name: "ride_id", Type: schema.TypeString},
			{Name: "duration", Type: schema.TypeInteger},
		},
	}
	lg := changelog.NewLog()
	rec := changelog.NewRecorder(memory.New(contract.Columns()), lg)
	ld, err := loader.New(contract, rec, loader.Options{Job: "trips", BatchSize: 2})
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	dec := csvparser.NewDecoder(strings.NewReader(in), csvparser.Options{HasHeader: true})
	rep, err := ld.Run(ctx, dec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.RowsAccepted != 4 {
		t.Fatalf("accepted=%d want 4", rep.RowsAccepted)
	}
	if lg.Seq() != 2 {
		t.Fatalf("seq=%d want 2", lg.Seq())
	}

	entries := lg.Entries(2)
	if got := entries[0].Rows[0][0]; got != "r1" {
		t.Fatalf("entry 1 row 1 = %v, want r1", got)
	}
	if got := entries[0].Rows[1][0]; got != "r2" {
		t.Fatalf("entry 1 row 2 = %v, want r2", got)
	}
	if got := entries[1].Rows[0][0]; got != "r3" {
		t.Fatalf("entry 2 row 1 = %v, want r3", got)
	}

	// Restoring the first batch alone must reproduce r1/r2 exactly.
	dst := memory.New(contract.Columns())
	if err := changelog.Restore(ctx, dst, lg, 1); err != nil {
		t.Fatalf("restore: %v", err)
	}
	var ids []string
	err = dst.Scan(ctx, []string{"ride_id"}, func(row []any) error {
		ids = append(ids, row[0].(string))
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(ids) != 2 || ids[0] != "r1" || ids[1] != "r2" {
		t.Fatalf("ids=%v want [r1 r2]", ids)
	}
}

func TestRestoreToSequencePoint(t *testing.T) {
	ctx := context.Background()
	lg := changelog.NewLog()
	rec := changelog.NewRecorder(memory.New(cols), lg)

	appendBatch(t, rec, [][]any{{"a", 1.0}})
	appendBatch(t, rec, [][]any{{"b", 2.0}})
	appendBatch(t, rec, [][]any{{"c", 3.0}})

	dst := memory.New(cols)
	if err := changelog.Restore(ctx, dst, lg, 2); err != nil {
		t.Fatalf("restore: %v", err)
	}

	var ids []string
	err := dst.Scan(ctx, []string{"id"}, func(row []any) error {
		ids = append(ids, row[0].(string))
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("ids=%v want [a b]", ids)
	}

	// seq 0 restores the empty state.
	if err := changelog.Restore(ctx, dst, lg, 0); err != nil {
		t.Fatalf("restore 0: %v", err)
	}
	n, err := dst.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("count=%d want 0 after restore to seq 0", n)
	}

	// A seq past the end replays everything.
	if err := changelog.Restore(ctx, dst, lg, 99); err != nil {
		t.Fatalf("restore 99: %v", err)
	}
	n, err = dst.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("count=%d want 3", n)
	}
}

func TestRestoreReplacesExistingRows(t *testing.T) {
	ctx := context.Background()
	lg := changelog.NewLog()
	rec := changelog.NewRecorder(memory.New(cols), lg)
	appendBatch(t, rec, [][]any{{"a", 1.0}})

	dst := memory.New(cols)
	if _, err := dst.Append(ctx, cols, [][]any{{"stale", 0.0}, {"stale2", 0.0}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := changelog.Restore(ctx, dst, lg, 1); err != nil {
		t.Fatalf("restore: %v", err)
	}
	n, err := dst.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count=%d want 1, stale rows must not survive", n)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	lg := changelog.NewLog()
	if _, err := lg.Append(cols, [][]any{{"a", 1.0}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := lg.Append(cols, [][]any{{"b", 2.0}, {"c", 3.0}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	var buf bytes.Buffer
	if err := lg.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := changelog.Load(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Seq() != 2 {
		t.Fatalf("seq=%d want 2", got.Seq())
	}
	entries := got.Entries(2)
	if len(entries[1].Rows) != 2 {
		t.Fatalf("entry 2 rows=%d want 2", len(entries[1].Rows))
	}
}

func TestLoadDetectsCorruption(t *testing.T) {
	lg := changelog.NewLog()
	if _, err := lg.Append(cols, [][]any{{"a", 1.0}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	var buf bytes.Buffer
	if err := lg.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}

	corrupted := strings.Replace(buf.String(), `"a"`, `"z"`, 1)
	_, err := changelog.Load(strings.NewReader(corrupted))
	if err == nil {
		t.Fatal("want checksum error for tampered rows")
	}
	if !strings.Contains(err.Error(), "checksum") {
		t.Fatalf("error %q should mention the checksum", err)
	}
}

func TestLoadDetectsGap(t *testing.T) {
	lg := changelog.NewLog()
	if _, err := lg.Append(cols, [][]any{{"a", 1.0}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := lg.Append(cols, [][]any{{"b", 2.0}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	var buf bytes.Buffer
	if err := lg.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Drop the first line so the log starts at seq 2.
	lines := strings.SplitN(buf.String(), "\n", 2)
	if _, err := changelog.Load(strings.NewReader(lines[1])); err == nil {
		t.Fatal("want sequence error for a gapped log")
	}
}
