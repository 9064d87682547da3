package loader_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"

	"stageload/internal/loader"
	"stageload/internal/parser"
	csvparser "stageload/internal/parser/csv"
	jsonparser "stageload/internal/parser/json"
	"stageload/internal/schema"
	"stageload/internal/sink/memory"
	"stageload/pkg/records"
)

func tripContract() schema.Contract {
	return schema.Contract{
		Name: "trips",
		Fields: []schema.Field{
			{Name: "ride_id", Type: schema.TypeString},
			{Name: "duration", Type: schema.TypeInteger},
		},
	}
}

func TestShortRowRejected(t *testing.T) {
	in := "ride_id,duration\n" +
		"a1,120\n" +
		"a2\n" +
		"a3,300\n"
	dec := csvparser.NewDecoder(strings.NewReader(in), csvparser.Options{HasHeader: true})
	dst := memory.New(nil)
	ld, err := loader.New(tripContract(), dst, loader.Options{Job: "trips"})
	if err != nil {
		t.Fatalf("loader: %v", err)
	}

	rep, err := ld.Run(context.Background(), dec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.RowsAccepted != 2 || rep.RowsRejected != 1 {
		t.Fatalf("accepted=%d rejected=%d, want 2/1", rep.RowsAccepted, rep.RowsRejected)
	}
	if len(rep.FirstErrors) != 1 {
		t.Fatalf("issues=%d want 1", len(rep.FirstErrors))
	}
	iss := rep.FirstErrors[0]
	if iss.Kind != loader.DecodeError {
		t.Fatalf("kind=%s want decode_error", iss.Kind)
	}
	if !strings.Contains(iss.Reason, "field count mismatch") {
		t.Fatalf("reason=%q should mention the field count", iss.Reason)
	}

	// Accepted rows keep input order.
	var ids []string
	err = dst.Scan(context.Background(), []string{"ride_id"}, func(row []any) error {
		ids = append(ids, row[0].(string))
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a1" || ids[1] != "a3" {
		t.Fatalf("ids=%v want [a1 a3]", ids)
	}
}

func TestWeatherKelvinLoad(t *testing.T) {
	in := `{"city":{"name":"Praha"},"main":{"temp":300.0}}
{"city":{"name":"Brno"},"main":{"temp":"bad"}}
{"city":{"name":"Ostrava"},"main":{"temp":290.5}}
`
	contract := schema.Contract{
		Name: "weather",
		Fields: []schema.Field{
			{Name: "city", Type: schema.TypeString, Path: "city.name"},
			{Name: "temp_c", Type: schema.TypeFloat, Path: "main.temp", Transform: "kelvin_to_celsius"},
		},
	}
	dec := jsonparser.NewDecoder(strings.NewReader(in), jsonparser.Options{})
	dst := memory.New(nil)
	ld, err := loader.New(contract, dst, loader.Options{Job: "weather"})
	if err != nil {
		t.Fatalf("loader: %v", err)
	}

	rep, err := ld.Run(context.Background(), dec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.RowsAccepted != 2 || rep.RowsRejected != 1 {
		t.Fatalf("accepted=%d rejected=%d, want 2/1", rep.RowsAccepted, rep.RowsRejected)
	}
	if rep.FirstErrors[0].Kind != loader.CoercionError {
		t.Fatalf("kind=%s want coercion_error", rep.FirstErrors[0].Kind)
	}

	var temps []float64
	err = dst.Scan(context.Background(), []string{"temp_c"}, func(row []any) error {
		temps = append(temps, row[0].(float64))
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []float64{26.85, 17.35}
	if len(temps) != len(want) {
		t.Fatalf("temps=%v want %v", temps, want)
	}
	for i := range want {
		if math.Abs(temps[i]-want[i]) > 1e-9 {
			t.Fatalf("temp[%d]=%v want %v", i, temps[i], want[i])
		}
	}
}

func TestAccountingIdentity(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("ride_id,duration\n")
	for i := 0; i < 120; i++ {
		if i%3 == 0 {
			fmt.Fprintf(&sb, "r%d,notanumber\n", i)
		} else {
			fmt.Fprintf(&sb, "r%d,%d\n", i, i*60)
		}
	}
	dec := csvparser.NewDecoder(strings.NewReader(sb.String()), csvparser.Options{HasHeader: true})
	dst := memory.New(nil)
	ld, err := loader.New(tripContract(), dst, loader.Options{Job: "trips", BatchSize: 7})
	if err != nil {
		t.Fatalf("loader: %v", err)
	}

	rep, err := ld.Run(context.Background(), dec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Total() != 120 {
		t.Fatalf("total=%d want 120", rep.Total())
	}
	if rep.RowsRejected != 40 {
		t.Fatalf("rejected=%d want 40", rep.RowsRejected)
	}
	n, err := dst.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != rep.RowsAccepted {
		t.Fatalf("sink holds %d rows, report says %d", n, rep.RowsAccepted)
	}
}

func TestFirstErrorsBounded(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("ride_id,duration\n")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "r%d,bad\n", i)
	}
	dec := csvparser.NewDecoder(strings.NewReader(sb.String()), csvparser.Options{HasHeader: true})
	ld, err := loader.New(tripContract(), memory.New(nil), loader.Options{Job: "trips", MaxErrors: 5})
	if err != nil {
		t.Fatalf("loader: %v", err)
	}

	rep, err := ld.Run(context.Background(), dec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.RowsRejected != 30 {
		t.Fatalf("rejected=%d want 30", rep.RowsRejected)
	}
	if len(rep.FirstErrors) != 5 {
		t.Fatalf("issues=%d want 5", len(rep.FirstErrors))
	}
	if rep.FirstErrors[0].Row != 1 {
		t.Fatalf("first issue row=%d want 1", rep.FirstErrors[0].Row)
	}
}

// faultyDecoder yields a fixed number of good records and then fails with a
// non-row error, simulating a broken pipe mid-stream.
type faultyDecoder struct {
	remaining int
}

func (d *faultyDecoder) Next() (records.Record, error) {
	if d.remaining == 0 {
		return nil, fmt.Errorf("read tcp: connection reset by peer")
	}
	d.remaining--
	return records.Record{"ride_id": "x", "duration": "60"}, nil
}

func TestStreamFaultReturnsPartialReport(t *testing.T) {
	dst := memory.New(nil)
	ld, err := loader.New(tripContract(), dst, loader.Options{Job: "trips", BatchSize: 2})
	if err != nil {
		t.Fatalf("loader: %v", err)
	}

	rep, err := ld.Run(context.Background(), &faultyDecoder{remaining: 5})
	var ioErr *loader.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("want IOError, got %v", err)
	}
	if ioErr.Op != "read" {
		t.Fatalf("op=%q want read", ioErr.Op)
	}
	if rep == nil {
		t.Fatal("partial report must accompany the fault")
	}
	// Two full batches flushed before the fault; the third row pair never
	// completed a batch and the buffered row is lost with the stream.
	if rep.RowsAccepted != 4 {
		t.Fatalf("accepted=%d want 4", rep.RowsAccepted)
	}
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ld, err := loader.New(tripContract(), memory.New(nil), loader.Options{Job: "trips"})
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	_, err = ld.Run(ctx, &faultyDecoder{remaining: 10})
	var ioErr *loader.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("want IOError for cancelled context, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled in chain, got %v", err)
	}
}

// emptyDecoder is immediately exhausted.
type emptyDecoder struct{}

func (emptyDecoder) Next() (records.Record, error) { return nil, io.EOF }

func TestEmptyInput(t *testing.T) {
	ld, err := loader.New(tripContract(), memory.New(nil), loader.Options{Job: "trips"})
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	rep, err := ld.Run(context.Background(), emptyDecoder{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Total() != 0 {
		t.Fatalf("total=%d want 0", rep.Total())
	}
}

var _ parser.Decoder = (*faultyDecoder)(nil)
