// Package loader streams decoded records through the coercion layer into a
// sink, tracking per-row accept/reject accounting.
//
// Row-scoped failures (decode errors, coercion errors, schema violations)
// reject the single row and never abort the load. Stream-level faults — a
// failing reader or an unavailable sink — are fatal: Run returns an *IOError
// alongside the partial report for the rows processed so far.
//
// Ordering: accepted rows reach the sink in input order. Batching is an
// internal write optimization; batches are flushed sequentially and never
// reordered. The loader does not deduplicate — re-running a load against a
// non-empty sink appends duplicates, mirroring a replace-then-load workflow.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"stageload/internal/metrics"
	"stageload/internal/parser"
	"stageload/internal/schema"
	"stageload/internal/sink"
	"stageload/internal/transform"
)

const (
	defaultBatchSize = 500
	defaultMaxErrors = 50
)

// IOError is a fatal stream-level fault: the input could not be read or the
// sink could not be written. It terminates the load.
type IOError struct {
	Op  string // "read" or "append"
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("loader: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Options tunes one loader instance.
type Options struct {
	// BatchSize is the number of accepted rows buffered before a sink
	// append. Zero means 500.
	BatchSize int

	// MaxErrors bounds Report.FirstErrors. Zero means 50; negative disables
	// recording (counts only).
	MaxErrors int

	// Job labels metrics and log lines for this load.
	Job string

	// Coerce overrides the coercion defaults (time layouts).
	Coerce transform.Options
}

// Loader applies a contract to decoded records and appends accepted rows to
// a sink. A Loader is immutable after New and may run any number of
// sequential loads; concurrent loads should use one Loader per sink.
type Loader struct {
	contract schema.Contract
	coercer  *transform.Coercer
	dst      sink.Sink
	opt      Options
}

// New builds a Loader for the contract and destination sink.
func New(c schema.Contract, dst sink.Sink, opt Options) (*Loader, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if dst == nil {
		return nil, fmt.Errorf("loader: sink must not be nil")
	}
	if opt.BatchSize <= 0 {
		opt.BatchSize = defaultBatchSize
	}
	if opt.MaxErrors == 0 {
		opt.MaxErrors = defaultMaxErrors
	}
	co, err := transform.New(c, opt.Coerce)
	if err != nil {
		return nil, err
	}
	return &Loader{contract: c, coercer: co, dst: dst, opt: opt}, nil
}

// Run consumes the decoder to exhaustion and returns the load report.
//
// The returned error is nil for a completed load (even one that rejected
// every row) and an *IOError for a stream-level fault, in which case the
// report reflects the rows processed up to the fault. Context cancellation
// is reported as an IOError wrapping ctx.Err().
func (l *Loader) Run(ctx context.Context, dec parser.Decoder) (*Report, error) {
	var (
		rep     Report
		batch   = make([][]any, 0, l.opt.BatchSize)
		columns = l.contract.Columns()
		row     int64
		batches int64
		start   = time.Now()
	)

	reject := func(row int64, kind IssueKind, reason string) {
		rep.RowsRejected++
		if l.opt.MaxErrors > 0 && len(rep.FirstErrors) < l.opt.MaxErrors {
			rep.FirstErrors = append(rep.FirstErrors, Issue{Row: row, Kind: kind, Reason: reason})
		}
	}

	flush := func() *IOError {
		if len(batch) == 0 {
			return nil
		}
		n, err := l.dst.Append(ctx, columns, batch)
		rep.RowsAccepted += n
		if err != nil {
			return &IOError{Op: "append", Err: err}
		}
		batches++
		batch = batch[:0]
		return nil
	}

	finish := func(ioErr *IOError) (*Report, error) {
		elapsed := time.Since(start)
		metrics.RecordBatches(l.opt.Job, batches)
		metrics.RecordRows(l.opt.Job, "accepted", rep.RowsAccepted)
		l.recordRejects(&rep)
		if ioErr != nil {
			metrics.RecordLoad(l.opt.Job, ioErr, elapsed)
			log.Printf("loader: job=%s aborted after %s: %v (accepted=%d rejected=%d)",
				l.opt.Job, elapsed.Truncate(time.Millisecond), ioErr, rep.RowsAccepted, rep.RowsRejected)
			return &rep, ioErr
		}
		metrics.RecordLoad(l.opt.Job, nil, elapsed)
		log.Printf("loader: job=%s done in %s: accepted=%d rejected=%d batches=%d",
			l.opt.Job, elapsed.Truncate(time.Millisecond), rep.RowsAccepted, rep.RowsRejected, batches)
		return &rep, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(&IOError{Op: "read", Err: err})
		}

		rec, err := dec.Next()
		if err == io.EOF {
			return finish(flush())
		}
		row++

		if err != nil {
			var re *parser.RowError
			if errors.As(err, &re) {
				reject(row, DecodeError, re.Reason)
				continue
			}
			return finish(&IOError{Op: "read", Err: err})
		}

		typed, ferr := l.coercer.Row(rec)
		if ferr != nil {
			kind := CoercionError
			if ferr.Kind == transform.KindSchema {
				kind = SchemaViolation
			}
			reject(row, kind, ferr.Error())
			continue
		}

		batch = append(batch, typed)
		if len(batch) >= l.opt.BatchSize {
			if ioErr := flush(); ioErr != nil {
				return finish(ioErr)
			}
		}
	}
}

// recordRejects splits the rejected total across metric kinds using the
// recorded issues; rejections past the MaxErrors bound are attributed to the
// dominant recorded kind only in aggregate, so the per-kind counters are a
// lower bound while the total stays exact.
func (l *Loader) recordRejects(rep *Report) {
	var decode, coerce, schemaViolations int64
	for _, iss := range rep.FirstErrors {
		switch iss.Kind {
		case DecodeError:
			decode++
		case CoercionError:
			coerce++
		case SchemaViolation:
			schemaViolations++
		}
	}
	metrics.RecordRows(l.opt.Job, "rejected_decode", decode)
	metrics.RecordRows(l.opt.Job, "rejected_coercion", coerce)
	metrics.RecordRows(l.opt.Job, "rejected_schema", schemaViolations)
	if extra := rep.RowsRejected - decode - coerce - schemaViolations; extra > 0 {
		metrics.RecordRows(l.opt.Job, "rejected_unrecorded", extra)
	}
}
