package changelog

import (
	"context"
	"fmt"

	"stageload/internal/sink"
)

// Recorder is a sink decorator that logs every appended batch. It satisfies
// sink.Sink so a loader can write through it transparently; only batches the
// underlying sink fully accepted are logged.
type Recorder struct {
	sink.Sink
	log *Log
}

// NewRecorder wraps dst so its appends are recorded into lg.
func NewRecorder(dst sink.Sink, lg *Log) *Recorder {
	return &Recorder{Sink: dst, log: lg}
}

// Log returns the underlying log.
func (r *Recorder) Log() *Log { return r.log }

// Append writes through to the wrapped sink, then records the batch.
func (r *Recorder) Append(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	n, err := r.Sink.Append(ctx, columns, rows)
	if err != nil {
		return n, err
	}
	if _, lerr := r.log.Append(columns, rows); lerr != nil {
		return n, fmt.Errorf("changelog: record batch: %w", lerr)
	}
	return n, nil
}

// Restore rebuilds dst's contents from the log: the sink is truncated, then
// every entry up to and including seq is replayed in order. seq 0 restores
// the empty state; a seq past the end replays the whole log.
func Restore(ctx context.Context, dst sink.Sink, lg *Log, seq uint64) error {
	if err := dst.Truncate(ctx); err != nil {
		return fmt.Errorf("changelog: restore: truncate: %w", err)
	}
	for _, e := range lg.Entries(seq) {
		if _, err := dst.Append(ctx, e.Columns, e.Rows); err != nil {
			return fmt.Errorf("changelog: restore: replay entry %d: %w", e.Seq, err)
		}
	}
	return nil
}
