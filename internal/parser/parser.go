// Package parser defines the decoder contract shared by the format-specific
// subpackages (csv, json).
//
// A Decoder yields a lazy, finite sequence of records from a byte stream. The
// sequence is not restartable; re-decoding requires a fresh stream. Row-scoped
// syntax problems are surfaced as *RowError values so the caller (normally the
// loader) can reject the single row and keep consuming; any other non-EOF
// error is a stream-level fault and terminates the sequence.
package parser

import (
	"errors"
	"fmt"

	"stageload/pkg/records"
)

// Decoder produces records one at a time from an underlying stream.
//
// Next returns io.EOF when the stream is exhausted. When it returns a
// *RowError the decoder remains usable and the next call resumes at the
// following row; the returned record, when non-nil, carries whatever fields
// were recovered from the bad row.
type Decoder interface {
	Next() (records.Record, error)
}

// RowError marks a single malformed input row. It is the decode-error marker
// attached to rows that fail syntax-level parsing (bad quoting, field-count
// mismatch, invalid JSON); the stream itself stays healthy.
type RowError struct {
	Row    int // 1-based input row number
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// IsRowError reports whether err is (or wraps) a *RowError.
func IsRowError(err error) bool {
	var re *RowError
	return errors.As(err, &re)
}
