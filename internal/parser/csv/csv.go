// Package csv implements a streaming decoder for delimited text. It never
// buffers the whole input and tolerates per-row damage: a row whose width
// differs from the header's, or whose quoting cannot be parsed, is surfaced
// as a row-scoped decode error instead of aborting the stream.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"stageload/internal/parser"
	"stageload/pkg/records"
)

// Options configures the delimited-text decoder. All fields are optional;
// zero values select sensible defaults.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// RecordDelim is the record separator. Zero or '\n' means standard line
	// endings; any other rune is translated to '\n' on the fly before the
	// bytes reach encoding/csv, without buffering the stream.
	RecordDelim rune

	// LazyQuotes relaxes quote handling: a quote may appear in an unquoted
	// field and a non-doubled quote in a quoted field. When false, quoting
	// damage yields a row-scoped decode error.
	LazyQuotes bool

	// HasHeader indicates that the first row (after SkipRows) carries column
	// names. Without a header, columns are named col_0, col_1, ...
	HasHeader bool

	// SkipRows is the number of leading rows discarded before the header (or
	// the first data row when HasHeader is false).
	SkipRows int

	// TrimSpace trims leading/trailing spaces from every field value.
	TrimSpace bool

	// HeaderMap maps source header names to canonical field names. Headers
	// not present in the map are normalized (lowercased, diacritics folded,
	// spaces to underscores).
	HeaderMap map[string]string
}

// Decoder reads delimited rows and emits one records.Record per row. It is
// not safe for concurrent use and not restartable.
type Decoder struct {
	cr      *csv.Reader
	opt     Options
	headers []string
	started bool
	row     int // 1-based count of rows consumed from the reader
}

// NewDecoder wraps r with a streaming delimited-text decoder.
func NewDecoder(r io.Reader, opt Options) *Decoder {
	if opt.RecordDelim != 0 && opt.RecordDelim != '\n' {
		r = newStreamingRewriter(r, []byte(string(opt.RecordDelim)), []byte("\n"))
	}
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	// Width is enforced by the decoder itself so a short or long row becomes
	// a row-scoped error rather than aborting the csv.Reader.
	cr.FieldsPerRecord = -1
	return &Decoder{cr: cr, opt: opt}
}

// Headers returns the canonical column names once the header row has been
// consumed (after the first Next call). Nil before that, or when the input
// has no header and no row has been read.
func (d *Decoder) Headers() []string { return d.headers }

// Next returns the next data row. A row whose field count differs from the
// header's, or that fails quote parsing, is returned with a *parser.RowError;
// the decoder stays usable. io.EOF signals a clean end of stream.
func (d *Decoder) Next() (records.Record, error) {
	if !d.started {
		if err := d.start(); err != nil {
			return nil, err
		}
	}

	row, err := d.cr.Read()
	d.row++
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		if _, ok := err.(*csv.ParseError); ok {
			return nil, &parser.RowError{Row: d.row, Reason: err.Error()}
		}
		return nil, fmt.Errorf("csv: read row %d: %w", d.row, err)
	}

	if len(d.headers) > 0 && len(row) != len(d.headers) {
		return d.assemble(row), &parser.RowError{
			Row:    d.row,
			Reason: fmt.Sprintf("field count mismatch: expected %d fields, got %d", len(d.headers), len(row)),
		}
	}
	return d.assemble(row), nil
}

// start consumes skipped rows and the header row.
func (d *Decoder) start() error {
	d.started = true
	for i := 0; i < d.opt.SkipRows; i++ {
		if _, err := d.cr.Read(); err != nil {
			if err == io.EOF {
				return io.EOF
			}
			return fmt.Errorf("csv: skip row %d: %w", i+1, err)
		}
		d.row++
	}
	if d.opt.HasHeader {
		h, err := d.cr.Read()
		if err != nil {
			if err == io.EOF {
				return io.EOF
			}
			return fmt.Errorf("csv: read header: %w", err)
		}
		d.row++
		d.headers = normalizeHeaders(h, d.opt.HeaderMap)
	}
	return nil
}

// assemble builds a Record from raw fields, keyed by header name when known,
// otherwise by synthesized col_N names. Empty strings become nil so the
// coercion layer treats them as missing values.
func (d *Decoder) assemble(row []string) records.Record {
	rec := make(records.Record, len(row))
	for i, val := range row {
		if d.opt.TrimSpace {
			val = strings.TrimSpace(val)
		}
		key := fmt.Sprintf("col_%d", i)
		if i < len(d.headers) && d.headers[i] != "" {
			key = d.headers[i]
		}
		if val == "" {
			rec[key] = nil
		} else {
			rec[key] = val
		}
	}
	return rec
}
