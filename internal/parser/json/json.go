// Package json implements a streaming decoder for newline-delimited JSON
// documents.
//
// Each input line holds one top-level JSON object; the object's keys become
// the record's fields and nested objects/arrays are preserved as
// map[string]any / []any values for later path-based extraction. Numbers are
// kept as json.Number so the coercion layer decides their final type.
//
// A malformed line (truncated document, non-object top-level value) yields a
// row-scoped decode error and the decoder resynchronizes at the next line;
// it never aborts the whole stream.
package json

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"stageload/internal/parser"
	"stageload/pkg/records"
)

// Options configures the JSON decoder.
type Options struct {
	// MaxDocBytes bounds a single document's size. Zero means 16 MiB. Lines
	// longer than the bound produce a row-scoped decode error.
	MaxDocBytes int
}

// Decoder reads one JSON document per line. It is not safe for concurrent
// use and not restartable.
type Decoder struct {
	br  *bufio.Reader
	opt Options
	row int
	eof bool
}

// NewDecoder wraps r with a newline-delimited JSON decoder.
func NewDecoder(r io.Reader, opt Options) *Decoder {
	if opt.MaxDocBytes <= 0 {
		opt.MaxDocBytes = 16 << 20
	}
	return &Decoder{br: bufio.NewReaderSize(r, 64*1024), opt: opt}
}

// Next returns the record for the next non-empty line. Malformed lines
// return a *parser.RowError; the following call resumes at the next line.
func (d *Decoder) Next() (records.Record, error) {
	for {
		if d.eof {
			return nil, io.EOF
		}
		line, err := d.readLine()
		if err != nil && err != io.EOF {
			return nil, err
		}
		if err == io.EOF {
			d.eof = true
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		d.row++

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var raw any
		if derr := dec.Decode(&raw); derr != nil {
			return nil, &parser.RowError{Row: d.row, Reason: fmt.Sprintf("invalid JSON: %v", derr)}
		}
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, &parser.RowError{Row: d.row, Reason: fmt.Sprintf("top-level value is %T, not an object", raw)}
		}
		return records.Record(obj), nil
	}
}

// readLine reads up to the next '\n', enforcing the per-document byte bound.
// An over-long line is consumed to its end so the decoder can resync.
func (d *Decoder) readLine() ([]byte, error) {
	var buf []byte
	for {
		chunk, err := d.br.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > d.opt.MaxDocBytes {
			// Drain the rest of the line, then report the row as damaged.
			for err == bufio.ErrBufferFull {
				chunk, err = d.br.ReadSlice('\n')
			}
			d.row++
			return nil, &parser.RowError{Row: d.row, Reason: fmt.Sprintf("document exceeds %d bytes", d.opt.MaxDocBytes)}
		}
		switch err {
		case nil:
			return buf, nil
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			return buf, io.EOF
		default:
			return nil, fmt.Errorf("json: read: %w", err)
		}
	}
}
