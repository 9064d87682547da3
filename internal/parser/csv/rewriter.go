package csv

import (
	"bufio"
	"bytes"
	"io"
)

// streamingRewriter is an io.Reader that performs a rolling find/replace: it
// replaces every occurrence of pat with repl without buffering the entire
// stream. To match sequences that span chunk boundaries it retains the last
// len(pat)-1 bytes of each processed block and prepends them to the next one.
// The decoder uses it to translate a non-standard record delimiter into '\n'
// before the bytes reach encoding/csv.
type streamingRewriter struct {
	br    *bufio.Reader
	pat   []byte
	repl  []byte
	carry []byte
	buf   bytes.Buffer
	eof   bool
}

func newStreamingRewriter(r io.Reader, pat, repl []byte) *streamingRewriter {
	capacity := 0
	if n := len(pat) - 1; n > 0 {
		capacity = n
	}
	return &streamingRewriter{
		br:    bufio.NewReaderSize(r, 64*1024),
		pat:   pat,
		repl:  repl,
		carry: make([]byte, 0, capacity),
	}
}

// Read serves buffered output first; when empty it reads the next chunk,
// performs the rolling replacement, and withholds the trailing len(pat)-1
// bytes as carry for the next call. On EOF the remaining carry is flushed.
func (sr *streamingRewriter) Read(p []byte) (int, error) {
	if sr.buf.Len() > 0 {
		return sr.buf.Read(p)
	}
	if sr.eof {
		return 0, io.EOF
	}

	tmp := make([]byte, 64*1024)
	n, rerr := sr.br.Read(tmp)
	if n > 0 {
		block := tmp[:n]
		if len(sr.carry) > 0 {
			joined := make([]byte, 0, len(sr.carry)+len(block))
			joined = append(joined, sr.carry...)
			joined = append(joined, block...)
			block = joined
		}
		if len(sr.pat) > 0 && !bytes.Equal(sr.pat, sr.repl) {
			block = bytes.ReplaceAll(block, sr.pat, sr.repl)
		}
		k := len(sr.pat) - 1
		if k < 0 {
			k = 0
		}
		switch {
		case k == 0:
			sr.buf.Write(block)
		case len(block) > k:
			sr.buf.Write(block[:len(block)-k])
			sr.carry = append(sr.carry[:0], block[len(block)-k:]...)
		default:
			sr.carry = append(sr.carry[:0], block...)
		}
	}

	if rerr == io.EOF {
		if len(sr.carry) > 0 {
			sr.buf.Write(sr.carry)
			sr.carry = sr.carry[:0]
		}
		sr.eof = true
	} else if rerr != nil {
		return 0, rerr
	}

	if sr.buf.Len() > 0 {
		return sr.buf.Read(p)
	}
	if sr.eof {
		return 0, io.EOF
	}
	return 0, nil
}
