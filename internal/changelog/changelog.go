// Package changelog keeps an append-only log of load batches so a sink's
// contents can be restored to an earlier sequence point.
//
// Every batch appended through a Recorder becomes one Entry with a
// monotonically increasing sequence number and an xxh3 checksum of its
// JSON-encoded rows. Restore replays entries up to a chosen sequence point
// into a truncated sink — replace semantics, mirroring the loader's
// replace-then-load workflow. The log does not attempt conflict handling
// with concurrent writers; a sink under restore must not receive other
// writes, which matches the disjoint-sink ownership model loads already
// follow.
package changelog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/zeebo/xxh3"
)

// Entry is one logged batch.
type Entry struct {
	// Seq is the 1-based sequence number of this batch within the log.
	Seq uint64 `json:"seq"`
	// Columns is the sink column order the rows align to.
	Columns []string `json:"columns"`
	// Rows are the appended typed rows, JSON-encoded on persistence.
	Rows [][]any `json:"rows"`
	// Sum is the xxh3 hash of the JSON encoding of Rows, used to detect
	// corruption when a persisted log is read back.
	Sum uint64 `json:"sum"`
}

// Log is an in-memory append-only sequence of entries. It is safe for
// concurrent use, though a load normally owns its log exclusively.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewLog returns an empty log.
func NewLog() *Log { return &Log{} }

// Append records one batch and returns its sequence number. The rows slice
// is copied: callers such as the loader reuse their batch backing array
// between flushes, and a logged entry must not change after the fact.
func (l *Log) Append(columns []string, rows [][]any) (uint64, error) {
	sum, err := checksum(rows)
	if err != nil {
		return 0, err
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	kept := make([][]any, len(rows))
	copy(kept, rows)

	l.mu.Lock()
	defer l.mu.Unlock()
	seq := uint64(len(l.entries)) + 1
	l.entries = append(l.entries, Entry{Seq: seq, Columns: cols, Rows: kept, Sum: sum})
	return seq, nil
}

// Seq returns the latest sequence number, 0 for an empty log.
func (l *Log) Seq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.entries))
}

// Entries returns the logged entries up to and including seq.
func (l *Log) Entries(seq uint64) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := uint64(len(l.entries))
	if seq > n {
		seq = n
	}
	out := make([]Entry, seq)
	copy(out, l.entries[:seq])
	return out
}

// Save writes the log as JSON lines, one entry per line.
func (l *Log) Save(w io.Writer) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, e := range l.entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("changelog: save entry %d: %w", e.Seq, err)
		}
	}
	return bw.Flush()
}

// Load reads a JSON-lines log written by Save, verifying each entry's
// checksum and sequence continuity.
//
// Values come back in their JSON-decoded forms: time.Time as RFC3339
// strings, integers as float64. Replaying a loaded log into the memory sink
// is lossless for queries (the query layer re-parses strings), but a typed
// SQL sink receives those decoded forms; restore into SQL destinations from
// a live in-process log, or re-coerce against the contract first.
func Load(r io.Reader) (*Log, error) {
	dec := json.NewDecoder(r)
	lg := &Log{}
	for {
		var e Entry
		if err := dec.Decode(&e); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("changelog: load: %w", err)
		}
		if want := uint64(len(lg.entries)) + 1; e.Seq != want {
			return nil, fmt.Errorf("changelog: load: entry out of sequence: got %d, want %d", e.Seq, want)
		}
		sum, err := checksum(e.Rows)
		if err != nil {
			return nil, err
		}
		if sum != e.Sum {
			return nil, fmt.Errorf("changelog: load: entry %d checksum mismatch", e.Seq)
		}
		lg.entries = append(lg.entries, e)
	}
	return lg, nil
}

// checksum hashes the JSON encoding of rows with xxh3.
func checksum(rows [][]any) (uint64, error) {
	b, err := json.Marshal(rows)
	if err != nil {
		return 0, fmt.Errorf("changelog: encode rows: %w", err)
	}
	return xxh3.Hash(b), nil
}
