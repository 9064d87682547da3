package loader

import "fmt"

// IssueKind classifies a row-scoped rejection.
type IssueKind int

const (
	// DecodeError marks malformed input syntax (bad quoting, field-count
	// mismatch, invalid JSON).
	DecodeError IssueKind = iota
	// CoercionError marks a value that does not match its declared type or
	// failed a normalization transform.
	CoercionError
	// SchemaViolation marks a required field that resolved to missing/null.
	SchemaViolation
)

func (k IssueKind) String() string {
	switch k {
	case DecodeError:
		return "decode_error"
	case CoercionError:
		return "coercion_error"
	case SchemaViolation:
		return "schema_violation"
	}
	return fmt.Sprintf("IssueKind(%d)", int(k))
}

// Issue records why one input row was rejected.
type Issue struct {
	// Row is the 1-based index of the row within the load's input.
	Row int64
	// Kind classifies the rejection.
	Kind IssueKind
	// Reason is a human-readable explanation.
	Reason string
}

func (i Issue) String() string {
	return fmt.Sprintf("row %d [%s]: %s", i.Row, i.Kind, i.Reason)
}

// Report summarizes one load invocation. It is created per Run call and
// immutable after return.
type Report struct {
	// RowsAccepted counts rows appended to the sink.
	RowsAccepted int64
	// RowsRejected counts rows dropped for row-scoped reasons.
	RowsRejected int64
	// FirstErrors holds the first MaxErrors rejection reasons in input
	// order; later rejections are counted but not recorded, bounding memory
	// on pathological inputs.
	FirstErrors []Issue
}

// Total returns the number of input rows the load consumed.
func (r *Report) Total() int64 {
	return r.RowsAccepted + r.RowsRejected
}
