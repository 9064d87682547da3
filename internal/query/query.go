// Package query implements the read-only aggregation surface over a sink's
// accepted rows: group-by-time-bucket counts and averages.
//
// Bucketing truncates a timestamp field to hour, day, or month boundaries
// using calendar semantics in UTC; no stored timestamp is reinterpreted in
// another zone. Results are ordered ascending by bucket, and an empty sink
// yields an empty slice, not an error.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"stageload/internal/sink"
)

// Granularity selects the width of a time bucket.
type Granularity int

const (
	Hour Granularity = iota
	Day
	Month
)

func (g Granularity) String() string {
	switch g {
	case Hour:
		return "hour"
	case Day:
		return "day"
	case Month:
		return "month"
	}
	return fmt.Sprintf("Granularity(%d)", int(g))
}

// ParseGranularity maps a config/CLI name to a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hour", "hourly":
		return Hour, nil
	case "day", "daily":
		return Day, nil
	case "month", "monthly":
		return Month, nil
	}
	return Hour, fmt.Errorf("query: unknown granularity %q", s)
}

// Truncate returns the bucket t falls into, in UTC.
func (g Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case Hour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	case Day:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case Month:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// CountRow is one (bucket, count) result.
type CountRow struct {
	Bucket time.Time
	Count  int64
}

// AvgRow is one (bucket, average) result. Count carries the number of
// non-null values behind the average.
type AvgRow struct {
	Bucket  time.Time
	Average float64
	Count   int64
}

// CountByBucket counts rows per time bucket of the named timestamp field.
// Rows whose bucket field is null are skipped.
func CountByBucket(ctx context.Context, s sink.Sink, field string, g Granularity) ([]CountRow, error) {
	counts := map[time.Time]int64{}
	err := s.Scan(ctx, []string{field}, func(row []any) error {
		ts, ok, err := asTime(row[0])
		if err != nil {
			return fmt.Errorf("query: field %q: %w", field, err)
		}
		if !ok {
			return nil
		}
		counts[g.Truncate(ts)]++
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]CountRow, 0, len(counts))
	for b, n := range counts {
		out = append(out, CountRow{Bucket: b, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bucket.Before(out[j].Bucket) })
	return out, nil
}

// AvgByBucket averages the named numeric field per time bucket of the bucket
// field. Rows with a null bucket or null value are skipped.
func AvgByBucket(ctx context.Context, s sink.Sink, bucketField, valueField string, g Granularity) ([]AvgRow, error) {
	type acc struct {
		sum   float64
		count int64
	}
	sums := map[time.Time]*acc{}
	err := s.Scan(ctx, []string{bucketField, valueField}, func(row []any) error {
		ts, ok, err := asTime(row[0])
		if err != nil {
			return fmt.Errorf("query: field %q: %w", bucketField, err)
		}
		if !ok {
			return nil
		}
		v, ok, err := asFloat(row[1])
		if err != nil {
			return fmt.Errorf("query: field %q: %w", valueField, err)
		}
		if !ok {
			return nil
		}
		b := g.Truncate(ts)
		a := sums[b]
		if a == nil {
			a = &acc{}
			sums[b] = a
		}
		a.sum += v
		a.count++
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]AvgRow, 0, len(sums))
	for b, a := range sums {
		out = append(out, AvgRow{Bucket: b, Average: a.sum / float64(a.count), Count: a.count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bucket.Before(out[j].Bucket) })
	return out, nil
}

// asTime interprets a stored bucket value. Memory sinks hold time.Time;
// SQL-backed sinks may return text (RFC3339) or driver-native time values.
// Returns ok=false for null.
func asTime(v any) (time.Time, bool, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return t.UTC(), true, nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if ts, err := time.ParseInLocation(layout, t, time.UTC); err == nil {
				return ts.UTC(), true, nil
			}
		}
		return time.Time{}, false, fmt.Errorf("unparseable time %q", t)
	case []byte:
		return asTime(string(t))
	}
	return time.Time{}, false, fmt.Errorf("type %T is not a time", v)
}

// asFloat interprets a stored numeric value. Returns ok=false for null.
func asFloat(v any) (float64, bool, error) {
	switch t := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return t, true, nil
	case float32:
		return float64(t), true, nil
	case int64:
		return float64(t), true, nil
	case int:
		return float64(t), true, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false, fmt.Errorf("non-numeric %q", t.String())
		}
		return f, true, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false, fmt.Errorf("non-numeric %q", t)
		}
		return f, true, nil
	}
	return 0, false, fmt.Errorf("type %T is not numeric", v)
}
