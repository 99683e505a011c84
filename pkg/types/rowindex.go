package types

import (
	"fmt"
	"time"
)

// IndexKind discriminates the two supported row index shapes.
type IndexKind uint8

const (
	// IndexTimestamp is a monotonic (not necessarily strictly increasing)
	// sequence of timestamps.
	IndexTimestamp IndexKind = iota
	// IndexRange is a plain sequential range 0..N-1 for tables without
	// a time axis.
	IndexRange
)

// RowIndex is the single row axis shared by every chunk of a frame.
type RowIndex struct {
	Kind       IndexKind
	Timestamps []time.Time // set when Kind == IndexTimestamp
	Count      int         // set when Kind == IndexRange
}

// NewTimestampIndex builds a timestamp row index.
func NewTimestampIndex(ts []time.Time) *RowIndex {
	return &RowIndex{Kind: IndexTimestamp, Timestamps: ts}
}

// NewRangeIndex builds a sequential row index of n rows.
func NewRangeIndex(n int) *RowIndex {
	return &RowIndex{Kind: IndexRange, Count: n}
}

// Len returns the number of rows.
func (ri *RowIndex) Len() int {
	if ri.Kind == IndexTimestamp {
		return len(ri.Timestamps)
	}
	return ri.Count
}

// Equal reports whether two row indexes are identical in kind and content.
func (ri *RowIndex) Equal(other *RowIndex) bool {
	if ri.Kind != other.Kind || ri.Len() != other.Len() {
		return false
	}
	if ri.Kind == IndexTimestamp {
		for i, ts := range ri.Timestamps {
			if !ts.Equal(other.Timestamps[i]) {
				return false
			}
		}
	}
	return true
}

// Slice returns a copy restricted to positions [from, to).
func (ri *RowIndex) Slice(from, to int) (*RowIndex, error) {
	if from < 0 || to > ri.Len() || from > to {
		return nil, fmt.Errorf("types: row slice [%d:%d) out of range for %d rows", from, to, ri.Len())
	}
	if ri.Kind == IndexTimestamp {
		ts := make([]time.Time, to-from)
		copy(ts, ri.Timestamps[from:to])
		return NewTimestampIndex(ts), nil
	}
	return NewRangeIndex(to - from), nil
}

// LabelRange resolves a closed timestamp interval [from, to] to the
// positional range of rows whose labels fall inside it. Only valid for
// timestamp indexes.
func (ri *RowIndex) LabelRange(from, to time.Time) (int, int, error) {
	if ri.Kind != IndexTimestamp {
		return 0, 0, fmt.Errorf("types: label range requires a timestamp index")
	}
	start, end := -1, -1
	for i, ts := range ri.Timestamps {
		inside := !ts.Before(from) && !ts.After(to)
		if inside && start == -1 {
			start = i
		}
		if inside {
			end = i + 1
		}
	}
	if start == -1 {
		return 0, 0, nil
	}
	return start, end, nil
}

// Copy returns a deep copy of the index.
func (ri *RowIndex) Copy() *RowIndex {
	if ri.Kind == IndexTimestamp {
		ts := make([]time.Time, len(ri.Timestamps))
		copy(ts, ri.Timestamps)
		return NewTimestampIndex(ts)
	}
	return NewRangeIndex(ri.Count)
}
