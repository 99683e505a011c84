package frame

import (
	"fmt"
	"strings"

	storeerr "github.com/voightp/esofile-reader-sub000/internal/errors"
	"github.com/voightp/esofile-reader-sub000/pkg/types"
)

// Entry ties one column identity to the chunk currently holding it.
type Entry struct {
	Variable types.Variable
	Chunk    string
}

// LookupIndex is the authoritative map from column identity to owning
// chunk and the source of the frame's logical column order. The order
// of entries is the order callers observe on full materialization,
// independent of physical chunk placement.
type LookupIndex struct {
	entries []Entry
	byID    map[int]int // variable id -> position in entries
}

// NewLookupIndex builds an index from ordered entries.
func NewLookupIndex(entries []Entry) (*LookupIndex, error) {
	li := &LookupIndex{entries: entries, byID: make(map[int]int, len(entries))}
	for i, e := range entries {
		if _, dup := li.byID[e.Variable.ID]; dup {
			return nil, fmt.Errorf("frame: duplicate variable id %d in lookup index", e.Variable.ID)
		}
		li.byID[e.Variable.ID] = i
	}
	return li, nil
}

// Len returns the number of logical columns.
func (li *LookupIndex) Len() int {
	return len(li.entries)
}

// Entries returns the entries in logical column order.
func (li *LookupIndex) Entries() []Entry {
	out := make([]Entry, len(li.entries))
	copy(out, li.entries)
	return out
}

// Variables returns the column identities in logical order.
func (li *LookupIndex) Variables() []types.Variable {
	vars := make([]types.Variable, len(li.entries))
	for i, e := range li.entries {
		vars[i] = e.Variable
	}
	return vars
}

// Position returns the logical position of the column with the given
// id, or -1 if absent.
func (li *LookupIndex) Position(id int) int {
	pos, ok := li.byID[id]
	if !ok {
		return -1
	}
	return pos
}

// Chunks returns the distinct chunk names in first-appearance order.
func (li *LookupIndex) Chunks() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, e := range li.entries {
		if _, ok := seen[e.Chunk]; !ok {
			seen[e.Chunk] = struct{}{}
			names = append(names, e.Chunk)
		}
	}
	return names
}

// ChunkCounts returns the number of columns held by each chunk.
func (li *LookupIndex) ChunkCounts() map[string]int {
	counts := make(map[string]int)
	for _, e := range li.entries {
		counts[e.Chunk]++
	}
	return counts
}

// SmallestChunk returns the chunk holding the fewest columns and that
// count. Returns "" when the index is empty; ties break arbitrarily.
func (li *LookupIndex) SmallestChunk() (string, int) {
	best, bestCount := "", 0
	for chunk, count := range li.ChunkCounts() {
		if best == "" || count < bestCount {
			best, bestCount = chunk, count
		}
	}
	return best, bestCount
}

// GroupByChunk splits entries by owning chunk, preserving logical
// order inside each group.
func GroupByChunk(entries []Entry) map[string][]Entry {
	groups := make(map[string][]Entry)
	for _, e := range entries {
		groups[e.Chunk] = append(groups[e.Chunk], e)
	}
	return groups
}

// InsertAt places a new entry at the given logical position.
func (li *LookupIndex) InsertAt(pos int, e Entry) error {
	if pos < 0 || pos > len(li.entries) {
		return storeerr.NewValidationError(storeerr.CodeInvalidPosition,
			fmt.Sprintf("frame: position %d out of range [0, %d]", pos, len(li.entries)))
	}
	if _, dup := li.byID[e.Variable.ID]; dup {
		return storeerr.NewValidationError(storeerr.CodeMixedIdentity,
			fmt.Sprintf("frame: variable id %d already present", e.Variable.ID))
	}
	li.entries = append(li.entries, Entry{})
	copy(li.entries[pos+1:], li.entries[pos:])
	li.entries[pos] = e
	li.reindex()
	return nil
}

// Remove drops the entries with the given ids, preserving the order of
// the remainder.
func (li *LookupIndex) Remove(ids []int) {
	drop := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := li.entries[:0]
	for _, e := range li.entries {
		if _, gone := drop[e.Variable.ID]; !gone {
			kept = append(kept, e)
		}
	}
	li.entries = kept
	li.reindex()
}

// Rename replaces the identity of the listed columns in place,
// preserving logical order and ids.
func (li *LookupIndex) Rename(mapping map[int]types.Variable) error {
	var missing []string
	for id := range mapping {
		if _, ok := li.byID[id]; !ok {
			missing = append(missing, fmt.Sprintf("%d", id))
		}
	}
	if len(missing) > 0 {
		return storeerr.NewColumnNotFound(
			fmt.Sprintf("frame: cannot rename missing columns: %s", strings.Join(missing, ", ")))
	}
	for id, v := range mapping {
		v.ID = id
		li.entries[li.byID[id]].Variable = v
	}
	return nil
}

func (li *LookupIndex) reindex() {
	li.byID = make(map[int]int, len(li.entries))
	for i, e := range li.entries {
		li.byID[e.Variable.ID] = i
	}
}
