package frame

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	storeerr "github.com/voightp/esofile-reader-sub000/internal/errors"
	"github.com/voightp/esofile-reader-sub000/internal/store"
	"github.com/voightp/esofile-reader-sub000/pkg/types"
)

// Frame is the chunked columnar table. It owns one shared row index,
// one lookup index and the chunk files referenced by it, all living on
// a single store the frame exclusively owns.
type Frame struct {
	name     string
	store    store.Store
	policy   ChunkingPolicy
	index    *types.RowIndex
	lookup   *LookupIndex
	simple   bool
	position int
}

// FromTable bulk-constructs a frame from a finished in-memory table:
// columns are sliced into contiguous runs in their original order and
// each run is written as one chunk. This is a one-time layout
// decision; later inserts do not rebalance it.
func FromTable(ctx context.Context, t *types.TableData, name string, s store.Store, policy ChunkingPolicy) (*Frame, error) {
	simple, err := identityForm(t.Variables)
	if err != nil {
		return nil, err
	}

	f := &Frame{
		name:   name,
		store:  s,
		policy: policy,
		index:  t.Index,
		simple: simple,
	}

	width := policy.ColumnsPerChunk(t.RowCount())
	var entries []Entry
	for start := 0; start < t.ColumnCount(); start += width {
		end := start + width
		if end > t.ColumnCount() {
			end = t.ColumnCount()
		}
		chunk := f.newChunkName()
		slice := &types.TableData{
			Index:     t.Index,
			Variables: t.Variables[start:end],
			Columns:   t.Columns[start:end],
		}
		if err := store.WriteChunk(ctx, s, chunk, slice); err != nil {
			return nil, storeerr.NewChunkError(storeerr.CodeChunkIO,
				fmt.Sprintf("frame: writing chunk %s of table %s", chunk, name), err)
		}
		for _, v := range slice.Variables {
			entries = append(entries, Entry{Variable: v, Chunk: chunk})
		}
	}

	f.lookup, err = NewLookupIndex(entries)
	if err != nil {
		return nil, err
	}
	if err := f.writeSideFiles(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// Name returns the source-table name the frame stores.
func (f *Frame) Name() string {
	return f.name
}

// RowIndex returns the shared row index.
func (f *Frame) RowIndex() *types.RowIndex {
	return f.index
}

// Variables returns the column identities in logical order.
func (f *Frame) Variables() []types.Variable {
	return f.lookup.Variables()
}

// Simple reports whether the frame holds 4-part identities.
func (f *Frame) Simple() bool {
	return f.simple
}

// Position returns the frame's logical position within its owning
// collection.
func (f *Frame) Position() int {
	return f.position
}

// SetPosition records the frame's logical position within its owning
// collection and persists it in the lookup side file.
func (f *Frame) SetPosition(ctx context.Context, position int) error {
	f.position = position
	return f.writeSideFiles(ctx)
}

// ChunkNames returns the distinct chunk file names in first-appearance
// order.
func (f *Frame) ChunkNames() []string {
	return f.lookup.Chunks()
}

// Policy returns the chunking policy the frame was built with.
func (f *Frame) Policy() ChunkingPolicy {
	return f.policy
}

// Read assembles the selected columns from only the chunks holding
// them, re-applies the shared row index, restores the requested column
// order and finally applies the row selection.
func (f *Frame) Read(ctx context.Context, rows RowSelector, cols ColumnSelector) (*types.TableData, error) {
	entries, err := cols.resolve(f.lookup)
	if err != nil {
		return nil, err
	}

	values := make(map[int][]float64, len(entries))
	groups := GroupByChunk(entries)
	for _, chunk := range chunkOrder(entries) {
		group := groups[chunk]
		keep := make(map[int]struct{}, len(group))
		for _, e := range group {
			keep[e.Variable.ID] = struct{}{}
		}
		part, err := store.ReadChunk(ctx, f.store, chunk, func(v types.Variable) bool {
			_, ok := keep[v.ID]
			return ok
		})
		if err != nil {
			return nil, storeerr.NewChunkError(storeerr.CodeChunkIO,
				fmt.Sprintf("frame: reading chunk %s of table %s", chunk, f.name), err)
		}
		for i, v := range part.Variables {
			values[v.ID] = part.Columns[i]
		}
	}

	out := &types.TableData{Index: f.index}
	for _, e := range entries {
		col, ok := values[e.Variable.ID]
		if !ok {
			return nil, storeerr.NewCorruptedData(
				fmt.Sprintf("frame: chunk %s does not hold column %s", e.Chunk, e.Variable), nil)
		}
		out.Variables = append(out.Variables, e.Variable)
		out.Columns = append(out.Columns, col)
	}

	return rows.apply(out)
}

// CleanUp releases all chunk and side-file storage held by the frame.
func (f *Frame) CleanUp(ctx context.Context) error {
	return f.store.RemoveAll(ctx)
}

// newChunkName generates an unused opaque chunk file name.
func (f *Frame) newChunkName() string {
	for {
		name := fmt.Sprintf("%s-%s%s", f.name, uuid.New().String()[:8], chunkExt)
		if f.lookup == nil {
			return name
		}
		if _, taken := f.lookup.ChunkCounts()[name]; !taken {
			return name
		}
	}
}

// identityForm validates that all variables share one identity form
// and reports whether it is the simple one.
func identityForm(vars []types.Variable) (bool, error) {
	if len(vars) == 0 {
		return true, nil
	}
	simple := vars[0].IsSimple()
	for _, v := range vars[1:] {
		if v.IsSimple() != simple {
			return false, storeerr.NewValidationError(storeerr.CodeMixedIdentity,
				fmt.Sprintf("frame: variable %s mixes identity forms", v))
		}
	}
	return simple, nil
}

// chunkOrder returns distinct chunks in first-appearance order.
func chunkOrder(entries []Entry) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, e := range entries {
		if _, ok := seen[e.Chunk]; !ok {
			seen[e.Chunk] = struct{}{}
			names = append(names, e.Chunk)
		}
	}
	return names
}
