package frame

import (
	"context"
	"fmt"
	"log"

	storeerr "github.com/voightp/esofile-reader-sub000/internal/errors"
	"github.com/voightp/esofile-reader-sub000/internal/store"
	"github.com/voightp/esofile-reader-sub000/pkg/types"
)

// Update overwrites the row-sliced cells of existing columns and
// rewrites each affected chunk in place (replace semantics: every
// write produces a complete new chunk file).
func (f *Frame) Update(ctx context.Context, cols ColumnSelector, rows RowSelector, values [][]float64) error {
	entries, err := cols.resolve(f.lookup)
	if err != nil {
		return err
	}
	if len(values) != len(entries) {
		return storeerr.NewValidationError(storeerr.CodeLengthMismatch,
			fmt.Sprintf("frame: %d value slices for %d selected columns", len(values), len(entries)))
	}
	from, to, err := rows.bounds(f.index)
	if err != nil {
		return err
	}
	for i, vals := range values {
		if len(vals) != to-from {
			return storeerr.NewValidationError(storeerr.CodeLengthMismatch,
				fmt.Sprintf("frame: column %s given %d values for %d selected rows",
					entries[i].Variable, len(vals), to-from))
		}
	}

	newValues := make(map[int][]float64, len(entries))
	for i, e := range entries {
		newValues[e.Variable.ID] = values[i]
	}

	groups := GroupByChunk(entries)
	for _, chunk := range chunkOrder(entries) {
		full, err := store.ReadChunk(ctx, f.store, chunk, nil)
		if err != nil {
			return storeerr.NewChunkError(storeerr.CodeChunkIO,
				fmt.Sprintf("frame: reading chunk %s of table %s", chunk, f.name), err)
		}
		for _, e := range groups[chunk] {
			pos := full.ColumnPos(e.Variable.ID)
			if pos == -1 {
				return storeerr.NewCorruptedData(
					fmt.Sprintf("frame: chunk %s does not hold column %s", chunk, e.Variable), nil)
			}
			copy(full.Columns[pos][from:to], newValues[e.Variable.ID])
		}
		if err := store.WriteChunk(ctx, f.store, chunk, full); err != nil {
			return storeerr.NewChunkError(storeerr.CodeChunkIO,
				fmt.Sprintf("frame: rewriting chunk %s of table %s", chunk, f.name), err)
		}
	}
	return nil
}

// InsertColumn adds a column at the given logical position (nil or
// the current column count appends). The target chunk is the one with
// the fewest columns; if every chunk is at capacity, or none exists, a
// new chunk is created. A value count differing from the row count is
// logged and ignored.
func (f *Frame) InsertColumn(ctx context.Context, position *int, v types.Variable, values []float64) error {
	if len(values) != f.index.Len() {
		log.Printf("frame: skipping insert of %s: %d values for %d rows", v, len(values), f.index.Len())
		return nil
	}
	if f.lookup.Len() > 0 && v.IsSimple() != f.simple {
		return storeerr.NewValidationError(storeerr.CodeMixedIdentity,
			fmt.Sprintf("frame: variable %s mixes identity forms", v))
	}

	pos := f.lookup.Len()
	if position != nil {
		pos = *position
	}
	if pos < 0 || pos > f.lookup.Len() {
		return storeerr.NewValidationError(storeerr.CodeInvalidPosition,
			fmt.Sprintf("frame: position %d out of range [0, %d]", pos, f.lookup.Len()))
	}
	if f.lookup.Position(v.ID) != -1 {
		return storeerr.NewValidationError(storeerr.CodeMixedIdentity,
			fmt.Sprintf("frame: variable id %d already present", v.ID))
	}

	chunk, count := f.lookup.SmallestChunk()
	capacity := f.policy.ColumnsPerChunk(f.index.Len())
	if chunk == "" || count >= capacity {
		chunk = f.newChunkName()
		content := &types.TableData{
			Index:     f.index,
			Variables: []types.Variable{v},
			Columns:   [][]float64{values},
		}
		if err := store.WriteChunk(ctx, f.store, chunk, content); err != nil {
			return storeerr.NewChunkError(storeerr.CodeChunkIO,
				fmt.Sprintf("frame: writing chunk %s of table %s", chunk, f.name), err)
		}
	} else {
		full, err := store.ReadChunk(ctx, f.store, chunk, nil)
		if err != nil {
			return storeerr.NewChunkError(storeerr.CodeChunkIO,
				fmt.Sprintf("frame: reading chunk %s of table %s", chunk, f.name), err)
		}
		full.Variables = append(full.Variables, v)
		full.Columns = append(full.Columns, values)
		if err := store.WriteChunk(ctx, f.store, chunk, full); err != nil {
			return storeerr.NewChunkError(storeerr.CodeChunkIO,
				fmt.Sprintf("frame: rewriting chunk %s of table %s", chunk, f.name), err)
		}
	}

	if err := f.lookup.InsertAt(pos, Entry{Variable: v, Chunk: chunk}); err != nil {
		return err
	}
	if f.lookup.Len() == 1 {
		f.simple = v.IsSimple()
	}
	return f.writeSideFiles(ctx)
}

// DropColumns removes the selected columns, rewrites the chunks that
// shrink and deletes any chunk left empty.
func (f *Frame) DropColumns(ctx context.Context, sel DropSelector) error {
	entries, err := sel.resolve(f.lookup)
	if err != nil {
		return err
	}

	groups := GroupByChunk(entries)
	for _, chunk := range chunkOrder(entries) {
		drop := make(map[int]struct{}, len(groups[chunk]))
		for _, e := range groups[chunk] {
			drop[e.Variable.ID] = struct{}{}
		}
		full, err := store.ReadChunk(ctx, f.store, chunk, nil)
		if err != nil {
			return storeerr.NewChunkError(storeerr.CodeChunkIO,
				fmt.Sprintf("frame: reading chunk %s of table %s", chunk, f.name), err)
		}
		var vars []types.Variable
		var cols [][]float64
		for i, v := range full.Variables {
			if _, gone := drop[v.ID]; !gone {
				vars = append(vars, v)
				cols = append(cols, full.Columns[i])
			}
		}
		if len(vars) == 0 {
			if err := f.store.Delete(ctx, chunk); err != nil {
				return storeerr.NewChunkError(storeerr.CodeChunkIO,
					fmt.Sprintf("frame: deleting emptied chunk %s of table %s", chunk, f.name), err)
			}
			continue
		}
		full.Variables, full.Columns = vars, cols
		if err := store.WriteChunk(ctx, f.store, chunk, full); err != nil {
			return storeerr.NewChunkError(storeerr.CodeChunkIO,
				fmt.Sprintf("frame: rewriting chunk %s of table %s", chunk, f.name), err)
		}
	}

	ids := make([]int, len(entries))
	for i, e := range entries {
		ids[i] = e.Variable.ID
	}
	f.lookup.Remove(ids)
	return f.writeSideFiles(ctx)
}

// SetRowIndex replaces the shared row index and rewrites every chunk
// with it. The rewrite is two-phase: all new chunk contents are
// computed before any file is replaced, so a mid-operation failure is
// confined to the commit loop.
func (f *Frame) SetRowIndex(ctx context.Context, index *types.RowIndex) error {
	if index.Len() != f.index.Len() {
		return storeerr.NewValidationError(storeerr.CodeLengthMismatch,
			fmt.Sprintf("frame: new index of %d rows against %d", index.Len(), f.index.Len()))
	}

	chunks := f.lookup.Chunks()
	contents := make([]*types.TableData, len(chunks))
	for i, chunk := range chunks {
		full, err := store.ReadChunk(ctx, f.store, chunk, nil)
		if err != nil {
			return storeerr.NewChunkError(storeerr.CodeChunkIO,
				fmt.Sprintf("frame: reading chunk %s of table %s", chunk, f.name), err)
		}
		full.Index = index
		contents[i] = full
	}

	for i, chunk := range chunks {
		if err := store.WriteChunk(ctx, f.store, chunk, contents[i]); err != nil {
			return storeerr.NewChunkError(storeerr.CodeChunkIO,
				fmt.Sprintf("frame: rewriting chunk %s of table %s", chunk, f.name), err)
		}
	}

	f.index = index
	return f.writeSideFiles(ctx)
}

// RenameColumns rewrites the stored identity of the mapped columns
// (keyed by id, which is preserved) across every affected chunk, then
// updates the lookup index in place. Two-phase like SetRowIndex.
func (f *Frame) RenameColumns(ctx context.Context, mapping map[int]types.Variable) error {
	var affected []Entry
	var missing []string
	for id := range mapping {
		pos := f.lookup.Position(id)
		if pos == -1 {
			missing = append(missing, fmt.Sprintf("%d", id))
			continue
		}
		affected = append(affected, f.lookup.entries[pos])
	}
	if len(missing) > 0 {
		return storeerr.NewColumnNotFound(
			fmt.Sprintf("frame: cannot rename missing columns: %s", joinSorted(missing)))
	}

	chunks := chunkOrder(affected)
	contents := make([]*types.TableData, len(chunks))
	for i, chunk := range chunks {
		full, err := store.ReadChunk(ctx, f.store, chunk, nil)
		if err != nil {
			return storeerr.NewChunkError(storeerr.CodeChunkIO,
				fmt.Sprintf("frame: reading chunk %s of table %s", chunk, f.name), err)
		}
		for j, v := range full.Variables {
			if repl, ok := mapping[v.ID]; ok {
				repl.ID = v.ID
				full.Variables[j] = repl
			}
		}
		contents[i] = full
	}

	for i, chunk := range chunks {
		if err := store.WriteChunk(ctx, f.store, chunk, contents[i]); err != nil {
			return storeerr.NewChunkError(storeerr.CodeChunkIO,
				fmt.Sprintf("frame: rewriting chunk %s of table %s", chunk, f.name), err)
		}
	}

	if err := f.lookup.Rename(mapping); err != nil {
		return err
	}
	return f.writeSideFiles(ctx)
}
