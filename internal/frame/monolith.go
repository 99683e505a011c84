package frame

import (
	"archive/zip"
	"context"
	"fmt"
	"log"

	storeerr "github.com/voightp/esofile-reader-sub000/internal/errors"
	"github.com/voightp/esofile-reader-sub000/internal/store"
	"github.com/voightp/esofile-reader-sub000/pkg/types"
)

// Monolith is the degenerate storage variant for small tables: the
// whole table lives in memory as a single unit and chunking is skipped
// entirely, while the read/write/insert/drop contract stays identical
// to the chunked frame.
type Monolith struct {
	name   string
	data   *types.TableData
	simple bool
}

// NewMonolith wraps a finished in-memory table.
func NewMonolith(t *types.TableData, name string) (*Monolith, error) {
	simple, err := identityForm(t.Variables)
	if err != nil {
		return nil, err
	}
	return &Monolith{name: name, data: t.Copy(), simple: simple}, nil
}

// Name returns the source-table name.
func (m *Monolith) Name() string {
	return m.name
}

// RowIndex returns the shared row index.
func (m *Monolith) RowIndex() *types.RowIndex {
	return m.data.Index
}

// Variables returns the column identities in logical order.
func (m *Monolith) Variables() []types.Variable {
	vars := make([]types.Variable, len(m.data.Variables))
	copy(vars, m.data.Variables)
	return vars
}

// lookup builds a transient lookup index so selectors resolve exactly
// as they do against a chunked frame.
func (m *Monolith) lookupIndex() *LookupIndex {
	entries := make([]Entry, len(m.data.Variables))
	for i, v := range m.data.Variables {
		entries[i] = Entry{Variable: v, Chunk: "monolith"}
	}
	li, _ := NewLookupIndex(entries)
	return li
}

// Read returns the selected columns in requested order with the row
// selection applied.
func (m *Monolith) Read(_ context.Context, rows RowSelector, cols ColumnSelector) (*types.TableData, error) {
	entries, err := cols.resolve(m.lookupIndex())
	if err != nil {
		return nil, err
	}
	out := &types.TableData{Index: m.data.Index}
	for _, e := range entries {
		pos := m.data.ColumnPos(e.Variable.ID)
		vals := make([]float64, len(m.data.Columns[pos]))
		copy(vals, m.data.Columns[pos])
		out.Variables = append(out.Variables, e.Variable)
		out.Columns = append(out.Columns, vals)
	}
	return rows.apply(out)
}

// Update overwrites the row-sliced cells of existing columns.
func (m *Monolith) Update(_ context.Context, cols ColumnSelector, rows RowSelector, values [][]float64) error {
	entries, err := cols.resolve(m.lookupIndex())
	if err != nil {
		return err
	}
	if len(values) != len(entries) {
		return storeerr.NewValidationError(storeerr.CodeLengthMismatch,
			fmt.Sprintf("frame: %d value slices for %d selected columns", len(values), len(entries)))
	}
	from, to, err := rows.bounds(m.data.Index)
	if err != nil {
		return err
	}
	for i, e := range entries {
		if len(values[i]) != to-from {
			return storeerr.NewValidationError(storeerr.CodeLengthMismatch,
				fmt.Sprintf("frame: column %s given %d values for %d selected rows",
					e.Variable, len(values[i]), to-from))
		}
		copy(m.data.Columns[m.data.ColumnPos(e.Variable.ID)][from:to], values[i])
	}
	return nil
}

// InsertColumn adds a column at the given logical position.
func (m *Monolith) InsertColumn(_ context.Context, position *int, v types.Variable, values []float64) error {
	if len(values) != m.data.RowCount() {
		log.Printf("frame: skipping insert of %s: %d values for %d rows", v, len(values), m.data.RowCount())
		return nil
	}
	if len(m.data.Variables) > 0 && v.IsSimple() != m.simple {
		return storeerr.NewValidationError(storeerr.CodeMixedIdentity,
			fmt.Sprintf("frame: variable %s mixes identity forms", v))
	}
	pos := len(m.data.Variables)
	if position != nil {
		pos = *position
	}
	if pos < 0 || pos > len(m.data.Variables) {
		return storeerr.NewValidationError(storeerr.CodeInvalidPosition,
			fmt.Sprintf("frame: position %d out of range [0, %d]", pos, len(m.data.Variables)))
	}
	if m.data.ColumnPos(v.ID) != -1 {
		return storeerr.NewValidationError(storeerr.CodeMixedIdentity,
			fmt.Sprintf("frame: variable id %d already present", v.ID))
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	m.data.Variables = append(m.data.Variables, types.Variable{})
	copy(m.data.Variables[pos+1:], m.data.Variables[pos:])
	m.data.Variables[pos] = v
	m.data.Columns = append(m.data.Columns, nil)
	copy(m.data.Columns[pos+1:], m.data.Columns[pos:])
	m.data.Columns[pos] = vals
	if len(m.data.Variables) == 1 {
		m.simple = v.IsSimple()
	}
	return nil
}

// DropColumns removes the selected columns.
func (m *Monolith) DropColumns(_ context.Context, sel DropSelector) error {
	entries, err := sel.resolve(m.lookupIndex())
	if err != nil {
		return err
	}
	drop := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		drop[e.Variable.ID] = struct{}{}
	}
	var vars []types.Variable
	var cols [][]float64
	for i, v := range m.data.Variables {
		if _, gone := drop[v.ID]; !gone {
			vars = append(vars, v)
			cols = append(cols, m.data.Columns[i])
		}
	}
	m.data.Variables, m.data.Columns = vars, cols
	return nil
}

// SetRowIndex replaces the shared row index.
func (m *Monolith) SetRowIndex(_ context.Context, index *types.RowIndex) error {
	if index.Len() != m.data.RowCount() {
		return storeerr.NewValidationError(storeerr.CodeLengthMismatch,
			fmt.Sprintf("frame: new index of %d rows against %d", index.Len(), m.data.RowCount()))
	}
	m.data.Index = index
	return nil
}

// RenameColumns rewrites the identity of the mapped columns.
func (m *Monolith) RenameColumns(_ context.Context, mapping map[int]types.Variable) error {
	var missing []string
	for id := range mapping {
		if m.data.ColumnPos(id) == -1 {
			missing = append(missing, fmt.Sprintf("%d", id))
		}
	}
	if len(missing) > 0 {
		return storeerr.NewColumnNotFound(
			fmt.Sprintf("frame: cannot rename missing columns: %s", joinSorted(missing)))
	}
	for id, v := range mapping {
		v.ID = id
		m.data.Variables[m.data.ColumnPos(id)] = v
	}
	return nil
}

// SaveTo persists the monolith in the standard chunk layout (one chunk
// plus both side files), so it reloads as a regular chunked frame.
func (m *Monolith) SaveTo(ctx context.Context, w *zip.Writer, relRoot string) error {
	buffer := store.NewMemoryStore()
	f, err := FromTable(ctx, m.data, m.name, buffer, DefaultChunkingPolicy())
	if err != nil {
		return err
	}
	return f.SaveTo(ctx, w, relRoot)
}

// CleanUp releases the in-memory table.
func (m *Monolith) CleanUp(_ context.Context) error {
	m.data = types.Empty(m.data.Index)
	return nil
}
