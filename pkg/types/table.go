package types

import "fmt"

// TableData is an in-memory columnar table: one shared row index, an
// ordered set of column identities and one float64 slice per column.
// It is the unit of exchange between the parser, the chunk codec and
// the frame layer.
type TableData struct {
	Index     *RowIndex
	Variables []Variable
	Columns   [][]float64
}

// NewTableData validates shape and builds a table. Every column must
// match the row index length and variable ids must be unique.
func NewTableData(index *RowIndex, variables []Variable, columns [][]float64) (*TableData, error) {
	if len(variables) != len(columns) {
		return nil, fmt.Errorf("types: %d variables but %d columns", len(variables), len(columns))
	}
	seen := make(map[int]struct{}, len(variables))
	for i, v := range variables {
		if _, dup := seen[v.ID]; dup {
			return nil, fmt.Errorf("types: duplicate variable id %d", v.ID)
		}
		seen[v.ID] = struct{}{}
		if len(columns[i]) != index.Len() {
			return nil, fmt.Errorf("types: column %s has %d values, index has %d rows",
				v, len(columns[i]), index.Len())
		}
	}
	return &TableData{Index: index, Variables: variables, Columns: columns}, nil
}

// RowCount returns the number of rows.
func (t *TableData) RowCount() int {
	return t.Index.Len()
}

// ColumnCount returns the number of columns.
func (t *TableData) ColumnCount() int {
	return len(t.Variables)
}

// ColumnPos returns the position of the column with the given id,
// or -1 if absent.
func (t *TableData) ColumnPos(id int) int {
	for i, v := range t.Variables {
		if v.ID == id {
			return i
		}
	}
	return -1
}

// Select returns a new table restricted to the columns at the given
// positions, in the given order. The row index is shared, not copied.
func (t *TableData) Select(positions []int) (*TableData, error) {
	vars := make([]Variable, len(positions))
	cols := make([][]float64, len(positions))
	for i, p := range positions {
		if p < 0 || p >= len(t.Variables) {
			return nil, fmt.Errorf("types: column position %d out of range [0, %d)", p, len(t.Variables))
		}
		vars[i] = t.Variables[p]
		cols[i] = t.Columns[p]
	}
	return &TableData{Index: t.Index, Variables: vars, Columns: cols}, nil
}

// SelectIDs returns a new table holding the columns with the given ids,
// in the given order.
func (t *TableData) SelectIDs(ids []int) (*TableData, error) {
	positions := make([]int, len(ids))
	for i, id := range ids {
		p := t.ColumnPos(id)
		if p == -1 {
			return nil, fmt.Errorf("types: no column with id %d", id)
		}
		positions[i] = p
	}
	return t.Select(positions)
}

// Concat appends the columns of other side by side. Both tables must
// have the same number of rows; other's row index is discarded.
func (t *TableData) Concat(other *TableData) error {
	if other.RowCount() != t.RowCount() {
		return fmt.Errorf("types: cannot concat %d-row table onto %d rows", other.RowCount(), t.RowCount())
	}
	for i, v := range other.Variables {
		if t.ColumnPos(v.ID) != -1 {
			return fmt.Errorf("types: duplicate variable id %d on concat", v.ID)
		}
		t.Variables = append(t.Variables, v)
		t.Columns = append(t.Columns, other.Columns[i])
	}
	return nil
}

// SliceRows returns a copy restricted to rows [from, to).
func (t *TableData) SliceRows(from, to int) (*TableData, error) {
	index, err := t.Index.Slice(from, to)
	if err != nil {
		return nil, err
	}
	cols := make([][]float64, len(t.Columns))
	for i, col := range t.Columns {
		sliced := make([]float64, to-from)
		copy(sliced, col[from:to])
		cols[i] = sliced
	}
	vars := make([]Variable, len(t.Variables))
	copy(vars, t.Variables)
	return &TableData{Index: index, Variables: vars, Columns: cols}, nil
}

// Copy returns a deep copy of the table.
func (t *TableData) Copy() *TableData {
	vars := make([]Variable, len(t.Variables))
	copy(vars, t.Variables)
	cols := make([][]float64, len(t.Columns))
	for i, col := range t.Columns {
		c := make([]float64, len(col))
		copy(c, col)
		cols[i] = c
	}
	return &TableData{Index: t.Index.Copy(), Variables: vars, Columns: cols}
}

// Equal reports whether two tables hold the same index, identities in
// the same order and the same values.
func (t *TableData) Equal(other *TableData) bool {
	if !t.Index.Equal(other.Index) || len(t.Variables) != len(other.Variables) {
		return false
	}
	for i, v := range t.Variables {
		if v != other.Variables[i] {
			return false
		}
		for j, val := range t.Columns[i] {
			if val != other.Columns[i][j] {
				return false
			}
		}
	}
	return true
}

// Empty returns a zero-column table over the given row index.
func Empty(index *RowIndex) *TableData {
	return &TableData{Index: index}
}
