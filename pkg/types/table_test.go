package types

import (
	"testing"
	"time"
)

func hourly(n int) []time.Time {
	base := time.Date(2002, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, n)
	for i := range ts {
		ts[i] = base.Add(time.Duration(i) * time.Hour)
	}
	return ts
}

func sampleTable(t *testing.T, rows int) *TableData {
	t.Helper()
	vars := []Variable{
		{ID: 1, Table: "hourly", Key: "Zone A", Type: "Temperature", Units: "C"},
		{ID: 2, Table: "hourly", Key: "Zone B", Type: "Temperature", Units: "C"},
		{ID: 3, Table: "hourly", Key: "Boiler", Type: "Gas Rate", Units: "W"},
	}
	cols := make([][]float64, len(vars))
	for i := range cols {
		col := make([]float64, rows)
		for j := range col {
			col[j] = float64(i*100 + j)
		}
		cols[i] = col
	}
	td, err := NewTableData(NewTimestampIndex(hourly(rows)), vars, cols)
	if err != nil {
		t.Fatalf("NewTableData failed: %v", err)
	}
	return td
}

func TestNewTableDataValidation(t *testing.T) {
	index := NewRangeIndex(3)

	tests := []struct {
		name    string
		vars    []Variable
		cols    [][]float64
		wantErr bool
	}{
		{
			name: "valid",
			vars: []Variable{{ID: 1, Table: "t", Key: "a", Units: "J"}},
			cols: [][]float64{{1, 2, 3}},
		},
		{
			name:    "column count mismatch",
			vars:    []Variable{{ID: 1, Table: "t", Key: "a", Units: "J"}},
			cols:    [][]float64{{1, 2, 3}, {4, 5, 6}},
			wantErr: true,
		},
		{
			name: "short column",
			vars: []Variable{{ID: 1, Table: "t", Key: "a", Units: "J"}},
			cols: [][]float64{{1, 2}},
			wantErr: true,
		},
		{
			name: "duplicate id",
			vars: []Variable{
				{ID: 1, Table: "t", Key: "a", Units: "J"},
				{ID: 1, Table: "t", Key: "b", Units: "J"},
			},
			cols:    [][]float64{{1, 2, 3}, {4, 5, 6}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTableData(index, tt.vars, tt.cols)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewTableData error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSelectPreservesRequestedOrder(t *testing.T) {
	td := sampleTable(t, 4)

	sel, err := td.SelectIDs([]int{3, 1})
	if err != nil {
		t.Fatalf("SelectIDs failed: %v", err)
	}
	if sel.ColumnCount() != 2 {
		t.Fatalf("expected 2 columns, got %d", sel.ColumnCount())
	}
	if sel.Variables[0].ID != 3 || sel.Variables[1].ID != 1 {
		t.Errorf("expected order [3 1], got [%d %d]", sel.Variables[0].ID, sel.Variables[1].ID)
	}
	if sel.Columns[0][0] != 200 {
		t.Errorf("column values did not follow the identity: got %v", sel.Columns[0][0])
	}
}

func TestSelectIDsMissing(t *testing.T) {
	td := sampleTable(t, 2)
	if _, err := td.SelectIDs([]int{1, 99}); err == nil {
		t.Error("expected error for unknown id 99")
	}
}

func TestConcat(t *testing.T) {
	td := sampleTable(t, 3)
	extra, err := NewTableData(NewTimestampIndex(hourly(3)),
		[]Variable{{ID: 9, Table: "hourly", Key: "Fan", Type: "Power", Units: "W"}},
		[][]float64{{7, 8, 9}})
	if err != nil {
		t.Fatalf("NewTableData failed: %v", err)
	}

	if err := td.Concat(extra); err != nil {
		t.Fatalf("Concat failed: %v", err)
	}
	if td.ColumnCount() != 4 {
		t.Errorf("expected 4 columns after concat, got %d", td.ColumnCount())
	}
	if td.ColumnPos(9) != 3 {
		t.Errorf("concatenated column should land last, got position %d", td.ColumnPos(9))
	}
}

func TestConcatRowMismatch(t *testing.T) {
	td := sampleTable(t, 3)
	short, _ := NewTableData(NewRangeIndex(2),
		[]Variable{{ID: 9, Table: "t", Key: "x", Units: "W"}},
		[][]float64{{1, 2}})
	if err := td.Concat(short); err == nil {
		t.Error("expected error concatenating mismatched row counts")
	}
}

func TestConcatDuplicateID(t *testing.T) {
	td := sampleTable(t, 3)
	dup, _ := NewTableData(NewTimestampIndex(hourly(3)),
		[]Variable{{ID: 1, Table: "t", Key: "x", Units: "W"}},
		[][]float64{{1, 2, 3}})
	if err := td.Concat(dup); err == nil {
		t.Error("expected error concatenating a duplicate id")
	}
}

func TestSliceRows(t *testing.T) {
	td := sampleTable(t, 5)
	sliced, err := td.SliceRows(1, 4)
	if err != nil {
		t.Fatalf("SliceRows failed: %v", err)
	}
	if sliced.RowCount() != 3 {
		t.Errorf("expected 3 rows, got %d", sliced.RowCount())
	}
	if sliced.Columns[0][0] != 1 {
		t.Errorf("expected first value 1, got %v", sliced.Columns[0][0])
	}

	// The slice must be independent of the source.
	sliced.Columns[0][0] = -1
	if td.Columns[0][1] == -1 {
		t.Error("SliceRows should copy column data")
	}
}

func TestCopyIsDeep(t *testing.T) {
	td := sampleTable(t, 3)
	cp := td.Copy()
	if !td.Equal(cp) {
		t.Fatal("copy should equal source")
	}
	cp.Columns[0][0] = 999
	cp.Variables[0].Key = "changed"
	if td.Columns[0][0] == 999 || td.Variables[0].Key == "changed" {
		t.Error("Copy should be independent of the source")
	}
}
