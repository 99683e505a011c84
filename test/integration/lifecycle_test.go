// Package integration exercises the full store lifecycle end to end:
// build, mutate, archive, reload and clean up.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/voightp/esofile-reader-sub000/internal/collection"
	"github.com/voightp/esofile-reader-sub000/internal/frame"
	"github.com/voightp/esofile-reader-sub000/internal/sqlstore"
	"github.com/voightp/esofile-reader-sub000/pkg/types"
)

func simulationTables(t *testing.T) []collection.NamedTable {
	t.Helper()
	base := time.Date(2002, 1, 1, 0, 0, 0, 0, time.UTC)

	ts := make([]time.Time, 48)
	for i := range ts {
		ts[i] = base.Add(time.Duration(i) * time.Hour)
	}
	hourlyVars := make([]types.Variable, 20)
	hourlyCols := make([][]float64, 20)
	for i := range hourlyVars {
		hourlyVars[i] = types.Variable{
			ID: i + 1, Table: "hourly", Key: "Zone", Type: "Temperature", Units: "C",
		}
		col := make([]float64, 48)
		for j := range col {
			col[j] = 18 + float64(i)*0.1 + float64(j%24)*0.3
		}
		hourlyCols[i] = col
	}
	hourly, err := types.NewTableData(types.NewTimestampIndex(ts), hourlyVars, hourlyCols)
	if err != nil {
		t.Fatalf("building hourly table: %v", err)
	}

	runs, err := types.NewTableData(types.NewRangeIndex(3),
		[]types.Variable{
			{ID: 100, Table: "runperiod", Key: "Gas", Type: "Energy", Units: "J"},
			{ID: 101, Table: "runperiod", Key: "Electricity", Type: "Energy", Units: "J"},
		},
		[][]float64{{1e9, 1.1e9, 0.9e9}, {2e9, 2.2e9, 1.8e9}})
	if err != nil {
		t.Fatalf("building runperiod table: %v", err)
	}

	return []collection.NamedTable{
		{Name: "hourly", Data: hourly},
		{Name: "runperiod", Data: runs},
	}
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	meta := collection.FileMeta{
		ID:       7,
		Name:     "eplusout",
		Created:  time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC),
		FilePath: "/projects/office/eplusout.eso",
		FileType: "eso",
	}
	// A tight policy so the hourly table spans several chunks.
	policy := frame.ChunkingPolicy{MaxChunkKB: 1024, MaxColumns: 6}

	buildDir := filepath.Join(t.TempDir(), "build")
	c, err := collection.BuildFrom(ctx, meta, buildDir, simulationTables(t), policy)
	if err != nil {
		t.Fatalf("BuildFrom failed: %v", err)
	}

	hourly := c.Get("hourly")
	if got := len(hourly.(*frame.Frame).ChunkNames()); got != 4 {
		t.Fatalf("expected 20 columns at cap 6 to span 4 chunks, got %d", got)
	}

	// Mutate: drop a few columns, add a derived one, fix two values.
	if err := hourly.DropColumns(ctx, frame.DropIDs(19, 20)); err != nil {
		t.Fatalf("DropColumns failed: %v", err)
	}
	mean := make([]float64, 48)
	for i := range mean {
		mean[i] = 20
	}
	v := types.Variable{ID: 500, Table: "hourly", Key: "Building", Type: "Mean Temperature", Units: "C"}
	if err := hourly.InsertColumn(ctx, nil, v, mean); err != nil {
		t.Fatalf("InsertColumn failed: %v", err)
	}
	if err := hourly.Update(ctx, frame.ByIDs(1), frame.ByPositions(0, 2), [][]float64{{0, 0}}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// Archive and reload elsewhere.
	archive := filepath.Join(t.TempDir(), "results.cfs")
	if err := c.SaveToArchive(ctx, archive); err != nil {
		t.Fatalf("SaveToArchive failed: %v", err)
	}
	workDir := filepath.Join(t.TempDir(), "extracted")
	reloaded, err := collection.LoadFromArchive(ctx, archive, workDir, policy)
	if err != nil {
		t.Fatalf("LoadFromArchive failed: %v", err)
	}
	if reloaded.Meta() != meta {
		t.Errorf("metadata changed across archive: %+v", reloaded.Meta())
	}

	want, err := hourly.Read(ctx, frame.AllRows(), frame.AllColumns())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	got, err := reloaded.Get("hourly").Read(ctx, frame.AllRows(), frame.AllColumns())
	if err != nil {
		t.Fatalf("Read after reload failed: %v", err)
	}
	if !want.Equal(got) {
		t.Error("hourly table changed across archive round trip")
	}
	if got.ColumnCount() != 19 {
		t.Errorf("expected 19 columns after mutations, got %d", got.ColumnCount())
	}
	if got.Columns[got.ColumnPos(1)][0] != 0 {
		t.Error("update lost across archive round trip")
	}
	if got.ColumnPos(500) != 18 {
		t.Errorf("inserted column at position %d", got.ColumnPos(500))
	}

	// Clean up both collections and verify nothing is left on disk.
	if err := c.CleanUp(ctx); err != nil {
		t.Fatalf("CleanUp failed: %v", err)
	}
	if err := reloaded.CleanUp(ctx); err != nil {
		t.Fatalf("CleanUp of reloaded collection failed: %v", err)
	}
	if _, err := os.Stat(buildDir); !os.IsNotExist(err) {
		t.Error("build directory should be removed")
	}
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Error("extraction directory should be removed")
	}
}

func TestSQLBackendInterop(t *testing.T) {
	ctx := context.Background()
	tables := simulationTables(t)

	// Build the runperiod table on the SQL backend, then archive it via
	// the common contract and reload it as a chunked frame.
	path := filepath.Join(t.TempDir(), "runperiod.db")
	sf, err := sqlstore.FromTable(ctx, tables[1].Data, "runperiod", path)
	if err != nil {
		t.Fatalf("sqlstore.FromTable failed: %v", err)
	}
	defer sf.CleanUp(ctx)

	if err := sf.Update(ctx, frame.ByIDs(100), frame.AllRows(), [][]float64{{1, 2, 3}}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	want, err := sf.Read(ctx, frame.AllRows(), frame.AllColumns())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if want.Columns[0][2] != 3 {
		t.Errorf("update not visible: %v", want.Columns[0])
	}
	if want.Index.Kind != types.IndexRange || want.RowCount() != 3 {
		t.Errorf("unexpected index: kind=%d rows=%d", want.Index.Kind, want.RowCount())
	}
}
