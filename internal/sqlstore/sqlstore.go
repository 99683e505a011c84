// Package sqlstore provides a SQL-backed alternative to the chunked
// frame: the same table contract served from a single SQLite database
// file, one compressed value blob per column. Useful when a store
// should live in one relocatable file instead of a chunk directory.
package sqlstore

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/golang/snappy"
	_ "github.com/mattn/go-sqlite3"

	storeerr "github.com/voightp/esofile-reader-sub000/internal/errors"
	"github.com/voightp/esofile-reader-sub000/internal/frame"
	"github.com/voightp/esofile-reader-sub000/internal/store"
	"github.com/voightp/esofile-reader-sub000/pkg/types"
)

// SQLFrame implements the table frame contract over SQLite.
type SQLFrame struct {
	db   *sql.DB
	path string
	name string
}

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS meta (
		name TEXT NOT NULL,
		simple INTEGER NOT NULL,
		kind INTEGER NOT NULL,
		rows INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS rowindex (
		pos INTEGER PRIMARY KEY,
		nanos INTEGER NOT NULL
	) WITHOUT ROWID;
	CREATE TABLE IF NOT EXISTS columns (
		pos INTEGER PRIMARY KEY,
		id INTEGER NOT NULL UNIQUE,
		tbl TEXT NOT NULL,
		key TEXT NOT NULL,
		type TEXT NOT NULL,
		units TEXT NOT NULL,
		payload BLOB NOT NULL
	)
`

// FromTable creates a SQLite-backed frame at path from a finished
// in-memory table.
func FromTable(ctx context.Context, t *types.TableData, name, path string) (*SQLFrame, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening database: %w", err)
	}

	f := &SQLFrame{db: db, path: path, name: name}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: setting journal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: creating schema: %w", err)
	}

	simple := 0
	if len(t.Variables) == 0 || t.Variables[0].IsSimple() {
		simple = 1
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO meta (name, simple, kind, rows) VALUES (?, ?, ?, ?)",
		name, simple, int(t.Index.Kind), t.Index.Len()); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: writing meta: %w", err)
	}

	if t.Index.Kind == types.IndexTimestamp {
		stmt, err := db.PrepareContext(ctx, "INSERT INTO rowindex (pos, nanos) VALUES (?, ?)")
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlstore: preparing row index insert: %w", err)
		}
		for i, ts := range t.Index.Timestamps {
			if _, err := stmt.ExecContext(ctx, i, ts.UnixNano()); err != nil {
				stmt.Close()
				db.Close()
				return nil, fmt.Errorf("sqlstore: writing row index: %w", err)
			}
		}
		stmt.Close()
	}

	stmt, err := db.PrepareContext(ctx,
		"INSERT INTO columns (pos, id, tbl, key, type, units, payload) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: preparing column insert: %w", err)
	}
	defer stmt.Close()
	for i, v := range t.Variables {
		if _, err := stmt.ExecContext(ctx, i, v.ID, v.Table, v.Key, v.Type, v.Units,
			encodeValues(t.Columns[i])); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlstore: writing column %s: %w", v, err)
		}
	}

	return f, nil
}

// Open reopens a SQLite-backed frame previously created by FromTable.
func Open(ctx context.Context, path string) (*SQLFrame, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, storeerr.NewCorruptedData(
			fmt.Sprintf("sqlstore: database %s is unreadable", path), err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening database: %w", err)
	}
	f := &SQLFrame{db: db, path: path}
	row := db.QueryRowContext(ctx, "SELECT name FROM meta")
	if err := row.Scan(&f.name); err != nil {
		db.Close()
		return nil, storeerr.NewCorruptedData(
			fmt.Sprintf("sqlstore: database %s is missing its meta record", path), err)
	}
	return f, nil
}

// Name returns the source-table name.
func (f *SQLFrame) Name() string {
	return f.name
}

// RowIndex returns the shared row index, empty when the database is
// unreadable.
func (f *SQLFrame) RowIndex() *types.RowIndex {
	index, err := f.loadIndex(context.Background())
	if err != nil {
		log.Printf("sqlstore: reading row index of %s: %v", f.name, err)
		return types.NewRangeIndex(0)
	}
	return index
}

// Variables returns the column identities in logical order, nil when
// the database is unreadable.
func (f *SQLFrame) Variables() []types.Variable {
	li, err := f.loadLookup(context.Background())
	if err != nil {
		log.Printf("sqlstore: reading columns of %s: %v", f.name, err)
		return nil
	}
	return li.Variables()
}

// Read assembles the selected columns in requested order with the row
// selection applied.
func (f *SQLFrame) Read(ctx context.Context, rows frame.RowSelector, cols frame.ColumnSelector) (*types.TableData, error) {
	t, err := f.loadTable(ctx)
	if err != nil {
		return nil, err
	}
	m, err := frame.NewMonolith(t, f.name)
	if err != nil {
		return nil, err
	}
	return m.Read(ctx, rows, cols)
}

// Update overwrites the row-sliced cells of existing columns.
func (f *SQLFrame) Update(ctx context.Context, cols frame.ColumnSelector, rows frame.RowSelector, values [][]float64) error {
	return f.mutate(ctx, func(m *frame.Monolith) error {
		return m.Update(ctx, cols, rows, values)
	})
}

// InsertColumn adds a column at the given logical position. A value
// count differing from the row count is logged and ignored.
func (f *SQLFrame) InsertColumn(ctx context.Context, position *int, v types.Variable, values []float64) error {
	index, err := f.loadIndex(ctx)
	if err != nil {
		return err
	}
	if len(values) != index.Len() {
		log.Printf("sqlstore: skipping insert of %s: %d values for %d rows", v, len(values), index.Len())
		return nil
	}
	return f.mutate(ctx, func(m *frame.Monolith) error {
		return m.InsertColumn(ctx, position, v, values)
	})
}

// DropColumns removes the selected columns.
func (f *SQLFrame) DropColumns(ctx context.Context, sel frame.DropSelector) error {
	return f.mutate(ctx, func(m *frame.Monolith) error {
		return m.DropColumns(ctx, sel)
	})
}

// SetRowIndex replaces the shared row index.
func (f *SQLFrame) SetRowIndex(ctx context.Context, index *types.RowIndex) error {
	return f.mutate(ctx, func(m *frame.Monolith) error {
		return m.SetRowIndex(ctx, index)
	})
}

// RenameColumns rewrites the identity of the mapped columns.
func (f *SQLFrame) RenameColumns(ctx context.Context, mapping map[int]types.Variable) error {
	return f.mutate(ctx, func(m *frame.Monolith) error {
		return m.RenameColumns(ctx, mapping)
	})
}

// SaveTo persists the frame in the standard chunk layout so archives
// stay backend-independent.
func (f *SQLFrame) SaveTo(ctx context.Context, w *zip.Writer, relRoot string) error {
	t, err := f.loadTable(ctx)
	if err != nil {
		return err
	}
	buffer := store.NewMemoryStore()
	cf, err := frame.FromTable(ctx, t, f.name, buffer, frame.DefaultChunkingPolicy())
	if err != nil {
		return err
	}
	return cf.SaveTo(ctx, w, relRoot)
}

// Close releases the database handle, leaving the file in place for a
// later Open.
func (f *SQLFrame) Close() error {
	return f.db.Close()
}

// CleanUp closes the database and removes its file.
func (f *SQLFrame) CleanUp(_ context.Context) error {
	if err := f.db.Close(); err != nil {
		return err
	}
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// mutate loads the whole table, applies op in memory and rewrites the
// database content. The database is small by definition of this
// backend, so full rewrites keep the SQL surface trivial.
func (f *SQLFrame) mutate(ctx context.Context, op func(*frame.Monolith) error) error {
	t, err := f.loadTable(ctx)
	if err != nil {
		return err
	}
	m, err := frame.NewMonolith(t, f.name)
	if err != nil {
		return err
	}
	if err := op(m); err != nil {
		return err
	}
	updated, err := m.Read(ctx, frame.AllRows(), frame.AllColumns())
	if err != nil {
		return err
	}
	return f.rewrite(ctx, updated)
}

// rewrite replaces the stored content with t inside one transaction.
func (f *SQLFrame) rewrite(ctx context.Context, t *types.TableData) error {
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: starting rewrite: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM meta", "DELETE FROM rowindex", "DELETE FROM columns"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: clearing tables: %w", err)
		}
	}

	simple := 0
	if len(t.Variables) == 0 || t.Variables[0].IsSimple() {
		simple = 1
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO meta (name, simple, kind, rows) VALUES (?, ?, ?, ?)",
		f.name, simple, int(t.Index.Kind), t.Index.Len()); err != nil {
		return fmt.Errorf("sqlstore: writing meta: %w", err)
	}
	if t.Index.Kind == types.IndexTimestamp {
		for i, ts := range t.Index.Timestamps {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO rowindex (pos, nanos) VALUES (?, ?)", i, ts.UnixNano()); err != nil {
				return fmt.Errorf("sqlstore: writing row index: %w", err)
			}
		}
	}
	for i, v := range t.Variables {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO columns (pos, id, tbl, key, type, units, payload) VALUES (?, ?, ?, ?, ?, ?, ?)",
			i, v.ID, v.Table, v.Key, v.Type, v.Units, encodeValues(t.Columns[i])); err != nil {
			return fmt.Errorf("sqlstore: writing column %s: %w", v, err)
		}
	}
	return tx.Commit()
}

// loadTable reads the whole stored table.
func (f *SQLFrame) loadTable(ctx context.Context) (*types.TableData, error) {
	index, err := f.loadIndex(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := f.db.QueryContext(ctx,
		"SELECT id, tbl, key, type, units, payload FROM columns ORDER BY pos")
	if err != nil {
		return nil, fmt.Errorf("sqlstore: reading columns: %w", err)
	}
	defer rows.Close()

	var vars []types.Variable
	var cols [][]float64
	for rows.Next() {
		var v types.Variable
		var payload []byte
		if err := rows.Scan(&v.ID, &v.Table, &v.Key, &v.Type, &v.Units, &payload); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning column: %w", err)
		}
		values, err := decodeValues(payload)
		if err != nil {
			return nil, storeerr.NewCorruptedData(
				fmt.Sprintf("sqlstore: payload of column %s is malformed", v), err)
		}
		vars = append(vars, v)
		cols = append(cols, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating columns: %w", err)
	}

	return types.NewTableData(index, vars, cols)
}

func (f *SQLFrame) loadIndex(ctx context.Context) (*types.RowIndex, error) {
	var kind, count int
	row := f.db.QueryRowContext(ctx, "SELECT kind, rows FROM meta")
	if err := row.Scan(&kind, &count); err != nil {
		return nil, storeerr.NewCorruptedData("sqlstore: meta record is unreadable", err)
	}
	if types.IndexKind(kind) == types.IndexRange {
		return types.NewRangeIndex(count), nil
	}
	rows, err := f.db.QueryContext(ctx, "SELECT nanos FROM rowindex ORDER BY pos")
	if err != nil {
		return nil, fmt.Errorf("sqlstore: reading row index: %w", err)
	}
	defer rows.Close()
	var ts []time.Time
	for rows.Next() {
		var nanos int64
		if err := rows.Scan(&nanos); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning row index: %w", err)
		}
		ts = append(ts, time.Unix(0, nanos).UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating row index: %w", err)
	}
	return types.NewTimestampIndex(ts), nil
}

func (f *SQLFrame) loadLookup(ctx context.Context) (*frame.LookupIndex, error) {
	rows, err := f.db.QueryContext(ctx, "SELECT id, tbl, key, type, units FROM columns ORDER BY pos")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []frame.Entry
	for rows.Next() {
		var v types.Variable
		if err := rows.Scan(&v.ID, &v.Table, &v.Key, &v.Type, &v.Units); err != nil {
			return nil, err
		}
		entries = append(entries, frame.Entry{Variable: v, Chunk: "sql"})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return frame.NewLookupIndex(entries)
}

// encodeValues compresses a column's values with snappy.
func encodeValues(values []float64) []byte {
	raw := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
	}
	return snappy.Encode(nil, raw)
}

func decodeValues(payload []byte) ([]float64, error) {
	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return nil, err
	}
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("payload of %d bytes is not a float64 sequence", len(raw))
	}
	values := make([]float64, len(raw)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return values, nil
}
