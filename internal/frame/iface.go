package frame

import (
	"archive/zip"
	"context"

	"github.com/voightp/esofile-reader-sub000/pkg/types"
)

// TableFrame is the contract shared by the chunked frame, the
// degenerate in-memory monolith and the SQL-backed backend. All
// operations are synchronous and run to completion; a failure mid
// multi-chunk mutation leaves the instance inconsistent and must be
// treated as fatal to it.
type TableFrame interface {
	// Name returns the source-table name the frame stores.
	Name() string

	// RowIndex returns the shared row index.
	RowIndex() *types.RowIndex

	// Variables returns the column identities in logical order.
	Variables() []types.Variable

	// Read assembles the selected columns, re-applies the shared row
	// index, orders columns exactly as requested and finally applies
	// the row selection.
	Read(ctx context.Context, rows RowSelector, cols ColumnSelector) (*types.TableData, error)

	// Update overwrites the row-sliced cells of existing columns.
	// values holds one slice per selected column, each covering the
	// selected rows.
	Update(ctx context.Context, cols ColumnSelector, rows RowSelector, values [][]float64) error

	// InsertColumn adds a column at the given logical position (nil
	// appends). A value count differing from the row count is logged
	// and ignored.
	InsertColumn(ctx context.Context, position *int, v types.Variable, values []float64) error

	// DropColumns removes the selected columns, deleting any chunk
	// left empty.
	DropColumns(ctx context.Context, sel DropSelector) error

	// SetRowIndex replaces the shared row index. The new index must
	// have the current row count.
	SetRowIndex(ctx context.Context, index *types.RowIndex) error

	// RenameColumns rewrites the identity of the mapped columns
	// (keyed by id; the id itself is preserved).
	RenameColumns(ctx context.Context, mapping map[int]types.Variable) error

	// SaveTo writes the frame's chunk and side files into the archive
	// under relRoot.
	SaveTo(ctx context.Context, w *zip.Writer, relRoot string) error

	// CleanUp releases all storage held by the frame.
	CleanUp(ctx context.Context) error
}
