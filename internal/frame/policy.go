// Package frame implements the chunked columnar table: one shared row
// index, a lookup index mapping each column identity to the chunk file
// holding it, and read/write operations over logical columns
// regardless of physical placement.
package frame

// ChunkingPolicy bounds the size of a single chunk. It is passed
// explicitly at construction; there is no process-wide mutable state.
type ChunkingPolicy struct {
	// MaxChunkKB is the byte budget of one chunk, in kilobytes.
	MaxChunkKB int
	// MaxColumns caps the number of columns per chunk regardless of
	// byte budget.
	MaxColumns int
}

// DefaultChunkingPolicy returns the production policy: 1 MB chunks
// capped at 100 columns.
func DefaultChunkingPolicy() ChunkingPolicy {
	return ChunkingPolicy{MaxChunkKB: 1024, MaxColumns: 100}
}

// ColumnsPerChunk returns how many columns of the given row count fit
// one chunk, assuming 8-byte floating values.
func (p ChunkingPolicy) ColumnsPerChunk(rows int) int {
	if rows <= 0 {
		return p.MaxColumns
	}
	perColumn := rows * 8
	maxBytes := p.MaxChunkKB * 1024
	n := (maxBytes + perColumn - 1) / perColumn
	if n < 1 {
		n = 1
	}
	if n > p.MaxColumns {
		n = p.MaxColumns
	}
	return n
}

// PredictedChunkCount returns the number of chunks bulk construction
// produces for a table of the given shape.
func (p ChunkingPolicy) PredictedChunkCount(rows, cols int) int {
	if cols == 0 {
		return 0
	}
	width := p.ColumnsPerChunk(rows)
	return (cols + width - 1) / width
}
