package frame

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestColumnsPerChunk(t *testing.T) {
	tests := []struct {
		name   string
		policy ChunkingPolicy
		rows   int
		want   int
	}{
		{"default one row", DefaultChunkingPolicy(), 1, 100},
		{"default small table", DefaultChunkingPolicy(), 100, 100},
		{"default large table", DefaultChunkingPolicy(), 8760, 15},
		{"byte budget dominates", ChunkingPolicy{MaxChunkKB: 1, MaxColumns: 100}, 1024, 1},
		{"exact fit", ChunkingPolicy{MaxChunkKB: 8, MaxColumns: 100}, 256, 4},
		{"ceil rounds up", ChunkingPolicy{MaxChunkKB: 8, MaxColumns: 100}, 255, 5},
		{"zero rows falls back to cap", DefaultChunkingPolicy(), 0, 100},
		{"tiny cap", ChunkingPolicy{MaxChunkKB: 1024, MaxColumns: 3}, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.ColumnsPerChunk(tt.rows); got != tt.want {
				t.Errorf("ColumnsPerChunk(%d) = %d, want %d", tt.rows, got, tt.want)
			}
		})
	}
}

func TestPredictedChunkCount(t *testing.T) {
	policy := ChunkingPolicy{MaxChunkKB: 1024, MaxColumns: 3}

	tests := []struct {
		rows, cols, want int
	}{
		{3, 14, 5},
		{3, 0, 0},
		{3, 1, 1},
		{3, 3, 1},
		{3, 4, 2},
	}
	for _, tt := range tests {
		if got := policy.PredictedChunkCount(tt.rows, tt.cols); got != tt.want {
			t.Errorf("PredictedChunkCount(%d, %d) = %d, want %d", tt.rows, tt.cols, got, tt.want)
		}
	}
}

func TestProperty_ChunkWidthBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("chunk width stays within both budgets", prop.ForAll(
		func(maxKB, maxCols, rows int) bool {
			p := ChunkingPolicy{MaxChunkKB: maxKB, MaxColumns: maxCols}
			width := p.ColumnsPerChunk(rows)
			if width < 1 || width > maxCols {
				return false
			}
			if rows > 0 && width > 1 {
				// One column fewer would waste budget: width is the
				// smallest count whose data covers the byte budget.
				return (width-1)*rows*8 < maxKB*1024
			}
			return true
		},
		gen.IntRange(1, 4096),
		gen.IntRange(1, 500),
		gen.IntRange(1, 100000),
	))

	properties.Property("predicted chunks cover every column exactly once", prop.ForAll(
		func(maxKB, maxCols, rows, cols int) bool {
			p := ChunkingPolicy{MaxChunkKB: maxKB, MaxColumns: maxCols}
			width := p.ColumnsPerChunk(rows)
			n := p.PredictedChunkCount(rows, cols)
			if cols == 0 {
				return n == 0
			}
			return n*width >= cols && (n-1)*width < cols
		},
		gen.IntRange(1, 4096),
		gen.IntRange(1, 500),
		gen.IntRange(1, 100000),
		gen.IntRange(0, 2000),
	))

	properties.TestingRun(t)
}
