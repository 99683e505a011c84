// Package benchmark provides performance benchmarks for the chunked
// table store.
package benchmark

import (
	"context"
	"testing"
	"time"

	"github.com/voightp/esofile-reader-sub000/internal/codec"
	"github.com/voightp/esofile-reader-sub000/internal/frame"
	"github.com/voightp/esofile-reader-sub000/internal/store"
	"github.com/voightp/esofile-reader-sub000/pkg/types"
)

// benchTable builds an annual-hourly style table: 8760 rows, cols
// full-identity columns.
func benchTable(b *testing.B, rows, cols int) *types.TableData {
	b.Helper()
	base := time.Date(2002, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, rows)
	for i := range ts {
		ts[i] = base.Add(time.Duration(i) * time.Hour)
	}
	vars := make([]types.Variable, cols)
	data := make([][]float64, cols)
	for i := range vars {
		vars[i] = types.Variable{
			ID: i + 1, Table: "hourly", Key: "Zone", Type: "Temperature", Units: "C",
		}
		col := make([]float64, rows)
		for j := range col {
			col[j] = 18 + float64(j%24)*0.3
		}
		data[i] = col
	}
	td, err := types.NewTableData(types.NewTimestampIndex(ts), vars, data)
	if err != nil {
		b.Fatal(err)
	}
	return td
}

// BenchmarkChunkEncode measures chunk serialization throughput.
func BenchmarkChunkEncode(b *testing.B) {
	td := benchTable(b, 8760, 15)

	b.ResetTimer()
	b.ReportAllocs()

	var encodedBytes int
	for i := 0; i < b.N; i++ {
		data, err := codec.Encode(td)
		if err != nil {
			b.Fatal(err)
		}
		encodedBytes = len(data)
	}
	b.ReportMetric(float64(encodedBytes), "bytes/chunk")
}

// BenchmarkChunkDecode measures full chunk decode throughput.
func BenchmarkChunkDecode(b *testing.B) {
	data, err := codec.Encode(benchTable(b, 8760, 15))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := codec.Decode(data, nil); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkChunkDecodeSingleColumn measures selective decode: one
// column out of a full chunk.
func BenchmarkChunkDecodeSingleColumn(b *testing.B) {
	data, err := codec.Encode(benchTable(b, 8760, 15))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, err := codec.Decode(data, func(v types.Variable) bool { return v.ID == 7 })
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFrameReadSubset measures reading a three-column subset from
// a frame spanning several chunks.
func BenchmarkFrameReadSubset(b *testing.B) {
	ctx := context.Background()
	f, err := frame.FromTable(ctx, benchTable(b, 8760, 60), "hourly",
		store.NewMemoryStore(), frame.DefaultChunkingPolicy())
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, err := f.Read(ctx, frame.AllRows(), frame.ByIDs(3, 30, 59))
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFrameInsertColumn measures the append-heavy path: repeated
// single-column inserts.
func BenchmarkFrameInsertColumn(b *testing.B) {
	ctx := context.Background()
	values := make([]float64, 8760)
	f, err := frame.FromTable(ctx, benchTable(b, 8760, 15), "hourly",
		store.NewMemoryStore(), frame.DefaultChunkingPolicy())
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		v := types.Variable{
			ID: 1000 + i, Table: "hourly", Key: "Derived", Type: "Mean", Units: "C",
		}
		if err := f.InsertColumn(ctx, nil, v, values); err != nil {
			b.Fatal(err)
		}
	}
}
