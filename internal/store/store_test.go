package store

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voightp/esofile-reader-sub000/pkg/types"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return map[string]Store{
		"file":   fs,
		"memory": NewMemoryStore(),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Read(ctx, "absent"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Read of absent object: got %v, want ErrNotFound", err)
			}

			if err := s.Write(ctx, "a.cfc", []byte("alpha")); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if err := s.Write(ctx, "b.cfc", []byte("beta")); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			data, err := s.Read(ctx, "a.cfc")
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if !bytes.Equal(data, []byte("alpha")) {
				t.Errorf("Read returned %q", data)
			}

			ok, err := s.Exists(ctx, "b.cfc")
			if err != nil || !ok {
				t.Errorf("Exists(b.cfc) = %v, %v", ok, err)
			}
			ok, err = s.Exists(ctx, "absent")
			if err != nil || ok {
				t.Errorf("Exists(absent) = %v, %v", ok, err)
			}

			names, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(names) != 2 || names[0] != "a.cfc" || names[1] != "b.cfc" {
				t.Errorf("List = %v, want sorted [a.cfc b.cfc]", names)
			}

			// Overwrite in place.
			if err := s.Write(ctx, "a.cfc", []byte("gamma")); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}
			data, _ = s.Read(ctx, "a.cfc")
			if !bytes.Equal(data, []byte("gamma")) {
				t.Errorf("overwrite not visible: %q", data)
			}

			if err := s.Delete(ctx, "a.cfc"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := s.Read(ctx, "a.cfc"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Read after delete: got %v, want ErrNotFound", err)
			}

			if err := s.RemoveAll(ctx); err != nil {
				t.Fatalf("RemoveAll failed: %v", err)
			}
			names, err = s.List(ctx)
			if err != nil {
				t.Fatalf("List after RemoveAll failed: %v", err)
			}
			if len(names) != 0 {
				t.Errorf("expected empty store, got %v", names)
			}
		})
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	original := []byte("payload")
	if err := s.Write(ctx, "x", original); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	original[0] = 'X'

	data, err := s.Read(ctx, "x")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if data[0] != 'p' {
		t.Error("store should copy written data")
	}

	data[0] = 'Y'
	again, _ := s.Read(ctx, "x")
	if again[0] != 'p' {
		t.Error("store should copy read data")
	}
}

func TestChunkHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	td, err := types.NewTableData(
		types.NewTimestampIndex([]time.Time{
			time.Date(2002, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2002, 1, 1, 1, 0, 0, 0, time.UTC),
		}),
		[]types.Variable{{ID: 1, Table: "hourly", Key: "Zone", Type: "Temperature", Units: "C"}},
		[][]float64{{20.5, 21.0}})
	if err != nil {
		t.Fatalf("NewTableData failed: %v", err)
	}

	if err := WriteChunk(ctx, s, "c1.cfc", td); err != nil {
		t.Fatalf("WriteChunk failed: %v", err)
	}
	got, err := ReadChunk(ctx, s, "c1.cfc", nil)
	if err != nil {
		t.Fatalf("ReadChunk failed: %v", err)
	}
	if !td.Equal(got) {
		t.Error("chunk round trip altered the table")
	}

	if _, err := ReadChunk(ctx, s, "absent.cfc", nil); err == nil {
		t.Error("expected error reading an absent chunk")
	}
}

func TestCopyAll(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryStore()
	dst, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	for _, name := range []string{"one", "two", "three"} {
		if err := src.Write(ctx, name, []byte(name)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	if err := CopyAll(ctx, src, dst); err != nil {
		t.Fatalf("CopyAll failed: %v", err)
	}
	names, err := dst.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 3 {
		t.Errorf("expected 3 objects in destination, got %v", names)
	}
	data, _ := dst.Read(ctx, "two")
	if string(data) != "two" {
		t.Errorf("copied content mismatch: %q", data)
	}
}

func TestFileStoreRejectsNestedNames(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := s.Write(ctx, "../escape", []byte("x")); err == nil {
		t.Error("expected error writing outside the store root")
	}
}
