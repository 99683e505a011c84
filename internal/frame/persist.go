package frame

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	storeerr "github.com/voightp/esofile-reader-sub000/internal/errors"
	"github.com/voightp/esofile-reader-sub000/internal/store"
	"github.com/voightp/esofile-reader-sub000/pkg/types"
)

// Fixed names of the two side files accompanying a frame's chunks,
// and the extension of chunk files. These are a compatibility surface
// for existing stores.
const (
	RowIndexFile = "index.bin"
	LookupFile   = "columns.bin"

	chunkExt = ".cfc"

	indexMagic  = "CFSI"
	lookupMagic = "CFSL"
	sideVersion = 2
)

// writeSideFiles serializes the row index and the lookup index so the
// store directory is always reloadable.
func (f *Frame) writeSideFiles(ctx context.Context) error {
	if err := f.store.Write(ctx, RowIndexFile, encodeRowIndex(f.index)); err != nil {
		return storeerr.NewChunkError(storeerr.CodeChunkIO,
			fmt.Sprintf("frame: writing %s of table %s", RowIndexFile, f.name), err)
	}
	lookupData, err := encodeLookup(f.name, f.simple, f.position, f.lookup)
	if err != nil {
		return err
	}
	if err := f.store.Write(ctx, LookupFile, lookupData); err != nil {
		return storeerr.NewChunkError(storeerr.CodeChunkIO,
			fmt.Sprintf("frame: writing %s of table %s", LookupFile, f.name), err)
	}
	return nil
}

// Load reconstructs a frame from a store holding a previously written
// layout. Both side files are read first; a missing side file or a
// missing referenced chunk fails with CORRUPTED_DATA before any data
// is exposed. Chunk contents themselves are read lazily on access.
func Load(ctx context.Context, s store.Store, policy ChunkingPolicy) (*Frame, error) {
	indexData, err := s.Read(ctx, RowIndexFile)
	if err != nil {
		return nil, storeerr.NewCorruptedData(
			fmt.Sprintf("frame: row index side file %s is unreadable", RowIndexFile), err)
	}
	index, err := decodeRowIndex(indexData)
	if err != nil {
		return nil, storeerr.NewCorruptedData(
			fmt.Sprintf("frame: row index side file %s is malformed", RowIndexFile), err)
	}

	lookupData, err := s.Read(ctx, LookupFile)
	if err != nil {
		return nil, storeerr.NewCorruptedData(
			fmt.Sprintf("frame: lookup side file %s is unreadable", LookupFile), err)
	}
	name, simple, position, lookup, err := decodeLookup(lookupData)
	if err != nil {
		return nil, storeerr.NewCorruptedData(
			fmt.Sprintf("frame: lookup side file %s is malformed", LookupFile), err)
	}

	var missing []string
	for _, chunk := range lookup.Chunks() {
		ok, err := s.Exists(ctx, chunk)
		if err != nil {
			return nil, storeerr.NewChunkError(storeerr.CodeChunkIO,
				fmt.Sprintf("frame: checking chunk %s of table %s", chunk, name), err)
		}
		if !ok {
			missing = append(missing, chunk)
		}
	}
	if len(missing) > 0 {
		return nil, storeerr.NewCorruptedData(
			fmt.Sprintf("frame: table %s references missing chunks: %s", name, joinSorted(missing)), nil)
	}

	return &Frame{
		name:     name,
		store:    s,
		policy:   policy,
		index:    index,
		lookup:   lookup,
		simple:   simple,
		position: position,
	}, nil
}

// SaveTo writes the frame's side files and chunks into the archive
// under relRoot.
func (f *Frame) SaveTo(ctx context.Context, w *zip.Writer, relRoot string) error {
	if err := f.writeSideFiles(ctx); err != nil {
		return err
	}
	names, err := f.store.List(ctx)
	if err != nil {
		return storeerr.NewChunkError(storeerr.CodeChunkIO,
			fmt.Sprintf("frame: listing files of table %s", f.name), err)
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := f.store.Read(ctx, name)
		if err != nil {
			return storeerr.NewChunkError(storeerr.CodeChunkIO,
				fmt.Sprintf("frame: reading %s of table %s", name, f.name), err)
		}
		entry, err := w.Create(path.Join(relRoot, name))
		if err != nil {
			return storeerr.NewArchiveError(
				fmt.Sprintf("frame: creating archive entry for %s", name), err)
		}
		if _, err := entry.Write(data); err != nil {
			return storeerr.NewArchiveError(
				fmt.Sprintf("frame: writing archive entry for %s", name), err)
		}
	}
	return nil
}

// encodeRowIndex serializes the row index side file.
func encodeRowIndex(ri *types.RowIndex) []byte {
	var buf bytes.Buffer
	buf.WriteString(indexMagic)
	writeU16(&buf, sideVersion)
	buf.WriteByte(byte(ri.Kind))
	writeU32(&buf, uint32(ri.Len()))
	if ri.Kind == types.IndexTimestamp {
		for _, ts := range ri.Timestamps {
			writeU64(&buf, uint64(ts.UnixNano()))
		}
	}
	return buf.Bytes()
}

func decodeRowIndex(data []byte) (*types.RowIndex, error) {
	r := &sideReader{buf: data}
	if magic := string(r.bytes(4)); magic != indexMagic {
		return nil, fmt.Errorf("bad magic %q", magic)
	}
	if v := r.u16(); v != sideVersion {
		return nil, fmt.Errorf("unsupported version %d", v)
	}
	kind := types.IndexKind(r.byte())
	count := int(r.u32())
	if kind == types.IndexRange {
		if r.err != nil {
			return nil, r.err
		}
		return types.NewRangeIndex(count), nil
	}
	ts := make([]time.Time, count)
	for i := range ts {
		ts[i] = time.Unix(0, int64(r.u64())).UTC()
	}
	if r.err != nil {
		return nil, r.err
	}
	return types.NewTimestampIndex(ts), nil
}

// encodeLookup serializes the lookup index side file. The numeric id
// is stringified on disk so every stored field shares the text header
// type; it is parsed back on load. The frame's logical position within
// its owning collection rides in the header so directory loads can
// restore table order.
func encodeLookup(name string, simple bool, position int, li *LookupIndex) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(lookupMagic)
	writeU16(&buf, sideVersion)
	if err := writeStr(&buf, name); err != nil {
		return nil, err
	}
	if simple {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	writeU32(&buf, uint32(position))
	writeU32(&buf, uint32(li.Len()))
	for _, e := range li.entries {
		fields := []string{
			strconv.Itoa(e.Variable.ID),
			e.Variable.Table,
			e.Variable.Key,
			e.Variable.Type,
			e.Variable.Units,
			e.Chunk,
		}
		for _, s := range fields {
			if err := writeStr(&buf, s); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

func decodeLookup(data []byte) (string, bool, int, *LookupIndex, error) {
	r := &sideReader{buf: data}
	if magic := string(r.bytes(4)); magic != lookupMagic {
		return "", false, 0, nil, fmt.Errorf("bad magic %q", magic)
	}
	if v := r.u16(); v != sideVersion {
		return "", false, 0, nil, fmt.Errorf("unsupported version %d", v)
	}
	name := r.str()
	simple := r.byte() == 1
	position := int(r.u32())
	count := int(r.u32())
	entries := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		idText := r.str()
		id, err := strconv.Atoi(idText)
		if err != nil && r.err == nil {
			return "", false, 0, nil, fmt.Errorf("non-numeric id %q", idText)
		}
		var e Entry
		e.Variable.ID = id
		e.Variable.Table = r.str()
		e.Variable.Key = r.str()
		e.Variable.Type = r.str()
		e.Variable.Units = r.str()
		e.Chunk = r.str()
		entries = append(entries, e)
	}
	if r.err != nil {
		return "", false, 0, nil, r.err
	}
	li, err := NewLookupIndex(entries)
	if err != nil {
		return "", false, 0, nil, err
	}
	return name, simple, position, li, nil
}

// sideReader walks a side-file byte slice, latching the first
// out-of-bounds error.
type sideReader struct {
	buf []byte
	pos int
	err error
}

func (r *sideReader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.buf) {
		r.err = errors.New("unexpected end of side file")
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *sideReader) byte() byte {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *sideReader) u16() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *sideReader) u32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *sideReader) u64() uint64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *sideReader) str() string {
	n := int(r.u16())
	return string(r.bytes(n))
}

func writeU16(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func writeU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeU64(w *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.Write(b[:])
}

func writeStr(w *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return storeerr.NewValidationError(storeerr.CodeLengthMismatch,
			fmt.Sprintf("frame: string field of %d bytes exceeds the %d-byte side file limit",
				len(s), math.MaxUint16))
	}
	writeU16(w, uint16(len(s)))
	w.WriteString(s)
	return nil
}

func joinSorted(items []string) string {
	sort.Strings(items)
	return strings.Join(items, ", ")
}
