// Package codec reads and writes single chunk files using a fixed
// binary columnar layout. It is stateless and performs no I/O of its
// own; callers hand it complete byte slices.
//
// On-disk layout:
//
//	magic "CFS1" | version u16 | flags u16
//	row index: kind u8, count u32, [count x unix-nanos i64]
//	column directory: count u32, then per column the identity tuple
//	  (id i64, table, key, type, units as u16-length-prefixed strings)
//	  and the offset/length u64 pair of its payload block
//	payload: length u64, then one snappy-compressed block of
//	  little-endian float64s per column, concatenated
//	checksum: murmur3-128 over everything between the fixed header
//	  and the checksum itself
//
// Decoding with a column filter decompresses only the requested
// blocks; unrequested columns are never expanded.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/golang/snappy"
	"github.com/spaolacci/murmur3"

	storeerr "github.com/voightp/esofile-reader-sub000/internal/errors"
	"github.com/voightp/esofile-reader-sub000/pkg/types"
)

const (
	magic   = "CFS1"
	version = 1

	flagFullIdentity = 1 << 0
)

// Encode serializes a table into the chunk layout.
func Encode(t *types.TableData) ([]byte, error) {
	var body bytes.Buffer

	writeRowIndex(&body, t.Index)

	// Compress columns first so the directory can carry offsets.
	blocks := make([][]byte, len(t.Columns))
	var payloadLen uint64
	for i, col := range t.Columns {
		raw := make([]byte, 8*len(col))
		for j, v := range col {
			binary.LittleEndian.PutUint64(raw[8*j:], math.Float64bits(v))
		}
		blocks[i] = snappy.Encode(nil, raw)
		payloadLen += uint64(len(blocks[i]))
	}

	full := false
	writeUint32(&body, uint32(len(t.Variables)))
	var offset uint64
	for i, v := range t.Variables {
		if !v.IsSimple() {
			full = true
		}
		writeInt64(&body, int64(v.ID))
		for _, s := range []string{v.Table, v.Key, v.Type, v.Units} {
			if err := writeString(&body, s); err != nil {
				return nil, err
			}
		}
		writeUint64(&body, offset)
		writeUint64(&body, uint64(len(blocks[i])))
		offset += uint64(len(blocks[i]))
	}

	writeUint64(&body, payloadLen)
	for _, b := range blocks {
		body.Write(b)
	}

	var flags uint16
	if full {
		flags |= flagFullIdentity
	}

	out := make([]byte, 0, 8+body.Len()+16)
	out = append(out, magic...)
	out = binary.LittleEndian.AppendUint16(out, version)
	out = binary.LittleEndian.AppendUint16(out, flags)
	out = append(out, body.Bytes()...)

	h1, h2 := murmur3.Sum128(body.Bytes())
	out = binary.LittleEndian.AppendUint64(out, h1)
	out = binary.LittleEndian.AppendUint64(out, h2)
	return out, nil
}

// Decode parses a chunk file. If keep is non-nil, only columns whose
// identity satisfies it are decompressed and returned, preserving
// their stored order.
func Decode(data []byte, keep func(types.Variable) bool) (*types.TableData, error) {
	if len(data) < 8+16 {
		return nil, storeerr.NewCodecError(storeerr.CodeTruncatedChunk,
			fmt.Sprintf("codec: chunk of %d bytes is shorter than the fixed envelope", len(data)), nil)
	}
	if string(data[:4]) != magic {
		return nil, storeerr.NewCodecError(storeerr.CodeBadMagic,
			fmt.Sprintf("codec: bad magic %q", data[:4]), nil)
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != version {
		return nil, storeerr.NewCodecError(storeerr.CodeBadMagic,
			fmt.Sprintf("codec: unsupported chunk version %d", v), nil)
	}

	body := data[8 : len(data)-16]
	h1 := binary.LittleEndian.Uint64(data[len(data)-16:])
	h2 := binary.LittleEndian.Uint64(data[len(data)-8:])
	if c1, c2 := murmur3.Sum128(body); c1 != h1 || c2 != h2 {
		return nil, storeerr.NewCodecError(storeerr.CodeChecksumMismatch,
			"codec: chunk checksum mismatch", nil)
	}

	r := &reader{buf: body}

	index, err := readRowIndex(r)
	if err != nil {
		return nil, err
	}

	colCount := int(r.uint32())
	type entry struct {
		v              types.Variable
		offset, length uint64
	}
	entries := make([]entry, 0, colCount)
	for i := 0; i < colCount; i++ {
		var e entry
		e.v.ID = int(r.int64())
		e.v.Table = r.str()
		e.v.Key = r.str()
		e.v.Type = r.str()
		e.v.Units = r.str()
		e.offset = r.uint64()
		e.length = r.uint64()
		entries = append(entries, e)
	}

	payloadLen := r.uint64()
	payload := r.bytes(int(payloadLen))
	if r.err != nil {
		return nil, storeerr.NewCodecError(storeerr.CodeTruncatedChunk,
			"codec: chunk body ends inside the column directory or payload", r.err)
	}

	var vars []types.Variable
	var cols [][]float64
	for _, e := range entries {
		if keep != nil && !keep(e.v) {
			continue
		}
		if e.offset+e.length > uint64(len(payload)) {
			return nil, storeerr.NewCodecError(storeerr.CodeTruncatedChunk,
				fmt.Sprintf("codec: column %s block [%d:%d) exceeds payload of %d bytes",
					e.v, e.offset, e.offset+e.length, len(payload)), nil)
		}
		raw, err := snappy.Decode(nil, payload[e.offset:e.offset+e.length])
		if err != nil {
			return nil, storeerr.NewCodecError(storeerr.CodeTruncatedChunk,
				fmt.Sprintf("codec: decompressing column %s", e.v), err)
		}
		if len(raw) != 8*index.Len() {
			return nil, storeerr.NewCodecError(storeerr.CodeTruncatedChunk,
				fmt.Sprintf("codec: column %s holds %d values, index has %d rows",
					e.v, len(raw)/8, index.Len()), nil)
		}
		col := make([]float64, index.Len())
		for j := range col {
			col[j] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*j:]))
		}
		vars = append(vars, e.v)
		cols = append(cols, col)
	}

	return &types.TableData{Index: index, Variables: vars, Columns: cols}, nil
}

func writeRowIndex(w *bytes.Buffer, ri *types.RowIndex) {
	w.WriteByte(byte(ri.Kind))
	writeUint32(w, uint32(ri.Len()))
	if ri.Kind == types.IndexTimestamp {
		for _, ts := range ri.Timestamps {
			writeInt64(w, ts.UnixNano())
		}
	}
}

func readRowIndex(r *reader) (*types.RowIndex, error) {
	kind := types.IndexKind(r.byte())
	count := int(r.uint32())
	if kind == types.IndexRange {
		return types.NewRangeIndex(count), nil
	}
	ts := make([]time.Time, count)
	for i := range ts {
		ts[i] = time.Unix(0, r.int64()).UTC()
	}
	if r.err != nil {
		return nil, storeerr.NewCodecError(storeerr.CodeTruncatedChunk,
			"codec: chunk body ends inside the row index", r.err)
	}
	return types.NewTimestampIndex(ts), nil
}

// reader walks a byte slice, latching the first out-of-bounds error.
type reader struct {
	buf []byte
	pos int
	err error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.buf) {
		r.err = fmt.Errorf("need %d bytes at offset %d, have %d", n, r.pos, len(r.buf)-r.pos)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) byte() byte {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) uint32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) uint64() uint64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) int64() int64 {
	return int64(r.uint64())
}

func (r *reader) str() string {
	b := r.bytes(2)
	if b == nil {
		return ""
	}
	n := int(binary.LittleEndian.Uint16(b))
	return string(r.bytes(n))
}

func writeUint32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeUint64(w *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.Write(b[:])
}

func writeInt64(w *bytes.Buffer, v int64) {
	writeUint64(w, uint64(v))
}

func writeString(w *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return storeerr.NewValidationError(storeerr.CodeLengthMismatch,
			fmt.Sprintf("codec: identity field of %d bytes exceeds the %d-byte directory limit",
				len(s), math.MaxUint16))
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(len(s)))
	w.Write(b[:])
	w.WriteString(s)
	return nil
}
