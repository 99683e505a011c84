// Package store provides the storage media a frame keeps its chunk
// and side files on. Implementations include the local filesystem
// (production), an in-memory buffer store for ephemeral and merge
// scenarios, and S3.
package store

import (
	"context"
	"errors"

	"github.com/voightp/esofile-reader-sub000/internal/codec"
	"github.com/voightp/esofile-reader-sub000/pkg/types"
)

// Common errors for store operations.
var (
	ErrNotFound    = errors.New("file not found")
	ErrReadFailed  = errors.New("read failed")
	ErrWriteFailed = errors.New("write failed")
)

// Store abstracts the medium holding a frame's chunk and side files.
// A frame exclusively owns its store location for its lifetime;
// concurrent external mutation is undefined behavior.
type Store interface {
	// Read returns the full content of the named file.
	// Returns ErrNotFound if the file does not exist.
	Read(ctx context.Context, name string) ([]byte, error)

	// Write replaces the named file with data. The write always
	// produces a complete new version, never a partial patch.
	Write(ctx context.Context, name string, data []byte) error

	// Delete removes the named file. Deleting a missing file is not
	// an error.
	Delete(ctx context.Context, name string) error

	// Exists reports whether the named file is present.
	Exists(ctx context.Context, name string) (bool, error)

	// List returns the names of all stored files.
	List(ctx context.Context) ([]string, error)

	// RemoveAll releases every file held by the store. Used by frame
	// clean-up.
	RemoveAll(ctx context.Context) error
}

// ReadChunk reads and decodes the named chunk, restricted to columns
// satisfying keep (nil keeps everything).
func ReadChunk(ctx context.Context, s Store, name string, keep func(types.Variable) bool) (*types.TableData, error) {
	data, err := s.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	return codec.Decode(data, keep)
}

// WriteChunk encodes a table and replaces the named chunk with it.
func WriteChunk(ctx context.Context, s Store, name string, t *types.TableData) error {
	data, err := codec.Encode(t)
	if err != nil {
		return err
	}
	return s.Write(ctx, name, data)
}

// CopyAll copies every file from src into dst. Used by collection
// deep-copy.
func CopyAll(ctx context.Context, src, dst Store) error {
	names, err := src.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		data, err := src.Read(ctx, name)
		if err != nil {
			return err
		}
		if err := dst.Write(ctx, name, data); err != nil {
			return err
		}
	}
	return nil
}
