package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps every file of a frame under one directory on the
// local filesystem. This is the production medium.
type FileStore struct {
	root string
}

// NewFileStore creates a file store rooted at root, creating the
// directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("store: failed to create root directory: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Root returns the directory the store writes into.
func (f *FileStore) Root() string {
	return f.root
}

// Read returns the full content of the named file.
func (f *FileStore) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := f.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	return data, nil
}

// Write replaces the named file. The content lands in a fresh file
// handle; existing bytes are never mutated in place.
func (f *FileStore) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := f.path(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Delete removes the named file. Missing files are ignored.
func (f *FileStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := f.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: failed to delete %s: %w", name, err)
	}
	return nil
}

// Exists reports whether the named file is present.
func (f *FileStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := f.path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns the names of all stored files.
func (f *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(f.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// RemoveAll deletes the store directory and everything in it.
func (f *FileStore) RemoveAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.RemoveAll(f.root)
}

// path resolves an object name inside the root. Names are flat: path
// separators and relative elements are rejected.
func (f *FileStore) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return "", fmt.Errorf("store: invalid object name %q", name)
	}
	return filepath.Join(f.root, name), nil
}
