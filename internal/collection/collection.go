// Package collection maintains a name-keyed set of table frames bound
// to one source file, and packages them into a single archive for
// transport.
package collection

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	storeerr "github.com/voightp/esofile-reader-sub000/internal/errors"
	"github.com/voightp/esofile-reader-sub000/internal/frame"
	"github.com/voightp/esofile-reader-sub000/internal/store"
	"github.com/voightp/esofile-reader-sub000/pkg/types"
)

// Archive layout constants. The extension, the metadata file name and
// its JSON field names are a compatibility surface for existing
// archives and must not change.
const (
	ArchiveExt  = ".cfs"
	MetaFile    = "info.json"
	tablePrefix = "table-"
)

// FileMeta is the metadata record accompanying one stored source file.
type FileMeta struct {
	ID       int       `json:"id"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	FilePath string    `json:"file_path"`
	FileType string    `json:"file_type"`
}

// NamedTable pairs a source-table name with its finished in-memory
// content, preserving construction order.
type NamedTable struct {
	Name string
	Data *types.TableData
}

// Collection owns zero or more named frames. A frame's lifetime is
// bound to its entry: removal releases its storage, and collection
// clean-up releases everything.
type Collection struct {
	meta   FileMeta
	dir    string // base directory for file-backed frames; "" keeps frames in memory
	order  []string
	frames map[string]frame.TableFrame
}

// BuildFrom bulk-constructs one frame per source table. When dir is
// non-empty each frame lives in its own subdirectory under it;
// otherwise frames are buffer-backed in memory.
func BuildFrom(ctx context.Context, meta FileMeta, dir string, tables []NamedTable, policy frame.ChunkingPolicy) (*Collection, error) {
	c := &Collection{meta: meta, dir: dir, frames: make(map[string]frame.TableFrame)}
	for i, t := range tables {
		if _, dup := c.frames[t.Name]; dup {
			return nil, fmt.Errorf("collection: duplicate table name %q", t.Name)
		}
		s, err := c.storeFor(t.Name)
		if err != nil {
			return nil, err
		}
		f, err := frame.FromTable(ctx, t.Data, t.Name, s, policy)
		if err != nil {
			return nil, err
		}
		if err := f.SetPosition(ctx, i); err != nil {
			return nil, err
		}
		c.frames[t.Name] = f
		c.order = append(c.order, t.Name)
	}
	if dir != "" {
		if err := c.writeMeta(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LoadFromDir reconstructs a collection from a directory previously
// written by BuildFrom or extracted from an archive.
func LoadFromDir(ctx context.Context, dir string, policy frame.ChunkingPolicy) (*Collection, error) {
	metaData, err := os.ReadFile(filepath.Join(dir, MetaFile))
	if err != nil {
		return nil, storeerr.NewCorruptedData(
			fmt.Sprintf("collection: metadata record %s is unreadable", MetaFile), err)
	}
	var meta FileMeta
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, storeerr.NewCorruptedData(
			fmt.Sprintf("collection: metadata record %s is malformed", MetaFile), err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	c := &Collection{meta: meta, dir: dir, frames: make(map[string]frame.TableFrame)}
	var loaded []*frame.Frame
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), tablePrefix) {
			continue
		}
		s, err := store.NewFileStore(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		f, err := frame.Load(ctx, s, policy)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, f)
	}
	// Directory listing order is lexical; the persisted position
	// restores the collection's logical table order.
	sort.SliceStable(loaded, func(i, j int) bool {
		return loaded[i].Position() < loaded[j].Position()
	})
	for _, f := range loaded {
		c.frames[f.Name()] = f
		c.order = append(c.order, f.Name())
	}
	return c, nil
}

// Meta returns the collection's file metadata record.
func (c *Collection) Meta() FileMeta {
	return c.meta
}

// Names returns the table names in construction order.
func (c *Collection) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Get returns the named frame, or nil if absent.
func (c *Collection) Get(name string) frame.TableFrame {
	return c.frames[name]
}

// Remove releases the named frame's storage and drops it from the
// collection. Remaining frames are renumbered so a later directory
// load keeps the surviving order.
func (c *Collection) Remove(ctx context.Context, name string) error {
	f, ok := c.frames[name]
	if !ok {
		return fmt.Errorf("collection: no table named %q", name)
	}
	if err := f.CleanUp(ctx); err != nil {
		return err
	}
	delete(c.frames, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return c.renumber(ctx)
}

// MergeFrom re-homes every frame of other into this collection.
// Names already present are rejected before anything moves.
func (c *Collection) MergeFrom(other *Collection) error {
	for _, name := range other.order {
		if _, dup := c.frames[name]; dup {
			return fmt.Errorf("collection: table %q already present", name)
		}
	}
	for _, name := range other.order {
		c.frames[name] = other.frames[name]
		c.order = append(c.order, name)
		delete(other.frames, name)
	}
	other.order = nil
	return nil
}

// SaveToArchive writes the metadata record and every frame into a
// single archive at path. The archive extension is enforced.
func (c *Collection) SaveToArchive(ctx context.Context, path string) error {
	if filepath.Ext(path) != ArchiveExt {
		path += ArchiveExt
	}
	out, err := os.Create(path)
	if err != nil {
		return storeerr.NewArchiveError("collection: creating archive file", err)
	}
	defer out.Close()

	w := zip.NewWriter(out)
	metaEntry, err := w.Create(MetaFile)
	if err != nil {
		return storeerr.NewArchiveError("collection: creating metadata entry", err)
	}
	metaData, err := json.MarshalIndent(c.meta, "", "  ")
	if err != nil {
		return storeerr.NewArchiveError("collection: encoding metadata record", err)
	}
	if _, err := metaEntry.Write(metaData); err != nil {
		return storeerr.NewArchiveError("collection: writing metadata record", err)
	}

	if err := c.renumber(ctx); err != nil {
		return err
	}
	for _, name := range c.order {
		if err := c.frames[name].SaveTo(ctx, w, tablePrefix+name); err != nil {
			return err
		}
	}
	return w.Close()
}

// LoadFromArchive extracts an archive into workDir and reconstructs
// the collection from it. On a failed integrity check the partially
// extracted state is removed before the error propagates.
func LoadFromArchive(ctx context.Context, path, workDir string, policy frame.ChunkingPolicy) (*Collection, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, storeerr.NewArchiveError(
			fmt.Sprintf("collection: opening archive %s", path), err)
	}
	defer r.Close()

	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, err
	}

	cleanup := func() { _ = os.RemoveAll(workDir) }
	for _, entry := range r.File {
		if err := extractEntry(entry, workDir); err != nil {
			cleanup()
			return nil, err
		}
	}

	c, err := LoadFromDir(ctx, workDir, policy)
	if err != nil {
		cleanup()
		return nil, err
	}
	return c, nil
}

// CopyTo deep-copies every frame's storage into a new base directory
// and returns the copy as a new file-backed collection.
func (c *Collection) CopyTo(ctx context.Context, dir string, policy frame.ChunkingPolicy) (*Collection, error) {
	if c.dir == "" {
		return nil, fmt.Errorf("collection: cannot copy a memory-backed collection by directory")
	}
	for _, name := range c.order {
		src, err := store.NewFileStore(filepath.Join(c.dir, tablePrefix+name))
		if err != nil {
			return nil, err
		}
		dst, err := store.NewFileStore(filepath.Join(dir, tablePrefix+name))
		if err != nil {
			return nil, err
		}
		if err := store.CopyAll(ctx, src, dst); err != nil {
			return nil, err
		}
	}
	metaData, err := json.MarshalIndent(c.meta, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, MetaFile), metaData, 0644); err != nil {
		return nil, err
	}
	return LoadFromDir(ctx, dir, policy)
}

// CleanUp releases every frame's storage and the collection directory.
func (c *Collection) CleanUp(ctx context.Context) error {
	for _, name := range c.order {
		if err := c.frames[name].CleanUp(ctx); err != nil {
			return err
		}
	}
	c.frames = make(map[string]frame.TableFrame)
	c.order = nil
	if c.dir != "" {
		return os.RemoveAll(c.dir)
	}
	return nil
}

// Close releases every frame handle without touching storage; a
// file-backed collection can be reopened later with LoadFromDir.
func (c *Collection) Close() error {
	var first error
	for _, name := range c.order {
		if closer, ok := c.frames[name].(io.Closer); ok {
			if err := closer.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	c.frames = make(map[string]frame.TableFrame)
	c.order = nil
	return first
}

// renumber aligns each frame's persisted position with the current
// logical order. Frames of other backends keep their own ordering.
func (c *Collection) renumber(ctx context.Context) error {
	for i, name := range c.order {
		f, ok := c.frames[name].(*frame.Frame)
		if !ok || f.Position() == i {
			continue
		}
		if err := f.SetPosition(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collection) storeFor(name string) (store.Store, error) {
	if c.dir == "" {
		return store.NewMemoryStore(), nil
	}
	return store.NewFileStore(filepath.Join(c.dir, tablePrefix+name))
}

func (c *Collection) writeMeta() error {
	data, err := json.MarshalIndent(c.meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, MetaFile), data, 0644)
}

// extractEntry writes one archive entry under workDir, refusing paths
// that escape it.
func extractEntry(entry *zip.File, workDir string) error {
	dest := filepath.Join(workDir, filepath.FromSlash(entry.Name))
	if !strings.HasPrefix(dest, filepath.Clean(workDir)+string(os.PathSeparator)) {
		return storeerr.NewArchiveError(
			fmt.Sprintf("collection: archive entry %s escapes the extraction root", entry.Name), nil)
	}
	if entry.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, src)
	return err
}
