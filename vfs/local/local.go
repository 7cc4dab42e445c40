// Package local implements [vfs.FileSystem] over a directory on the local
// disk: writes land via [atomicfile.WriteData] so a crash mid-write never
// leaves a half-written artifact for the scheduler to mistake as fresh.
package local

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/creachadair/atomicfile"

	"github.com/databuild/databuild/vfs"
)

// FileSystem implements [vfs.FileSystem] rooted at a local directory.
type FileSystem struct {
	root string
}

// New constructs a FileSystem rooted at dir, creating dir if necessary.
func New(dir string) (*FileSystem, error) {
	root := filepath.Clean(dir)
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("local: create root %q: %w", root, err)
	}
	return &FileSystem{root: root}, nil
}

func (fs *FileSystem) abs(path string) string {
	return filepath.Join(fs.root, filepath.FromSlash(path))
}

// Exists implements [vfs.FileSystem].
func (fs *FileSystem) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(fs.abs(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("local: stat %q: %w", path, err)
}

// OpenReader implements [vfs.FileSystem].
func (fs *FileSystem) OpenReader(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(fs.abs(path))
	if err != nil {
		return nil, fmt.Errorf("local: open %q: %w", path, err)
	}
	return f, nil
}

// OpenWriter implements [vfs.FileSystem]. The returned writer buffers in
// memory and commits the whole artifact atomically on Close, matching
// atomicfile's all-or-nothing semantics (artifacts here are assumed
// "reasonable size" per the storage contract, not streamed multi-gigabyte
// blobs).
func (fs *FileSystem) OpenWriter(_ context.Context, path string) (io.WriteCloser, error) {
	abs := fs.abs(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0700); err != nil {
		return nil, fmt.Errorf("local: mkdir for %q: %w", path, err)
	}
	return &atomicWriter{path: abs}, nil
}

type atomicWriter struct {
	path string
	buf  bytes.Buffer
}

func (w *atomicWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *atomicWriter) Close() error {
	if err := atomicfile.WriteData(w.path, w.buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("local: commit %q: %w", w.path, err)
	}
	return nil
}

// Mkdir implements [vfs.FileSystem].
func (fs *FileSystem) Mkdir(_ context.Context, path string) error {
	if err := os.MkdirAll(fs.abs(path), 0700); err != nil {
		return fmt.Errorf("local: mkdir %q: %w", path, err)
	}
	return nil
}

// LastUpdateTime implements [vfs.FileSystem]. A missing path reports the
// local sentinel minimum.
func (fs *FileSystem) LastUpdateTime(_ context.Context, path string) (vfs.Timestamp, error) {
	fi, err := os.Stat(fs.abs(path))
	if os.IsNotExist(err) {
		return vfs.MinTimestamp(vfs.BackendLocal), nil
	}
	if err != nil {
		return vfs.Timestamp{}, fmt.Errorf("local: stat %q: %w", path, err)
	}
	return vfs.Timestamp{Time: fi.ModTime(), Backend: vfs.BackendLocal}, nil
}

// FullPath implements [vfs.FileSystem].
func (fs *FileSystem) FullPath(path string) string { return fs.abs(path) }

// URI implements [vfs.FileSystem].
func (fs *FileSystem) URI(path string) string { return "file://" + fs.abs(path) }

// Listdir implements [vfs.FileSystem].
func (fs *FileSystem) Listdir(_ context.Context, path string, includeHidden bool) ([]string, error) {
	entries, err := os.ReadDir(fs.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("local: listdir %q: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !includeHidden && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
