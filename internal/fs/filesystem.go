package fs

import (
	"fmt"
	"io"
	iofs "io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"gdsync/internal/gdsync"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644

	tempPrefix = ".gdsync-"
	tempSuffix = ".tmp"
)

// IsTempFile reports whether name is an in-progress write made by WriteFile.
func IsTempFile(name string) bool {
	return strings.HasPrefix(name, tempPrefix) && strings.HasSuffix(name, tempSuffix)
}

// FilesystemManager implements gdsync.FilesystemManager on top of an afero.Fs,
// so the same code runs against the real disk and against memory in tests.
type FilesystemManager struct {
	fs afero.Fs
}

// NewFilesystemManager wraps an arbitrary afero filesystem.
func NewFilesystemManager(fs afero.Fs) *FilesystemManager {
	return &FilesystemManager{fs: fs}
}

// NewOSFilesystemManager creates a manager that operates on the real filesystem.
func NewOSFilesystemManager() *FilesystemManager {
	return NewFilesystemManager(afero.NewOsFs())
}

// NewMemFilesystemManager creates a manager backed by an in-memory filesystem.
func NewMemFilesystemManager() *FilesystemManager {
	return NewFilesystemManager(afero.NewMemMapFs())
}

// Fs exposes the underlying afero filesystem.
func (m *FilesystemManager) Fs() afero.Fs {
	return m.fs
}

// MkdirAll creates a directory and any missing parents.
func (m *FilesystemManager) MkdirAll(path string) error {
	return m.fs.MkdirAll(path, dirPerm)
}

// WalkFiles calls fn for every regular file under root. Symlinks are followed
// when they point at a regular file; symlinked directories are not descended.
// Leftover temporary files from interrupted writes are skipped.
func (m *FilesystemManager) WalkFiles(root string, fn func(path string, info iofs.FileInfo, err error) error) error {
	return afero.Walk(m.fs, root, func(path string, info iofs.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return fn(path, nil, err)
		}
		if info.IsDir() || IsTempFile(info.Name()) {
			return nil
		}

		if info.Mode()&iofs.ModeSymlink != 0 {
			target, err := m.fs.Stat(path)
			if err != nil {
				return fn(path, nil, fmt.Errorf("resolving symlink: %w", err))
			}
			info = target
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return fn(path, info, nil)
	})
}

// Open opens a file for reading.
func (m *FilesystemManager) Open(path string) (io.ReadCloser, error) {
	info, err := m.fs.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path)
	}
	return m.fs.Open(path)
}

// Stat returns fresh file info for a path.
func (m *FilesystemManager) Stat(path string) (iofs.FileInfo, error) {
	return m.fs.Stat(path)
}

// WriteFile writes to a temp file next to path and renames it into place once
// write has succeeded.
func (m *FilesystemManager) WriteFile(path string, write func(w io.Writer) error) error {
	tmp, err := afero.TempFile(m.fs, filepath.Dir(path), tempPrefix+"*"+tempSuffix)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			m.fs.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := m.fs.Chmod(tmpPath, filePerm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := m.fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}

// Chtimes sets the access and modification times of path to mtime.
func (m *FilesystemManager) Chtimes(path string, mtime time.Time) error {
	return m.fs.Chtimes(path, mtime, mtime)
}

// Compile-time check that FilesystemManager implements gdsync.FilesystemManager.
var _ gdsync.FilesystemManager = (*FilesystemManager)(nil)
