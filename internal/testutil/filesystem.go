package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"gdsync/internal/fs"
)

// NewMemFS returns a filesystem manager over an empty in-memory filesystem.
func NewMemFS() *fs.FilesystemManager {
	return fs.NewMemFilesystemManager()
}

// WriteFile creates path (and its parents) in fsmgr with content and mtime.
func WriteFile(t *testing.T, fsmgr *fs.FilesystemManager, path, content string, mtime time.Time) {
	t.Helper()
	afs := fsmgr.Fs()
	if err := afs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating parent of %s: %v", path, err)
	}
	if err := afero.WriteFile(afs, path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	if err := afs.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("setting mtime of %s: %v", path, err)
	}
}

// ReadFile returns the content of path in fsmgr.
func ReadFile(t *testing.T, fsmgr *fs.FilesystemManager, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fsmgr.Fs(), path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// ModTime returns the modification time of path in fsmgr.
func ModTime(t *testing.T, fsmgr *fs.FilesystemManager, path string) time.Time {
	t.Helper()
	info, err := fsmgr.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info.ModTime()
}

// WriteLocalFile creates path on the real filesystem with content and mtime.
func WriteLocalFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("setting mtime of %s: %v", path, err)
	}
}
