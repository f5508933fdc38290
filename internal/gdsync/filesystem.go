package gdsync

import (
	"io"
	"io/fs"
	"time"
)

// FilesystemManager abstracts local file access so the engine can run against
// an in-memory filesystem in tests.
type FilesystemManager interface {
	// MkdirAll creates a directory and any missing parents.
	MkdirAll(path string) error

	// WalkFiles calls fn for every regular file under root, including
	// symlinks that resolve to regular files. Entries that cannot be read are
	// reported through fn with a nil info and a non-nil err, and the walk
	// continues. A non-nil return from fn stops the walk and is returned.
	WalkFiles(root string, fn func(path string, info fs.FileInfo, err error) error) error

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// Stat returns fresh file info for a path.
	Stat(path string) (fs.FileInfo, error)

	// WriteFile replaces path with the bytes produced by write. The file is
	// written to a temporary sibling and renamed into place only if write
	// succeeds, so a failed transfer never clobbers existing content.
	WriteFile(path string, write func(w io.Writer) error) error

	// Chtimes sets the modification time of path.
	Chtimes(path string, mtime time.Time) error
}
