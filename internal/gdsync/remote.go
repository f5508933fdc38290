package gdsync

import (
	"context"
	"io"
	"time"
)

// Remote is the capability interface of the cloud object store. The engine
// never authenticates; it receives an already authorized Remote.
//
// Implementations stream content through io.Reader/io.Writer so large files
// are never held in memory.
type Remote interface {
	// ListChildren returns the non-trashed files and folders whose parent is
	// folderID. Order is unspecified.
	ListChildren(ctx context.Context, folderID string) ([]*RemoteNode, error)

	// CreateFile uploads a new file under parentID and returns its id.
	// modTime becomes the object's modified time.
	CreateFile(ctx context.Context, parentID, name, contentType string, r io.Reader, modTime time.Time) (string, error)

	// UpdateFileContent replaces the content of an existing file, keeping its id.
	UpdateFileContent(ctx context.Context, id string, r io.Reader, modTime time.Time) error

	// DownloadFile writes the content of a file to w.
	DownloadFile(ctx context.Context, id string, w io.Writer) error

	// FindFolder looks up a folder by exact name under parentID.
	FindFolder(ctx context.Context, name, parentID string) (id string, found bool, err error)

	// CreateFolder creates a folder under parentID and returns its id.
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
}
