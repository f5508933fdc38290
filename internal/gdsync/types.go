package gdsync

import (
	"errors"
	"time"
)

// TimeLayout is the persisted form of synced timestamps. It is ISO-8601 with
// fixed millisecond precision so stored values sort lexically.
const TimeLayout = "2006-01-02T15:04:05.000Z"

var (
	// ErrNotFound is returned by remote backends when an object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNameCollision is reported for a remote node that shares its name
	// with a sibling chosen to occupy the local path.
	ErrNameCollision = errors.New("duplicate remote name")

	// ErrMissingLocalFolder is returned when no local sync folder was given.
	ErrMissingLocalFolder = errors.New("local folder is required")

	// ErrMissingRemoteFolder is returned when no remote folder id was given.
	ErrMissingRemoteFolder = errors.New("remote folder id is required")
)

// CanonicalTime normalizes a timestamp to the precision used for every
// comparison the engine makes: UTC, truncated to whole milliseconds.
func CanonicalTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// FormatTime renders t in TimeLayout after canonicalizing it.
func FormatTime(t time.Time) string {
	return CanonicalTime(t).Format(TimeLayout)
}

// ParseTime parses a value written by FormatTime.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return CanonicalTime(t), nil
}

// SyncRecord is the persisted state of one tracked file.
type SyncRecord struct {
	LocalPath          string    // slash-separated, relative to the sync root
	RemoteID           string    // opaque remote object id
	LastSyncedModified time.Time // source-side mtime at the last successful transfer
}

// NodeKind distinguishes files from folders in a remote listing.
type NodeKind int

const (
	KindFile NodeKind = iota
	KindFolder
)

func (k NodeKind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "file"
}

// RemoteNode describes one child of a remote folder. It only lives for the
// duration of a reconciliation pass.
type RemoteNode struct {
	ID           string
	Name         string
	Kind         NodeKind
	ModifiedTime time.Time
	Hash         string // empty when the backend does not expose one
	Size         int64  // -1 when unknown
}

// IsFolder reports whether the node is a folder.
func (n *RemoteNode) IsFolder() bool {
	return n.Kind == KindFolder
}

// LocalNode describes one regular file under the local sync root.
type LocalNode struct {
	Path         string // absolute
	RelPath      string // slash-separated, relative to the sync root
	ModifiedTime time.Time
	Size         int64
}
