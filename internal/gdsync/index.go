package gdsync

import "time"

// Index is the persistent sync index. Every write must be durable before the
// method returns: a crash between a transfer and its Upsert has to leave the
// file looking unsynced, never synced.
type Index interface {
	// LookupByLocalPath returns the record for a relative local path,
	// or nil if the path has never been synced.
	LookupByLocalPath(localPath string) (*SyncRecord, error)

	// LookupByRemoteID returns the record mapped to a remote object id,
	// or nil if no local file is mapped to it.
	LookupByRemoteID(remoteID string) (*SyncRecord, error)

	// Upsert creates or replaces the record keyed by rec.LocalPath.
	// Any other record pointing at rec.RemoteID is removed.
	Upsert(rec SyncRecord) error

	// List returns all records ordered by local path.
	List() ([]*SyncRecord, error)

	// Close releases the underlying storage.
	Close() error
}

// Run is one recorded invocation of the sync command.
type Run struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string // "running", "success" or "error"
	StartedAt  time.Time
	FinishedAt *time.Time
	Counts     Counts
}

// RunLog records invocation history alongside the index.
type RunLog interface {
	// StartRun records a new run and returns its id.
	StartRun(operation, parameters string, startedAt time.Time) (int64, error)

	// FinishRun marks a run as finished with its final status and counts.
	FinishRun(id int64, status string, counts Counts, finishedAt time.Time) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*Run, error)
}

// NopIndex never finds a record and discards every write. It backs the
// --no-index mode, where every file is treated as new on every run.
type NopIndex struct{}

func (NopIndex) LookupByLocalPath(string) (*SyncRecord, error) { return nil, nil }
func (NopIndex) LookupByRemoteID(string) (*SyncRecord, error)  { return nil, nil }
func (NopIndex) Upsert(SyncRecord) error                        { return nil }
func (NopIndex) List() ([]*SyncRecord, error)                   { return nil, nil }
func (NopIndex) Close() error                                   { return nil }

var _ Index = NopIndex{}
