package app

import (
	"fmt"

	"gdsync/internal/gdsync"
)

// Run statuses recorded in the index.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// SyncOperation tracks one sync invocation. Operations are created in memory
// with ID=0 and only get an ID once recorded in the run log; --no-index runs
// are never recorded.
type SyncOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string // "success" or "error"
	Counts     gdsync.Counts
}

// NewSyncOperation creates a new in-memory sync operation.
func NewSyncOperation(operation string, opts gdsync.Options) *SyncOperation {
	return &SyncOperation{
		Operation:  operation,
		Parameters: formatParameters(opts),
		Status:     StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the run log.
func (op *SyncOperation) Persisted() bool {
	return op.ID != 0
}

func formatParameters(opts gdsync.Options) string {
	return fmt.Sprintf("folder=%s remote_folder_id=%s pull_only=%t", opts.LocalRoot, opts.RemoteFolderID, opts.PullOnly)
}
