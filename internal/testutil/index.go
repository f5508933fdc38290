package testutil

import (
	"testing"

	"gdsync/internal/index"
)

// NewTestIndex creates an in-memory SQLite index with schema applied.
// The index is automatically closed when the test completes.
func NewTestIndex(t *testing.T) *index.SQLiteIndex {
	t.Helper()

	idx, err := index.NewSQLiteIndex(":memory:")
	if err != nil {
		t.Fatalf("failed to open index: %v", err)
	}

	t.Cleanup(func() {
		idx.Close()
	})

	return idx
}
