package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"gdsync/internal/config"
	"gdsync/internal/gdsync"
)

// ErrIndexLocked is returned when another process holds the index.
var ErrIndexLocked = errors.New("index is locked by another gdsync process")

// Store is an index that also keeps run history.
type Store interface {
	gdsync.Index
	gdsync.RunLog
}

// Key derives the stable name of the index that tracks localRoot against
// remoteFolderID. Each pair gets its own index.
func Key(localRoot, remoteFolderID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(localRoot+"\x00"+remoteFolderID)).String()
}

// PathFor returns the index file for a (local root, remote folder) pair, or
// "" for the in-memory index.
func PathFor(cfg config.IndexConfig, localRoot, remoteFolderID string) (string, error) {
	key := Key(localRoot, remoteFolderID)
	switch cfg.Type {
	case "sqlite":
		return filepath.Join(cfg.DataDir, key+".db"), nil
	case "bolt":
		return filepath.Join(cfg.DataDir, key+".bolt"), nil
	case "memory":
		return "", nil
	default:
		return "", fmt.Errorf("unknown index type: %s", cfg.Type)
	}
}

// NewIndexFromConfig opens the index for localRoot and remoteFolderID based on
// the index config type. File-backed indexes are guarded by an advisory lock
// that is released by Close.
func NewIndexFromConfig(cfg config.IndexConfig, localRoot, remoteFolderID string) (Store, error) {
	if cfg.Type == "memory" {
		return NewSQLiteIndex(":memory:")
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir required for %s index", cfg.Type)
	}

	path, err := PathFor(cfg, localRoot, remoteFolderID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock index: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, ErrIndexLocked)
	}

	var store Store
	switch cfg.Type {
	case "sqlite":
		store, err = NewSQLiteIndex(path)
	case "bolt":
		store, err = NewBoltIndex(path)
	}
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	return &lockedStore{Store: store, lock: lock}, nil
}

// lockedStore releases the advisory lock after closing the index.
type lockedStore struct {
	Store
	lock *flock.Flock
}

func (s *lockedStore) Close() error {
	err := s.Store.Close()
	if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
		err = fmt.Errorf("failed to unlock index: %w", unlockErr)
	}
	return err
}
