package testutil

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"gdsync/internal/gdsync"
	"gdsync/internal/remote"
)

// ErrInjected is the error returned by FaultyRemote for a configured fault.
var ErrInjected = errors.New("injected fault")

// NewTestRemote creates an in-memory remote with sequential ids ("r-1",
// "r-2", ...) and folder times taken from FixedClock.
func NewTestRemote() *remote.MemoryRemote {
	return remote.NewMemoryRemoteWith(FixedClock(), NewStubIDGenerator("r"))
}

// FaultyRemote wraps a Remote and fails selected calls. Faults are keyed by
// file or folder name for creates and by id for everything else.
type FaultyRemote struct {
	gdsync.Remote

	mu     sync.Mutex
	faults map[string]int // key -> remaining failures, -1 for always
}

var _ gdsync.Remote = (*FaultyRemote)(nil)

// NewFaultyRemote wraps r with no faults configured.
func NewFaultyRemote(r gdsync.Remote) *FaultyRemote {
	return &FaultyRemote{Remote: r, faults: map[string]int{}}
}

// FailAlways makes every call on key fail.
func (f *FaultyRemote) FailAlways(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[key] = -1
}

// FailOnce makes the next call on key fail.
func (f *FaultyRemote) FailOnce(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[key] = 1
}

// Heal removes all faults.
func (f *FaultyRemote) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = map[string]int{}
}

func (f *FaultyRemote) check(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.faults[key]
	if !ok {
		return nil
	}
	if n > 0 {
		if n == 1 {
			delete(f.faults, key)
		} else {
			f.faults[key] = n - 1
		}
	}
	return ErrInjected
}

func (f *FaultyRemote) ListChildren(ctx context.Context, folderID string) ([]*gdsync.RemoteNode, error) {
	if err := f.check(folderID); err != nil {
		return nil, err
	}
	return f.Remote.ListChildren(ctx, folderID)
}

func (f *FaultyRemote) CreateFile(ctx context.Context, parentID, name, contentType string, r io.Reader, modTime time.Time) (string, error) {
	if err := f.check(name); err != nil {
		return "", err
	}
	return f.Remote.CreateFile(ctx, parentID, name, contentType, r, modTime)
}

func (f *FaultyRemote) UpdateFileContent(ctx context.Context, id string, r io.Reader, modTime time.Time) error {
	if err := f.check(id); err != nil {
		return err
	}
	return f.Remote.UpdateFileContent(ctx, id, r, modTime)
}

func (f *FaultyRemote) DownloadFile(ctx context.Context, id string, w io.Writer) error {
	if err := f.check(id); err != nil {
		return err
	}
	return f.Remote.DownloadFile(ctx, id, w)
}

func (f *FaultyRemote) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	if err := f.check(name); err != nil {
		return "", err
	}
	return f.Remote.CreateFolder(ctx, name, parentID)
}
