package gdsync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path"
	"path/filepath"
	"strings"
)

// RemoteEntry is one node produced by a remote walk, paired with the local
// directory it maps to.
type RemoteEntry struct {
	Node     *RemoteNode
	LocalDir string // absolute local directory holding the node
	RelDir   string // LocalDir relative to the sync root, slash-separated

	// Created is set for folders whose local directory did not exist and
	// was created by the walk.
	Created bool
}

// RelPath returns the node's path relative to the sync root.
func (e *RemoteEntry) RelPath() string {
	return path.Join(e.RelDir, e.Node.Name)
}

// LocalPath returns the node's absolute local path.
func (e *RemoteEntry) LocalPath() string {
	return filepath.Join(e.LocalDir, e.Node.Name)
}

// RemoteWalker recursively enumerates a remote folder, mirroring its folder
// structure into a local directory as it goes.
type RemoteWalker struct {
	remote Remote
	fsmgr  FilesystemManager
}

// NewRemoteWalker creates a RemoteWalker.
func NewRemoteWalker(remote Remote, fsmgr FilesystemManager) *RemoteWalker {
	return &RemoteWalker{remote: remote, fsmgr: fsmgr}
}

// Walk returns a lazy sequence of the files and folders under folderID.
// Each folder is yielded after its local directory exists and before its
// children. A folder that cannot be listed or mirrored is yielded as a
// *WalkError and its subtree is skipped; siblings are still walked.
func (w *RemoteWalker) Walk(ctx context.Context, folderID, localRoot string) iter.Seq2[*RemoteEntry, error] {
	return func(yield func(*RemoteEntry, error) bool) {
		w.walk(ctx, folderID, localRoot, "", yield)
	}
}

func (w *RemoteWalker) walk(ctx context.Context, folderID, localDir, relDir string, yield func(*RemoteEntry, error) bool) bool {
	children, err := w.remote.ListChildren(ctx, folderID)
	if err != nil {
		return yield(nil, &WalkError{RelPath: relDir, Err: fmt.Errorf("listing folder %s: %w", folderID, err)})
	}

	winners := nameWinners(children)

	for _, child := range children {
		entry := &RemoteEntry{Node: child, LocalDir: localDir, RelDir: relDir}

		if winner := winners[child.Name]; winner != child {
			err := fmt.Errorf("%w: %q already maps to remote id %s", ErrNameCollision, child.Name, winner.ID)
			if !yield(entry, &WalkError{RelPath: entry.RelPath(), Err: err}) {
				return false
			}
			continue
		}

		if err := validateName(child.Name); err != nil {
			rel := child.Name
			if relDir != "" {
				rel = relDir + "/" + child.Name
			}
			if !yield(nil, &WalkError{RelPath: rel, Err: err}) {
				return false
			}
			continue
		}

		if !child.IsFolder() {
			if !yield(entry, nil) {
				return false
			}
			continue
		}

		created, err := w.ensureLocalDir(entry.LocalPath())
		if err != nil {
			if !yield(entry, &WalkError{RelPath: entry.RelPath(), Err: err}) {
				return false
			}
			continue
		}
		entry.Created = created
		if !yield(entry, nil) {
			return false
		}

		if !w.walk(ctx, child.ID, entry.LocalPath(), entry.RelPath(), yield) {
			return false
		}
	}
	return true
}

// nameWinners picks, for each name in a listing, the one node that maps onto
// the local path. The most recently modified node wins and ties go to the
// smallest id, so the choice is stable across runs.
func nameWinners(children []*RemoteNode) map[string]*RemoteNode {
	winners := make(map[string]*RemoteNode, len(children))
	for _, child := range children {
		cur, ok := winners[child.Name]
		if !ok {
			winners[child.Name] = child
			continue
		}
		a, b := CanonicalTime(child.ModifiedTime), CanonicalTime(cur.ModifiedTime)
		if a.After(b) || (a.Equal(b) && child.ID < cur.ID) {
			winners[child.Name] = child
		}
	}
	return winners
}

// ensureLocalDir creates dir if needed and reports whether it did.
func (w *RemoteWalker) ensureLocalDir(dir string) (bool, error) {
	info, err := w.fsmgr.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("local path exists and is not a directory: %s", dir)
		}
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", dir, err)
	}
	if err := w.fsmgr.MkdirAll(dir); err != nil {
		return false, fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return true, nil
}

// validateName rejects remote names that cannot be mapped onto a single local
// path element.
func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("invalid remote name %q", name)
	case strings.ContainsRune(name, '/'), strings.ContainsRune(name, filepath.Separator):
		return fmt.Errorf("remote name %q contains a path separator", name)
	}
	return nil
}
