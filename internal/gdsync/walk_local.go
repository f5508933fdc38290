package gdsync

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path/filepath"
)

// errStopWalk unwinds a filesystem walk once the consumer stops iterating.
var errStopWalk = errors.New("walk stopped")

// LocalWalker enumerates the regular files under a local sync root.
type LocalWalker struct {
	fsmgr FilesystemManager
}

// NewLocalWalker creates a LocalWalker over fsmgr.
func NewLocalWalker(fsmgr FilesystemManager) *LocalWalker {
	return &LocalWalker{fsmgr: fsmgr}
}

// Walk returns a lazy sequence of every regular file under root, in no
// particular order. The root is created if it does not exist. Unreadable
// entries are yielded as errors and the walk carries on.
//
// Hidden files are walked like any other. The one exception is the temp files
// Executor.Download writes before renaming into place, which the
// FilesystemManager never reports; a partial download must not be uploaded.
func (w *LocalWalker) Walk(root string) iter.Seq2[*LocalNode, error] {
	return func(yield func(*LocalNode, error) bool) {
		if err := w.fsmgr.MkdirAll(root); err != nil {
			yield(nil, &WalkError{Err: fmt.Errorf("creating sync root %s: %w", root, err)})
			return
		}

		err := w.fsmgr.WalkFiles(root, func(path string, info fs.FileInfo, err error) error {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			rel = filepath.ToSlash(rel)

			if err != nil {
				if !yield(nil, &WalkError{RelPath: rel, Err: err}) {
					return errStopWalk
				}
				return nil
			}

			node := &LocalNode{
				Path:         path,
				RelPath:      rel,
				ModifiedTime: CanonicalTime(info.ModTime()),
				Size:         info.Size(),
			}
			if !yield(node, nil) {
				return errStopWalk
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopWalk) {
			yield(nil, &WalkError{Err: fmt.Errorf("walking %s: %w", root, err)})
		}
	}
}

// WalkError is yielded by the walkers for an entry or subtree that could not
// be enumerated. RelPath is empty when the failure concerns the sync root.
type WalkError struct {
	RelPath string
	Err     error
}

func (e *WalkError) Error() string {
	if e.RelPath == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.RelPath, e.Err)
}

func (e *WalkError) Unwrap() error { return e.Err }
