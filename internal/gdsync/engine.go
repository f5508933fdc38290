package gdsync

import (
	"context"
	"errors"
	"fmt"
	"path"
)

// Options selects what one invocation synchronizes.
type Options struct {
	LocalRoot      string // absolute path of the local sync root
	RemoteFolderID string // remote folder mirrored by LocalRoot
	PullOnly       bool   // skip the local to remote pass
}

// Engine reconciles a local directory tree with a remote folder. One Engine is
// built per invocation and processes files strictly one at a time, so the
// index sees a simple read-then-write sequence per file.
type Engine struct {
	opts     Options
	index    Index
	exec     *Executor
	fsmgr    FilesystemManager
	local    *LocalWalker
	remote   *RemoteWalker
	logger   Logger
	reporter Reporter
}

// NewEngine creates an Engine. It fails if opts lacks the local root or the
// remote folder id.
func NewEngine(opts Options, index Index, exec *Executor, fsmgr FilesystemManager, logger Logger) (*Engine, error) {
	if opts.LocalRoot == "" {
		return nil, ErrMissingLocalFolder
	}
	if opts.RemoteFolderID == "" {
		return nil, ErrMissingRemoteFolder
	}
	return &Engine{
		opts:   opts,
		index:  index,
		exec:   exec,
		fsmgr:  fsmgr,
		local:  NewLocalWalker(fsmgr),
		remote: NewRemoteWalker(exec.Remote(), fsmgr),
		logger: logger,
	}, nil
}

// SetReporter registers r to be told about every result as it happens.
func (e *Engine) SetReporter(r Reporter) {
	e.reporter = r
}

// Run performs the local to remote pass (unless PullOnly is set) followed by
// the remote to local pass. Per-file failures are part of the summary; only
// errors that prevent a pass from running at all are returned.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	if !e.opts.PullOnly {
		push, err := e.Push(ctx)
		summary.Merge(push)
		if err != nil {
			return summary, fmt.Errorf("local to remote pass: %w", err)
		}
	}

	pull, err := e.Pull(ctx)
	summary.Merge(pull)
	if err != nil {
		return summary, fmt.Errorf("remote to local pass: %w", err)
	}

	e.logger.Info("sync complete",
		"created", summary.Counts.Created,
		"updated", summary.Counts.Updated,
		"fetched", summary.Counts.Fetched,
		"skipped", summary.Counts.Skipped,
		"failed", summary.Counts.Failed)
	return summary, nil
}

// Push walks the local tree and uploads files that are new or modified since
// they were last synced.
func (e *Engine) Push(ctx context.Context) (*Summary, error) {
	summary := &Summary{}
	e.logger.Info("local to remote pass started", "root", e.opts.LocalRoot)

	for node, err := range e.local.Walk(e.opts.LocalRoot) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return summary, ctxErr
		}
		if err != nil {
			var werr *WalkError
			if errors.As(err, &werr) && werr.RelPath != "" {
				e.add(summary, Result{Direction: DirectionPush, Path: werr.RelPath, Action: ActionFailed, Err: werr.Err})
				continue
			}
			return summary, err
		}
		e.pushFile(ctx, summary, node)
	}

	return summary, nil
}

func (e *Engine) pushFile(ctx context.Context, summary *Summary, node *LocalNode) {
	res := Result{Direction: DirectionPush, Path: node.RelPath, Kind: KindFile}

	rec, err := e.index.LookupByLocalPath(node.RelPath)
	if err != nil {
		e.add(summary, failed(res, fmt.Errorf("looking up index: %w", err)))
		return
	}

	if rec == nil {
		parentID, err := e.exec.EnsureFolderPath(ctx, path.Dir(node.RelPath), func(relPath, id string, created bool) {
			action := ActionExists
			if created {
				action = ActionCreate
			}
			e.add(summary, Result{Direction: DirectionPush, Path: relPath, Kind: KindFolder, Action: action, RemoteID: id})
		})
		if err != nil {
			e.add(summary, failed(res, err))
			return
		}

		id, err := e.exec.Upload(ctx, node, parentID)
		if err != nil {
			e.add(summary, failed(res, err))
			return
		}
		res.RemoteID = id
		if err := e.index.Upsert(SyncRecord{LocalPath: node.RelPath, RemoteID: id, LastSyncedModified: node.ModifiedTime}); err != nil {
			e.add(summary, failed(res, fmt.Errorf("recording upload in index: %w", err)))
			return
		}
		res.Action = ActionCreate
		e.add(summary, res)
		return
	}

	res.RemoteID = rec.RemoteID
	if !node.ModifiedTime.After(rec.LastSyncedModified) {
		res.Action = ActionSkip
		e.add(summary, res)
		return
	}

	if err := e.exec.UpdateContent(ctx, rec.RemoteID, node); err != nil {
		e.add(summary, failed(res, err))
		return
	}
	if err := e.index.Upsert(SyncRecord{LocalPath: node.RelPath, RemoteID: rec.RemoteID, LastSyncedModified: node.ModifiedTime}); err != nil {
		e.add(summary, failed(res, fmt.Errorf("recording update in index: %w", err)))
		return
	}
	res.Action = ActionUpdate
	e.add(summary, res)
}

// Pull walks the remote tree, mirrors its folders locally and downloads files
// that are new or modified since they were last synced.
func (e *Engine) Pull(ctx context.Context) (*Summary, error) {
	summary := &Summary{}
	e.logger.Info("remote to local pass started", "folder_id", e.opts.RemoteFolderID)

	if err := e.fsmgr.MkdirAll(e.opts.LocalRoot); err != nil {
		return summary, fmt.Errorf("creating sync root %s: %w", e.opts.LocalRoot, err)
	}

	for entry, err := range e.remote.Walk(ctx, e.opts.RemoteFolderID, e.opts.LocalRoot) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return summary, ctxErr
		}
		if err != nil {
			e.add(summary, walkFailure(entry, err))
			continue
		}

		if entry.Node.IsFolder() {
			action := ActionExists
			if entry.Created {
				action = ActionCreate
			}
			e.add(summary, Result{Direction: DirectionPull, Path: entry.RelPath(), Kind: KindFolder, Action: action, RemoteID: entry.Node.ID})
			continue
		}
		e.pullFile(ctx, summary, entry)
	}

	return summary, nil
}

func (e *Engine) pullFile(ctx context.Context, summary *Summary, entry *RemoteEntry) {
	node := entry.Node
	rel := entry.RelPath()
	res := Result{Direction: DirectionPull, Path: rel, Kind: KindFile, RemoteID: node.ID}
	modified := CanonicalTime(node.ModifiedTime)

	rec, err := e.index.LookupByRemoteID(node.ID)
	if err != nil {
		e.add(summary, failed(res, fmt.Errorf("looking up index: %w", err)))
		return
	}
	if rec != nil && !modified.After(rec.LastSyncedModified) {
		res.Action = ActionSkip
		e.add(summary, res)
		return
	}

	if err := e.exec.Download(ctx, node, entry.LocalPath()); err != nil {
		e.add(summary, failed(res, err))
		return
	}
	if err := e.index.Upsert(SyncRecord{LocalPath: rel, RemoteID: node.ID, LastSyncedModified: modified}); err != nil {
		e.add(summary, failed(res, fmt.Errorf("recording download in index: %w", err)))
		return
	}
	res.Action = ActionFetch
	e.add(summary, res)
}

// add records, logs and reports a result.
func (e *Engine) add(summary *Summary, res Result) {
	summary.Add(res)

	switch res.Action {
	case ActionFailed:
		e.logger.Error("sync failed", "direction", res.Direction, "path", res.Path, "reason", res.Err)
	case ActionSkip, ActionExists:
		e.logger.Debug("sync "+res.Action.String(), "direction", res.Direction, "path", res.Path)
	default:
		e.logger.Info("sync "+res.Action.String(), "direction", res.Direction, "path", res.Path, "kind", res.Kind, "id", res.RemoteID)
	}

	if e.reporter != nil {
		e.reporter.Report(res)
	}
}

func failed(res Result, err error) Result {
	res.Action = ActionFailed
	res.Err = err
	return res
}

// walkFailure turns an error yielded by the remote walker into a result.
func walkFailure(entry *RemoteEntry, err error) Result {
	res := Result{Direction: DirectionPull, Kind: KindFolder, Action: ActionFailed, Err: err}

	var werr *WalkError
	if errors.As(err, &werr) {
		res.Path = werr.RelPath
		res.Err = werr.Err
	}
	if entry != nil {
		res.Path = entry.RelPath()
		res.Kind = entry.Node.Kind
		res.RemoteID = entry.Node.ID
	}
	if res.Path == "" {
		res.Path = "."
	}
	return res
}
