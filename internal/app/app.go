package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gdsync/internal/config"
	"gdsync/internal/encryption"
	"gdsync/internal/fs"
	"gdsync/internal/gdsync"
	"gdsync/internal/index"
	"gdsync/internal/remote"
)

// SyncParams are the per-invocation inputs of a sync, normally taken from
// command line flags.
type SyncParams struct {
	Folder         string // falls back to [sync] folder
	RemoteFolderID string // falls back to [sync] remote_folder_id
	PullOnly       bool
	NoIndex        bool
	Verbose        bool

	// Passphrase is called only when encryption is enabled.
	Passphrase func() (string, error)

	Console  io.Writer // console log output; os.Stderr when nil
	Progress gdsync.ProgressObserver
	Reporter gdsync.Reporter
}

// GDApp is the application layer between the CLI and the sync engine.
// It constructs all dependencies from config for a single invocation and
// records the run in the index on Close.
type GDApp struct {
	cfg     *config.Config
	opts    gdsync.Options
	store   index.Store // nil with --no-index
	remote  gdsync.Remote
	engine  *gdsync.Engine
	op      *SyncOperation
	clock   gdsync.Clock
	logger  *slog.Logger
	logFile *os.File
}

// NewGDApp creates a fully wired GDApp from the given config. Every fatal
// configuration problem is reported here, before any transfer happens.
// The caller must call Close when done.
func NewGDApp(ctx context.Context, cfg *config.Config, params SyncParams) (*GDApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opts, err := ResolveOptions(cfg, params.Folder, params.RemoteFolderID)
	if err != nil {
		return nil, err
	}
	opts.PullOnly = params.PullOnly

	level, err := parseLevel(cfg.Log.Level, params.Verbose)
	if err != nil {
		return nil, err
	}
	console := params.Console
	if console == nil {
		console = os.Stderr
	}
	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.Log.Dir, opID, level, console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := &GDApp{
		cfg:     cfg,
		opts:    opts,
		op:      NewSyncOperation("sync", opts),
		clock:   gdsync.RealClock{},
		logger:  logger,
		logFile: logFile,
	}
	if err := a.wire(ctx, params); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *GDApp) wire(ctx context.Context, params SyncParams) error {
	var idx gdsync.Index = gdsync.NopIndex{}
	if !params.NoIndex {
		store, err := index.NewIndexFromConfig(a.cfg.Index, a.opts.LocalRoot, a.opts.RemoteFolderID)
		if err != nil {
			return fmt.Errorf("opening index: %w", err)
		}
		a.store = store
		idx = store
	}

	r, err := remote.NewRemoteFromConfig(ctx, a.cfg.Remote)
	if err != nil {
		return fmt.Errorf("creating remote: %w", err)
	}
	a.remote = r

	codec, err := newCodec(a.cfg.Encryption, params.Passphrase)
	if err != nil {
		return err
	}

	fsmgr := fs.NewOSFilesystemManager()
	logger := &slogAdapter{l: a.logger}
	exec := gdsync.NewExecutor(r, fsmgr, a.opts.RemoteFolderID, codec, params.Progress, logger)
	engine, err := gdsync.NewEngine(a.opts, idx, exec, fsmgr, logger)
	if err != nil {
		return err
	}
	if params.Reporter != nil {
		engine.SetReporter(params.Reporter)
	}
	a.engine = engine
	return nil
}

// newCodec builds the content codec for the encryption config, or nil when
// content is transferred as-is.
func newCodec(cfg config.EncryptionConfig, passphrase func() (string, error)) (gdsync.Codec, error) {
	enc, err := encryption.NewEncryptorFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if enc == nil {
		return nil, nil
	}

	var pass string
	if passphrase != nil {
		if pass, err = passphrase(); err != nil {
			return nil, err
		}
	}
	return encryption.NewCodec(enc, pass)
}

// Options returns the resolved sync options.
func (a *GDApp) Options() gdsync.Options {
	return a.opts
}

// recordStart persists the operation in the run log. It is a no-op without
// an index.
func (a *GDApp) recordStart() error {
	if a.store == nil || a.op.Persisted() {
		return nil
	}
	id, err := a.store.StartRun(a.op.Operation, a.op.Parameters, a.clock.Now())
	if err != nil {
		return fmt.Errorf("recording sync run: %w", err)
	}
	a.op.ID = id
	return nil
}

// Sync runs both reconciliation passes. Per-file failures are reported in the
// summary and do not fail the run.
func (a *GDApp) Sync(ctx context.Context) (*gdsync.Summary, error) {
	if err := a.recordStart(); err != nil {
		return nil, err
	}

	a.logger.Info("sync started", "folder", a.opts.LocalRoot, "remote_folder_id", a.opts.RemoteFolderID,
		"pull_only", a.opts.PullOnly, "index", a.store != nil)

	summary, err := a.engine.Run(ctx)
	a.op.Counts = summary.Counts
	if err != nil {
		a.op.Status = StatusError
		a.logger.Error("sync aborted", "error", err)
		return summary, err
	}
	return summary, nil
}

// Close finalizes the run record and closes all resources.
func (a *GDApp) Close() error {
	var firstErr error

	if a.store != nil {
		if a.op.Persisted() {
			if err := a.store.FinishRun(a.op.ID, a.op.Status, a.op.Counts, a.clock.Now()); err != nil {
				firstErr = fmt.Errorf("finishing sync run: %w", err)
			}
		}
		if err := a.store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing index: %w", err)
		}
		a.store = nil
	}

	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}

	return firstErr
}

// ResolveOptions fills folder and remote folder id from the [sync] defaults
// when they are empty and makes the folder absolute.
func ResolveOptions(cfg *config.Config, folder, remoteFolderID string) (gdsync.Options, error) {
	if folder == "" {
		folder = cfg.Sync.Folder
	}
	if remoteFolderID == "" {
		remoteFolderID = cfg.Sync.RemoteFolderID
	}
	if folder == "" {
		return gdsync.Options{}, gdsync.ErrMissingLocalFolder
	}
	if remoteFolderID == "" {
		return gdsync.Options{}, gdsync.ErrMissingRemoteFolder
	}

	abs, err := filepath.Abs(folder)
	if err != nil {
		return gdsync.Options{}, fmt.Errorf("resolving folder: %w", err)
	}
	return gdsync.Options{LocalRoot: abs, RemoteFolderID: remoteFolderID}, nil
}

// openStore opens the index for a folder pair outside of a sync.
func openStore(cfg *config.Config, folder, remoteFolderID string) (index.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	opts, err := ResolveOptions(cfg, folder, remoteFolderID)
	if err != nil {
		return nil, err
	}
	store, err := index.NewIndexFromConfig(cfg.Index, opts.LocalRoot, opts.RemoteFolderID)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	return store, nil
}

// ListRecords returns the sync records of a folder pair, ordered by path.
func ListRecords(cfg *config.Config, folder, remoteFolderID string) ([]*gdsync.SyncRecord, error) {
	store, err := openStore(cfg, folder, remoteFolderID)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.List()
}

// ListRuns returns the most recent sync runs of a folder pair, newest first.
func ListRuns(cfg *config.Config, folder, remoteFolderID string, limit int) ([]*gdsync.Run, error) {
	store, err := openStore(cfg, folder, remoteFolderID)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.ListRuns(limit)
}

// Keygen generates the encryption key pair for the configured encryptor.
func Keygen(cfg *config.Config, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	if enc == nil {
		return fmt.Errorf("encryption is disabled; set [encryption] type = \"age\" first")
	}
	if err := enc.Setup(passphrase); err != nil {
		return fmt.Errorf("generating keys: %w", err)
	}
	return nil
}
