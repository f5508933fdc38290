package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	"gdsync/internal/gdsync"
	"gdsync/internal/index/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const sqlitePragmas = `
PRAGMA journal_mode=WAL;
PRAGMA synchronous=FULL;
PRAGMA busy_timeout=5000;
`

// recordRow is a sync_records row; timestamps are stored as TEXT.
type recordRow struct {
	LocalPath          string `db:"local_path"`
	RemoteID           string `db:"remote_id"`
	LastSyncedModified string `db:"last_synced_modified"`
}

type runRow struct {
	ID         int64          `db:"id"`
	Operation  string         `db:"operation"`
	Parameters string         `db:"parameters"`
	Status     string         `db:"status"`
	StartedAt  string         `db:"started_at"`
	FinishedAt sql.NullString `db:"finished_at"`
	Created    int            `db:"created"`
	Updated    int            `db:"updated"`
	Fetched    int            `db:"fetched"`
	Skipped    int            `db:"skipped"`
	Failed     int            `db:"failed"`
}

// SQLiteIndex implements gdsync.Index and gdsync.RunLog on SQLite.
type SQLiteIndex struct {
	db   *sqlx.DB
	path string
}

// NewSQLiteIndex opens (creating if needed) the index at path and migrates its
// schema. path can be ":memory:" for an in-memory index.
func NewSQLiteIndex(path string) (*SQLiteIndex, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_txlock=immediate&mode=rwc", path)
	}

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	// One connection keeps writes serialized and an in-memory index intact.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqlitePragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}
	if err := migrations.MigrateUp(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating index: %w", err)
	}
	if err := migrations.CheckStatus(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("index schema out of date: %w", err)
	}

	return &SQLiteIndex{db: db, path: path}, nil
}

// Path returns the file the index was opened from.
func (s *SQLiteIndex) Path() string {
	return s.path
}

func (s *SQLiteIndex) LookupByLocalPath(localPath string) (*gdsync.SyncRecord, error) {
	return s.lookup("SELECT local_path, remote_id, last_synced_modified FROM sync_records WHERE local_path = ?", localPath)
}

func (s *SQLiteIndex) LookupByRemoteID(remoteID string) (*gdsync.SyncRecord, error) {
	return s.lookup("SELECT local_path, remote_id, last_synced_modified FROM sync_records WHERE remote_id = ?", remoteID)
}

func (s *SQLiteIndex) lookup(query, arg string) (*gdsync.SyncRecord, error) {
	var row recordRow
	if err := s.db.Get(&row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying sync record %s: %w", arg, err)
	}
	return row.toRecord()
}

// Upsert replaces the record for rec.LocalPath and drops any other record
// mapped to the same remote id, in one transaction.
func (s *SQLiteIndex) Upsert(rec gdsync.SyncRecord) error {
	row := recordRow{
		LocalPath:          rec.LocalPath,
		RemoteID:           rec.RemoteID,
		LastSyncedModified: gdsync.FormatTime(rec.LastSyncedModified),
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM sync_records WHERE remote_id = ? AND local_path <> ?", row.RemoteID, row.LocalPath); err != nil {
		return fmt.Errorf("removing stale mappings for %s: %w", row.RemoteID, err)
	}

	query := `INSERT INTO sync_records (local_path, remote_id, last_synced_modified)
	          VALUES (:local_path, :remote_id, :last_synced_modified)
	          ON CONFLICT(local_path) DO UPDATE SET
	              remote_id = excluded.remote_id,
	              last_synced_modified = excluded.last_synced_modified`
	if _, err := tx.NamedExec(query, row); err != nil {
		return fmt.Errorf("upserting sync record %s: %w", row.LocalPath, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sync record %s: %w", row.LocalPath, err)
	}
	return nil
}

func (s *SQLiteIndex) List() ([]*gdsync.SyncRecord, error) {
	var rows []recordRow
	if err := s.db.Select(&rows, "SELECT local_path, remote_id, last_synced_modified FROM sync_records ORDER BY local_path"); err != nil {
		return nil, fmt.Errorf("listing sync records: %w", err)
	}

	records := make([]*gdsync.SyncRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *SQLiteIndex) StartRun(operation, parameters string, startedAt time.Time) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO sync_runs (operation, parameters, status, started_at) VALUES (?, ?, ?, ?)",
		operation, parameters, "running", gdsync.FormatTime(startedAt))
	if err != nil {
		return 0, fmt.Errorf("recording run: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteIndex) FinishRun(id int64, status string, counts gdsync.Counts, finishedAt time.Time) error {
	res, err := s.db.Exec(
		`UPDATE sync_runs SET status = ?, finished_at = ?, created = ?, updated = ?, fetched = ?, skipped = ?, failed = ?
		 WHERE id = ?`,
		status, gdsync.FormatTime(finishedAt),
		counts.Created, counts.Updated, counts.Fetched, counts.Skipped, counts.Failed, id)
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("run %d: %w", id, gdsync.ErrNotFound)
	}
	return nil
}

func (s *SQLiteIndex) ListRuns(limit int) ([]*gdsync.Run, error) {
	var rows []runRow
	if err := s.db.Select(&rows, "SELECT * FROM sync_runs ORDER BY id DESC LIMIT ?", limit); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	runs := make([]*gdsync.Run, 0, len(rows))
	for _, row := range rows {
		run, err := row.toRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func (r recordRow) toRecord() (*gdsync.SyncRecord, error) {
	modified, err := gdsync.ParseTime(r.LastSyncedModified)
	if err != nil {
		return nil, fmt.Errorf("parsing stored timestamp for %s: %w", r.LocalPath, err)
	}
	return &gdsync.SyncRecord{
		LocalPath:          r.LocalPath,
		RemoteID:           r.RemoteID,
		LastSyncedModified: modified,
	}, nil
}

func (r runRow) toRun() (*gdsync.Run, error) {
	started, err := gdsync.ParseTime(r.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing start time of run %d: %w", r.ID, err)
	}
	run := &gdsync.Run{
		ID:         r.ID,
		Operation:  r.Operation,
		Parameters: r.Parameters,
		Status:     r.Status,
		StartedAt:  started,
		Counts: gdsync.Counts{
			Created: r.Created,
			Updated: r.Updated,
			Fetched: r.Fetched,
			Skipped: r.Skipped,
			Failed:  r.Failed,
		},
	}
	if r.FinishedAt.Valid {
		finished, err := gdsync.ParseTime(r.FinishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing finish time of run %d: %w", r.ID, err)
		}
		run.FinishedAt = &finished
	}
	return run, nil
}

var (
	_ gdsync.Index  = (*SQLiteIndex)(nil)
	_ gdsync.RunLog = (*SQLiteIndex)(nil)
)
