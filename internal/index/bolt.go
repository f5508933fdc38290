package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"gdsync/internal/gdsync"
)

const (
	boltDirPerm  = fs.FileMode(0o700)
	boltFilePerm = fs.FileMode(0o600)

	// boltOpenTimeout bounds the wait for bbolt's own file lock.
	boltOpenTimeout = 5 * time.Second
)

var (
	recordsBucket   = []byte("records")    // local_path -> boltRecord
	remoteIDsBucket = []byte("remote_ids") // remote_id -> local_path
	runsBucket      = []byte("runs")       // big-endian sequence -> boltRun
)

type boltRecord struct {
	RemoteID           string `json:"remote_id"`
	LastSyncedModified string `json:"last_synced_modified"`
}

type boltRun struct {
	Operation  string        `json:"operation"`
	Parameters string        `json:"parameters"`
	Status     string        `json:"status"`
	StartedAt  string        `json:"started_at"`
	FinishedAt string        `json:"finished_at,omitempty"`
	Counts     gdsync.Counts `json:"counts"`
}

// BoltIndex implements gdsync.Index and gdsync.RunLog on a bbolt file.
type BoltIndex struct {
	db *bolt.DB
}

// NewBoltIndex opens (creating if needed) the bbolt index at path.
func NewBoltIndex(path string) (*BoltIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), boltDirPerm); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := bolt.Open(path, boltFilePerm, &bolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening index db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{recordsBucket, remoteIDsBucket, runsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing index db: %w", err)
	}

	return &BoltIndex{db: db}, nil
}

// Path returns the file the index was opened from.
func (b *BoltIndex) Path() string {
	return b.db.Path()
}

func (b *BoltIndex) LookupByLocalPath(localPath string) (*gdsync.SyncRecord, error) {
	var rec *gdsync.SyncRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		var err error
		rec, err = getRecord(tx, localPath)
		return err
	})
	return rec, err
}

func (b *BoltIndex) LookupByRemoteID(remoteID string) (*gdsync.SyncRecord, error) {
	var rec *gdsync.SyncRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		localPath := tx.Bucket(remoteIDsBucket).Get([]byte(remoteID))
		if localPath == nil {
			return nil
		}
		var err error
		rec, err = getRecord(tx, string(localPath))
		return err
	})
	return rec, err
}

// Upsert writes rec in a single transaction, keeping the remote id bucket in
// step so that each remote id maps to exactly one local path.
func (b *BoltIndex) Upsert(rec gdsync.SyncRecord) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket(recordsBucket)
		remoteIDs := tx.Bucket(remoteIDsBucket)
		key := []byte(rec.LocalPath)

		old, err := getRecord(tx, rec.LocalPath)
		if err != nil {
			return err
		}
		if old != nil && old.RemoteID != rec.RemoteID {
			if string(remoteIDs.Get([]byte(old.RemoteID))) == rec.LocalPath {
				if err := remoteIDs.Delete([]byte(old.RemoteID)); err != nil {
					return err
				}
			}
		}

		if prev := remoteIDs.Get([]byte(rec.RemoteID)); prev != nil && string(prev) != rec.LocalPath {
			if err := records.Delete(prev); err != nil {
				return fmt.Errorf("removing stale mapping %s: %w", prev, err)
			}
		}

		data, err := json.Marshal(boltRecord{
			RemoteID:           rec.RemoteID,
			LastSyncedModified: gdsync.FormatTime(rec.LastSyncedModified),
		})
		if err != nil {
			return err
		}
		if err := records.Put(key, data); err != nil {
			return fmt.Errorf("writing sync record %s: %w", rec.LocalPath, err)
		}
		return remoteIDs.Put([]byte(rec.RemoteID), key)
	})
}

// List returns all records. bbolt keeps keys in byte order, which is the
// same ordering the SQLite index uses for local paths.
func (b *BoltIndex) List() ([]*gdsync.SyncRecord, error) {
	var records []*gdsync.SyncRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(k, v []byte) error {
			rec, err := decodeRecord(string(k), v)
			if err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing sync records: %w", err)
	}
	return records, nil
}

func (b *BoltIndex) StartRun(operation, parameters string, startedAt time.Time) (int64, error) {
	var id int64
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(runsBucket)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		id = int64(seq)
		return putRun(bucket, id, boltRun{
			Operation:  operation,
			Parameters: parameters,
			Status:     "running",
			StartedAt:  gdsync.FormatTime(startedAt),
		})
	})
	if err != nil {
		return 0, fmt.Errorf("recording run: %w", err)
	}
	return id, nil
}

func (b *BoltIndex) FinishRun(id int64, status string, counts gdsync.Counts, finishedAt time.Time) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(runsBucket)
		data := bucket.Get(runKey(id))
		if data == nil {
			return fmt.Errorf("run %d: %w", id, gdsync.ErrNotFound)
		}

		var run boltRun
		if err := json.Unmarshal(data, &run); err != nil {
			return fmt.Errorf("decoding run %d: %w", id, err)
		}
		run.Status = status
		run.Counts = counts
		run.FinishedAt = gdsync.FormatTime(finishedAt)
		return putRun(bucket, id, run)
	})
}

func (b *BoltIndex) ListRuns(limit int) ([]*gdsync.Run, error) {
	var runs []*gdsync.Run
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(runsBucket).Cursor()
		for k, v := c.Last(); k != nil && len(runs) < limit; k, v = c.Prev() {
			run, err := decodeRun(k, v)
			if err != nil {
				return err
			}
			runs = append(runs, run)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

func (b *BoltIndex) Close() error {
	return b.db.Close()
}

func getRecord(tx *bolt.Tx, localPath string) (*gdsync.SyncRecord, error) {
	data := tx.Bucket(recordsBucket).Get([]byte(localPath))
	if data == nil {
		return nil, nil
	}
	return decodeRecord(localPath, data)
}

func decodeRecord(localPath string, data []byte) (*gdsync.SyncRecord, error) {
	var r boltRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding sync record %s: %w", localPath, err)
	}
	modified, err := gdsync.ParseTime(r.LastSyncedModified)
	if err != nil {
		return nil, fmt.Errorf("parsing stored timestamp for %s: %w", localPath, err)
	}
	return &gdsync.SyncRecord{
		LocalPath:          localPath,
		RemoteID:           r.RemoteID,
		LastSyncedModified: modified,
	}, nil
}

func runKey(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

func putRun(bucket *bolt.Bucket, id int64, run boltRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return bucket.Put(runKey(id), data)
}

func decodeRun(key, data []byte) (*gdsync.Run, error) {
	id := int64(binary.BigEndian.Uint64(key))

	var r boltRun
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding run %d: %w", id, err)
	}
	started, err := gdsync.ParseTime(r.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing start time of run %d: %w", id, err)
	}

	run := &gdsync.Run{
		ID:         id,
		Operation:  r.Operation,
		Parameters: r.Parameters,
		Status:     r.Status,
		StartedAt:  started,
		Counts:     r.Counts,
	}
	if r.FinishedAt != "" {
		finished, err := gdsync.ParseTime(r.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing finish time of run %d: %w", id, err)
		}
		run.FinishedAt = &finished
	}
	return run, nil
}

var (
	_ gdsync.Index  = (*BoltIndex)(nil)
	_ gdsync.RunLog = (*BoltIndex)(nil)
)
