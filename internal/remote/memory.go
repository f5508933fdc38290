package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"gdsync/internal/gdsync"
)

// MemoryRootID is the id of the root folder of a MemoryRemote.
const MemoryRootID = "root"

type memoryObject struct {
	id       string
	name     string
	parentID string
	folder   bool
	trashed  bool
	modified time.Time
	content  []byte
}

// MemoryStats counts the calls that changed or read remote content.
type MemoryStats struct {
	FilesCreated   int
	FilesUpdated   int
	Downloads      int
	FoldersCreated int
	Listings       int
}

// MemoryRemote is an in-process implementation of gdsync.Remote. Like Drive,
// it allows several children with the same name and keeps trashed objects.
// It is safe for concurrent use.
type MemoryRemote struct {
	mu      sync.RWMutex
	objects map[string]*memoryObject
	stats   MemoryStats
	clock   gdsync.Clock
	ids     gdsync.IDGenerator
}

// NewMemoryRemote creates an empty remote with a single root folder.
func NewMemoryRemote() *MemoryRemote {
	return NewMemoryRemoteWith(gdsync.RealClock{}, gdsync.UUIDGenerator{})
}

// NewMemoryRemoteWith creates an empty remote that stamps folders with clock
// and names new objects with ids.
func NewMemoryRemoteWith(clock gdsync.Clock, ids gdsync.IDGenerator) *MemoryRemote {
	return &MemoryRemote{
		objects: map[string]*memoryObject{
			MemoryRootID: {id: MemoryRootID, name: "", folder: true},
		},
		clock: clock,
		ids:   ids,
	}
}

// RootID returns the id of the root folder.
func (m *MemoryRemote) RootID() string {
	return MemoryRootID
}

func (m *MemoryRemote) ListChildren(ctx context.Context, folderID string) ([]*gdsync.RemoteNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.folderLocked(folderID); err != nil {
		return nil, err
	}
	m.stats.Listings++

	var nodes []*gdsync.RemoteNode
	for _, obj := range m.objects {
		if obj.parentID != folderID || obj.trashed || obj.id == MemoryRootID {
			continue
		}
		nodes = append(nodes, obj.node())
	}
	return nodes, nil
}

func (m *MemoryRemote) CreateFile(ctx context.Context, parentID, name, contentType string, r io.Reader, modTime time.Time) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.folderLocked(parentID); err != nil {
		return "", err
	}

	id := m.ids.New()
	m.objects[id] = &memoryObject{
		id:       id,
		name:     name,
		parentID: parentID,
		modified: modTime,
		content:  data,
	}
	m.stats.FilesCreated++
	return id, nil
}

func (m *MemoryRemote) UpdateFileContent(ctx context.Context, id string, r io.Reader, modTime time.Time) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	obj, err := m.fileLocked(id)
	if err != nil {
		return err
	}
	obj.content = data
	obj.modified = modTime
	m.stats.FilesUpdated++
	return nil
}

func (m *MemoryRemote) DownloadFile(ctx context.Context, id string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	obj, err := m.fileLocked(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	data := obj.content
	m.stats.Downloads++
	m.mu.Unlock()

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

func (m *MemoryRemote) FindFolder(ctx context.Context, name, parentID string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, obj := range m.objects {
		if obj.folder && !obj.trashed && obj.parentID == parentID && obj.name == name && obj.id != MemoryRootID {
			return obj.id, true, nil
		}
	}
	return "", false, nil
}

func (m *MemoryRemote) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.folderLocked(parentID); err != nil {
		return "", err
	}

	id := m.ids.New()
	m.objects[id] = &memoryObject{
		id:       id,
		name:     name,
		parentID: parentID,
		folder:   true,
		modified: m.clock.Now(),
	}
	m.stats.FoldersCreated++
	return id, nil
}

// AddFile places a file on the remote without counting it as an upload.
func (m *MemoryRemote) AddFile(parentID, name string, content []byte, modTime time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.ids.New()
	m.objects[id] = &memoryObject{id: id, name: name, parentID: parentID, modified: modTime, content: content}
	return id
}

// AddFolder places a folder on the remote without counting it as a creation.
func (m *MemoryRemote) AddFolder(parentID, name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.ids.New()
	m.objects[id] = &memoryObject{id: id, name: name, parentID: parentID, folder: true, modified: m.clock.Now()}
	return id
}

// Trash marks an object as trashed; it disappears from listings and lookups.
func (m *MemoryRemote) Trash(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if obj, ok := m.objects[id]; ok {
		obj.trashed = true
	}
}

// File returns the content and modified time of a file.
func (m *MemoryRemote) File(id string) ([]byte, time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[id]
	if !ok || obj.folder {
		return nil, time.Time{}, false
	}
	return obj.content, obj.modified, true
}

// Touch changes the modified time of an object, simulating an edit made
// elsewhere.
func (m *MemoryRemote) Touch(id string, content []byte, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if obj, ok := m.objects[id]; ok {
		obj.content = content
		obj.modified = modTime
	}
}

// Find returns the id of the non-trashed child called name under parentID.
func (m *MemoryRemote) Find(parentID, name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, obj := range m.objects {
		if obj.parentID == parentID && obj.name == name && !obj.trashed && obj.id != MemoryRootID {
			return obj.id, true
		}
	}
	return "", false
}

// Stats returns the call counters.
func (m *MemoryRemote) Stats() MemoryStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// ResetStats zeroes the call counters.
func (m *MemoryRemote) ResetStats() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = MemoryStats{}
}

func (m *MemoryRemote) folderLocked(id string) (*memoryObject, error) {
	obj, ok := m.objects[id]
	if !ok || obj.trashed {
		return nil, fmt.Errorf("folder %s: %w", id, gdsync.ErrNotFound)
	}
	if !obj.folder {
		return nil, fmt.Errorf("%s is not a folder", id)
	}
	return obj, nil
}

func (m *MemoryRemote) fileLocked(id string) (*memoryObject, error) {
	obj, ok := m.objects[id]
	if !ok || obj.trashed {
		return nil, fmt.Errorf("file %s: %w", id, gdsync.ErrNotFound)
	}
	if obj.folder {
		return nil, fmt.Errorf("%s is a folder", id)
	}
	return obj, nil
}

func (o *memoryObject) node() *gdsync.RemoteNode {
	n := &gdsync.RemoteNode{
		ID:           o.id,
		Name:         o.name,
		Kind:         gdsync.KindFile,
		ModifiedTime: o.modified,
		Size:         int64(len(o.content)),
	}
	if o.folder {
		n.Kind = gdsync.KindFolder
		n.Size = -1
	}
	return n
}

var _ gdsync.Remote = (*MemoryRemote)(nil)
