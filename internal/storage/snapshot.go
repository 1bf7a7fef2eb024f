// Package storage persists forecast session tables so that sessions survive a
// restart. Trained models are not stored; they are retrained on demand.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/soltixdb/tabcast/internal/compression"
	"github.com/soltixdb/tabcast/internal/table"
)

const snapshotExt = ".snap"

// ErrSnapshotNotFound is returned when no snapshot exists for an id
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the persisted state of one session.
type Snapshot struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Target      string      `json:"target,omitempty"`
	Headers     []string    `json:"headers"`
	DatetimeKey string      `json:"datetime_key,omitempty"`
	Rows        []table.Row `json:"rows"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Table rebuilds the row table held by the snapshot.
func (s *Snapshot) Table() *table.Table {
	rows := s.Rows
	if rows == nil {
		rows = []table.Row{}
	}
	headers := s.Headers
	if headers == nil {
		headers = []string{}
	}
	return &table.Table{Rows: rows, Headers: headers, DatetimeKey: s.DatetimeKey}
}

// SnapshotStore saves and loads session snapshots.
type SnapshotStore interface {
	Save(s *Snapshot) error
	Load(id string) (*Snapshot, error)
	Delete(id string) error
	List() ([]*Snapshot, error)
}

// FileStore keeps one compressed JSON file per session under dir.
type FileStore struct {
	dir        string
	compressor compression.Compressor
	mu         sync.Mutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string, algo compression.Algorithm) (*FileStore, error) {
	compressor, err := compression.GetCompressor(algo)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir, compressor: compressor}, nil
}

// Dir returns the snapshot directory
func (fs *FileStore) Dir() string {
	return fs.dir
}

func (fs *FileStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid snapshot id: %q", id)
	}
	return filepath.Join(fs.dir, id+snapshotExt), nil
}

// Save writes the snapshot to a temp file, syncs it and renames it into place.
func (fs *FileStore) Save(s *Snapshot) error {
	path, err := fs.path(s.ID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", s.ID, err)
	}
	frame, err := compression.Encode(fs.compressor, data)
	if err != nil {
		return fmt.Errorf("failed to compress snapshot %s: %w", s.ID, err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	tmpPath := path + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(frame); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// Load reads one snapshot.
func (fs *FileStore) Load(id string) (*Snapshot, error) {
	path, err := fs.path(id)
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	frame, err := os.ReadFile(path)
	fs.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
		}
		return nil, err
	}
	return decodeSnapshot(frame)
}

func decodeSnapshot(frame []byte) (*Snapshot, error) {
	data, err := compression.Decode(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}

// Delete removes a snapshot.
func (fs *FileStore) Delete(id string) error {
	path, err := fs.path(id)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
		}
		return err
	}
	return nil
}

// List loads every snapshot, oldest first. Unreadable files are skipped and
// reported in the returned error alongside the snapshots that did load.
func (fs *FileStore) List() ([]*Snapshot, error) {
	fs.mu.Lock()
	entries, err := os.ReadDir(fs.dir)
	fs.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var (
		out  []*Snapshot
		errs []error
	)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != snapshotExt {
			continue
		}
		s, err := fs.Load(strings.TrimSuffix(e.Name(), snapshotExt))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
			continue
		}
		out = append(out, s)
	}

	sortSnapshots(out)
	return out, errors.Join(errs...)
}

// MemoryStore keeps snapshots in memory, for runs without persistence.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string][]byte)}
}

// Save stores an encoded copy so later mutation of s is not observed
func (ms *MemoryStore) Save(s *Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", s.ID, err)
	}
	ms.mu.Lock()
	ms.snapshots[s.ID] = data
	ms.mu.Unlock()
	return nil
}

func (ms *MemoryStore) Load(id string) (*Snapshot, error) {
	ms.mu.RLock()
	data, ok := ms.snapshots[id]
	ms.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (ms *MemoryStore) Delete(id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.snapshots[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	delete(ms.snapshots, id)
	return nil
}

func (ms *MemoryStore) List() ([]*Snapshot, error) {
	ms.mu.RLock()
	ids := make([]string, 0, len(ms.snapshots))
	for id := range ms.snapshots {
		ids = append(ids, id)
	}
	ms.mu.RUnlock()

	out := make([]*Snapshot, 0, len(ids))
	for _, id := range ids {
		s, err := ms.Load(id)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	sortSnapshots(out)
	return out, nil
}

func sortSnapshots(s []*Snapshot) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].CreatedAt.Equal(s[j].CreatedAt) {
			return s[i].ID < s[j].ID
		}
		return s[i].CreatedAt.Before(s[j].CreatedAt)
	})
}
