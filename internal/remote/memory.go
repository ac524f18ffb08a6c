package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory Client. It lets the sync and daemon tests exercise
// the whole reconciliation path without a network.
type Memory struct {
	mu      sync.Mutex
	nextID  int
	entries map[string]*memEntry
	err     error
	now     func() time.Time
}

type memEntry struct {
	file   File
	parent string
	data   []byte
}

// NewMemory returns an empty in-memory remote.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*memEntry),
		now:     time.Now,
	}
}

// SetError makes every subsequent call fail with err until cleared with
// SetError(nil). Lets tests drive the sync layer into its error state.
func (m *Memory) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Memory) EnsureFolder(_ context.Context, parentID, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	for id, e := range m.entries {
		if e.parent == parentID && e.file.Name == name && e.file.IsFolder() {
			return id, nil
		}
	}
	id := m.allocID()
	m.entries[id] = &memEntry{
		file:   File{ID: id, Name: name, MimeType: FolderMimeType, Modified: m.now()},
		parent: parentID,
	}
	return id, nil
}

func (m *Memory) FindFile(_ context.Context, folderID, name string) (*File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, e := range m.entries {
		if e.parent == folderID && e.file.Name == name && !e.file.IsFolder() {
			f := e.file
			return &f, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
}

func (m *Memory) ListFolder(_ context.Context, folderID string) ([]File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var files []File
	for _, e := range m.entries {
		if e.parent == folderID {
			files = append(files, e.file)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (m *Memory) Upload(_ context.Context, folderID, name, mimeType string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	id := m.allocID()
	m.entries[id] = &memEntry{
		file: File{
			ID:       id,
			Name:     name,
			MimeType: mimeType,
			Modified: m.now(),
			Size:     int64(len(data)),
		},
		parent: folderID,
		data:   append([]byte(nil), data...),
	}
	return id, nil
}

func (m *Memory) Update(_ context.Context, fileID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	e, ok := m.entries[fileID]
	if !ok {
		return fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	e.data = append([]byte(nil), data...)
	e.file.Size = int64(len(data))
	e.file.Modified = m.now()
	return nil
}

func (m *Memory) Download(_ context.Context, fileID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	e, ok := m.entries[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	return append([]byte(nil), e.data...), nil
}

func (m *Memory) Delete(_ context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.entries, fileID)
	return nil
}

// FileCount reports how many entries exist, folders included.
func (m *Memory) FileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) allocID() string {
	m.nextID++
	return fmt.Sprintf("mem-%04d", m.nextID)
}
