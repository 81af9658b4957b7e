package syncer

import (
	"context"
	"sync"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/remote"
)

// memBackend is an in-memory point backend.
type memBackend struct {
	mu      sync.Mutex
	ready   bool
	caps    remote.Capability
	records map[content.Collection]map[string]content.Document
	seq     []string
	readErr error
	putErr  error
	puts    int
	closed  bool
}

func newMemBackend() *memBackend {
	return &memBackend{
		ready:   true,
		caps:    remote.CapRead | remote.CapWrite | remote.CapDelete | remote.CapBatchRead | remote.CapVideos | remote.CapSettings,
		records: map[content.Collection]map[string]content.Document{},
	}
}

func (m *memBackend) Kind() content.BackendKind        { return content.BackendDocStore }
func (m *memBackend) Ready() bool                      { return m.ready }
func (m *memBackend) Capabilities() remote.Capability { return m.caps }

func (m *memBackend) GetAll(_ context.Context, c content.Collection) ([]content.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := []content.Document{}
	for _, key := range m.seq {
		if d, ok := m.records[c][key]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memBackend) GetOne(_ context.Context, c content.Collection, id string) (content.Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return content.Document{}, false, m.readErr
	}
	d, ok := m.records[c][string(c)+"/"+id]
	return d, ok, nil
}

func (m *memBackend) Put(_ context.Context, c content.Collection, d content.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	if m.records[c] == nil {
		m.records[c] = map[string]content.Document{}
	}
	key := string(c) + "/" + d.ID
	if _, ok := m.records[c][key]; !ok {
		m.seq = append(m.seq, key)
	}
	m.records[c][key] = d
	return nil
}

func (m *memBackend) Delete(_ context.Context, c content.Collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(c) + "/" + id
	delete(m.records[c], key)
	for i, k := range m.seq {
		if k == key {
			m.seq = append(m.seq[:i], m.seq[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memBackend) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memBackend) count(c content.Collection) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[c])
}

func (m *memBackend) get(c content.Collection, id string) (content.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.records[c][string(c)+"/"+id]
	return d, ok
}
