package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of FormatStore and Registry for
// tests. It records call counts so tests can assert lookup behavior (e.g.
// that negative caching prevents a second batched read).
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	pages  map[string]int64            // "ns\x00name" -> id
	names  map[int64][2]string         // id -> (ns, name)
	props  map[int64]map[string]string // id -> prop -> value
	calls  MemoryCalls
}

// MemoryCalls tracks method invocations for test verification.
type MemoryCalls struct {
	BatchRead int
	Write     int
	DeleteAll int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pages: make(map[string]int64),
		names: make(map[int64][2]string),
		props: make(map[int64]map[string]string),
	}
}

func pageKey(namespace, name string) string { return namespace + "\x00" + name }

// EnsurePage implements Registry.
func (m *MemoryStore) EnsurePage(_ context.Context, namespace, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pageKey(namespace, name)
	if id, ok := m.pages[key]; ok {
		return id, nil
	}
	m.nextID++
	m.pages[key] = m.nextID
	m.names[m.nextID] = [2]string{namespace, name}
	return m.nextID, nil
}

// ArticleID implements title.PageIndex.
func (m *MemoryStore) ArticleID(namespace, name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pages[pageKey(namespace, name)], nil
}

// AllPages implements Registry.
func (m *MemoryStore) AllPages(_ context.Context) ([]Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pages := make([]Page, 0, len(m.names))
	for id, nn := range m.names {
		pages = append(pages, Page{ID: id, Namespace: nn[0], Name: nn[1]})
	}
	return pages, nil
}

// BatchRead implements FormatStore.
func (m *MemoryStore) BatchRead(_ context.Context, pageIDs []int64, props []string) ([]PropRow, error) {
	m.mu.Lock()
	m.calls.BatchRead++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []PropRow
	for _, id := range pageIDs {
		byProp, ok := m.props[id]
		if !ok {
			continue
		}
		for _, p := range props {
			if v, ok := byProp[p]; ok {
				out = append(out, PropRow{PageID: id, Prop: p, Value: v})
			}
		}
	}
	return out, nil
}

// Write implements FormatStore.
func (m *MemoryStore) Write(_ context.Context, pageID int64, prop, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Write++

	if value == "" {
		delete(m.props[pageID], prop)
		return nil
	}
	if m.props[pageID] == nil {
		m.props[pageID] = make(map[string]string)
	}
	m.props[pageID][prop] = value
	return nil
}

// DeleteAll implements FormatStore.
func (m *MemoryStore) DeleteAll(_ context.Context, pageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.DeleteAll++

	delete(m.props, pageID)
	if nn, ok := m.names[pageID]; ok {
		delete(m.pages, pageKey(nn[0], nn[1]))
		delete(m.names, pageID)
	}
	return nil
}

// Calls returns a snapshot of recorded call counts.
func (m *MemoryStore) Calls() MemoryCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}
