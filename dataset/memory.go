package dataset

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps dataset records in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	datasets map[string]Dataset
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{datasets: make(map[string]Dataset)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ds, ok := m.datasets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &ds, nil
}

func (m *MemoryStore) Create(_ context.Context, ds *Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.datasets[ds.ID]; exists {
		return fmt.Errorf("dataset %s already exists", ds.ID)
	}
	m.datasets[ds.ID] = *ds
	return nil
}

// List returns every dataset, most recently uploaded first.
func (m *MemoryStore) List(_ context.Context) ([]*Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Dataset, 0, len(m.datasets))
	for _, ds := range m.datasets {
		ds := ds
		out = append(out, &ds)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

func (m *MemoryStore) UpdateTransformations(_ context.Context, id, transformations string) error {
	return m.update(id, func(ds *Dataset) { ds.Transformations = transformations })
}

func (m *MemoryStore) UpdateMeasures(_ context.Context, id, measures string) error {
	return m.update(id, func(ds *Dataset) { ds.Measures = measures })
}

func (m *MemoryStore) update(id string, apply func(*Dataset)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ds, ok := m.datasets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	apply(&ds)
	m.datasets[id] = ds
	return nil
}
