// Package memory implements vector.Index in process memory with
// brute-force cosine search. It backs tests and the "memory" backend for
// running without a Milvus deployment.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/support-agent/backend/internal/vector"
)

type Index struct {
	mu          sync.RWMutex
	collections map[string]map[string]vector.Record
}

func NewIndex() *Index {
	return &Index{collections: make(map[string]map[string]vector.Record)}
}

func (m *Index) CreateOrGet(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		m.collections[name] = make(map[string]vector.Record)
	}
	return nil
}

func (m *Index) Upsert(_ context.Context, name string, records []vector.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("collection %q does not exist", name)
	}
	for _, rec := range records {
		coll[rec.ID] = rec
	}
	return nil
}

func (m *Index) Query(_ context.Context, name string, vec []float32, k int) ([]vector.QueryMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %q does not exist", name)
	}
	if k <= 0 {
		k = 5
	}

	matches := make([]vector.QueryMatch, 0, len(coll))
	for _, rec := range coll {
		// Vectors are L2-normalized, so cosine distance is 1 - dot.
		matches = append(matches, vector.QueryMatch{
			ID:       rec.ID,
			Text:     rec.Text,
			Metadata: rec.Metadata,
			Distance: 1 - dot(rec.Vector, vec),
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > k {
		matches = matches[:k]
	}

	return matches, nil
}

func (m *Index) GetByIDs(_ context.Context, name string, ids []string) ([]*vector.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %q does not exist", name)
	}

	out := make([]*vector.Record, len(ids))
	for i, id := range ids {
		if rec, ok := coll[id]; ok {
			r := rec
			out[i] = &r
		}
	}
	return out, nil
}

func (m *Index) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		return fmt.Errorf("collection %q does not exist", name)
	}
	delete(m.collections, name)
	return nil
}

func (m *Index) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Index) Count(_ context.Context, name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.collections[name]
	if !ok {
		return 0, fmt.Errorf("collection %q does not exist", name)
	}
	return int64(len(coll)), nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
