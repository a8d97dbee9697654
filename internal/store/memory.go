package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"confidentpicks/automation/internal/models"
)

// Memory is an in-process PickStore
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]*models.Pick
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]*models.Pick)}
}

// List returns copies of every pick in a collection ordered by id
func (m *Memory) List(_ context.Context, collection string) ([]*models.Pick, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := m.collections[collection]
	out := make([]*models.Pick, 0, len(docs))
	for _, p := range docs {
		out = append(out, clonePick(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Upsert merges picks into a collection. Grading fields already stored are
// kept when the incoming pick has none.
func (m *Memory) Upsert(_ context.Context, collection string, picks []*models.Pick) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.ensure(collection)
	for _, p := range picks {
		next := clonePick(p)
		if prev, ok := docs[p.ID]; ok {
			if next.Result == "" {
				next.Result = prev.Result
			}
			if next.ActualResult == nil && prev.ActualResult != nil {
				ar := *prev.ActualResult
				next.ActualResult = &ar
			}
			if next.ActualTotal == nil && prev.ActualTotal != nil {
				t := *prev.ActualTotal
				next.ActualTotal = &t
			}
			for k, v := range prev.Extra {
				if next.Extra == nil {
					next.Extra = make(map[string]interface{})
				}
				if _, set := next.Extra[k]; !set {
					next.Extra[k] = v
				}
			}
		}
		docs[p.ID] = next
	}
	return nil
}

// Move applies all moves or none
func (m *Memory) Move(_ context.Context, moves []Move) error {
	for _, mv := range moves {
		if err := mv.validate(); err != nil {
			return fmt.Errorf("failed to move pick: %w", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, mv := range moves {
		m.ensure(mv.To)[mv.Pick.ID] = clonePick(mv.Pick)
		delete(m.ensure(mv.From), mv.Pick.ID)
	}
	return nil
}

// Count returns the number of picks in a collection
func (m *Memory) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

// Get returns a copy of one pick
func (m *Memory) Get(collection, id string) (*models.Pick, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.collections[collection][id]
	if !ok {
		return nil, false
	}
	return clonePick(p), true
}

func (m *Memory) ensure(collection string) map[string]*models.Pick {
	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string]*models.Pick)
		m.collections[collection] = docs
	}
	return docs
}
