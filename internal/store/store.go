package store

import (
	"context"
	"errors"
	"sync"

	"github.com/kjstillabower/codex-platform-contract/internal/models"
)

// ErrUnavailable wraps backend failures (connection, timeout, corrupt entry).
var ErrUnavailable = errors.New("store unavailable")

// Store is the platform persistence used by the service double.
// Get and FindByName return (zero, false, nil) when nothing matches.
// Delete returns the removed record and false when the id was not present.
type Store interface {
	List(ctx context.Context) ([]models.Platform, error)
	Get(ctx context.Context, id string) (models.Platform, bool, error)
	FindByName(ctx context.Context, name string) (models.Platform, bool, error)
	Put(ctx context.Context, p models.Platform) error
	Delete(ctx context.Context, id string) (models.Platform, bool, error)
}

// InMemoryStore implements Store with a map and an insertion-ordered ID list.
// Safe for concurrent use.
type InMemoryStore struct {
	mu    sync.RWMutex
	data  map[string]models.Platform
	order []string
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		data: make(map[string]models.Platform),
	}
}

// List returns all platforms in insertion order.
func (s *InMemoryStore) List(ctx context.Context) ([]models.Platform, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Platform, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.data[id])
	}
	return out, nil
}

func (s *InMemoryStore) Get(ctx context.Context, id string) (models.Platform, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Platform{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[id]
	return p, ok, nil
}

// FindByName matches the name exactly.
func (s *InMemoryStore) FindByName(ctx context.Context, name string) (models.Platform, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Platform{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		if p := s.data[id]; p.Name == name {
			return p, true, nil
		}
	}
	return models.Platform{}, false, nil
}

// Put inserts or replaces the platform keyed by p.ID. Replacing keeps the original position.
func (s *InMemoryStore) Put(ctx context.Context, p models.Platform) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	s.data[p.ID] = p
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id string) (models.Platform, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Platform{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.data[id]
	if !ok {
		return models.Platform{}, false, nil
	}
	delete(s.data, id)
	s.order = removeID(s.order, id)
	return p, true, nil
}

// Len returns the number of stored platforms.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
