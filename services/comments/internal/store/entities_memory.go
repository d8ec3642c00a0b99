package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// InMemoryEntityStore is a development-only in-memory implementation.
type InMemoryEntityStore struct {
	mu       sync.RWMutex
	entities map[int64]Entity
	contents map[ContentKind]map[int64]Content
	nextID   int64
	nextCKey map[ContentKind]int64
}

func NewInMemoryEntityStore() *InMemoryEntityStore {
	s := &InMemoryEntityStore{
		entities: make(map[int64]Entity),
		contents: make(map[ContentKind]map[int64]Content),
		nextCKey: make(map[ContentKind]int64),
	}
	for _, k := range Kinds() {
		s.contents[k] = make(map[int64]Content)
	}
	return s
}

func (s *InMemoryEntityStore) Create(_ context.Context, kind ContentKind, in ContentInput) (Entity, error) {
	if !kind.Valid() {
		return Entity{}, fmt.Errorf("%w: unknown entity type %d", ErrValidation, kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.nextCKey[kind]++
	content := Content{ID: s.nextCKey[kind], Title: in.Title, Description: in.Description, CreatedAt: now}
	s.contents[kind][content.ID] = content

	s.nextID++
	e := Entity{ID: s.nextID, Kind: kind, ContentID: content.ID, CreatedAt: now}
	s.entities[e.ID] = e
	e.Content = content
	return e, nil
}

func (s *InMemoryEntityStore) Get(_ context.Context, id int64) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.resolve(id)
	if !ok {
		return Entity{}, fmt.Errorf("entity %d: %w", id, ErrNotFound)
	}
	return e, nil
}

func (s *InMemoryEntityStore) resolve(id int64) (Entity, bool) {
	e, ok := s.entities[id]
	if !ok {
		return Entity{}, false
	}
	c, ok := s.contents[e.Kind][e.ContentID]
	if !ok {
		return Entity{}, false
	}
	e.Content = c
	return e, true
}

func (s *InMemoryEntityStore) List(_ context.Context, f EntityFilter) ([]Entity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	backward := f.After == 0 && f.Before != 0
	var ids []int64
	for id, e := range s.entities {
		if f.Kind != 0 && e.Kind != f.Kind {
			continue
		}
		if _, ok := s.contents[e.Kind][e.ContentID]; !ok {
			continue
		}
		if f.After != 0 && id >= f.After {
			continue
		}
		if backward && id <= f.Before {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	if !backward {
		slices.Reverse(ids)
	}

	limit := f.limit()
	hasMore := len(ids) > limit
	if hasMore {
		ids = ids[:limit]
	}
	if backward {
		slices.Reverse(ids)
	}

	out := make([]Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.resolve(id); ok {
			out = append(out, e)
		}
	}
	return out, hasMore, nil
}

func (s *InMemoryEntityStore) Ping(context.Context) error { return nil }

// RemoveContent drops a content row and leaves its entity dangling.
func (s *InMemoryEntityStore) RemoveContent(kind ContentKind, contentID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contents[kind], contentID)
}
