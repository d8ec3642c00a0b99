package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// InMemoryCommentStore is a development-only in-memory implementation.
// WithTx holds the write lock for the whole callback and applies a staged
// copy on success, so transactions are serial and all-or-nothing.
type InMemoryCommentStore struct {
	mu       sync.RWMutex
	comments map[int64]Comment
	nextID   int64
}

func NewInMemoryCommentStore() *InMemoryCommentStore {
	return &InMemoryCommentStore{comments: make(map[int64]Comment)}
}

func (s *InMemoryCommentStore) WithTx(ctx context.Context, fn func(tx CommentTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryCommentTx{comments: maps.Clone(s.comments), nextID: s.nextID}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.comments = tx.comments
	s.nextID = tx.nextID
	return nil
}

func (s *InMemoryCommentStore) FetchByID(_ context.Context, id int64) (Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return Comment{}, fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	return c, nil
}

func (s *InMemoryCommentStore) FetchByEntityOrdered(_ context.Context, entityID int64, q PageQuery) ([]Comment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []Comment
	for _, c := range s.comments {
		if c.EntityID != entityID || c.Path == "" {
			continue
		}
		switch {
		case q.After != "":
			if c.Path <= q.After {
				continue
			}
		case q.Before != "":
			if c.Path >= q.Before {
				continue
			}
		}
		rows = append(rows, c)
	}

	backward := q.After == "" && q.Before != ""
	slices.SortFunc(rows, func(a, b Comment) int {
		if backward {
			return strings.Compare(b.Path, a.Path)
		}
		return strings.Compare(a.Path, b.Path)
	})

	limit := q.limit()
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	if backward {
		slices.Reverse(rows)
	}
	if rows == nil {
		rows = []Comment{}
	}
	return rows, hasMore, nil
}

func (s *InMemoryCommentStore) Ping(context.Context) error { return nil }

type memoryCommentTx struct {
	comments map[int64]Comment
	nextID   int64
}

func (tx *memoryCommentTx) Insert(_ context.Context, c NewComment) (int64, error) {
	if c.ParentID != nil {
		parent, ok := tx.comments[*c.ParentID]
		if !ok || parent.EntityID != c.EntityID {
			return 0, fmt.Errorf("%w: parent %d not in entity %d", ErrValidation, *c.ParentID, c.EntityID)
		}
	}
	tx.nextID++
	tx.comments[tx.nextID] = Comment{
		ID:        tx.nextID,
		EntityID:  c.EntityID,
		UserID:    c.UserID,
		ParentID:  c.ParentID,
		Text:      c.Text,
		CreatedAt: time.Now().UTC(),
	}
	return tx.nextID, nil
}

func (tx *memoryCommentTx) SetPath(_ context.Context, id int64, path string) error {
	c, ok := tx.comments[id]
	if !ok {
		return fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	if c.Path != "" {
		return fmt.Errorf("%w: path of comment %d already assigned", ErrIntegrity, id)
	}
	c.Path = path
	tx.comments[id] = c
	return nil
}

func (tx *memoryCommentTx) FetchByID(_ context.Context, id int64) (Comment, error) {
	c, ok := tx.comments[id]
	if !ok {
		return Comment{}, fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	return c, nil
}

func (tx *memoryCommentTx) HasChildren(_ context.Context, id int64) (bool, error) {
	for _, c := range tx.comments {
		if c.ParentID != nil && *c.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryCommentTx) UpdateText(_ context.Context, id int64, text string) error {
	c, ok := tx.comments[id]
	if !ok {
		return fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	c.Text = text
	tx.comments[id] = c
	return nil
}

func (tx *memoryCommentTx) Tombstone(_ context.Context, id int64) error {
	c, ok := tx.comments[id]
	if !ok {
		return fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	c.Text = TombstoneText
	c.Tombstoned = true
	tx.comments[id] = c
	return nil
}

func (tx *memoryCommentTx) HardDelete(ctx context.Context, id int64) error {
	if _, ok := tx.comments[id]; !ok {
		return fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	if has, _ := tx.HasChildren(ctx, id); has {
		return fmt.Errorf("%w: comment %d has replies", ErrIntegrity, id)
	}
	delete(tx.comments, id)
	return nil
}
