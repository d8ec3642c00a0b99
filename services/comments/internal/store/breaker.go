package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
)

// BreakerEntityStore guards an EntityStore with a circuit breaker. Only
// ErrStoreUnavailable counts as a failure; NotFound and validation errors
// are ordinary answers. While open, calls fail fast with ErrStoreUnavailable.
type BreakerEntityStore struct {
	next EntityStore
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerEntityStore(next EntityStore, st gobreaker.Settings) *BreakerEntityStore {
	if st.Name == "" {
		st.Name = "entities"
	}
	if st.IsSuccessful == nil {
		st.IsSuccessful = func(err error) bool {
			return !errors.Is(err, ErrStoreUnavailable)
		}
	}
	return &BreakerEntityStore{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

// State exposes the breaker state for logs and readiness.
func (b *BreakerEntityStore) State() gobreaker.State { return b.cb.State() }

func (b *BreakerEntityStore) Create(ctx context.Context, kind ContentKind, in ContentInput) (Entity, error) {
	return execute(b.cb, func() (Entity, error) { return b.next.Create(ctx, kind, in) })
}

func (b *BreakerEntityStore) Get(ctx context.Context, id int64) (Entity, error) {
	return execute(b.cb, func() (Entity, error) { return b.next.Get(ctx, id) })
}

type entityPage struct {
	items   []Entity
	hasMore bool
}

func (b *BreakerEntityStore) List(ctx context.Context, f EntityFilter) ([]Entity, bool, error) {
	p, err := execute(b.cb, func() (entityPage, error) {
		items, more, err := b.next.List(ctx, f)
		return entityPage{items: items, hasMore: more}, err
	})
	return p.items, p.hasMore, err
}

func (b *BreakerEntityStore) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

func execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}
