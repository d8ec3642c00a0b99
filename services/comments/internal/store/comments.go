package store

import (
	"context"
	"time"
)

// TombstoneText replaces the text of a comment deleted while it still
// has replies.
const TombstoneText = "Comment has been deleted"

// DefaultPageSize applies when a PageQuery carries no limit.
const DefaultPageSize = 20

// Comment represents a single comment row.
type Comment struct {
	ID       int64
	EntityID int64
	UserID   int64
	ParentID *int64
	Text     string
	// Path is the materialized ancestor chain; empty until assigned.
	Path       string
	CreatedAt  time.Time
	Tombstoned bool
}

// NewComment is the input to CommentTx.Insert.
type NewComment struct {
	EntityID int64
	UserID   int64
	ParentID *int64
	Text     string
}

// PageQuery selects one page of an entity's comments in path order.
// At most one of After and Before is honoured; After wins.
type PageQuery struct {
	After  string
	Before string
	Limit  int
}

func (q PageQuery) limit() int {
	if q.Limit <= 0 {
		return DefaultPageSize
	}
	return q.Limit
}

// CommentTx is the set of operations available inside WithTx.
type CommentTx interface {
	// Insert stores a comment without a path and returns its id. A missing
	// parent or one from another entity is a validation error.
	Insert(ctx context.Context, c NewComment) (int64, error)
	// SetPath assigns the path once; a second call is an integrity error.
	SetPath(ctx context.Context, id int64, path string) error
	// FetchByID reads the comment and locks it until the transaction ends.
	FetchByID(ctx context.Context, id int64) (Comment, error)
	HasChildren(ctx context.Context, id int64) (bool, error)
	UpdateText(ctx context.Context, id int64, text string) error
	// Tombstone is idempotent.
	Tombstone(ctx context.Context, id int64) error
	// HardDelete fails with ErrIntegrity while children exist.
	HardDelete(ctx context.Context, id int64) error
}

// CommentStore defines the contract for comment persistence.
type CommentStore interface {
	// WithTx runs fn in one transaction. Any error from fn rolls back
	// every write made through tx.
	WithTx(ctx context.Context, fn func(tx CommentTx) error) error
	FetchByID(ctx context.Context, id int64) (Comment, error)
	// FetchByEntityOrdered returns up to q.Limit comments in ascending path
	// order and whether more rows exist in the direction of travel.
	// Comments without a path are never returned.
	FetchByEntityOrdered(ctx context.Context, entityID int64, q PageQuery) ([]Comment, bool, error)
	Ping(ctx context.Context) error
}
