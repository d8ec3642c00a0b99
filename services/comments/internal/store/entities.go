package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ContentKind tags the content table an entity points into.
type ContentKind int16

const (
	KindNews  ContentKind = 1
	KindVideo ContentKind = 2
)

type kindInfo struct {
	label string
	table string
}

// kinds is the only place that maps a kind to its table. Table names are
// interpolated into SQL from here and nowhere else.
var kinds = map[ContentKind]kindInfo{
	KindNews:  {label: "news", table: "news"},
	KindVideo: {label: "video", table: "video_posts"},
}

// Kinds lists the known kinds in ascending order.
func Kinds() []ContentKind { return []ContentKind{KindNews, KindVideo} }

func (k ContentKind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

func (k ContentKind) Label() string {
	if info, ok := kinds[k]; ok {
		return info.label
	}
	return "unknown"
}

func (k ContentKind) table() (string, bool) {
	info, ok := kinds[k]
	return info.table, ok
}

// ParseKind accepts a label ("news", "video") or its numeric code.
func ParseKind(s string) (ContentKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, info := range kinds {
		if info.label == s {
			return k, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && ContentKind(n).Valid() {
		return ContentKind(n), nil
	}
	return 0, fmt.Errorf("%w: unknown entity type %q", ErrValidation, s)
}

// Content is the kind-specific record an entity resolves to. News and
// video posts share this shape.
type Content struct {
	ID          int64
	Title       string
	Description string
	CreatedAt   time.Time
}

type ContentInput struct {
	Title       string
	Description string
}

// Entity is a polymorphic commentable item.
type Entity struct {
	ID        int64
	Kind      ContentKind
	ContentID int64
	CreatedAt time.Time
	Content   Content
}

// EntityFilter pages entities by id, newest first. After continues past
// an id towards older entities; Before goes back towards newer ones.
type EntityFilter struct {
	// Kind zero means every kind.
	Kind   ContentKind
	After  int64
	Before int64
	Limit  int
}

func (f EntityFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultPageSize
	}
	return f.Limit
}

// EntityStore persists entities together with their content.
type EntityStore interface {
	// Create writes the content row and the entity row in one transaction.
	Create(ctx context.Context, kind ContentKind, in ContentInput) (Entity, error)
	// Get resolves the entity and its content; either missing is ErrNotFound.
	Get(ctx context.Context, id int64) (Entity, error)
	List(ctx context.Context, f EntityFilter) ([]Entity, bool, error)
	Ping(ctx context.Context) error
}
