package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/example/content-platform/services/comments/internal/cursor"
	"github.com/example/content-platform/services/comments/internal/store"
)

const MaxTitleLength = 255

// EntityService creates, reads and lists commentable entities.
type EntityService struct {
	Entities store.EntityStore
	Comments *CommentService
	Cursors  *cursor.Codec
	Log      *zap.Logger
}

type EntityPage struct {
	Items      []store.Entity
	NextCursor string
	PrevCursor string
	PerPage    int
}

// EntityView is an entity with the first (or requested) page of its thread.
type EntityView struct {
	Entity   store.Entity
	Comments Page
}

func (s *EntityService) Create(ctx context.Context, kind store.ContentKind, title, description string) (e store.Entity, err error) {
	defer func() { observe("entity_create", err) }()

	if !kind.Valid() {
		return store.Entity{}, invalid("entity_type", "must be news or video")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return store.Entity{}, invalid("title", "must not be empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return store.Entity{}, invalid("title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return store.Entity{}, invalid("description", "must not be empty")
	}

	e, err = s.Entities.Create(ctx, kind, store.ContentInput{Title: title, Description: description})
	if err != nil {
		return store.Entity{}, err
	}
	if s.Log != nil {
		s.Log.Info("entity created", zap.Int64("entity_id", e.ID), zap.String("type", kind.Label()))
	}
	return e, nil
}

func (s *EntityService) Get(ctx context.Context, id int64) (store.Entity, error) {
	return s.Entities.Get(ctx, id)
}

func listScope(kind store.ContentKind) string {
	if kind == 0 {
		return "entities:all"
	}
	return "entities:" + kind.Label()
}

// List pages entities newest first. Kind zero lists every kind. An
// invalid cursor starts from the newest entity.
func (s *EntityService) List(ctx context.Context, kind store.ContentKind, rawCursor string, pageSize int) (p EntityPage, err error) {
	defer func() { observe("entity_list", err) }()

	size := clampPageSize(pageSize)
	scope := listScope(kind)
	f := store.EntityFilter{Kind: kind, Limit: size}

	pos, hadCursor := s.Cursors.Decode(scope, rawCursor)
	if hadCursor {
		id, err := strconv.ParseInt(pos.Key, 10, 64)
		if err != nil || id <= 0 {
			hadCursor = false
		} else if pos.Dir == cursor.Next {
			f.After = id
		} else {
			f.Before = id
		}
	}

	items, hasMore, err := s.Entities.List(ctx, f)
	if err != nil {
		return EntityPage{}, err
	}

	page := EntityPage{Items: items, PerPage: size}
	if len(items) > 0 {
		first := strconv.FormatInt(items[0].ID, 10)
		last := strconv.FormatInt(items[len(items)-1].ID, 10)
		next, prev := edgeCursors(pos, hadCursor, hasMore, first, last)
		if next != nil {
			page.NextCursor = s.Cursors.Encode(scope, *next)
		}
		if prev != nil {
			page.PrevCursor = s.Cursors.Encode(scope, *prev)
		}
	}
	return page, nil
}

// View resolves the entity and one page of its comments.
func (s *EntityService) View(ctx context.Context, id int64, commentsCursor string, pageSize int) (EntityView, error) {
	e, err := s.Entities.Get(ctx, id)
	if err != nil {
		return EntityView{}, err
	}
	page, err := s.Comments.List(ctx, id, commentsCursor, pageSize)
	if err != nil {
		return EntityView{}, err
	}
	return EntityView{Entity: e, Comments: page}, nil
}
