// Package service orchestrates comment threads and the entities they
// hang off. It owns validation, ownership checks, transaction scope,
// cache invalidation and event publication; persistence is delegated
// to the store package.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/example/content-platform/internal/platform/events"
	"github.com/example/content-platform/services/comments/internal/cache"
	"github.com/example/content-platform/services/comments/internal/cursor"
	"github.com/example/content-platform/services/comments/internal/pathcodec"
	"github.com/example/content-platform/services/comments/internal/store"
	"github.com/example/content-platform/services/comments/internal/tree"
)

const MaxTextLength = 5000

// Event subjects published after successful writes.
const (
	SubjectCommentCreated = "comments.events.created"
	SubjectCommentUpdated = "comments.events.updated"
	SubjectCommentDeleted = "comments.events.deleted"
)

// EntityResolver looks up the entity a thread belongs to.
type EntityResolver interface {
	Get(ctx context.Context, id int64) (store.Entity, error)
}

// CommentService implements create, update, delete and list for comment
// threads. Cache and Events are optional.
type CommentService struct {
	Comments store.CommentStore
	Entities EntityResolver
	Cursors  *cursor.Codec
	Cache    cache.ThreadCache
	Events   *events.Publisher
	Log      *zap.Logger
	// MaxDepth caps thread depth; zero means unlimited.
	MaxDepth int
}

type CreateCommentInput struct {
	EntityID int64
	UserID   int64
	Text     string
	ParentID *int64
}

// DeletionOutcome reports how a comment was removed. Soft means it was
// tombstoned because replies still hang off it.
type DeletionOutcome struct {
	ID      int64 `json:"id"`
	Deleted bool  `json:"deleted"`
	Soft    bool  `json:"soft"`
}

// Page is one window of an entity's thread.
type Page struct {
	Nodes      []*tree.Node `json:"nodes"`
	NextCursor string       `json:"next_cursor,omitempty"`
	PrevCursor string       `json:"prev_cursor,omitempty"`
	PerPage    int          `json:"per_page"`
}

func (s *CommentService) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func normalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", invalid("text", "must not be empty")
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return "", invalid("text", fmt.Sprintf("must be at most %d characters", MaxTextLength))
	}
	return text, nil
}

func checkUser(userID int64) error {
	if userID <= 0 {
		return invalid("user_id", "must be a positive integer")
	}
	return nil
}

// Create adds a root comment or a reply. The row is inserted and given
// its path inside one transaction, so no reader ever sees it without one.
func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (c store.Comment, err error) {
	defer func() { observe("comment_create", err) }()

	text, err := normalizeText(in.Text)
	if err != nil {
		return store.Comment{}, err
	}
	if err := checkUser(in.UserID); err != nil {
		return store.Comment{}, err
	}
	if _, err := s.Entities.Get(ctx, in.EntityID); err != nil {
		return store.Comment{}, fmt.Errorf("resolve entity %d: %w", in.EntityID, err)
	}

	var created store.Comment
	err = s.Comments.WithTx(ctx, func(tx store.CommentTx) error {
		parentPath := ""
		if in.ParentID != nil {
			parent, err := tx.FetchByID(ctx, *in.ParentID)
			if errors.Is(err, store.ErrNotFound) {
				return invalid("parent_id", "parent comment does not exist")
			}
			if err != nil {
				return err
			}
			if parent.EntityID != in.EntityID {
				return invalid("parent_id", "parent comment belongs to another entity")
			}
			if s.MaxDepth > 0 && pathcodec.Depth(parent.Path) >= s.MaxDepth {
				return invalid("parent_id", fmt.Sprintf("thread depth limit of %d reached", s.MaxDepth))
			}
			parentPath = parent.Path
		}

		id, err := tx.Insert(ctx, store.NewComment{
			EntityID: in.EntityID,
			UserID:   in.UserID,
			ParentID: in.ParentID,
			Text:     text,
		})
		if err != nil {
			return err
		}

		path, err := pathcodec.AppendChild(parentPath, id)
		if err != nil {
			s.logger().Error("comment id does not fit a path segment",
				zap.Int64("comment_id", id), zap.Error(err))
			return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
		}
		if err := tx.SetPath(ctx, id, path); err != nil {
			return err
		}

		created, err = tx.FetchByID(ctx, id)
		return err
	})
	if err != nil {
		return store.Comment{}, err
	}

	s.afterWrite(ctx, SubjectCommentCreated, events.Event{
		EventName: "comment.created",
		EntityID:  created.EntityID,
		CommentID: created.ID,
		UserID:    created.UserID,
		Properties: map[string]any{
			"parent_id": created.ParentID,
			"depth":     pathcodec.Depth(created.Path),
		},
	})
	return created, nil
}

// Update replaces the text of a comment owned by userID.
func (s *CommentService) Update(ctx context.Context, commentID, userID int64, newText string) (c store.Comment, err error) {
	defer func() { observe("comment_update", err) }()

	text, err := normalizeText(newText)
	if err != nil {
		return store.Comment{}, err
	}
	if err := checkUser(userID); err != nil {
		return store.Comment{}, err
	}

	var updated store.Comment
	err = s.Comments.WithTx(ctx, func(tx store.CommentTx) error {
		cur, err := tx.FetchByID(ctx, commentID)
		if err != nil {
			return err
		}
		if cur.UserID != userID {
			return fmt.Errorf("update comment %d: %w", commentID, ErrForbidden)
		}
		if cur.Tombstoned {
			return invalid("comment_id", "deleted comments cannot be edited")
		}
		if err := tx.UpdateText(ctx, commentID, text); err != nil {
			return err
		}
		cur.Text = text
		updated = cur
		return nil
	})
	if err != nil {
		return store.Comment{}, err
	}

	s.afterWrite(ctx, SubjectCommentUpdated, events.Event{
		EventName: "comment.updated",
		EntityID:  updated.EntityID,
		CommentID: updated.ID,
		UserID:    userID,
	})
	return updated, nil
}

// Delete removes a comment owned by userID. A comment with replies is
// tombstoned so the replies keep their place; a leaf is removed outright.
func (s *CommentService) Delete(ctx context.Context, commentID, userID int64) (out DeletionOutcome, err error) {
	defer func() { observe("comment_delete", err) }()

	if err := checkUser(userID); err != nil {
		return DeletionOutcome{}, err
	}

	var entityID int64
	err = s.Comments.WithTx(ctx, func(tx store.CommentTx) error {
		cur, err := tx.FetchByID(ctx, commentID)
		if err != nil {
			return err
		}
		if cur.UserID != userID {
			return fmt.Errorf("delete comment %d: %w", commentID, ErrForbidden)
		}
		entityID = cur.EntityID

		hasChildren, err := tx.HasChildren(ctx, commentID)
		if err != nil {
			return err
		}
		if hasChildren {
			out = DeletionOutcome{ID: commentID, Deleted: true, Soft: true}
			return tx.Tombstone(ctx, commentID)
		}
		out = DeletionOutcome{ID: commentID, Deleted: true, Soft: false}
		return tx.HardDelete(ctx, commentID)
	})
	if err != nil {
		return DeletionOutcome{}, err
	}

	s.afterWrite(ctx, SubjectCommentDeleted, events.Event{
		EventName:  "comment.deleted",
		EntityID:   entityID,
		CommentID:  commentID,
		UserID:     userID,
		Properties: map[string]any{"soft": out.Soft},
	})
	return out, nil
}

func threadScope(entityID int64) string {
	return "thread:" + strconv.FormatInt(entityID, 10)
}

// List returns one page of the entity's thread as a forest. An invalid
// cursor starts from the beginning.
func (s *CommentService) List(ctx context.Context, entityID int64, rawCursor string, pageSize int) (p Page, err error) {
	defer func() { observe("comment_list", err) }()

	if _, err := s.Entities.Get(ctx, entityID); err != nil {
		return Page{}, fmt.Errorf("resolve entity %d: %w", entityID, err)
	}

	size := clampPageSize(pageSize)
	pos, hadCursor := s.Cursors.Decode(threadScope(entityID), rawCursor)

	key := "start|" + strconv.Itoa(size)
	if hadCursor {
		key = string(pos.Dir) + ":" + pos.Key + "|" + strconv.Itoa(size)
	}
	if page, ok := s.cachedPage(ctx, entityID, key); ok {
		return page, nil
	}
	gen, cacheable := s.cacheGeneration(ctx, entityID)

	q := store.PageQuery{Limit: size}
	if hadCursor {
		if pos.Dir == cursor.Next {
			q.After = pos.Key
		} else {
			q.Before = pos.Key
		}
	}
	rows, hasMore, err := s.Comments.FetchByEntityOrdered(ctx, entityID, q)
	if err != nil {
		return Page{}, err
	}

	page := Page{Nodes: tree.Build(rows), PerPage: size}
	if len(rows) > 0 {
		next, prev := edgeCursors(pos, hadCursor, hasMore, rows[0].Path, rows[len(rows)-1].Path)
		if next != nil {
			page.NextCursor = s.Cursors.Encode(threadScope(entityID), *next)
		}
		if prev != nil {
			page.PrevCursor = s.Cursors.Encode(threadScope(entityID), *prev)
		}
	}

	if cacheable {
		s.storePage(ctx, entityID, gen, key, page)
	}
	return page, nil
}

// cacheGeneration snapshots the entity's cache generation before the
// rows are read, so a write that commits meanwhile keeps this page out
// of the cache.
func (s *CommentService) cacheGeneration(ctx context.Context, entityID int64) (int64, bool) {
	if s.Cache == nil {
		return 0, false
	}
	gen, err := s.Cache.Generation(ctx, entityID)
	if err != nil {
		s.logger().Warn("thread cache generation", zap.Int64("entity_id", entityID), zap.Error(err))
		return 0, false
	}
	return gen, true
}

func (s *CommentService) cachedPage(ctx context.Context, entityID int64, key string) (Page, bool) {
	if s.Cache == nil {
		return Page{}, false
	}
	raw, ok, err := s.Cache.Get(ctx, entityID, key)
	if err != nil {
		s.logger().Warn("thread cache get", zap.Int64("entity_id", entityID), zap.Error(err))
		cacheLookups.WithLabelValues("error").Inc()
		return Page{}, false
	}
	if !ok {
		cacheLookups.WithLabelValues("miss").Inc()
		return Page{}, false
	}
	var page Page
	if err := json.Unmarshal(raw, &page); err != nil {
		s.logger().Warn("thread cache decode", zap.Int64("entity_id", entityID), zap.Error(err))
		cacheLookups.WithLabelValues("error").Inc()
		return Page{}, false
	}
	cacheLookups.WithLabelValues("hit").Inc()
	return page, true
}

func (s *CommentService) storePage(ctx context.Context, entityID, gen int64, key string, page Page) {
	raw, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, entityID, gen, key, raw); err != nil {
		s.logger().Warn("thread cache set", zap.Int64("entity_id", entityID), zap.Error(err))
	}
}

// afterWrite drops cached pages of the entity and announces the change.
// Neither step can fail the request.
func (s *CommentService) afterWrite(ctx context.Context, subject string, ev events.Event) {
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, ev.EntityID); err != nil {
			s.logger().Warn("thread cache invalidate", zap.Int64("entity_id", ev.EntityID), zap.Error(err))
		}
	}
	s.Events.Publish(subject, ev)
}
