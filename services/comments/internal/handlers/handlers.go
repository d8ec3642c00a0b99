// Package handlers exposes entities and comment threads over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/content-platform/internal/platform/api"
	"github.com/example/content-platform/internal/platform/auth"
	"github.com/example/content-platform/services/comments/internal/idempotency"
	"github.com/example/content-platform/services/comments/internal/service"
	"github.com/example/content-platform/services/comments/internal/store"
)

const maxBodyBytes = 1 << 20

// Handlers holds the collaborators shared by every route. Idempotency and
// WriteLimit are optional.
type Handlers struct {
	Entities    *service.EntityService
	Comments    *service.CommentService
	Idempotency idempotency.Store

	// WriteLimit wraps every POST route.
	WriteLimit func(http.Handler) http.Handler
	Log        *zap.Logger
}

// Mount registers the /v1 routes on r.
func (h *Handlers) Mount(r chi.Router) {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	r.Get("/v1/health", Health)

	r.Get("/v1/entities", h.ListEntities(0, "entitiesCursor"))
	r.Get("/v1/news", h.ListEntities(store.KindNews, "newsCursor"))
	r.Get("/v1/video", h.ListEntities(store.KindVideo, "videoCursor"))
	r.Get("/v1/entities/{entity_id}", h.GetEntity)
	r.Get("/v1/entities/{entity_id}/comments", h.ListComments)

	r.Group(func(r chi.Router) {
		if h.WriteLimit != nil {
			r.Use(h.WriteLimit)
		}
		r.Post("/v1/entities", h.CreateEntity)
		r.Post("/v1/entities/{entity_id}/comment", h.CreateComment)
		r.Post("/v1/comments/{comment_id}/update", h.UpdateComment)
		r.Post("/v1/comments/{comment_id}/delete", h.DeleteComment)
	})
}

// Health handles GET /v1/health
func Health(w http.ResponseWriter, _ *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type meta struct {
	NextCursor *string `json:"next_cursor"`
	PrevCursor *string `json:"prev_cursor"`
	PerPage    int     `json:"per_page"`
}

func newMeta(next, prev string, perPage int) meta {
	m := meta{PerPage: perPage}
	if next != "" {
		m.NextCursor = &next
	}
	if prev != "" {
		m.PrevCursor = &prev
	}
	return m
}

type envelope struct {
	Data any   `json:"data"`
	Meta *meta `json:"meta,omitempty"`
}

type contentSummary struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// entityResponse is the shape of a listed or viewed entity.
type entityResponse struct {
	EntityID   int64          `json:"entity_id"`
	EntityType string         `json:"entity_type"`
	EntityData contentSummary `json:"entity_data"`
	CreatedAt  time.Time      `json:"created_at"`
}

func toEntityResponse(e store.Entity) entityResponse {
	return entityResponse{
		EntityID:   e.ID,
		EntityType: e.Kind.Label(),
		EntityData: contentSummary{
			ID:          e.Content.ID,
			Title:       e.Content.Title,
			Description: e.Content.Description,
		},
		CreatedAt: e.CreatedAt,
	}
}

type contentResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// createdEntityResponse answers POST /v1/entities with the stored content.
type createdEntityResponse struct {
	EntityID   int64           `json:"entity_id"`
	EntityType string          `json:"entity_type"`
	Data       contentResponse `json:"data"`
}

func toCreatedEntityResponse(e store.Entity) createdEntityResponse {
	return createdEntityResponse{
		EntityID:   e.ID,
		EntityType: e.Kind.Label(),
		Data: contentResponse{
			ID:          e.Content.ID,
			Title:       e.Content.Title,
			Description: e.Content.Description,
			CreatedAt:   e.Content.CreatedAt,
		},
	}
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryLimit reads ?limit=. Anything unparsable falls back to the
// service default.
func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("limit")))
	if err != nil {
		return 0
	}
	return n
}

// decodeBody reads a JSON body into v. An empty body is accepted when
// allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

var errBadSubject = errors.New("token subject is not a user id")

// requestUser returns the authenticated user when a token was verified,
// otherwise the user_id sent in the body.
func requestUser(r *http.Request, bodyUserID int64) (int64, error) {
	sub, ok := auth.UserIDFromContext(r.Context())
	if !ok || sub == "" {
		return bodyUserID, nil
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadSubject
	}
	return id, nil
}
