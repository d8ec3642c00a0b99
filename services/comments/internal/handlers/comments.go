package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/example/content-platform/internal/platform/api"
	"github.com/example/content-platform/internal/platform/httpserver"
	"github.com/example/content-platform/services/comments/internal/service"
	"github.com/example/content-platform/services/comments/internal/tree"
)

type createCommentRequest struct {
	UserID   int64  `json:"user_id"`
	Text     string `json:"text"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

type updateCommentRequest struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

type deleteCommentRequest struct {
	UserID int64 `json:"user_id"`
}

func (h *Handlers) unauthorized(w http.ResponseWriter, r *http.Request) {
	api.Unauthorized(w, "UNAUTHORIZED", "token subject must be a numeric user id", httpserver.RequestIDFromContext(r.Context()))
}

// ListComments handles GET /v1/entities/{entity_id}/comments
func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	entityID, ok := pathID(r, "entity_id")
	if !ok {
		badRequest(w, r, "INVALID_ID", "entity_id must be a positive integer")
		return
	}

	page, err := h.Comments.List(r.Context(), entityID, strings.TrimSpace(r.URL.Query().Get("cursor")), queryLimit(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	m := newMeta(page.NextCursor, page.PrevCursor, page.PerPage)
	api.WriteJSON(w, http.StatusOK, envelope{Data: page.Nodes, Meta: &m})
}

// CreateComment handles POST /v1/entities/{entity_id}/comment. A repeated
// Idempotency-Key is rejected with 409.
func (h *Handlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	entityID, ok := pathID(r, "entity_id")
	if !ok {
		badRequest(w, r, "INVALID_ID", "entity_id must be a positive integer")
		return
	}

	var req createCommentRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		badRequest(w, r, "INVALID_JSON", "invalid JSON")
		return
	}
	userID, err := requestUser(r, req.UserID)
	if err != nil {
		h.unauthorized(w, r)
		return
	}

	if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" && h.Idempotency != nil {
		dup, err := h.Idempotency.Check(r.Context(), key)
		if err != nil {
			h.Log.Warn("idempotency check failed", zap.Error(err))
			api.Unavailable(w, httpserver.RequestIDFromContext(r.Context()))
			return
		}
		if dup {
			api.Conflict(w, "DUPLICATE_REQUEST", "request with this Idempotency-Key was already processed",
				httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}
	}

	c, err := h.Comments.Create(r.Context(), service.CreateCommentInput{
		EntityID: entityID,
		UserID:   userID,
		Text:     req.Text,
		ParentID: req.ParentID,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, envelope{Data: tree.FromComment(c)})
}

// UpdateComment handles POST /v1/comments/{comment_id}/update
func (h *Handlers) UpdateComment(w http.ResponseWriter, r *http.Request) {
	commentID, ok := pathID(r, "comment_id")
	if !ok {
		badRequest(w, r, "INVALID_ID", "comment_id must be a positive integer")
		return
	}

	var req updateCommentRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		badRequest(w, r, "INVALID_JSON", "invalid JSON")
		return
	}
	userID, err := requestUser(r, req.UserID)
	if err != nil {
		h.unauthorized(w, r)
		return
	}

	c, err := h.Comments.Update(r.Context(), commentID, userID, req.Text)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, envelope{Data: tree.FromComment(c)})
}

// DeleteComment handles POST /v1/comments/{comment_id}/delete. The body
// may be empty when the caller is authenticated.
func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID, ok := pathID(r, "comment_id")
	if !ok {
		badRequest(w, r, "INVALID_ID", "comment_id must be a positive integer")
		return
	}

	var req deleteCommentRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		badRequest(w, r, "INVALID_JSON", "invalid JSON")
		return
	}
	userID, err := requestUser(r, req.UserID)
	if err != nil {
		h.unauthorized(w, r)
		return
	}

	out, err := h.Comments.Delete(r.Context(), commentID, userID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, envelope{Data: out})
}
