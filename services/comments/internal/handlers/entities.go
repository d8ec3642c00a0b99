package handlers

import (
	"net/http"
	"strings"

	"github.com/example/content-platform/internal/platform/api"
	"github.com/example/content-platform/internal/platform/httpserver"
	"github.com/example/content-platform/services/comments/internal/store"
	"github.com/example/content-platform/services/comments/internal/tree"
)

type createEntityRequest struct {
	EntityType  string `json:"entity_type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type entityViewResponse struct {
	Entity   entityResponse `json:"entity"`
	Comments []*tree.Node   `json:"comments"`
}

// ListEntities handles GET /v1/entities, /v1/news and /v1/video. Each
// listing reads its cursor from its own query parameter.
func (h *Handlers) ListEntities(kind store.ContentKind, cursorParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := h.Entities.List(r.Context(), kind, strings.TrimSpace(r.URL.Query().Get(cursorParam)), queryLimit(r))
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		items := make([]entityResponse, 0, len(page.Items))
		for _, e := range page.Items {
			items = append(items, toEntityResponse(e))
		}
		m := newMeta(page.NextCursor, page.PrevCursor, page.PerPage)
		api.WriteJSON(w, http.StatusOK, envelope{Data: items, Meta: &m})
	}
}

// CreateEntity handles POST /v1/entities
func (h *Handlers) CreateEntity(w http.ResponseWriter, r *http.Request) {
	var req createEntityRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		badRequest(w, r, "INVALID_JSON", "invalid JSON")
		return
	}
	kind, err := store.ParseKind(req.EntityType)
	if err != nil {
		api.Unprocessable(w, "VALIDATION_FAILED", "invalid entity_type: must be news or video", httpserver.RequestIDFromContext(r.Context()),
			map[string]any{"entity_type": "must be news or video"})
		return
	}

	e, err := h.Entities.Create(r.Context(), kind, req.Title, req.Description)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, toCreatedEntityResponse(e))
}

// GetEntity handles GET /v1/entities/{entity_id}
func (h *Handlers) GetEntity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "entity_id")
	if !ok {
		badRequest(w, r, "INVALID_ID", "entity_id must be a positive integer")
		return
	}

	view, err := h.Entities.View(r.Context(), id, strings.TrimSpace(r.URL.Query().Get("commentsCursor")), queryLimit(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	m := newMeta(view.Comments.NextCursor, view.Comments.PrevCursor, view.Comments.PerPage)
	api.WriteJSON(w, http.StatusOK, envelope{
		Data: entityViewResponse{Entity: toEntityResponse(view.Entity), Comments: view.Comments.Nodes},
		Meta: &m,
	})
}
