package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/content-platform/internal/platform/api"
	"github.com/example/content-platform/internal/platform/httpserver"
	"github.com/example/content-platform/services/comments/internal/service"
	"github.com/example/content-platform/services/comments/internal/store"
)

// writeError maps service and store errors onto the API error envelope.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	rid := httpserver.RequestIDFromContext(r.Context())

	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		api.Unprocessable(w, "VALIDATION_FAILED", verr.Error(), rid, map[string]any{verr.Field: verr.Reason})
	case errors.Is(err, store.ErrValidation):
		api.Unprocessable(w, "VALIDATION_FAILED", "request failed validation", rid, nil)
	case errors.Is(err, store.ErrNotFound):
		api.NotFound(w, "NOT_FOUND", "resource not found", rid)
	case errors.Is(err, service.ErrForbidden):
		api.Forbidden(w, "FORBIDDEN", "comment belongs to another user", rid)
	case errors.Is(err, store.ErrIntegrity):
		api.Conflict(w, "CONFLICT", "request conflicts with current state", rid, nil)
	case errors.Is(err, store.ErrStoreUnavailable):
		log.Warn("store unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		api.Unavailable(w, rid)
	default:
		log.Error("unhandled error", zap.String("path", r.URL.Path), zap.Error(err))
		api.Internal(w, rid)
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, code, message string) {
	api.BadRequest(w, code, message, httpserver.RequestIDFromContext(r.Context()), nil)
}
