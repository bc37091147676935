package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-authz/aegis/internal/platform/httpx"
)

// PermissionResolver resolves the permission set a position grants.
type PermissionResolver interface {
	EffectivePermissions(ctx context.Context, positionID int64) ([]string, error)
}

// Handler wires HTTP endpoints for user binding administration.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	resolver PermissionResolver
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, resolver PermissionResolver) *Handler {
	return &Handler{logger: logger, service: service, resolver: resolver, validate: validator.New()}
}

// MountViewRoutes registers read-only user routes.
func (h *Handler) MountViewRoutes(r chi.Router) {
	r.Get("/{id}/permissions", h.effectivePermissions)
}

// MountManageRoutes registers mutating user routes.
func (h *Handler) MountManageRoutes(r chi.Router) {
	r.Put("/{id}/position", h.bindPosition)
}

type bindRequest struct {
	PositionID int64 `json:"position_id" validate:"required,gt=0"`
}

func (h *Handler) bindPosition(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "id must be an integer")
		return
	}
	var req bindRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	if err := h.service.Bind(r.Context(), userID, req.PositionID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "id must be an integer")
		return
	}
	positionID, err := h.service.CurrentPosition(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNoPosition) {
			httpx.JSON(w, http.StatusOK, map[string]any{"user_id": userID, "permissions": []string{}})
			return
		}
		h.respondError(w, err)
		return
	}
	perms, err := h.resolver.EffectivePermissions(r.Context(), positionID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if perms == nil {
		perms = []string{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"position_id": positionID,
		"permissions": perms,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownUser):
		httpx.NotFound(w, "user not found")
	case errors.Is(err, ErrUnknownPosition):
		httpx.NotFound(w, "position not found")
	default:
		h.logger.Error("users handler", slog.Any("error", err))
		httpx.Internal(w)
	}
}
