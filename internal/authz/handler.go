package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-authz/aegis/internal/catalog"
	"github.com/aegis-authz/aegis/internal/identity"
	"github.com/aegis-authz/aegis/internal/platform/httpx"
)

// Handler exposes decision introspection for other services.
type Handler struct {
	logger   *slog.Logger
	engine   *Engine
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, engine *Engine) *Handler {
	return &Handler{logger: logger, engine: engine, validate: validator.New()}
}

// MountRoutes registers authorization routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/check", h.check)
}

type checkRequest struct {
	UserID      int64    `json:"user_id" validate:"omitempty,gt=0"`
	Mode        string   `json:"mode" validate:"omitempty,oneof=any all"`
	Permissions []string `json:"permissions" validate:"required,min=1,dive,required"`
}

type checkResponse struct {
	DecisionID string    `json:"decision_id"`
	UserID     int64     `json:"user_id"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// check answers a decision query. A caller may always ask about itself;
// asking about another user requires view_users.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no verified identity")
		return
	}
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	subject := req.UserID
	if subject == 0 {
		subject = principal.UserID
	}
	if subject != principal.UserID {
		gate, err := h.engine.Check(r.Context(), principal.UserID, catalog.PermViewUsers)
		if err != nil {
			h.respondError(w, err)
			return
		}
		if !gate.Allowed() {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "checking another user requires view_users")
			return
		}
	}

	var decision Decision
	var err error
	if req.Mode == "any" {
		decision, err = h.engine.CheckAny(r.Context(), subject, req.Permissions...)
	} else {
		decision, err = h.engine.CheckAll(r.Context(), subject, req.Permissions...)
	}
	if err != nil && !errors.Is(err, ErrStorageUnavailable) {
		h.respondError(w, err)
		return
	}
	if errors.Is(err, ErrStorageUnavailable) {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "authorization temporarily unavailable, retry later")
		return
	}
	httpx.JSON(w, http.StatusOK, checkResponse{
		DecisionID: decision.ID,
		UserID:     decision.UserID,
		Outcome:    string(decision.Outcome),
		Reason:     string(decision.Reason),
		CheckedAt:  decision.CheckedAt,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnknownPermission):
		// A defect in the calling service, not a denial. Loud on both sides.
		h.logger.Error("check with unregistered permission", slog.Any("error", err))
		httpx.BadRequest(w, err.Error())
	case errors.Is(err, ErrStorageUnavailable):
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "authorization temporarily unavailable, retry later")
	default:
		h.logger.Error("authz handler", slog.Any("error", err))
		httpx.Internal(w)
	}
}
