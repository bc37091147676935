package positions

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-authz/aegis/internal/platform/httpx"
)

// Handler wires HTTP endpoints for position administration.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers position routes on the provided router. The caller
// applies the authorization middleware; view and manage routes are mounted
// separately so they can carry different permission requirements.
func (h *Handler) MountViewRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
}

// MountManageRoutes registers the mutating position routes.
func (h *Handler) MountManageRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type positionPayload struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	NameLocalized    string    `json:"name_localized,omitempty"`
	Description      string    `json:"description,omitempty"`
	Level            int       `json:"level"`
	FullCatalogGrant bool      `json:"full_catalog_grant"`
	Permissions      []string  `json:"permissions"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type createRequest struct {
	Name          string   `json:"name" validate:"required,min=2,max=120"`
	NameLocalized string   `json:"name_localized" validate:"max=120"`
	Description   string   `json:"description" validate:"max=500"`
	Level         int      `json:"level" validate:"gte=0,lte=10"`
	Permissions   []string `json:"permissions" validate:"required"`
}

type updateRequest struct {
	Name          string   `json:"name" validate:"omitempty,min=2,max=120"`
	NameLocalized string   `json:"name_localized" validate:"max=120"`
	Description   string   `json:"description" validate:"max=500"`
	Level         int      `json:"level" validate:"gte=0,lte=10"`
	Permissions   []string `json:"permissions" validate:"required"`
}

func toPayload(p Position) positionPayload {
	perms := p.Permissions
	if perms == nil {
		perms = []string{}
	}
	return positionPayload{
		ID:               p.ID,
		Name:             p.Name,
		NameLocalized:    p.NameLocalized,
		Description:      p.Description,
		Level:            p.Level,
		FullCatalogGrant: p.FullCatalogGrant,
		Permissions:      perms,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	payload := make([]positionPayload, len(items))
	for i, p := range items {
		payload[i] = toPayload(p)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"positions": payload})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.BadRequest(w, "id must be an integer")
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPayload(p))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	p, err := h.service.Create(r.Context(), CreateInput{
		Name:          req.Name,
		NameLocalized: req.NameLocalized,
		Description:   req.Description,
		Level:         req.Level,
		Permissions:   req.Permissions,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPayload(p))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.BadRequest(w, "id must be an integer")
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	p, err := h.service.Update(r.Context(), id, UpdateInput{
		Name:          req.Name,
		NameLocalized: req.NameLocalized,
		Description:   req.Description,
		Level:         req.Level,
		Permissions:   req.Permissions,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPayload(p))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.BadRequest(w, "id must be an integer")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownPosition):
		httpx.NotFound(w, "position not found")
	case errors.Is(err, ErrDuplicateName):
		httpx.Conflict(w, "a position with this name already exists")
	case errors.Is(err, ErrPositionInUse):
		httpx.Conflict(w, "position still has bound users")
	case errors.Is(err, ErrProtectedPosition):
		httpx.Conflict(w, "the administrator position cannot be deleted or reduced")
	case errors.Is(err, ErrInvalidPermissionSet):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Permission Set", err.Error())
	default:
		h.logger.Error("positions handler", slog.Any("error", err))
		httpx.Internal(w)
	}
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
