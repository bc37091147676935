package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aegis-authz/aegis/internal/platform/httpx"
)

// Handler exposes the permission catalog over HTTP.
type Handler struct {
	catalog *Catalog
}

// NewHandler constructs a Handler.
func NewHandler(c *Catalog) *Handler {
	return &Handler{catalog: c}
}

// MountRoutes registers catalog routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

type permissionPayload struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Module string `json:"module"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	perms := h.catalog.List()
	payload := make([]permissionPayload, len(perms))
	for i, p := range perms {
		payload[i] = permissionPayload{Code: p.Code, Name: p.Name, Module: p.Module}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"version":     h.catalog.Version(),
		"permissions": payload,
	})
}
