package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aegis-authz/aegis/internal/platform/httpx"
)

// Handler exposes the decision timeline over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/decisions", h.listDecisions)
}

type timelineResponse struct {
	Decisions []DecisionRecord `json:"decisions"`
	Page      int              `json:"page"`
	PageSize  int              `json:"page_size"`
	HasNext   bool             `json:"has_next"`
}

func (h *Handler) listDecisions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := TimelineFilters{
		Outcome: q.Get("outcome"),
	}
	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.BadRequest(w, "user_id must be an integer")
			return
		}
		filters.UserID = id
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.BadRequest(w, "from must be RFC3339")
			return
		}
		filters.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.BadRequest(w, "to must be RFC3339")
			return
		}
		filters.To = t
	}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.Internal(w)
		return
	}
	httpx.JSON(w, http.StatusOK, timelineResponse{
		Decisions: result.Rows,
		Page:      result.Paging.Page,
		PageSize:  result.Paging.PageSize,
		HasNext:   result.Paging.HasNext,
	})
}
