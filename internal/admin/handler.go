package admin

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"atrium/pkg/platform/httputil"
)

// Handler exposes the data browser. Mounted behind authz.RequireAdmin, which
// re-checks the live role on every request.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/browse/{table}", h.HandleBrowse)
	r.Delete("/admin/browse/{table}", h.HandleTruncate)
}

func (h *Handler) HandleBrowse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := httputil.ParsePageParams(r)

	rows, total, err := h.service.Browse(ctx, chi.URLParam(r, "table"), params.Limit, params.Offset())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total + params.Limit - 1) / params.Limit
	}
	httputil.WriteJSON(w, http.StatusOK, browsePage{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		Items:      rows,
	})
}

// browsePage mirrors httputil.Page but carries the single TableRows result
// instead of a slice: one browse request returns one table page.
type browsePage struct {
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	Total      int        `json:"total"`
	TotalPages int        `json:"totalPages"`
	Items      *TableRows `json:"items"`
}

func (h *Handler) HandleTruncate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Truncate(ctx, chi.URLParam(r, "table")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
