package audit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/httputil"
	request "atrium/pkg/platform/middleware/request"
)

// Handler exposes the admin-only audit surface: paginated listing with
// filters and the on-demand retention purge.
type Handler struct {
	store     Store
	retention *Retention
	logger    *slog.Logger
}

func NewHandler(store Store, retention *Retention, logger *slog.Logger) *Handler {
	return &Handler{store: store, retention: retention, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/audit", h.HandleList)
	r.Post("/admin/audit/purge", h.HandlePurge)
}

// EntryResponse is the wire shape of an audit entry.
type EntryResponse struct {
	ID          string         `json:"id"`
	ActorID     *string        `json:"actorId"`
	Action      string         `json:"action"`
	EntityType  string         `json:"entityType"`
	EntityID    string         `json:"entityId,omitempty"`
	Description string         `json:"description"`
	IPAddress   string         `json:"ipAddress"`
	UserAgent   string         `json:"userAgent"`
	Device      string         `json:"device,omitempty"`
	Severity    string         `json:"severity"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	RequestID   string         `json:"requestId,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func toEntryResponse(e Entry) EntryResponse {
	res := EntryResponse{
		ID:          e.ID.String(),
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Description: e.Description,
		IPAddress:   e.IPAddress,
		UserAgent:   e.UserAgent,
		Device:      e.Device,
		Severity:    string(e.Severity),
		Metadata:    e.Metadata,
		RequestID:   e.RequestID,
		CreatedAt:   e.CreatedAt,
	}
	if e.ActorID != nil {
		actor := e.ActorID.String()
		res.ActorID = &actor
	}
	return res
}

// HandleList returns audit entries newest-first with optional actor, action,
// and severity filters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	params := httputil.ParsePageParams(r)

	var filter ListFilter
	if actor := r.URL.Query().Get("actor"); actor != "" {
		actorID, err := id.ParseUserID(actor)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid actor id"))
			return
		}
		filter.ActorID = &actorID
	}
	filter.Action = r.URL.Query().Get("action")
	if severity := r.URL.Query().Get("severity"); severity != "" {
		switch Severity(severity) {
		case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
			filter.Severity = Severity(severity)
		default:
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid severity"))
			return
		}
	}

	entries, total, err := h.store.ListPage(ctx, filter, params.Limit, params.Offset())
	if err != nil {
		h.logger.ErrorContext(ctx, "list audit entries failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries"))
		return
	}

	items := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toEntryResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPage(params, total, items))
}

// HandlePurge runs the retention purge immediately.
func (h *Handler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	purged, err := h.retention.PurgeOnce(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "on-demand audit purge failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge audit entries"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"purged":  purged,
	})
}
