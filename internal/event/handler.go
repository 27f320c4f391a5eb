package event

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"atrium/internal/authz"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/httputil"
	request "atrium/pkg/platform/middleware/request"
	"atrium/pkg/requestcontext"
)

// Handler exposes the event surface. Mounted behind session.Require.
type Handler struct {
	service *Service
	policy  *authz.Policy
	logger  *slog.Logger
}

func NewHandler(service *Service, policy *authz.Policy, logger *slog.Logger) *Handler {
	return &Handler{service: service, policy: policy, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Patch("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Post("/{id}/restore", h.HandleRestore)
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateEventRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	e, err := h.service.Create(ctx, identity.UserID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toEventResponse(e))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	e, _, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEventResponse(e))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	params := httputil.ParsePageParams(r)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var owner *id.UserID
	if !identity.Role.IsAdmin() {
		o := identity.UserID
		owner = &o
	}
	events, total, err := h.service.List(ctx, owner, params.Limit, params.Offset())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items := make([]EventResponse, 0, len(events))
	for i := range events {
		items = append(items, toEventResponse(&events[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPage(params, total, items))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	e, _, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateEventRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	updated, err := h.service.Update(ctx, e.ID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEventResponse(updated))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	e, _, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	if err := h.service.SoftDelete(ctx, e.ID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	eventID, ok := h.pathEventID(w, r)
	if !ok {
		return
	}

	e, err := h.service.GetAny(ctx, eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.policy.Authorize(ctx, identity, authz.OwnerOrAdmin(e.OwnerID)); err != nil {
		httputil.WriteError(w, err)
		return
	}

	restored, err := h.service.Restore(ctx, eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEventResponse(restored))
}

func (h *Handler) loadAuthorized(w http.ResponseWriter, r *http.Request) (*Event, requestcontext.Identity, bool) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, requestcontext.Identity{}, false
	}
	eventID, ok := h.pathEventID(w, r)
	if !ok {
		return nil, requestcontext.Identity{}, false
	}

	e, err := h.service.Get(ctx, eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, requestcontext.Identity{}, false
	}
	if err := h.policy.Authorize(ctx, identity, authz.OwnerOrAdmin(e.OwnerID)); err != nil {
		httputil.WriteError(w, err)
		return nil, requestcontext.Identity{}, false
	}
	return e, identity, true
}

func (h *Handler) pathEventID(w http.ResponseWriter, r *http.Request) (id.EventID, bool) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event id"))
		return id.EventID{}, false
	}
	return eventID, true
}
