package todo

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

// Handler exposes the todo surface. Mounted behind session.Require.
type Handler struct {
	service *Service
	policy  *authz.Policy
	logger  *slog.Logger
}

func NewHandler(service *Service, policy *authz.Policy, logger *slog.Logger) *Handler {
	return &Handler{service: service, policy: policy, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/todos", func(r chi.Router) {
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
	req, ok := httputil.DecodeAndPrepare[CreateTodoRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	t, err := h.service.Create(ctx, identity.UserID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toTodoResponse(t))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	t, _, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTodoResponse(t))
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
	todos, total, err := h.service.List(ctx, owner, params.Limit, params.Offset())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items := make([]TodoResponse, 0, len(todos))
	for i := range todos {
		items = append(items, toTodoResponse(&todos[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPage(params, total, items))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	t, _, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateTodoRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	updated, err := h.service.Update(ctx, t.ID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTodoResponse(updated))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, _, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	if err := h.service.SoftDelete(ctx, t.ID); err != nil {
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
	todoID, ok := h.pathTodoID(w, r)
	if !ok {
		return
	}

	t, err := h.service.GetAny(ctx, todoID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.policy.Authorize(ctx, identity, authz.OwnerOrAdmin(t.OwnerID)); err != nil {
		httputil.WriteError(w, err)
		return
	}

	restored, err := h.service.Restore(ctx, todoID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTodoResponse(restored))
}

func (h *Handler) loadAuthorized(w http.ResponseWriter, r *http.Request) (*Todo, requestcontext.Identity, bool) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, requestcontext.Identity{}, false
	}
	todoID, ok := h.pathTodoID(w, r)
	if !ok {
		return nil, requestcontext.Identity{}, false
	}

	t, err := h.service.Get(ctx, todoID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, requestcontext.Identity{}, false
	}
	if err := h.policy.Authorize(ctx, identity, authz.OwnerOrAdmin(t.OwnerID)); err != nil {
		httputil.WriteError(w, err)
		return nil, requestcontext.Identity{}, false
	}
	return t, identity, true
}

func (h *Handler) pathTodoID(w http.ResponseWriter, r *http.Request) (id.TodoID, bool) {
	todoID, err := id.ParseTodoID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid todo id"))
		return id.TodoID{}, false
	}
	return todoID, true
}
