package client

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

// Handler exposes the client and search surfaces. Mounted behind
// session.Require; ownership checks go through the authorization policy.
type Handler struct {
	service *Service
	policy  *authz.Policy
	logger  *slog.Logger
}

func NewHandler(service *Service, policy *authz.Policy, logger *slog.Logger) *Handler {
	return &Handler{service: service, policy: policy, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/clients", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Post("/check-identifiers", h.HandleCheckIdentifiers)
		r.Get("/{id}", h.HandleGet)
		r.Patch("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Post("/{id}/restore", h.HandleRestore)
	})
	r.Route("/searches", func(r chi.Router) {
		r.Post("/", h.HandleCreateSearch)
		r.Get("/", h.HandleListSearches)
		r.Delete("/{id}", h.HandleDeleteSearch)
		r.Get("/{id}/clients", h.HandleSearchClients)
		r.Put("/{id}/clients/{clientId}", h.HandleLink)
		r.Delete("/{id}/clients/{clientId}", h.HandleUnlink)
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
	req, ok := httputil.DecodeAndPrepare[CreateClientRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Create(ctx, identity.UserID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toClientResponse(c))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, _, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toClientResponse(c))
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

	clients, total, err := h.service.List(ctx, ownerScope(identity), params.Limit, params.Offset())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items := make([]ClientResponse, 0, len(clients))
	for i := range clients {
		items = append(items, toClientResponse(&clients[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPage(params, total, items))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	c, _, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateClientRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	updated, err := h.service.Update(ctx, c.ID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toClientResponse(updated))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, _, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	if err := h.service.SoftDelete(ctx, c.ID); err != nil {
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
	clientID, ok := h.pathClientID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.service.GetAny(ctx, clientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.policy.Authorize(ctx, identity, authz.OwnerOrAdmin(c.OwnerID)); err != nil {
		httputil.WriteError(w, err)
		return
	}

	restored, err := h.service.Restore(ctx, clientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toClientResponse(restored))
}

func (h *Handler) HandleCheckIdentifiers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CheckIdentifiersRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.CheckIdentifiers(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// loadAuthorized fetches the path client and enforces OwnerOrAdmin.
func (h *Handler) loadAuthorized(w http.ResponseWriter, r *http.Request) (*Client, requestcontext.Identity, bool) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, requestcontext.Identity{}, false
	}
	clientID, ok := h.pathClientID(w, r, "id")
	if !ok {
		return nil, requestcontext.Identity{}, false
	}

	c, err := h.service.Get(ctx, clientID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, requestcontext.Identity{}, false
	}
	if err := h.policy.Authorize(ctx, identity, authz.OwnerOrAdmin(c.OwnerID)); err != nil {
		httputil.WriteError(w, err)
		return nil, requestcontext.Identity{}, false
	}
	return c, identity, true
}

func (h *Handler) pathClientID(w http.ResponseWriter, r *http.Request, param string) (id.ClientID, bool) {
	clientID, err := id.ParseClientID(chi.URLParam(r, param))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid client id"))
		return id.ClientID{}, false
	}
	return clientID, true
}

// ownerScope returns nil for admins, who see every owner's rows.
func ownerScope(identity requestcontext.Identity) *id.UserID {
	if identity.Role.IsAdmin() {
		return nil
	}
	owner := identity.UserID
	return &owner
}
