package client

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"atrium/internal/authz"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/httputil"
	request "atrium/pkg/platform/middleware/request"
	"atrium/pkg/requestcontext"
)

func (h *Handler) HandleCreateSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateSearchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	search, err := h.service.CreateSearch(ctx, identity.UserID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toSearchResponse(search))
}

func (h *Handler) HandleListSearches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	params := httputil.ParsePageParams(r)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	searches, total, err := h.service.ListSearches(ctx, ownerScope(identity), params.Limit, params.Offset())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items := make([]SearchResponse, 0, len(searches))
	for i := range searches {
		items = append(items, toSearchResponse(&searches[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPage(params, total, items))
}

func (h *Handler) HandleDeleteSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	search, _, ok := h.loadAuthorizedSearch(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteSearch(ctx, search.ID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) HandleSearchClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := httputil.ParsePageParams(r)

	search, _, ok := h.loadAuthorizedSearch(w, r)
	if !ok {
		return
	}

	clients, total, err := h.service.SearchClients(ctx, search.ID, params.Limit, params.Offset())
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

func (h *Handler) HandleLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	search, _, ok := h.loadAuthorizedSearch(w, r)
	if !ok {
		return
	}
	clientID, ok := h.pathClientID(w, r, "clientId")
	if !ok {
		return
	}

	if err := h.service.LinkClient(ctx, search.ID, clientID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	search, _, ok := h.loadAuthorizedSearch(w, r)
	if !ok {
		return
	}
	clientID, ok := h.pathClientID(w, r, "clientId")
	if !ok {
		return
	}

	if err := h.service.UnlinkClient(ctx, search.ID, clientID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// loadAuthorizedSearch fetches the path search and enforces OwnerOrAdmin.
func (h *Handler) loadAuthorizedSearch(w http.ResponseWriter, r *http.Request) (*Search, requestcontext.Identity, bool) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, requestcontext.Identity{}, false
	}

	searchID, err := id.ParseSearchID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid search id"))
		return nil, requestcontext.Identity{}, false
	}

	search, err := h.service.GetSearch(ctx, searchID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, requestcontext.Identity{}, false
	}
	if err := h.policy.Authorize(ctx, identity, authz.OwnerOrAdmin(search.OwnerID)); err != nil {
		httputil.WriteError(w, err)
		return nil, requestcontext.Identity{}, false
	}
	return search, identity, true
}
