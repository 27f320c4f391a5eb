package storage

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"atrium/internal/authz"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/httputil"
	request "atrium/pkg/platform/middleware/request"
)

// Handler exposes stored-file metadata. Mounted behind session.Require.
type Handler struct {
	service *Service
	policy  *authz.Policy
	logger  *slog.Logger
}

func NewHandler(service *Service, policy *authz.Policy, logger *slog.Logger) *Handler {
	return &Handler{service: service, policy: policy, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/files", func(r chi.Router) {
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
	req, ok := httputil.DecodeAndPrepare[CreateFileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	f, err := h.service.Create(ctx, identity.UserID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toFileResponse(f))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	f, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFileResponse(f))
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
	files, total, err := h.service.List(ctx, owner, params.Limit, params.Offset())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items := make([]FileResponse, 0, len(files))
	for i := range files {
		items = append(items, toFileResponse(&files[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPage(params, total, items))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	f, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateFileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	updated, err := h.service.Update(ctx, f.ID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFileResponse(updated))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	f, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	if err := h.service.SoftDelete(ctx, f.ID); err != nil {
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
	fileID, ok := h.pathFileID(w, r)
	if !ok {
		return
	}

	f, err := h.service.GetAny(ctx, fileID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.policy.Authorize(ctx, identity, authz.OwnerOrAdmin(f.OwnerID)); err != nil {
		httputil.WriteError(w, err)
		return
	}

	restored, err := h.service.Restore(ctx, fileID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFileResponse(restored))
}

func (h *Handler) loadAuthorized(w http.ResponseWriter, r *http.Request) (*StoredFile, bool) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	fileID, ok := h.pathFileID(w, r)
	if !ok {
		return nil, false
	}

	f, err := h.service.Get(ctx, fileID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	if err := h.policy.Authorize(ctx, identity, authz.OwnerOrAdmin(f.OwnerID)); err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	return f, true
}

func (h *Handler) pathFileID(w http.ResponseWriter, r *http.Request) (id.FileID, bool) {
	fileID, err := id.ParseFileID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid file id"))
		return id.FileID{}, false
	}
	return fileID, true
}
