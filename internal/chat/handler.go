package chat

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

// Handler exposes the chat surface. Mounted behind session.Require.
//
// Membership is checked before any conversation lookup, so a non-participant
// probing an id gets the same 403 whether the conversation exists or not.
type Handler struct {
	service *Service
	policy  *authz.Policy
	logger  *slog.Logger
}

func NewHandler(service *Service, policy *authz.Policy, logger *slog.Logger) *Handler {
	return &Handler{service: service, policy: policy, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/conversations", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Post("/{id}/participants", h.HandleAddParticipant)
		r.Get("/{id}/participants", h.HandleListParticipants)
		r.Post("/{id}/messages", h.HandlePostMessage)
		r.Get("/{id}/messages", h.HandleListMessages)
		r.Delete("/{id}/messages/{messageId}", h.HandleDeleteMessage)
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
	req, ok := httputil.DecodeAndPrepare[CreateConversationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.CreateConversation(ctx, identity.UserID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toConversationResponse(c))
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

	var member *id.UserID
	if !identity.Role.IsAdmin() {
		m := identity.UserID
		member = &m
	}
	conversations, total, err := h.service.ListConversations(ctx, member, params.Limit, params.Offset())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items := make([]ConversationResponse, 0, len(conversations))
	for i := range conversations {
		items = append(items, toConversationResponse(&conversations[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPage(params, total, items))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conversationID, ok := h.admitParticipant(w, r)
	if !ok {
		return
	}
	c, err := h.service.GetConversation(ctx, conversationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toConversationResponse(c))
}

func (h *Handler) HandleAddParticipant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	conversationID, ok := h.pathConversationID(w, r)
	if !ok {
		return
	}

	c, err := h.service.GetConversation(ctx, conversationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// Only the creator or an admin may grow the participant set.
	if err := h.policy.Authorize(ctx, identity, authz.OwnerOrAdmin(c.CreatorID)); err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[AddParticipantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	if err := h.service.AddParticipant(ctx, conversationID, userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) HandleListParticipants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conversationID, ok := h.admitParticipant(w, r)
	if !ok {
		return
	}
	participants, err := h.service.ListParticipants(ctx, conversationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items := make([]ParticipantResponse, 0, len(participants))
	for i := range participants {
		items = append(items, toParticipantResponse(&participants[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) HandlePostMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	conversationID, ok := h.admitParticipant(w, r)
	if !ok {
		return
	}
	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[PostMessageRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	m, err := h.service.PostMessage(ctx, conversationID, identity.UserID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toMessageResponse(m))
}

func (h *Handler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := httputil.ParsePageParams(r)

	conversationID, ok := h.admitParticipant(w, r)
	if !ok {
		return
	}
	messages, total, err := h.service.ListMessages(ctx, conversationID, params.Limit, params.Offset())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		items = append(items, toMessageResponse(&messages[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPage(params, total, items))
}

func (h *Handler) HandleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	conversationID, ok := h.admitParticipant(w, r)
	if !ok {
		return
	}
	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	messageID, err := id.ParseMessageID(chi.URLParam(r, "messageId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid message id"))
		return
	}

	m, err := h.service.GetMessage(ctx, conversationID, messageID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// Participants may only remove their own messages; admins remove any.
	if err := h.policy.Authorize(ctx, identity, authz.OwnerOrAdmin(m.AuthorID)); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.DeleteMessage(ctx, conversationID, messageID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// admitParticipant resolves the conversation id from the path and enforces
// membership before anything touches the store.
func (h *Handler) admitParticipant(w http.ResponseWriter, r *http.Request) (id.ConversationID, bool) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return id.ConversationID{}, false
	}
	conversationID, ok := h.pathConversationID(w, r)
	if !ok {
		return id.ConversationID{}, false
	}

	if err := h.policy.Authorize(ctx, identity, authz.ParticipantOf(conversationID)); err != nil {
		httputil.WriteError(w, err)
		return id.ConversationID{}, false
	}
	return conversationID, true
}

func (h *Handler) pathConversationID(w http.ResponseWriter, r *http.Request) (id.ConversationID, bool) {
	conversationID, err := id.ParseConversationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid conversation id"))
		return id.ConversationID{}, false
	}
	return conversationID, true
}
