package user

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"atrium/pkg/platform/httputil"
	request "atrium/pkg/platform/middleware/request"
	"atrium/pkg/platform/middleware/session"
)

// Handler exposes the authentication surface. The session credential rides in
// an HTTP-only cookie; handlers never echo it in a response body.
type Handler struct {
	service    *Service
	logger     *slog.Logger
	cookieName string
	sessionTTL time.Duration
}

func NewHandler(service *Service, logger *slog.Logger, cookieName string, sessionTTL time.Duration) *Handler {
	if cookieName == "" {
		cookieName = session.DefaultCookieName
	}
	return &Handler{
		service:    service,
		logger:     logger,
		cookieName: cookieName,
		sessionTTL: sessionTTL,
	}
}

// Register mounts the public auth routes. /auth/me and /auth/logout are
// expected to be mounted behind session.Require by the caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
}

// RegisterProtected mounts routes that need an authenticated session.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/me", h.HandleMe)
}

// HandleLogin verifies credentials and sets the session cookie.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	u, token, err := h.service.Login(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(token, h.sessionTTL))
	h.logger.InfoContext(ctx, "user logged in",
		"user_id", u.ID,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleLogout clears the session cookie. The credential itself is stateless;
// expiry on the client side is the revocation.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.service.Logout(ctx, identity.UserID)
	http.SetCookie(w, h.sessionCookie("", -time.Hour))
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleMe returns the authenticated user's current record.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	u, err := h.service.Get(ctx, identity.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) sessionCookie(value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
