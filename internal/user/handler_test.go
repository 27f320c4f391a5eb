package user

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	id "atrium/pkg/domain"
	"atrium/pkg/requestcontext"
)

// stubIssuer returns a fixed token so handler tests don't need signing keys.
type stubIssuer struct {
	token string
	err   error
}

func (s *stubIssuer) Issue(context.Context, id.UserID, id.Role, time.Duration) (string, error) {
	return s.token, s.err
}

type HandlerSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
	handler *Handler
	admin   *AdminHandler
	router  chi.Router
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = NewInMemoryStore()
	s.service = New(s.store, &stubIssuer{token: "session-token"},
		WithLogger(logger),
		WithHashParams(cheapHashParams),
	)
	s.handler = NewHandler(s.service, logger, "atrium_session", time.Hour)
	s.admin = NewAdminHandler(s.service, logger)

	s.router = chi.NewRouter()
	s.handler.Register(s.router)
	s.handler.RegisterProtected(s.router)
	s.admin.Register(s.router)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) seedUser(email, username, plaintext string) *User {
	u, err := s.service.Create(context.Background(), &CreateUserRequest{
		Email:    email,
		Username: username,
		Password: plaintext,
	})
	s.Require().NoError(err)
	return u
}

func (s *HandlerSuite) do(method, path string, body any, identity *requestcontext.Identity) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if identity != nil {
		req = req.WithContext(requestcontext.WithIdentity(req.Context(), *identity))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestLoginSetsSessionCookie() {
	s.seedUser("ada@example.com", "ada", "supersecret")

	rec := s.do(http.MethodPost, "/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "supersecret",
	}, nil)

	s.Equal(http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	s.Require().Len(cookies, 1)
	s.Equal("atrium_session", cookies[0].Name)
	s.Equal("session-token", cookies[0].Value)
	s.True(cookies[0].HttpOnly)

	var body UserResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("ada@example.com", body.Email)
	s.NotContains(rec.Body.String(), "session-token")
}

func (s *HandlerSuite) TestLoginRejectsBadCredentials() {
	s.seedUser("ada@example.com", "ada", "supersecret")

	rec := s.do(http.MethodPost, "/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "wrong",
	}, nil)

	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Empty(rec.Result().Cookies())
}

func (s *HandlerSuite) TestLogoutClearsCookie() {
	u := s.seedUser("ada@example.com", "ada", "supersecret")
	identity := requestcontext.Identity{UserID: u.ID, Role: u.Role}

	rec := s.do(http.MethodPost, "/auth/logout", nil, &identity)

	s.Equal(http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	s.Require().Len(cookies, 1)
	s.Empty(cookies[0].Value)
	s.Negative(cookies[0].MaxAge)
}

func (s *HandlerSuite) TestMeReturnsCurrentUser() {
	u := s.seedUser("ada@example.com", "ada", "supersecret")
	identity := requestcontext.Identity{UserID: u.ID, Role: u.Role}

	rec := s.do(http.MethodGet, "/auth/me", nil, &identity)

	s.Equal(http.StatusOK, rec.Code)
	var body UserResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal(u.ID.String(), body.ID)
}

func (s *HandlerSuite) TestAdminCreateValidation() {
	rec := s.do(http.MethodPost, "/admin/users", map[string]string{
		"email":    "not-an-email",
		"username": "x",
		"password": "supersecret",
	}, nil)

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestAdminCreateDuplicateConflict() {
	s.seedUser("ada@example.com", "ada", "supersecret")

	rec := s.do(http.MethodPost, "/admin/users", map[string]string{
		"email":    "ada@example.com",
		"username": "ada2",
		"password": "supersecret",
	}, nil)

	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestAdminListPaginates() {
	s.seedUser("a@example.com", "a", "supersecret")
	s.seedUser("b@example.com", "b", "supersecret")
	s.seedUser("c@example.com", "c", "supersecret")

	rec := s.do(http.MethodGet, "/admin/users?page=1&limit=2", nil, nil)

	s.Equal(http.StatusOK, rec.Code)
	var body struct {
		Total      int            `json:"total"`
		TotalPages int            `json:"totalPages"`
		Items      []UserResponse `json:"items"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal(3, body.Total)
	s.Equal(2, body.TotalPages)
	s.Len(body.Items, 2)
}

func (s *HandlerSuite) TestAdminSoftDeleteAndRestore() {
	u := s.seedUser("ada@example.com", "ada", "supersecret")

	rec := s.do(http.MethodDelete, "/admin/users/"+u.ID.String(), nil, nil)
	s.Equal(http.StatusOK, rec.Code)

	// Deleted accounts can no longer log in.
	rec = s.do(http.MethodPost, "/auth/login", map[string]string{
		"email":    "ada@example.com",
		"password": "supersecret",
	}, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/admin/users/"+u.ID.String()+"/restore", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
	var body UserResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("ada", body.Username)
	s.Nil(body.DeletedAt)
}

func (s *HandlerSuite) TestAdminRestoreKeepsMangledNameOnConflict() {
	u := s.seedUser("ada@example.com", "ada", "supersecret")

	rec := s.do(http.MethodDelete, "/admin/users/"+u.ID.String(), nil, nil)
	s.Equal(http.StatusOK, rec.Code)

	// Someone claims the freed username while the account is deleted.
	s.seedUser("ada2@example.com", "ada", "supersecret")

	rec = s.do(http.MethodPost, "/admin/users/"+u.ID.String()+"/restore", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
	var body UserResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.NotEqual("ada", body.Username)
	s.Contains(body.Username, "#deleted-")
}

func (s *HandlerSuite) TestAdminPermanentDeleteSelfGuard() {
	u := s.seedUser("ada@example.com", "ada", "supersecret")
	identity := requestcontext.Identity{UserID: u.ID, Role: id.RoleAdmin}

	rec := s.do(http.MethodDelete, "/admin/users/"+u.ID.String()+"/permanent", nil, &identity)
	s.Equal(http.StatusBadRequest, rec.Code)

	other := s.seedUser("bob@example.com", "bob", "supersecret")
	rec = s.do(http.MethodDelete, "/admin/users/"+other.ID.String()+"/permanent", nil, &identity)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/auth/me", nil, &requestcontext.Identity{UserID: other.ID, Role: other.Role})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestAdminUpdateRoleAndActive() {
	u := s.seedUser("ada@example.com", "ada", "supersecret")

	role := "admin"
	active := false
	rec := s.do(http.MethodPatch, "/admin/users/"+u.ID.String(), map[string]any{
		"role":   role,
		"active": active,
	}, nil)

	s.Equal(http.StatusOK, rec.Code)
	var body UserResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("admin", body.Role)
	s.False(body.Active)
}
