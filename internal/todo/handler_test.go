package todo

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"atrium/internal/authz"
	id "atrium/pkg/domain"
	"atrium/pkg/requestcontext"
)

type HandlerSuite struct {
	suite.Suite
	router chi.Router

	owner requestcontext.Identity
	other requestcontext.Identity
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := New(NewInMemoryStore(), WithLogger(logger))
	handler := NewHandler(service, authz.New(), logger)

	s.router = chi.NewRouter()
	handler.Register(s.router)

	s.owner = requestcontext.Identity{UserID: id.UserID(uuid.New()), Role: id.RoleStandard}
	s.other = requestcontext.Identity{UserID: id.UserID(uuid.New()), Role: id.RoleStandard}
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) do(method, path string, body any, identity requestcontext.Identity) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(requestcontext.WithIdentity(req.Context(), identity))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) seedTodo(text string) TodoResponse {
	rec := s.do(http.MethodPost, "/todos", map[string]string{"text": text}, s.owner)
	s.Require().Equal(http.StatusCreated, rec.Code)
	var body TodoResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *HandlerSuite) TestCreateStartsUndone() {
	t := s.seedTodo("call accountant")
	s.False(t.Done)
}

func (s *HandlerSuite) TestToggleDone() {
	t := s.seedTodo("call accountant")

	rec := s.do(http.MethodPatch, "/todos/"+t.ID, map[string]bool{"done": true}, s.owner)
	s.Equal(http.StatusOK, rec.Code)
	var body TodoResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.True(body.Done)
}

func (s *HandlerSuite) TestEmptyUpdateRejected() {
	t := s.seedTodo("call accountant")

	rec := s.do(http.MethodPatch, "/todos/"+t.ID, map[string]string{}, s.owner)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestOwnershipEnforced() {
	t := s.seedTodo("call accountant")

	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/todos/"+t.ID, nil, s.other).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodDelete, "/todos/"+t.ID, nil, s.other).Code)
}

func (s *HandlerSuite) TestSoftDeleteLifecycle() {
	t := s.seedTodo("call accountant")

	s.Equal(http.StatusOK, s.do(http.MethodDelete, "/todos/"+t.ID, nil, s.owner).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/todos/"+t.ID, nil, s.owner).Code)

	rec := s.do(http.MethodPost, "/todos/"+t.ID+"/restore", nil, s.owner)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/todos/"+t.ID, nil, s.owner).Code)
}
