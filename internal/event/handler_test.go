package event

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

func (s *HandlerSuite) seedEvent(title string) EventResponse {
	rec := s.do(http.MethodPost, "/events", map[string]any{
		"title":    title,
		"startsAt": time.Now().Add(time.Hour).Format(time.RFC3339),
		"location": "Vilnius",
	}, s.owner)
	s.Require().Equal(http.StatusCreated, rec.Code)
	var body EventResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *HandlerSuite) TestCreateRequiresStart() {
	rec := s.do(http.MethodPost, "/events", map[string]any{"title": "board meeting"}, s.owner)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestCreateRejectsInvertedRange() {
	start := time.Now().Add(2 * time.Hour)
	end := start.Add(-time.Hour)
	rec := s.do(http.MethodPost, "/events", map[string]any{
		"title":    "board meeting",
		"startsAt": start.Format(time.RFC3339),
		"endsAt":   end.Format(time.RFC3339),
	}, s.owner)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestUpdateLocation() {
	e := s.seedEvent("board meeting")

	rec := s.do(http.MethodPatch, "/events/"+e.ID, map[string]string{"location": "Kaunas"}, s.owner)
	s.Equal(http.StatusOK, rec.Code)
	var body EventResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("Kaunas", body.Location)
}

func (s *HandlerSuite) TestOwnershipEnforced() {
	e := s.seedEvent("board meeting")

	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/events/"+e.ID, nil, s.other).Code)
}

func (s *HandlerSuite) TestSoftDeleteLifecycle() {
	e := s.seedEvent("board meeting")

	s.Equal(http.StatusOK, s.do(http.MethodDelete, "/events/"+e.ID, nil, s.owner).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/events/"+e.ID, nil, s.owner).Code)

	s.Equal(http.StatusOK, s.do(http.MethodPost, "/events/"+e.ID+"/restore", nil, s.owner).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/events/"+e.ID, nil, s.owner).Code)
}
