package storage

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"atrium/internal/authz"
	id "atrium/pkg/domain"
	"atrium/pkg/requestcontext"
)

const testChecksum = "a665a45920422f9d417e4867efdc4fb8a04a1f3fff1fa07e998e86f7f7a27ae3"

type HandlerSuite struct {
	suite.Suite
	router chi.Router

	owner requestcontext.Identity
	other requestcontext.Identity
	admin requestcontext.Identity
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := New(NewInMemoryStore(), WithLogger(logger))
	handler := NewHandler(service, authz.New(), logger)

	s.router = chi.NewRouter()
	handler.Register(s.router)

	s.owner = requestcontext.Identity{UserID: id.UserID(uuid.New()), Role: id.RoleStandard}
	s.other = requestcontext.Identity{UserID: id.UserID(uuid.New()), Role: id.RoleStandard}
	s.admin = requestcontext.Identity{UserID: id.UserID(uuid.New()), Role: id.RoleAdmin}
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

func (s *HandlerSuite) seedFile(name string) FileResponse {
	rec := s.do(http.MethodPost, "/files", map[string]any{
		"name":        name,
		"size":        1024,
		"contentType": "application/PDF",
		"checksum":    strings.ToUpper(testChecksum),
	}, s.owner)
	s.Require().Equal(http.StatusCreated, rec.Code)
	var body FileResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *HandlerSuite) TestCreateNormalizes() {
	f := s.seedFile("contract.pdf")
	s.Equal("application/pdf", f.ContentType)
	s.Equal(testChecksum, f.Checksum)
}

func (s *HandlerSuite) TestCreateRejectsBadChecksum() {
	rec := s.do(http.MethodPost, "/files", map[string]any{
		"name":        "contract.pdf",
		"size":        1024,
		"contentType": "application/pdf",
		"checksum":    "not-a-digest",
	}, s.owner)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestRename() {
	f := s.seedFile("contract.pdf")

	rec := s.do(http.MethodPatch, "/files/"+f.ID, map[string]string{"name": "contract-v2.pdf"}, s.owner)
	s.Require().Equal(http.StatusOK, rec.Code)
	var body FileResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("contract-v2.pdf", body.Name)

	// Checksum and size survive a rename untouched.
	s.Equal(f.Checksum, body.Checksum)
	s.Equal(f.Size, body.Size)
}

func (s *HandlerSuite) TestEmptyUpdateRejected() {
	f := s.seedFile("contract.pdf")
	s.Equal(http.StatusBadRequest, s.do(http.MethodPatch, "/files/"+f.ID, map[string]string{}, s.owner).Code)
}

func (s *HandlerSuite) TestOwnerOrAdmin() {
	f := s.seedFile("contract.pdf")

	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/files/"+f.ID, nil, s.other).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/files/"+f.ID, nil, s.admin).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/files/"+f.ID, nil, s.owner).Code)
}

func (s *HandlerSuite) TestSoftDeleteLifecycle() {
	f := s.seedFile("contract.pdf")

	s.Equal(http.StatusOK, s.do(http.MethodDelete, "/files/"+f.ID, nil, s.owner).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/files/"+f.ID, nil, s.owner).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/files/"+f.ID, nil, s.owner).Code)

	s.Equal(http.StatusOK, s.do(http.MethodPost, "/files/"+f.ID+"/restore", nil, s.owner).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/files/"+f.ID, nil, s.owner).Code)

	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/files/"+f.ID+"/restore", nil, s.owner).Code)
}

func (s *HandlerSuite) TestListScoping() {
	s.seedFile("a.pdf")
	s.seedFile("b.pdf")

	var page struct {
		Total int `json:"total"`
	}
	rec := s.do(http.MethodGet, "/files", nil, s.other)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &page))
	s.Equal(0, page.Total)

	rec = s.do(http.MethodGet, "/files", nil, s.admin)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &page))
	s.Equal(2, page.Total)
}
