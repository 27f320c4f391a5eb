package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"atrium/internal/authz"
	id "atrium/pkg/domain"
	"atrium/pkg/requestcontext"
)

type HandlerSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
	router  chi.Router

	owner requestcontext.Identity
	other requestcontext.Identity
	admin requestcontext.Identity
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = NewInMemoryStore()
	s.service = New(s.store, s.store, WithLogger(logger))
	handler := NewHandler(s.service, authz.New(), logger)

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

func (s *HandlerSuite) seedClient(name string, identifiers ...IdentifierInput) *Client {
	c, err := s.service.Create(context.Background(), s.owner.UserID, &CreateClientRequest{
		Name:        name,
		Identifiers: identifiers,
	})
	s.Require().NoError(err)
	return c
}

func (s *HandlerSuite) TestCreateGeneratesSlug() {
	rec := s.do(http.MethodPost, "/clients", map[string]any{
		"name": "ACME Corp & Sons",
	}, s.owner)

	s.Equal(http.StatusCreated, rec.Code)
	var body ClientResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("acme-corp-sons", body.Slug)
}

func (s *HandlerSuite) TestCreateDuplicateSlugConflict() {
	s.seedClient("ACME Corp")

	rec := s.do(http.MethodPost, "/clients", map[string]any{"name": "Acme corp"}, s.owner)
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestOwnerScoping() {
	c := s.seedClient("ACME Corp")

	rec := s.do(http.MethodGet, "/clients/"+c.ID.String(), nil, s.other)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/clients/"+c.ID.String(), nil, s.admin)
	s.Equal(http.StatusOK, rec.Code)

	// Listing scopes to the caller; admins see everything.
	rec = s.do(http.MethodGet, "/clients", nil, s.other)
	var page struct {
		Total int `json:"total"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &page))
	s.Equal(0, page.Total)

	rec = s.do(http.MethodGet, "/clients", nil, s.admin)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &page))
	s.Equal(1, page.Total)
}

func (s *HandlerSuite) TestSoftDeleteManglesSlugAndRestore() {
	c := s.seedClient("ACME Corp")

	rec := s.do(http.MethodDelete, "/clients/"+c.ID.String(), nil, s.owner)
	s.Equal(http.StatusOK, rec.Code)

	// Slug is freed; a new live client can claim it.
	rec = s.do(http.MethodPost, "/clients", map[string]any{"name": "ACME Corp"}, s.owner)
	s.Equal(http.StatusCreated, rec.Code)

	// Restore keeps the mangled slug because the original was re-taken.
	rec = s.do(http.MethodPost, "/clients/"+c.ID.String()+"/restore", nil, s.owner)
	s.Equal(http.StatusOK, rec.Code)
	var body ClientResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Contains(body.Slug, "-deleted-")
	s.Nil(body.DeletedAt)
}

func (s *HandlerSuite) TestRestoreRecoversOriginalSlug() {
	c := s.seedClient("ACME Corp")

	s.Require().NoError(s.service.SoftDelete(context.Background(), c.ID))

	restored, err := s.service.Restore(context.Background(), c.ID)
	s.Require().NoError(err)
	s.Equal("acme-corp", restored.Slug)
}

func (s *HandlerSuite) TestDeleteTwiceIsNotFound() {
	c := s.seedClient("ACME Corp")

	rec := s.do(http.MethodDelete, "/clients/"+c.ID.String(), nil, s.owner)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodDelete, "/clients/"+c.ID.String(), nil, s.owner)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestCheckIdentifiers() {
	existing := s.seedClient("ACME Corp", IdentifierInput{Number: "LT123456", Kind: "vat"})

	s.T().Run("exact match is a duplicate", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/clients/check-identifiers", map[string]any{
			"identifiers": []map[string]string{{"number": "LT123456", "kind": "vat"}},
		}, s.owner)

		assert.Equal(t, http.StatusOK, rec.Code)
		var result CheckIdentifiersResult
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Len(t, result.Duplicates, 1)
		assert.Empty(t, result.Warnings)
		assert.Equal(t, "ACME Corp", result.Duplicates[0].ClientName)
	})

	s.T().Run("same number different kind is a warning", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/clients/check-identifiers", map[string]any{
			"identifiers": []map[string]string{{"number": "LT123456", "kind": "registration"}},
		}, s.owner)

		var result CheckIdentifiersResult
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Empty(t, result.Duplicates)
		assert.Len(t, result.Warnings, 1)
	})

	s.T().Run("own client is excluded from the check", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/clients/check-identifiers", map[string]any{
			"clientId":    existing.ID.String(),
			"identifiers": []map[string]string{{"number": "LT123456", "kind": "vat"}},
		}, s.owner)

		var result CheckIdentifiersResult
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Empty(t, result.Duplicates)
		assert.Empty(t, result.Warnings)
	})

	s.T().Run("deleted clients do not collide", func(t *testing.T) {
		s.Require().NoError(s.service.SoftDelete(context.Background(), existing.ID))

		rec := s.do(http.MethodPost, "/clients/check-identifiers", map[string]any{
			"identifiers": []map[string]string{{"number": "LT123456", "kind": "vat"}},
		}, s.owner)

		var result CheckIdentifiersResult
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Empty(t, result.Duplicates)
	})
}

func (s *HandlerSuite) TestSearchLinkLifecycle() {
	c := s.seedClient("ACME Corp")

	rec := s.do(http.MethodPost, "/searches", map[string]string{"name": "Prospects"}, s.owner)
	s.Equal(http.StatusCreated, rec.Code)
	var search SearchResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &search))

	linkPath := "/searches/" + search.ID + "/clients/" + c.ID.String()

	// Linking twice is idempotent.
	s.Equal(http.StatusOK, s.do(http.MethodPut, linkPath, nil, s.owner).Code)
	s.Equal(http.StatusOK, s.do(http.MethodPut, linkPath, nil, s.owner).Code)

	rec = s.do(http.MethodGet, "/searches/"+search.ID+"/clients", nil, s.owner)
	var page struct {
		Total int              `json:"total"`
		Items []ClientResponse `json:"items"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &page))
	s.Equal(1, page.Total)

	// Unlink removes only the link.
	s.Equal(http.StatusOK, s.do(http.MethodDelete, linkPath, nil, s.owner).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, linkPath, nil, s.owner).Code)

	rec = s.do(http.MethodGet, "/clients/"+c.ID.String(), nil, s.owner)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestSearchOwnership() {
	rec := s.do(http.MethodPost, "/searches", map[string]string{"name": "Prospects"}, s.owner)
	var search SearchResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &search))

	rec = s.do(http.MethodDelete, "/searches/"+search.ID, nil, s.other)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodDelete, "/searches/"+search.ID, nil, s.admin)
	s.Equal(http.StatusOK, rec.Code)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme-corp", Slugify("ACME Corp"))
	assert.Equal(t, "acme-corp-sons", Slugify(" ACME Corp & Sons! "))
	assert.Equal(t, "uab-kava-2", Slugify("UAB Kava 2"))
	assert.Equal(t, "", Slugify("!!!"))
}
