package admin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"atrium/internal/audit"
)

type recordingAuditor struct {
	entries []audit.Entry
}

func (r *recordingAuditor) Record(_ context.Context, entry audit.Entry) {
	r.entries = append(r.entries, entry)
}

type HandlerSuite struct {
	suite.Suite
	router  chi.Router
	browser *InMemoryBrowser
	auditor *recordingAuditor
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.browser = NewInMemoryBrowser()
	s.auditor = &recordingAuditor{}
	service := New(s.browser, WithLogger(logger), WithAuditor(s.auditor))
	handler := NewHandler(service, logger)

	s.router = chi.NewRouter()
	handler.Register(s.router)

	s.browser.Seed(TableTasks, []Row{
		{"id": "t1", "title": "ship invoices"},
		{"id": "t2", "title": "call supplier"},
	})
	s.browser.Seed(TableUsers, []Row{
		{"id": "u1", "email": "ada@example.com"},
	})
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestBrowse() {
	rec := s.do(http.MethodGet, "/admin/browse/tasks")
	s.Require().Equal(http.StatusOK, rec.Code)

	var page struct {
		Total int `json:"total"`
		Items struct {
			Table   string   `json:"table"`
			Columns []string `json:"columns"`
			Rows    []Row    `json:"rows"`
		} `json:"items"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &page))
	s.Equal(2, page.Total)
	s.Equal("tasks", page.Items.Table)
	s.Contains(page.Items.Columns, "title")
	s.Len(page.Items.Rows, 2)
}

func (s *HandlerSuite) TestBrowseUnlistedTable() {
	rec := s.do(http.MethodGet, "/admin/browse/pg_catalog")
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "table not allowed")
}

func (s *HandlerSuite) TestTruncate() {
	s.Require().Equal(http.StatusOK, s.do(http.MethodDelete, "/admin/browse/tasks").Code)

	rec := s.do(http.MethodGet, "/admin/browse/tasks")
	var page struct {
		Total int `json:"total"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &page))
	s.Equal(0, page.Total)

	s.Require().Len(s.auditor.entries, 1)
	s.Equal(audit.ActionTruncateTable, s.auditor.entries[0].Action)
	s.Equal(audit.SeverityCritical, s.auditor.entries[0].Severity)
}

func (s *HandlerSuite) TestTruncateProtectedTables() {
	for _, table := range []string{"users", "audit_entries"} {
		rec := s.do(http.MethodDelete, "/admin/browse/"+table)
		s.Equal(http.StatusForbidden, rec.Code)
		s.Contains(rec.Body.String(), "read-only table")
	}

	// Protected data is untouched and nothing was audited.
	rec := s.do(http.MethodGet, "/admin/browse/users")
	var page struct {
		Total int `json:"total"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &page))
	s.Equal(1, page.Total)
	s.Empty(s.auditor.entries)
}

func (s *HandlerSuite) TestTruncateUnlistedTable() {
	s.Equal(http.StatusBadRequest, s.do(http.MethodDelete, "/admin/browse/sessions").Code)
}

func TestParseTable(t *testing.T) {
	for table := range tableSchemas {
		got, err := ParseTable(string(table))
		assert.NoError(t, err)
		assert.Equal(t, table, got)
	}
	for _, raw := range []string{"", "USERS", "pg_shadow", "users; drop table users"} {
		_, err := ParseTable(raw)
		assert.Error(t, err)
	}
}
