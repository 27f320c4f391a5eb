package chat

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

	creator requestcontext.Identity
	member  requestcontext.Identity
	other   requestcontext.Identity
	admin   requestcontext.Identity
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := New(NewInMemoryStore(), WithLogger(logger))
	policy := authz.New(authz.WithMembershipChecker(service))
	handler := NewHandler(service, policy, logger)

	s.router = chi.NewRouter()
	handler.Register(s.router)

	s.creator = requestcontext.Identity{UserID: id.UserID(uuid.New()), Role: id.RoleStandard}
	s.member = requestcontext.Identity{UserID: id.UserID(uuid.New()), Role: id.RoleStandard}
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

func (s *HandlerSuite) seedConversation() ConversationResponse {
	rec := s.do(http.MethodPost, "/conversations", map[string]string{"title": "project kickoff"}, s.creator)
	s.Require().Equal(http.StatusCreated, rec.Code)
	var body ConversationResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *HandlerSuite) addMember(convID string, member requestcontext.Identity, as requestcontext.Identity) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/conversations/"+convID+"/participants",
		map[string]string{"userId": member.UserID.String()}, as)
}

func (s *HandlerSuite) postMessage(convID, body string, as requestcontext.Identity) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/conversations/"+convID+"/messages",
		map[string]string{"body": body}, as)
}

func (s *HandlerSuite) TestCreatorIsAutoParticipant() {
	c := s.seedConversation()

	s.Equal(http.StatusOK, s.do(http.MethodGet, "/conversations/"+c.ID, nil, s.creator).Code)
	s.Equal(http.StatusCreated, s.postMessage(c.ID, "hello", s.creator).Code)
}

func (s *HandlerSuite) TestNonParticipantGets403() {
	c := s.seedConversation()

	// Existing and nonexistent conversations look identical to outsiders.
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/conversations/"+c.ID, nil, s.other).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/conversations/"+uuid.NewString(), nil, s.other).Code)
	s.Equal(http.StatusForbidden, s.postMessage(c.ID, "let me in", s.other).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/conversations/"+c.ID+"/messages", nil, s.other).Code)
}

func (s *HandlerSuite) TestAdminBypassesMembership() {
	c := s.seedConversation()

	s.Equal(http.StatusOK, s.do(http.MethodGet, "/conversations/"+c.ID, nil, s.admin).Code)
	s.Equal(http.StatusCreated, s.postMessage(c.ID, "admin note", s.admin).Code)
}

func (s *HandlerSuite) TestAddParticipant() {
	c := s.seedConversation()

	// Only the creator or an admin may add members.
	s.Equal(http.StatusForbidden, s.addMember(c.ID, s.other, s.member).Code)
	s.Equal(http.StatusOK, s.addMember(c.ID, s.member, s.creator).Code)
	s.Equal(http.StatusCreated, s.postMessage(c.ID, "hi all", s.member).Code)

	// Re-adding is a no-op, not an error.
	s.Equal(http.StatusOK, s.addMember(c.ID, s.member, s.creator).Code)

	// Admins may add members too.
	s.Equal(http.StatusOK, s.addMember(c.ID, s.other, s.admin).Code)
	s.Equal(http.StatusCreated, s.postMessage(c.ID, "me three", s.other).Code)
}

func (s *HandlerSuite) TestMessageOrderingAndPaging() {
	c := s.seedConversation()
	for _, body := range []string{"first", "second", "third"} {
		s.Require().Equal(http.StatusCreated, s.postMessage(c.ID, body, s.creator).Code)
	}

	rec := s.do(http.MethodGet, "/conversations/"+c.ID+"/messages", nil, s.creator)
	s.Require().Equal(http.StatusOK, rec.Code)
	var page struct {
		Total int               `json:"total"`
		Items []MessageResponse `json:"items"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &page))
	s.Equal(3, page.Total)
	s.Require().Len(page.Items, 3)
	s.Equal("first", page.Items[0].Body)
	s.Equal("third", page.Items[2].Body)
}

func (s *HandlerSuite) TestDeleteMessage() {
	c := s.seedConversation()
	s.Require().Equal(http.StatusOK, s.addMember(c.ID, s.member, s.creator).Code)

	rec := s.postMessage(c.ID, "oops", s.member)
	s.Require().Equal(http.StatusCreated, rec.Code)
	var m MessageResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &m))

	path := "/conversations/" + c.ID + "/messages/" + m.ID

	// Other participants cannot delete someone else's message.
	s.Equal(http.StatusForbidden, s.do(http.MethodDelete, path, nil, s.creator).Code)

	s.Equal(http.StatusOK, s.do(http.MethodDelete, path, nil, s.member).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, path, nil, s.member).Code)

	rec = s.do(http.MethodGet, "/conversations/"+c.ID+"/messages", nil, s.member)
	var page struct {
		Total int `json:"total"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &page))
	s.Equal(0, page.Total)
}

func (s *HandlerSuite) TestAdminDeletesAnyMessage() {
	c := s.seedConversation()
	rec := s.postMessage(c.ID, "spam", s.creator)
	s.Require().Equal(http.StatusCreated, rec.Code)
	var m MessageResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &m))

	s.Equal(http.StatusOK, s.do(http.MethodDelete, "/conversations/"+c.ID+"/messages/"+m.ID, nil, s.admin).Code)
}

func (s *HandlerSuite) TestListScoping() {
	c := s.seedConversation()
	s.Require().Equal(http.StatusOK, s.addMember(c.ID, s.member, s.creator).Code)

	var page struct {
		Total int `json:"total"`
	}
	for identity, want := range map[*requestcontext.Identity]int{
		&s.creator: 1,
		&s.member:  1,
		&s.other:   0,
		&s.admin:   1,
	} {
		rec := s.do(http.MethodGet, "/conversations", nil, *identity)
		s.Require().Equal(http.StatusOK, rec.Code)
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &page))
		s.Equal(want, page.Total)
	}
}

func (s *HandlerSuite) TestEmptyBodyRejected() {
	c := s.seedConversation()
	s.Equal(http.StatusBadRequest, s.postMessage(c.ID, "   ", s.creator).Code)
}
