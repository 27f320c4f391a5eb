package finance

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
	admin requestcontext.Identity
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := NewInMemoryStore()
	service := New(store, NewMemoryTx(store), WithLogger(logger))
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

func (s *HandlerSuite) seedWallet(name string, balance int64) WalletResponse {
	rec := s.do(http.MethodPost, "/wallets", map[string]any{
		"name":     name,
		"currency": "eur",
		"balance":  balance,
	}, s.owner)
	s.Require().Equal(http.StatusCreated, rec.Code)
	var body WalletResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *HandlerSuite) seedExpense(walletID string, amount int64) ExpenseResponse {
	rec := s.do(http.MethodPost, "/expenses", map[string]any{
		"walletId": walletID,
		"amount":   amount,
		"category": "travel",
	}, s.owner)
	s.Require().Equal(http.StatusCreated, rec.Code)
	var body ExpenseResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *HandlerSuite) walletBalance(walletID string) int64 {
	rec := s.do(http.MethodGet, "/wallets/"+walletID, nil, s.owner)
	s.Require().Equal(http.StatusOK, rec.Code)
	var body WalletResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Balance
}

func (s *HandlerSuite) TestCreateWalletNormalizesCurrency() {
	w := s.seedWallet("groceries", 10_000)
	s.Equal("EUR", w.Currency)
	s.Equal(int64(10_000), w.Balance)
}

func (s *HandlerSuite) TestCreateWalletDuplicateName() {
	s.seedWallet("groceries", 0)

	rec := s.do(http.MethodPost, "/wallets", map[string]any{
		"name":     "Groceries",
		"currency": "EUR",
	}, s.owner)
	s.Equal(http.StatusConflict, rec.Code)

	// A different owner can reuse the name.
	rec = s.do(http.MethodPost, "/wallets", map[string]any{
		"name":     "groceries",
		"currency": "EUR",
	}, s.other)
	s.Equal(http.StatusCreated, rec.Code)
}

func (s *HandlerSuite) TestCreateExpenseDebitsWallet() {
	w := s.seedWallet("travel", 10_000)

	e := s.seedExpense(w.ID, 2_500)
	s.Equal(int64(2_500), e.Amount)
	s.Equal(int64(7_500), s.walletBalance(w.ID))
}

func (s *HandlerSuite) TestCreateExpenseInsufficientFunds() {
	w := s.seedWallet("travel", 1_000)

	rec := s.do(http.MethodPost, "/expenses", map[string]any{
		"walletId": w.ID,
		"amount":   2_500,
		"category": "travel",
	}, s.owner)
	s.Equal(http.StatusBadRequest, rec.Code)

	// The rejected debit rolled back and no expense was written.
	s.Equal(int64(1_000), s.walletBalance(w.ID))
	rec = s.do(http.MethodGet, "/expenses", nil, s.owner)
	var page struct {
		Total int `json:"total"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &page))
	s.Equal(0, page.Total)
}

func (s *HandlerSuite) TestDeleteExpenseRestoresBalance() {
	w := s.seedWallet("travel", 10_000)
	e := s.seedExpense(w.ID, 4_000)
	s.Equal(int64(6_000), s.walletBalance(w.ID))

	s.Equal(http.StatusOK, s.do(http.MethodDelete, "/expenses/"+e.ID, nil, s.owner).Code)
	s.Equal(int64(10_000), s.walletBalance(w.ID))

	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/expenses/"+e.ID, nil, s.owner).Code)
}

func (s *HandlerSuite) TestExpenseOnForeignWallet() {
	w := s.seedWallet("travel", 10_000)

	rec := s.do(http.MethodPost, "/expenses", map[string]any{
		"walletId": w.ID,
		"amount":   1_000,
		"category": "travel",
	}, s.other)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/expenses", map[string]any{
		"walletId": uuid.NewString(),
		"amount":   1_000,
		"category": "travel",
	}, s.owner)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestExpenseOwnership() {
	w := s.seedWallet("travel", 10_000)
	e := s.seedExpense(w.ID, 1_000)

	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/expenses/"+e.ID, nil, s.other).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/expenses/"+e.ID, nil, s.admin).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/expenses/"+e.ID, nil, s.owner).Code)
}

func (s *HandlerSuite) TestExpenseWithProject() {
	w := s.seedWallet("travel", 10_000)

	rec := s.do(http.MethodPost, "/projects", map[string]string{"name": "berlin office"}, s.owner)
	s.Require().Equal(http.StatusCreated, rec.Code)
	var project ProjectResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &project))

	rec = s.do(http.MethodPost, "/expenses", map[string]any{
		"walletId":  w.ID,
		"projectId": project.ID,
		"amount":    1_000,
		"category":  "travel",
	}, s.owner)
	s.Require().Equal(http.StatusCreated, rec.Code)
	var e ExpenseResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &e))
	s.Require().NotNil(e.ProjectID)
	s.Equal(project.ID, *e.ProjectID)

	// Projects owned by someone else are off-limits.
	rec = s.do(http.MethodPost, "/projects", map[string]string{"name": "oslo office"}, s.other)
	s.Require().Equal(http.StatusCreated, rec.Code)
	var foreign ProjectResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &foreign))

	rec = s.do(http.MethodPost, "/expenses", map[string]any{
		"walletId":  w.ID,
		"projectId": foreign.ID,
		"amount":    1_000,
		"category":  "travel",
	}, s.owner)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *HandlerSuite) TestListScoping() {
	w := s.seedWallet("travel", 10_000)
	s.seedExpense(w.ID, 1_000)
	s.seedExpense(w.ID, 2_000)

	var page struct {
		Total int `json:"total"`
	}
	rec := s.do(http.MethodGet, "/expenses", nil, s.other)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &page))
	s.Equal(0, page.Total)

	rec = s.do(http.MethodGet, "/expenses", nil, s.admin)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &page))
	s.Equal(2, page.Total)
}

func (s *HandlerSuite) TestCreateWalletValidation() {
	rec := s.do(http.MethodPost, "/wallets", map[string]any{
		"name":     "savings",
		"currency": "eu",
	}, s.owner)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/wallets", map[string]any{
		"name":     "savings",
		"currency": "eur",
		"balance":  -1,
	}, s.owner)
	s.Equal(http.StatusBadRequest, rec.Code)
}
