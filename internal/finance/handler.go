package finance

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"atrium/internal/authz"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/httputil"
	request "atrium/pkg/platform/middleware/request"
	"atrium/pkg/requestcontext"
)

// Handler exposes wallets, projects, and expenses. Mounted behind
// session.Require.
type Handler struct {
	service *Service
	policy  *authz.Policy
	logger  *slog.Logger
}

func NewHandler(service *Service, policy *authz.Policy, logger *slog.Logger) *Handler {
	return &Handler{service: service, policy: policy, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/wallets", func(r chi.Router) {
		r.Post("/", h.HandleCreateWallet)
		r.Get("/", h.HandleListWallets)
		r.Get("/{id}", h.HandleGetWallet)
	})
	r.Route("/projects", func(r chi.Router) {
		r.Post("/", h.HandleCreateProject)
		r.Get("/", h.HandleListProjects)
	})
	r.Route("/expenses", func(r chi.Router) {
		r.Post("/", h.HandleCreateExpense)
		r.Get("/", h.HandleListExpenses)
		r.Get("/{id}", h.HandleGetExpense)
		r.Delete("/{id}", h.HandleDeleteExpense)
	})
}

func (h *Handler) HandleCreateWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateWalletRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	wallet, err := h.service.CreateWallet(ctx, identity.UserID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toWalletResponse(wallet))
}

func (h *Handler) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	walletID, err := id.ParseWalletID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid wallet id"))
		return
	}

	wallet, err := h.service.GetWallet(ctx, walletID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.policy.Authorize(ctx, identity, authz.OwnerOrAdmin(wallet.OwnerID)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toWalletResponse(wallet))
}

func (h *Handler) HandleListWallets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	params := httputil.ParsePageParams(r)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	wallets, total, err := h.service.ListWallets(ctx, ownerScope(identity), params.Limit, params.Offset())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items := make([]WalletResponse, 0, len(wallets))
	for i := range wallets {
		items = append(items, toWalletResponse(&wallets[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPage(params, total, items))
}

func (h *Handler) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateProjectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	project, err := h.service.CreateProject(ctx, identity.UserID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toProjectResponse(project))
}

func (h *Handler) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	params := httputil.ParsePageParams(r)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	projects, total, err := h.service.ListProjects(ctx, ownerScope(identity), params.Limit, params.Offset())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		items = append(items, toProjectResponse(&projects[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPage(params, total, items))
}

func (h *Handler) HandleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateExpenseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	expense, err := h.service.CreateExpense(ctx, identity.UserID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

func (h *Handler) HandleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, ok := h.loadAuthorizedExpense(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toExpenseResponse(e))
}

func (h *Handler) HandleListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	params := httputil.ParsePageParams(r)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	expenses, total, err := h.service.ListExpenses(ctx, ownerScope(identity), params.Limit, params.Offset())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items := make([]ExpenseResponse, 0, len(expenses))
	for i := range expenses {
		items = append(items, toExpenseResponse(&expenses[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPage(params, total, items))
}

func (h *Handler) HandleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	e, ok := h.loadAuthorizedExpense(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteExpense(ctx, e.ID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) loadAuthorizedExpense(w http.ResponseWriter, r *http.Request) (*Expense, bool) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	identity, err := httputil.RequireIdentity(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	expenseID, err := id.ParseExpenseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid expense id"))
		return nil, false
	}

	e, err := h.service.GetExpense(ctx, expenseID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	if err := h.policy.Authorize(ctx, identity, authz.OwnerOrAdmin(e.OwnerID)); err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	return e, true
}

func ownerScope(identity requestcontext.Identity) *id.UserID {
	if identity.Role.IsAdmin() {
		return nil
	}
	o := identity.UserID
	return &o
}
