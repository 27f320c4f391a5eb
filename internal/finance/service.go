package finance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"atrium/internal/audit"
	"atrium/internal/platform/tracer"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/sentinel"
)

// Store persists wallets, projects, and expenses. Methods resolve their
// executor from the context so they can join a caller-managed transaction.
type Store interface {
	CreateWallet(ctx context.Context, w *Wallet) error
	FindWallet(ctx context.Context, walletID id.WalletID) (*Wallet, error)
	ListWallets(ctx context.Context, owner *id.UserID, limit, offset int) ([]Wallet, int, error)
	// AdjustWalletBalance applies a signed delta and returns the new balance.
	AdjustWalletBalance(ctx context.Context, walletID id.WalletID, delta int64) (int64, error)

	CreateProject(ctx context.Context, p *Project) error
	FindProject(ctx context.Context, projectID id.ProjectID) (*Project, error)
	ListProjects(ctx context.Context, owner *id.UserID, limit, offset int) ([]Project, int, error)

	CreateExpense(ctx context.Context, e *Expense) error
	FindExpense(ctx context.Context, expenseID id.ExpenseID) (*Expense, error)
	ListExpenses(ctx context.Context, owner *id.UserID, limit, offset int) ([]Expense, int, error)
	DeleteExpense(ctx context.Context, expenseID id.ExpenseID) error
}

// TxRunner executes a function atomically. All store calls made inside fn
// commit or roll back together.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Auditor records audit entries. Satisfied by audit.Recorder.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service orchestrates wallets, projects, and expenses. Expense mutations
// and their balance movements share one transaction.
type Service struct {
	store   Store
	tx      TxRunner
	logger  *slog.Logger
	auditor Auditor
	tracer  tracer.Tracer
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditor(auditor Auditor) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(store Store, tx TxRunner, opts ...Option) *Service {
	s := &Service{store: store, tx: tx, tracer: tracer.NewNoop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateWallet(ctx context.Context, ownerID id.UserID, req *CreateWalletRequest) (*Wallet, error) {
	now := time.Now()
	w := &Wallet{
		ID:        id.WalletID(uuid.New()),
		OwnerID:   ownerID,
		Name:      req.Name,
		Currency:  req.Currency,
		Balance:   req.Balance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateWallet(ctx, w); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "wallet name already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create wallet")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionCreateWallet,
		EntityType:  "wallet",
		EntityID:    w.ID.String(),
		Description: fmt.Sprintf("created wallet %s (%s)", w.Name, w.Currency),
	})
	return w, nil
}

func (s *Service) GetWallet(ctx context.Context, walletID id.WalletID) (*Wallet, error) {
	w, err := s.store.FindWallet(ctx, walletID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "wallet not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load wallet")
	}
	return w, nil
}

func (s *Service) ListWallets(ctx context.Context, owner *id.UserID, limit, offset int) ([]Wallet, int, error) {
	wallets, total, err := s.store.ListWallets(ctx, owner, limit, offset)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list wallets")
	}
	return wallets, total, nil
}

func (s *Service) CreateProject(ctx context.Context, ownerID id.UserID, req *CreateProjectRequest) (*Project, error) {
	p := &Project{
		ID:        id.ProjectID(uuid.New()),
		OwnerID:   ownerID,
		Name:      req.Name,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create project")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionCreateProject,
		EntityType:  "project",
		EntityID:    p.ID.String(),
		Description: fmt.Sprintf("created project %s", p.Name),
	})
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context, owner *id.UserID, limit, offset int) ([]Project, int, error) {
	projects, total, err := s.store.ListProjects(ctx, owner, limit, offset)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list projects")
	}
	return projects, total, nil
}

// CreateExpense debits the wallet and writes the expense atomically. A crash
// mid-way leaves neither a dangling expense nor a moved balance.
func (s *Service) CreateExpense(ctx context.Context, ownerID id.UserID, req *CreateExpenseRequest) (*Expense, error) {
	walletID, err := id.ParseWalletID(req.WalletID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid wallet id")
	}

	var projectID *id.ProjectID
	if req.ProjectID != "" {
		parsed, err := id.ParseProjectID(req.ProjectID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid project id")
		}
		projectID = &parsed
	}

	wallet, err := s.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if wallet.OwnerID != ownerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "wallet belongs to another user")
	}
	if projectID != nil {
		p, err := s.store.FindProject(ctx, *projectID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "project not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load project")
		}
		if p.OwnerID != ownerID {
			return nil, dErrors.New(dErrors.CodeForbidden, "project belongs to another user")
		}
	}

	e := &Expense{
		ID:          id.ExpenseID(uuid.New()),
		OwnerID:     ownerID,
		WalletID:    walletID,
		ProjectID:   projectID,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		CreatedAt:   time.Now(),
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanExpenseCreate,
		tracer.String("wallet_id", walletID.String()),
		tracer.Int64("amount", req.Amount),
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		balance, err := s.store.AdjustWalletBalance(ctx, walletID, -req.Amount)
		if err != nil {
			return err
		}
		if balance < 0 {
			return dErrors.New(dErrors.CodeValidation, "insufficient wallet funds")
		}
		return s.store.CreateExpense(ctx, e)
	})
	span.End(err)
	if err != nil {
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create expense")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionCreateExpense,
		EntityType:  "expense",
		EntityID:    e.ID.String(),
		Description: fmt.Sprintf("recorded expense of %d cents (%s)", e.Amount, e.Category),
		Metadata:    map[string]any{"wallet_id": walletID.String()},
	})
	return e, nil
}

func (s *Service) GetExpense(ctx context.Context, expenseID id.ExpenseID) (*Expense, error) {
	e, err := s.store.FindExpense(ctx, expenseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "expense not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load expense")
	}
	return e, nil
}

func (s *Service) ListExpenses(ctx context.Context, owner *id.UserID, limit, offset int) ([]Expense, int, error) {
	expenses, total, err := s.store.ListExpenses(ctx, owner, limit, offset)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expenses")
	}
	return expenses, total, nil
}

// DeleteExpense removes the expense and restores the wallet balance in the
// same transaction.
func (s *Service) DeleteExpense(ctx context.Context, expenseID id.ExpenseID) error {
	e, err := s.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanExpenseDelete,
		tracer.String("wallet_id", e.WalletID.String()),
		tracer.Int64("amount", e.Amount),
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.DeleteExpense(ctx, e.ID); err != nil {
			return err
		}
		_, err := s.store.AdjustWalletBalance(ctx, e.WalletID, e.Amount)
		return err
	})
	span.End(err)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "expense not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete expense")
	}

	s.record(ctx, audit.Entry{
		Action:      audit.ActionDeleteExpense,
		EntityType:  "expense",
		EntityID:    e.ID.String(),
		Description: fmt.Sprintf("removed expense of %d cents, balance restored", e.Amount),
		Metadata:    map[string]any{"wallet_id": e.WalletID.String()},
		Severity:    audit.SeverityWarning,
	})
	return nil
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.auditor != nil {
		s.auditor.Record(ctx, entry)
	}
}
