package finance

import (
	"strings"
	"time"

	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
)

// Wallet holds a cash balance in integer cents. Name is unique per owner.
type Wallet struct {
	ID        id.WalletID
	OwnerID   id.UserID
	Name      string
	Currency  string
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Project groups expenses for reporting.
type Project struct {
	ID        id.ProjectID
	OwnerID   id.UserID
	Name      string
	CreatedAt time.Time
}

// Expense is a debit against a wallet, optionally attributed to a project.
// Creation and deletion move the wallet balance in the same transaction.
type Expense struct {
	ID          id.ExpenseID
	OwnerID     id.UserID
	WalletID    id.WalletID
	ProjectID   *id.ProjectID
	Amount      int64 // cents, always positive
	Category    string
	Description string
	CreatedAt   time.Time
}

type CreateWalletRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Balance  int64  `json:"balance"`
}

func (r *CreateWalletRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
}

func (r *CreateWalletRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if len(r.Currency) != 3 {
		return dErrors.New(dErrors.CodeInvalidInput, "currency must be a 3-letter code")
	}
	if r.Balance < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "balance cannot be negative")
	}
	return nil
}

type CreateProjectRequest struct {
	Name string `json:"name"`
}

func (r *CreateProjectRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r *CreateProjectRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	return nil
}

type CreateExpenseRequest struct {
	WalletID    string `json:"walletId"`
	ProjectID   string `json:"projectId"`
	Amount      int64  `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func (r *CreateExpenseRequest) Normalize() {
	r.WalletID = strings.TrimSpace(r.WalletID)
	r.ProjectID = strings.TrimSpace(r.ProjectID)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
}

func (r *CreateExpenseRequest) Validate() error {
	if r.WalletID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "walletId is required")
	}
	if r.Amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}
	if r.Category == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "category is required")
	}
	return nil
}

type WalletResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
}

func toWalletResponse(w *Wallet) WalletResponse {
	return WalletResponse{
		ID:        w.ID.String(),
		OwnerID:   w.OwnerID.String(),
		Name:      w.Name,
		Currency:  w.Currency,
		Balance:   w.Balance,
		CreatedAt: w.CreatedAt,
	}
}

type ProjectResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func toProjectResponse(p *Project) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID.String(),
		OwnerID:   p.OwnerID.String(),
		Name:      p.Name,
		CreatedAt: p.CreatedAt,
	}
}

type ExpenseResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	WalletID    string    `json:"walletId"`
	ProjectID   *string   `json:"projectId,omitempty"`
	Amount      int64     `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toExpenseResponse(e *Expense) ExpenseResponse {
	res := ExpenseResponse{
		ID:          e.ID.String(),
		OwnerID:     e.OwnerID.String(),
		WalletID:    e.WalletID.String(),
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
	if e.ProjectID != nil {
		p := e.ProjectID.String()
		res.ProjectID = &p
	}
	return res
}
