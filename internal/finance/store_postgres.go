package finance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"atrium/internal/platform/database"
	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

const pgUniqueViolation = "23505"

// PostgresStore persists finance entities in PostgreSQL. Every method reads
// its executor from the context, so calls made inside TxManager.WithinTx
// share one transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) exec(ctx context.Context) database.Executor {
	return database.ExecutorFrom(ctx, s.db)
}

func (s *PostgresStore) CreateWallet(ctx context.Context, w *Wallet) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO wallets (id, owner_id, name, currency, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(w.ID), uuid.UUID(w.OwnerID), w.Name, w.Currency, w.Balance, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create wallet: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindWallet(ctx context.Context, walletID id.WalletID) (*Wallet, error) {
	row := s.exec(ctx).QueryRowContext(ctx, `
		SELECT id, owner_id, name, currency, balance, created_at, updated_at
		FROM wallets WHERE id = $1
	`, uuid.UUID(walletID))

	var (
		w              Wallet
		rawID, ownerID uuid.UUID
	)
	if err := row.Scan(&rawID, &ownerID, &w.Name, &w.Currency, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find wallet: %w", err)
	}
	w.ID = id.WalletID(rawID)
	w.OwnerID = id.UserID(ownerID)
	return &w, nil
}

func (s *PostgresStore) ListWallets(ctx context.Context, owner *id.UserID, limit, offset int) ([]Wallet, int, error) {
	where := ``
	args := []any{}
	if owner != nil {
		where = ` WHERE owner_id = $1`
		args = append(args, uuid.UUID(*owner))
	}

	var total int
	if err := s.exec(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM wallets`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count wallets: %w", err)
	}

	query := `SELECT id, owner_id, name, currency, balance, created_at, updated_at FROM wallets` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := s.exec(ctx).QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var wallets []Wallet
	for rows.Next() {
		var (
			w              Wallet
			rawID, ownerID uuid.UUID
		)
		if err := rows.Scan(&rawID, &ownerID, &w.Name, &w.Currency, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan wallet: %w", err)
		}
		w.ID = id.WalletID(rawID)
		w.OwnerID = id.UserID(ownerID)
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate wallets: %w", err)
	}
	return wallets, total, nil
}

// AdjustWalletBalance applies the delta and returns the new balance in one
// statement, locking the row for the rest of the transaction.
func (s *PostgresStore) AdjustWalletBalance(ctx context.Context, walletID id.WalletID, delta int64) (int64, error) {
	row := s.exec(ctx).QueryRowContext(ctx, `
		UPDATE wallets
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING balance
	`, uuid.UUID(walletID), delta)

	var balance int64
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("adjust wallet balance: %w", err)
	}
	return balance, nil
}

func (s *PostgresStore) CreateProject(ctx context.Context, p *Project) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO projects (id, owner_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.UUID(p.ID), uuid.UUID(p.OwnerID), p.Name, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindProject(ctx context.Context, projectID id.ProjectID) (*Project, error) {
	row := s.exec(ctx).QueryRowContext(ctx,
		`SELECT id, owner_id, name, created_at FROM projects WHERE id = $1`,
		uuid.UUID(projectID))

	var (
		p              Project
		rawID, ownerID uuid.UUID
	)
	if err := row.Scan(&rawID, &ownerID, &p.Name, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	p.ID = id.ProjectID(rawID)
	p.OwnerID = id.UserID(ownerID)
	return &p, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, owner *id.UserID, limit, offset int) ([]Project, int, error) {
	where := ``
	args := []any{}
	if owner != nil {
		where = ` WHERE owner_id = $1`
		args = append(args, uuid.UUID(*owner))
	}

	var total int
	if err := s.exec(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	query := `SELECT id, owner_id, name, created_at FROM projects` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := s.exec(ctx).QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var projects []Project
	for rows.Next() {
		var (
			p              Project
			rawID, ownerID uuid.UUID
		)
		if err := rows.Scan(&rawID, &ownerID, &p.Name, &p.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan project: %w", err)
		}
		p.ID = id.ProjectID(rawID)
		p.OwnerID = id.UserID(ownerID)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, total, nil
}

func (s *PostgresStore) CreateExpense(ctx context.Context, e *Expense) error {
	var projectID any
	if e.ProjectID != nil {
		projectID = uuid.UUID(*e.ProjectID)
	}
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO expenses (id, owner_id, wallet_id, project_id, amount, category, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.UUID(e.ID), uuid.UUID(e.OwnerID), uuid.UUID(e.WalletID), projectID,
		e.Amount, e.Category, e.Description, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindExpense(ctx context.Context, expenseID id.ExpenseID) (*Expense, error) {
	row := s.exec(ctx).QueryRowContext(ctx, `
		SELECT id, owner_id, wallet_id, project_id, amount, category, description, created_at
		FROM expenses WHERE id = $1
	`, uuid.UUID(expenseID))

	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find expense: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) ListExpenses(ctx context.Context, owner *id.UserID, limit, offset int) ([]Expense, int, error) {
	where := ``
	args := []any{}
	if owner != nil {
		where = ` WHERE owner_id = $1`
		args = append(args, uuid.UUID(*owner))
	}

	var total int
	if err := s.exec(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}

	query := `SELECT id, owner_id, wallet_id, project_id, amount, category, description, created_at FROM expenses` +
		where + fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := s.exec(ctx).QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var expenses []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, total, nil
}

func (s *PostgresStore) DeleteExpense(ctx context.Context, expenseID id.ExpenseID) error {
	res, err := s.exec(ctx).ExecContext(ctx,
		`DELETE FROM expenses WHERE id = $1`, uuid.UUID(expenseID))
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (Expense, error) {
	var (
		e                        Expense
		rawID, ownerID, walletID uuid.UUID
		projectID                sql.Null[uuid.UUID]
	)
	if err := row.Scan(
		&rawID,
		&ownerID,
		&walletID,
		&projectID,
		&e.Amount,
		&e.Category,
		&e.Description,
		&e.CreatedAt,
	); err != nil {
		return Expense{}, err
	}
	e.ID = id.ExpenseID(rawID)
	e.OwnerID = id.UserID(ownerID)
	e.WalletID = id.WalletID(walletID)
	if projectID.Valid {
		p := id.ProjectID(projectID.V)
		e.ProjectID = &p
	}
	return e, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

var _ Store = (*PostgresStore)(nil)
