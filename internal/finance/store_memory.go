package finance

import (
	"context"
	"sort"
	"strings"
	"sync"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

// InMemoryStore is a map-backed Store for tests and databaseless runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	wallets  map[id.WalletID]Wallet
	projects map[id.ProjectID]Project
	expenses map[id.ExpenseID]Expense
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		wallets:  make(map[id.WalletID]Wallet),
		projects: make(map[id.ProjectID]Project),
		expenses: make(map[id.ExpenseID]Expense),
	}
}

// MemoryTx satisfies TxRunner by snapshotting the store maps and restoring
// them when fn fails, mimicking a rollback.
type MemoryTx struct {
	store *InMemoryStore
}

func NewMemoryTx(store *InMemoryStore) *MemoryTx {
	return &MemoryTx{store: store}
}

func (m *MemoryTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.store.mu.Lock()
	wallets := cloneMap(m.store.wallets)
	projects := cloneMap(m.store.projects)
	expenses := cloneMap(m.store.expenses)
	m.store.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.store.mu.Lock()
		m.store.wallets = wallets
		m.store.projects = projects
		m.store.expenses = expenses
		m.store.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (s *InMemoryStore) CreateWallet(_ context.Context, w *Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.wallets {
		if existing.OwnerID == w.OwnerID && strings.EqualFold(existing.Name, w.Name) {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.wallets[w.ID] = *w
	return nil
}

func (s *InMemoryStore) FindWallet(_ context.Context, walletID id.WalletID) (*Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[walletID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := w
	return &copied, nil
}

func (s *InMemoryStore) ListWallets(_ context.Context, owner *id.UserID, limit, offset int) ([]Wallet, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Wallet
	for _, w := range s.wallets {
		if owner != nil && w.OwnerID != *owner {
			continue
		}
		all = append(all, w)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, limit, offset)
}

func (s *InMemoryStore) AdjustWalletBalance(_ context.Context, walletID id.WalletID, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[walletID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	w.Balance += delta
	s.wallets[walletID] = w
	return w.Balance, nil
}

func (s *InMemoryStore) CreateProject(_ context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects[p.ID] = *p
	return nil
}

func (s *InMemoryStore) FindProject(_ context.Context, projectID id.ProjectID) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[projectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := p
	return &copied, nil
}

func (s *InMemoryStore) ListProjects(_ context.Context, owner *id.UserID, limit, offset int) ([]Project, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Project
	for _, p := range s.projects {
		if owner != nil && p.OwnerID != *owner {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, limit, offset)
}

func (s *InMemoryStore) CreateExpense(_ context.Context, e *Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expenses[e.ID] = *e
	return nil
}

func (s *InMemoryStore) FindExpense(_ context.Context, expenseID id.ExpenseID) (*Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.expenses[expenseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := e
	return &copied, nil
}

func (s *InMemoryStore) ListExpenses(_ context.Context, owner *id.UserID, limit, offset int) ([]Expense, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Expense
	for _, e := range s.expenses {
		if owner != nil && e.OwnerID != *owner {
			continue
		}
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, limit, offset)
}

func (s *InMemoryStore) DeleteExpense(_ context.Context, expenseID id.ExpenseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenses[expenseID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.expenses, expenseID)
	return nil
}

func paginate[T any](all []T, limit, offset int) ([]T, int, error) {
	total := len(all)
	if offset >= total {
		return []T{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

var _ Store = (*InMemoryStore)(nil)
