package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"walletsync/internal/core"
)

// Store keeps accounts, categories and transactions in process memory.
type Store struct {
	mu           sync.Mutex
	accounts     map[string]core.Account
	categories   []core.Category
	transactions map[string]core.Transaction
	now          func() time.Time
}

func New(categories []core.Category) *Store {
	return &Store{
		accounts:     make(map[string]core.Account),
		categories:   dedupe(categories),
		transactions: make(map[string]core.Transaction),
		now:          time.Now,
	}
}

// NewFromFiles seeds categories from base/seed_categories.txt. Each line is
// "type,name[,icon[,color]]"; blank lines and # comments are skipped.
func NewFromFiles(base string) *Store {
	cats := readCategories(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = DefaultCategories()
	}
	return New(cats)
}

// DefaultCategories is the category set used when no seed file exists.
func DefaultCategories() []core.Category {
	return []core.Category{
		{ID: "salary", Name: "Salary", Icon: "briefcase", Color: "#2e7d32", Type: core.Income},
		{ID: "gifts", Name: "Gifts", Icon: "gift", Color: "#00897b", Type: core.Income},
		{ID: "other-income", Name: "Other income", Icon: "plus", Color: "#558b2f", Type: core.Income},
		{ID: "food", Name: "Food", Icon: "utensils", Color: "#e53935", Type: core.Expense},
		{ID: "housing", Name: "Housing", Icon: "home", Color: "#8e24aa", Type: core.Expense},
		{ID: "transport", Name: "Transport", Icon: "car", Color: "#1e88e5", Type: core.Expense},
		{ID: "leisure", Name: "Leisure", Icon: "film", Color: "#fb8c00", Type: core.Expense},
		{ID: "health", Name: "Health", Icon: "heart", Color: "#d81b60", Type: core.Expense},
	}
}

func (s *Store) ListAccounts(_ context.Context, userID string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Account, 0)
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	return a, nil
}

func (s *Store) CreateAccount(_ context.Context, f core.AccountFields) (core.Account, error) {
	if err := f.Validate(); err != nil {
		return core.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := core.Account{
		ID:             uuid.NewString(),
		UserID:         f.UserID,
		Name:           f.Name,
		InitialBalance: f.InitialBalance,
		Balance:        f.InitialBalance,
		AvatarURL:      f.AvatarURL,
		CreatedAt:      s.now(),
	}
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) UpdateAccount(_ context.Context, id string, f core.AccountFields) (core.Account, error) {
	if err := f.Validate(); err != nil {
		return core.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	a.UserID = f.UserID
	a.Name = f.Name
	a.Balance = a.Balance.Add(f.InitialBalance.Sub(a.InitialBalance))
	a.InitialBalance = f.InitialBalance
	a.AvatarURL = f.AvatarURL
	s.accounts[id] = a
	return a, nil
}

func (s *Store) SetBalance(_ context.Context, id string, balance core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	a.Balance = balance
	s.accounts[id] = a
	return nil
}

func (s *Store) ListCategories(_ context.Context, t core.CategoryType) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if t == "" || c.Type == t {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
}

func (s *Store) ListTransactions(_ context.Context, accountIDs []string) ([]core.Transaction, error) {
	want := make(map[string]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		want[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	for _, t := range s.transactions {
		if _, ok := want[t.AccountID]; ok {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (s *Store) CreateTransaction(_ context.Context, f core.TransactionFields) (core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[f.AccountID]; !ok {
		return core.Transaction{}, fmt.Errorf("account %s: %w", f.AccountID, core.ErrNotFound)
	}
	t := core.Transaction{
		ID:         uuid.NewString(),
		AccountID:  f.AccountID,
		CategoryID: f.CategoryID,
		Amount:     f.Amount,
		IsIncome:   f.IsIncome,
		Date:       f.Date,
		Note:       f.Note,
		CreatedAt:  s.now(),
	}
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, id string, f core.TransactionFields) (core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if _, ok := s.accounts[f.AccountID]; !ok {
		return core.Transaction{}, fmt.Errorf("account %s: %w", f.AccountID, core.ErrNotFound)
	}
	t.AccountID = f.AccountID
	t.CategoryID = f.CategoryID
	t.Amount = f.Amount
	t.IsIncome = f.IsIncome
	t.Date = f.Date
	t.Note = f.Note
	s.transactions[id] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	delete(s.transactions, id)
	return nil
}

func readCategories(path string) []core.Category {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Category
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) < 2 {
			continue
		}
		c := core.Category{Type: core.CategoryType(strings.ToLower(parts[0])), Name: parts[1]}
		if len(parts) > 2 {
			c.Icon = parts[2]
		}
		if len(parts) > 3 {
			c.Color = parts[3]
		}
		c.ID = slug(c.Name)
		if c.Validate() != nil {
			continue
		}
		out = append(out, c)
	}
	return dedupe(out)
}

func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// dedupe drops repeated category ids, keeping the first occurrence and the
// input order.
func dedupe(in []core.Category) []core.Category {
	seen := map[string]struct{}{}
	out := make([]core.Category, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
