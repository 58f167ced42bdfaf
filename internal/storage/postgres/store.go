// Package postgres is a PostgreSQL backend built on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"walletsync/internal/core"
)

// foreignKeyViolation is the SQLSTATE for a missing referenced row.
const foreignKeyViolation = "23503"

type Store struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL, applies migrations and returns the store.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const accountColumns = `id, user_id, name, initial_balance_cents, balance_cents, avatar_url, created_at`

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, storeErr("list accounts", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Account, error) {
		return scanAccount(row)
	})
	if err != nil {
		return nil, storeErr("list accounts", err)
	}
	return out, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (core.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, storeErr("get account", err)
	}
	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, f core.AccountFields) (core.Account, error) {
	if err := f.Validate(); err != nil {
		return core.Account{}, err
	}
	a, err := scanAccount(s.pool.QueryRow(ctx,
		`INSERT INTO accounts (id, user_id, name, initial_balance_cents, balance_cents, avatar_url)
		 VALUES ($1, $2, $3, $4, $4, $5) RETURNING `+accountColumns,
		uuid.NewString(), f.UserID, f.Name, f.InitialBalance.Cents, f.AvatarURL))
	if err != nil {
		return core.Account{}, storeErr("create account", err)
	}
	return a, nil
}

func (s *Store) UpdateAccount(ctx context.Context, id string, f core.AccountFields) (core.Account, error) {
	if err := f.Validate(); err != nil {
		return core.Account{}, err
	}
	a, err := scanAccount(s.pool.QueryRow(ctx,
		`UPDATE accounts SET user_id = $2, name = $3,
		 balance_cents = balance_cents + ($4 - initial_balance_cents),
		 initial_balance_cents = $4, avatar_url = $5
		 WHERE id = $1 RETURNING `+accountColumns,
		id, f.UserID, f.Name, f.InitialBalance.Cents, f.AvatarURL))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, storeErr("update account", err)
	}
	return a, nil
}

func (s *Store) SetBalance(ctx context.Context, id string, balance core.Money) error {
	tag, err := s.pool.Exec(ctx, `UPDATE accounts SET balance_cents = $2 WHERE id = $1`, id, balance.Cents)
	if err != nil {
		return storeErr("set balance", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context, t core.CategoryType) ([]core.Category, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, icon, color, type FROM categories
		 WHERE $1::text = '' OR type = $1::text ORDER BY position, name`, string(t))
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Category, error) {
		return scanCategory(row)
	})
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := scanCategory(s.pool.QueryRow(ctx,
		`SELECT id, name, icon, color, type FROM categories WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, storeErr("get category", err)
	}
	return c, nil
}

const transactionColumns = `id, account_id, category_id, amount_cents, is_income, transaction_date, note, created_at`

func (s *Store) ListTransactions(ctx context.Context, accountIDs []string) ([]core.Transaction, error) {
	if len(accountIDs) == 0 {
		return []core.Transaction{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE account_id = ANY($1) ORDER BY created_at`,
		accountIDs)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Transaction, error) {
		return scanTransaction(row)
	})
	if err != nil {
		return nil, storeErr("list transactions", err)
	}
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := scanTransaction(s.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, storeErr("get transaction", err)
	}
	return t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, f core.TransactionFields) (core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t, err := scanTransaction(s.pool.QueryRow(ctx,
		`INSERT INTO transactions (id, account_id, category_id, amount_cents, is_income, transaction_date, note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+transactionColumns,
		uuid.NewString(), f.AccountID, f.CategoryID, f.Amount.Cents, f.IsIncome, f.Date.Time, f.Note))
	if err != nil {
		return core.Transaction{}, mutationErr("create transaction", f, err)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, id string, f core.TransactionFields) (core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t, err := scanTransaction(s.pool.QueryRow(ctx,
		`UPDATE transactions SET account_id = $2, category_id = $3, amount_cents = $4, is_income = $5,
		 transaction_date = $6, note = $7 WHERE id = $1 RETURNING `+transactionColumns,
		id, f.AccountID, f.CategoryID, f.Amount.Cents, f.IsIncome, f.Date.Time, f.Note))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, mutationErr("update transaction", f, err)
	}
	return t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func scanAccount(row pgx.Row) (core.Account, error) {
	var a core.Account
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.InitialBalance.Cents, &a.Balance.Cents, &a.AvatarURL, &a.CreatedAt)
	return a, err
}

func scanCategory(row pgx.Row) (core.Category, error) {
	var c core.Category
	var typ string
	if err := row.Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &typ); err != nil {
		return core.Category{}, err
	}
	c.Type = core.CategoryType(typ)
	return c, nil
}

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var t core.Transaction
	var date time.Time
	if err := row.Scan(&t.ID, &t.AccountID, &t.CategoryID, &t.Amount.Cents, &t.IsIncome, &date, &t.Note, &t.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	// DATE columns come back as midnight UTC; keep the calendar date as-is.
	t.Date = core.DateOf(date)
	return t, nil
}

func mutationErr(op string, f core.TransactionFields, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("%s: account %s or category %s: %w", op, f.AccountID, f.CategoryID, core.ErrNotFound)
	}
	return storeErr(op, err)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrRemoteUnavailable, err)
}
