package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"walletsync/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const accountColumns = `id, user_id, name, initial_balance_cents, balance_cents, avatar_url, created_at`

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, storeErr("list accounts", err)
	}
	defer rows.Close()

	out := make([]core.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, storeErr("scan account", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list accounts", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, storeErr("get account", err)
	}
	return a, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, f core.AccountFields) (core.Account, error) {
	if err := f.Validate(); err != nil {
		return core.Account{}, err
	}
	a := core.Account{
		ID:             uuid.NewString(),
		UserID:         f.UserID,
		Name:           f.Name,
		InitialBalance: f.InitialBalance,
		Balance:        f.InitialBalance,
		AvatarURL:      f.AvatarURL,
		CreatedAt:      r.now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.InitialBalance.Cents, a.Balance.Cents, a.AvatarURL,
		a.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return core.Account{}, storeErr("create account", err)
	}

	slog.InfoContext(ctx, "Account saved to SQLite", "id", a.ID, "user_id", a.UserID)
	return a, nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, id string, f core.AccountFields) (core.Account, error) {
	if err := f.Validate(); err != nil {
		return core.Account{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET user_id = ?, name = ?, balance_cents = balance_cents + (? - initial_balance_cents),
		 initial_balance_cents = ?, avatar_url = ? WHERE id = ?`,
		f.UserID, f.Name, f.InitialBalance.Cents, f.InitialBalance.Cents, f.AvatarURL, id)
	if err != nil {
		return core.Account{}, storeErr("update account", err)
	}
	if err := expectOne(res, "account", id); err != nil {
		return core.Account{}, err
	}
	return r.GetAccount(ctx, id)
}

func (r *SQLiteRepository) SetBalance(ctx context.Context, id string, balance core.Money) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET balance_cents = ? WHERE id = ?`, balance.Cents, id)
	if err != nil {
		return storeErr("set balance", err)
	}
	return expectOne(res, "account", id)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, t core.CategoryType) ([]core.Category, error) {
	query := `SELECT id, name, icon, color, type FROM categories`
	var args []any
	if t != "" {
		query += ` WHERE type = ?`
		args = append(args, string(t))
	}
	query += ` ORDER BY position, name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		var c core.Category
		var typ string
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &typ); err != nil {
			return nil, storeErr("scan category", err)
		}
		c.Type = core.CategoryType(typ)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list categories", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	var c core.Category
	var typ string
	err := r.db.QueryRowContext(ctx, `SELECT id, name, icon, color, type FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, storeErr("get category", err)
	}
	c.Type = core.CategoryType(typ)
	return c, nil
}

// UpsertCategory inserts or replaces a category. Used for seeding.
func (r *SQLiteRepository) UpsertCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, icon, color, type) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, icon = excluded.icon, color = excluded.color, type = excluded.type`,
		c.ID, c.Name, c.Icon, c.Color, string(c.Type))
	if err != nil {
		return storeErr("upsert category", err)
	}
	return nil
}

const transactionColumns = `id, account_id, category_id, amount_cents, is_income, transaction_date, note, created_at`

func (r *SQLiteRepository) ListTransactions(ctx context.Context, accountIDs []string) ([]core.Transaction, error) {
	if len(accountIDs) == 0 {
		return []core.Transaction{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(accountIDs)), ", ")
	args := make([]any, len(accountIDs))
	for i, id := range accountIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE account_id IN (`+placeholders+`) ORDER BY created_at`,
		args...)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, storeErr("scan transaction", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list transactions", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, storeErr("get transaction", err)
	}
	return t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, f core.TransactionFields) (core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := r.accountExists(ctx, f.AccountID); err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		ID:         uuid.NewString(),
		AccountID:  f.AccountID,
		CategoryID: f.CategoryID,
		Amount:     f.Amount,
		IsIncome:   f.IsIncome,
		Date:       f.Date,
		Note:       f.Note,
		CreatedAt:  r.now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.CategoryID, t.Amount.Cents, t.IsIncome, t.Date.String(), t.Note,
		t.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return core.Transaction{}, storeErr("create transaction", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"account_id", t.AccountID,
		"amount_cents", t.Amount.Cents,
		"is_income", t.IsIncome)
	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id string, f core.TransactionFields) (core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := r.accountExists(ctx, f.AccountID); err != nil {
		return core.Transaction{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET account_id = ?, category_id = ?, amount_cents = ?, is_income = ?, transaction_date = ?, note = ? WHERE id = ?`,
		f.AccountID, f.CategoryID, f.Amount.Cents, f.IsIncome, f.Date.String(), f.Note, id)
	if err != nil {
		return core.Transaction{}, storeErr("update transaction", err)
	}
	if err := expectOne(res, "transaction", id); err != nil {
		return core.Transaction{}, err
	}
	return r.GetTransaction(ctx, id)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return storeErr("delete transaction", err)
	}
	if err := expectOne(res, "transaction", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) accountExists(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return storeErr("check account", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (core.Account, error) {
	var a core.Account
	var created string
	if err := s.Scan(&a.ID, &a.UserID, &a.Name, &a.InitialBalance.Cents, &a.Balance.Cents, &a.AvatarURL, &created); err != nil {
		return core.Account{}, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return a, nil
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var t core.Transaction
	var date, created string
	if err := s.Scan(&t.ID, &t.AccountID, &t.CategoryID, &t.Amount.Cents, &t.IsIncome, &date, &t.Note, &created); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	t.Date = d
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return t, nil
}

func expectOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrRemoteUnavailable, err)
}
