package appwrite

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"walletsync/internal/core"
	"walletsync/internal/ports"
)

var _ ports.Store = (*Client)(nil)

type meta struct {
	ID        string `json:"$id"`
	CreatedAt string `json:"$createdAt"`
}

type document interface {
	docID() string
}

func (m meta) docID() string { return m.ID }

func (m meta) created() time.Time {
	t, err := time.Parse(time.RFC3339Nano, m.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

type accountDoc struct {
	meta
	UserID         string  `json:"user_id"`
	Name           string  `json:"name"`
	InitialBalance float64 `json:"initial_balance"`
	Balance        float64 `json:"balance"`
	AvatarURL      string  `json:"avatar_url"`
}

type accountData struct {
	UserID         string  `json:"user_id"`
	Name           string  `json:"name"`
	InitialBalance float64 `json:"initial_balance"`
	Balance        float64 `json:"balance"`
	AvatarURL      string  `json:"avatar_url"`
}

type categoryDoc struct {
	meta
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
	Type  string `json:"type"`
}

type transactionDoc struct {
	meta
	AccountID       string  `json:"account_id"`
	CategoryID      string  `json:"category_id"`
	Amount          float64 `json:"amount"`
	IsIncome        bool    `json:"is_income"`
	Note            string  `json:"note"`
	TransactionDate string  `json:"transaction_date"`
}

type transactionData struct {
	AccountID       string  `json:"account_id"`
	CategoryID      string  `json:"category_id"`
	Amount          float64 `json:"amount"`
	IsIncome        bool    `json:"is_income"`
	Note            string  `json:"note"`
	TransactionDate string  `json:"transaction_date"`
}

func (d accountDoc) toCore() (core.Account, error) {
	initial, err := core.MoneyFromMajor(d.InitialBalance)
	if err != nil {
		return core.Account{}, fmt.Errorf("account %s initial_balance: %w", d.ID, err)
	}
	balance, err := core.MoneyFromMajor(d.Balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("account %s balance: %w", d.ID, err)
	}
	return core.Account{
		ID:             d.ID,
		UserID:         d.UserID,
		Name:           d.Name,
		InitialBalance: initial,
		Balance:        balance,
		AvatarURL:      d.AvatarURL,
		CreatedAt:      d.created(),
	}, nil
}

func (d categoryDoc) toCore() core.Category {
	return core.Category{
		ID:    d.ID,
		Name:  d.Name,
		Icon:  d.Icon,
		Color: d.Color,
		Type:  core.CategoryType(d.Type),
	}
}

func (d transactionDoc) toCore() (core.Transaction, error) {
	amount, err := core.MoneyFromMajor(d.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s amount: %w", d.ID, err)
	}
	date, err := core.ParseDate(d.TransactionDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", d.ID, err)
	}
	return core.Transaction{
		ID:         d.ID,
		AccountID:  d.AccountID,
		CategoryID: d.CategoryID,
		Amount:     amount,
		IsIncome:   d.IsIncome,
		Date:       date,
		Note:       d.Note,
		CreatedAt:  d.created(),
	}, nil
}

func accountPayload(f core.AccountFields, balance core.Money) accountData {
	return accountData{
		UserID:         f.UserID,
		Name:           f.Name,
		InitialBalance: f.InitialBalance.Major(),
		Balance:        balance.Major(),
		AvatarURL:      f.AvatarURL,
	}
}

func transactionPayload(f core.TransactionFields) transactionData {
	return transactionData{
		AccountID:       f.AccountID,
		CategoryID:      f.CategoryID,
		Amount:          f.Amount.Major(),
		IsIncome:        f.IsIncome,
		Note:            f.Note,
		TransactionDate: f.Date.ISO(),
	}
}

func (c *Client) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	docs, err := listAll[accountDoc](ctx, c, c.cfg.Collections.Accounts, equal("user_id", userID), orderAsc("$createdAt"))
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, 0, len(docs))
	for _, d := range docs {
		a, err := d.toCore()
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *Client) GetAccount(ctx context.Context, id string) (core.Account, error) {
	var d accountDoc
	if err := c.do(ctx, http.MethodGet, c.documentURL(c.cfg.Collections.Accounts, id), nil, &d); err != nil {
		return core.Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	return d.toCore()
}

func (c *Client) CreateAccount(ctx context.Context, f core.AccountFields) (core.Account, error) {
	if err := f.Validate(); err != nil {
		return core.Account{}, err
	}
	u, _ := c.documentsURL(c.cfg.Collections.Accounts)
	body := createBody{DocumentID: "unique()", Data: accountPayload(f, f.InitialBalance)}
	var d accountDoc
	if err := c.do(ctx, http.MethodPost, u, body, &d); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return d.toCore()
}

// UpdateAccount replaces the editable fields. The stored balance moves by
// the change in initial balance.
func (c *Client) UpdateAccount(ctx context.Context, id string, f core.AccountFields) (core.Account, error) {
	if err := f.Validate(); err != nil {
		return core.Account{}, err
	}
	cur, err := c.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	data := map[string]any{
		"user_id":         f.UserID,
		"name":            f.Name,
		"initial_balance": f.InitialBalance.Major(),
		"balance":         cur.Balance.Add(f.InitialBalance.Sub(cur.InitialBalance)).Major(),
		"avatar_url":      f.AvatarURL,
	}
	var d accountDoc
	if err := c.do(ctx, http.MethodPatch, c.documentURL(c.cfg.Collections.Accounts, id), updateBody{Data: data}, &d); err != nil {
		return core.Account{}, fmt.Errorf("update account %s: %w", id, err)
	}
	return d.toCore()
}

func (c *Client) SetBalance(ctx context.Context, id string, balance core.Money) error {
	body := updateBody{Data: map[string]any{"balance": balance.Major()}}
	if err := c.do(ctx, http.MethodPatch, c.documentURL(c.cfg.Collections.Accounts, id), body, nil); err != nil {
		return fmt.Errorf("set balance %s: %w", id, err)
	}
	return nil
}

func (c *Client) ListCategories(ctx context.Context, t core.CategoryType) ([]core.Category, error) {
	var queries []query
	if t != "" {
		queries = append(queries, equal("type", string(t)))
	}
	docs, err := listAll[categoryDoc](ctx, c, c.cfg.Collections.Categories, queries...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toCore())
	}
	return out, nil
}

func (c *Client) GetCategory(ctx context.Context, id string) (core.Category, error) {
	var d categoryDoc
	if err := c.do(ctx, http.MethodGet, c.documentURL(c.cfg.Collections.Categories, id), nil, &d); err != nil {
		return core.Category{}, fmt.Errorf("get category %s: %w", id, err)
	}
	return d.toCore(), nil
}

func (c *Client) ListTransactions(ctx context.Context, accountIDs []string) ([]core.Transaction, error) {
	if len(accountIDs) == 0 {
		return []core.Transaction{}, nil
	}
	values := make([]any, len(accountIDs))
	for i, id := range accountIDs {
		values[i] = id
	}
	docs, err := listAll[transactionDoc](ctx, c, c.cfg.Collections.Transactions, equal("account_id", values...))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(docs))
	for _, d := range docs {
		tx, err := d.toCore()
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func (c *Client) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	var d transactionDoc
	if err := c.do(ctx, http.MethodGet, c.documentURL(c.cfg.Collections.Transactions, id), nil, &d); err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return d.toCore()
}

func (c *Client) CreateTransaction(ctx context.Context, f core.TransactionFields) (core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return core.Transaction{}, err
	}
	u, _ := c.documentsURL(c.cfg.Collections.Transactions)
	var d transactionDoc
	if err := c.do(ctx, http.MethodPost, u, createBody{DocumentID: "unique()", Data: transactionPayload(f)}, &d); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return d.toCore()
}

func (c *Client) UpdateTransaction(ctx context.Context, id string, f core.TransactionFields) (core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return core.Transaction{}, err
	}
	var d transactionDoc
	if err := c.do(ctx, http.MethodPatch, c.documentURL(c.cfg.Collections.Transactions, id), updateBody{Data: transactionPayload(f)}, &d); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}
	return d.toCore()
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, c.documentURL(c.cfg.Collections.Transactions, id), nil, nil); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return nil
}
