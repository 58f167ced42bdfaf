package gateway

import (
	"context"
	"fmt"

	"walletsync/internal/core"
	"walletsync/internal/log"
)

func (g *Gateway) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	if _, err := g.requireUser(userID); err != nil {
		return nil, err
	}
	accounts, err := g.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, g.fail(ctx, "list accounts", err, log.FieldUserID, userID)
	}
	return accounts, nil
}

// GetAccount returns an account of the signed-in user. Accounts of other
// users are reported as not found.
func (g *Gateway) GetAccount(ctx context.Context, id string) (core.Account, error) {
	u, err := g.user()
	if err != nil {
		return core.Account{}, err
	}
	a, err := g.store.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, g.fail(ctx, "get account", err, log.FieldAccountID, id)
	}
	if a.UserID != u.ID {
		return core.Account{}, fmt.Errorf("get account: account %s: %w", id, core.ErrNotFound)
	}
	return a, nil
}

// CreateAccount creates an account for the signed-in user. An empty
// UserID is filled from the session.
func (g *Gateway) CreateAccount(ctx context.Context, f core.AccountFields) (core.Account, error) {
	f, err := g.ownFields(f)
	if err != nil {
		return core.Account{}, err
	}
	a, err := g.store.CreateAccount(ctx, f)
	if err != nil {
		return core.Account{}, g.fail(ctx, "create account", err, log.FieldUserID, f.UserID)
	}
	g.Invalidate()
	g.logger.InfoContext(ctx, "Account created", log.FieldAccountID, a.ID, log.FieldUserID, a.UserID)
	return a, nil
}

func (g *Gateway) UpdateAccount(ctx context.Context, id string, f core.AccountFields) (core.Account, error) {
	f, err := g.ownFields(f)
	if err != nil {
		return core.Account{}, err
	}
	if _, err := g.GetAccount(ctx, id); err != nil {
		return core.Account{}, err
	}
	a, err := g.store.UpdateAccount(ctx, id, f)
	if err != nil {
		return core.Account{}, g.fail(ctx, "update account", err, log.FieldAccountID, id)
	}
	g.Invalidate()
	g.logger.InfoContext(ctx, "Account updated", log.FieldAccountID, a.ID)
	return a, nil
}

func (g *Gateway) ownFields(f core.AccountFields) (core.AccountFields, error) {
	u, err := g.user()
	if err != nil {
		return f, err
	}
	if f.UserID == "" {
		f.UserID = u.ID
	}
	if f.UserID != u.ID {
		return f, fmt.Errorf("%w: cannot write accounts of another user", core.ErrNotAuthenticated)
	}
	if err := f.Validate(); err != nil {
		return f, err
	}
	return f, nil
}

// MigrateBalances recomputes the stored balance of every account of userID
// from its initial balance and transactions, and persists the ones that
// drifted. It returns the accounts with their refreshed balance.
func (g *Gateway) MigrateBalances(ctx context.Context, userID string) ([]core.Account, error) {
	accounts, err := g.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := g.ListTransactions(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	updated := 0
	for i, a := range accounts {
		balance := core.CurrentBalance(a, txs)
		if balance == a.Balance {
			continue
		}
		if err := g.store.SetBalance(ctx, a.ID, balance); err != nil {
			return nil, g.fail(ctx, "migrate balances", err, log.FieldAccountID, a.ID)
		}
		accounts[i].Balance = balance
		updated++
	}
	if updated > 0 {
		g.Invalidate()
	}
	g.logger.InfoContext(ctx, "Balances migrated",
		log.FieldUserID, userID,
		log.FieldCount, len(accounts),
		"updated", updated)
	return accounts, nil
}
