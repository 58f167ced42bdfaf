package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"walletsync/internal/core"
	"walletsync/internal/log"
)

// ListCategories returns the categories of type t, or all of them when t is
// empty. Results are cached like transaction reads.
func (g *Gateway) ListCategories(ctx context.Context, t core.CategoryType) ([]core.Category, error) {
	if _, err := g.user(); err != nil {
		return nil, err
	}
	if t != "" && !t.IsValid() {
		return nil, fmt.Errorf("%w: invalid category type %q", core.ErrValidation, t)
	}
	key := "categories:" + string(t)
	if g.categories != nil {
		if cats, ok := g.categories.Get(key); ok {
			return append([]core.Category(nil), cats...), nil
		}
	}
	gen := g.generation.Load()
	cats, err := g.store.ListCategories(ctx, t)
	if err != nil {
		return nil, g.fail(ctx, "list categories", err)
	}
	if g.categories != nil && g.generation.Load() == gen {
		g.categories.Set(key, cats)
	}
	return append([]core.Category(nil), cats...), nil
}

// sharedLoadTimeout bounds a load shared by several callers. The load runs
// detached from any single caller's context.
const sharedLoadTimeout = 30 * time.Second

// ListTransactions returns the transactions of every account userID owns.
// Without forceRefresh a cached result may be returned. Concurrent loads for
// the same user share one round trip.
func (g *Gateway) ListTransactions(ctx context.Context, userID string, forceRefresh bool) ([]core.Transaction, error) {
	if _, err := g.requireUser(userID); err != nil {
		return nil, err
	}
	key := "transactions:" + userID
	if !forceRefresh && g.transactions != nil {
		if txs, ok := g.transactions.Get(key); ok {
			g.logger.DebugContext(ctx, "Transactions served from cache",
				log.FieldUserID, userID, log.FieldCacheHit, true, log.FieldCount, len(txs))
			return append([]core.Transaction(nil), txs...), nil
		}
	}

	gen := g.generation.Load()
	ch := g.loads.DoChan(g.genKey(key), func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()
		accounts, err := g.store.ListAccounts(lctx, userID)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(accounts))
		for i, a := range accounts {
			ids[i] = a.ID
		}
		txs, err := g.store.ListTransactions(lctx, ids)
		if err != nil {
			return nil, err
		}
		if g.transactions != nil && g.generation.Load() == gen {
			g.transactions.Set(key, txs)
		}
		return txs, nil
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, g.fail(ctx, "list transactions", ctx.Err(), log.FieldUserID, userID)
	}
	if res.Err != nil {
		return nil, g.fail(ctx, "list transactions", res.Err, log.FieldUserID, userID)
	}
	v, shared := res.Val, res.Shared
	txs := v.([]core.Transaction)
	g.logger.DebugContext(ctx, "Transactions loaded",
		log.FieldUserID, userID,
		log.FieldForceRefresh, forceRefresh,
		log.FieldCount, len(txs),
		"shared", shared)
	return append([]core.Transaction(nil), txs...), nil
}

func (g *Gateway) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return g.ownedTransaction(ctx, "get transaction", id)
}

func (g *Gateway) CreateTransaction(ctx context.Context, f core.TransactionFields) (core.Transaction, error) {
	if err := g.validateTransaction(ctx, f); err != nil {
		return core.Transaction{}, err
	}
	tx, err := g.store.CreateTransaction(ctx, f)
	if err != nil {
		return core.Transaction{}, g.fail(ctx, "create transaction", err, log.FieldAccountID, f.AccountID)
	}
	g.Invalidate()
	g.logger.InfoContext(ctx, "Transaction created", log.NewFields().
		WithOperation(log.OpCreate).
		WithTransaction(tx.ID, tx.AccountID, tx.CategoryID, tx.Amount.Cents, tx.IsIncome).
		ToSlice()...)
	return tx, nil
}

// UpdateTransaction replaces every field of transaction id.
func (g *Gateway) UpdateTransaction(ctx context.Context, id string, f core.TransactionFields) (core.Transaction, error) {
	if err := g.validateTransaction(ctx, f); err != nil {
		return core.Transaction{}, err
	}
	if _, err := g.ownedTransaction(ctx, "update transaction", id); err != nil {
		return core.Transaction{}, err
	}
	tx, err := g.store.UpdateTransaction(ctx, id, f)
	if err != nil {
		return core.Transaction{}, g.fail(ctx, "update transaction", err, log.FieldTransactionID, id)
	}
	g.Invalidate()
	g.logger.InfoContext(ctx, "Transaction updated", log.NewFields().
		WithOperation(log.OpUpdate).
		WithTransaction(tx.ID, tx.AccountID, tx.CategoryID, tx.Amount.Cents, tx.IsIncome).
		ToSlice()...)
	return tx, nil
}

func (g *Gateway) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := g.ownedTransaction(ctx, "delete transaction", id); err != nil {
		return err
	}
	if err := g.store.DeleteTransaction(ctx, id); err != nil {
		return g.fail(ctx, "delete transaction", err, log.FieldTransactionID, id)
	}
	g.Invalidate()
	g.logger.InfoContext(ctx, "Transaction deleted", log.FieldTransactionID, id)
	return nil
}

// ownedTransaction loads transaction id and checks that its account belongs
// to the signed-in user. Transactions of other users are reported as not
// found.
func (g *Gateway) ownedTransaction(ctx context.Context, op, id string) (core.Transaction, error) {
	u, err := g.user()
	if err != nil {
		return core.Transaction{}, err
	}
	tx, err := g.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, g.fail(ctx, op, err, log.FieldTransactionID, id)
	}
	acc, err := g.store.GetAccount(ctx, tx.AccountID)
	if errors.Is(err, core.ErrNotFound) || (err == nil && acc.UserID != u.ID) {
		return core.Transaction{}, fmt.Errorf("%s: transaction %s: %w", op, id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, g.fail(ctx, op, err, log.FieldAccountID, tx.AccountID)
	}
	return tx, nil
}

// validateTransaction runs the field checks, then resolves the category and
// account so a mismatched direction or a foreign account never reaches the
// store.
func (g *Gateway) validateTransaction(ctx context.Context, f core.TransactionFields) error {
	u, err := g.user()
	if err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}

	cat, err := g.store.GetCategory(ctx, f.CategoryID)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%w: unknown category %s", core.ErrValidation, f.CategoryID)
	}
	if err != nil {
		return g.fail(ctx, "resolve category", err, log.FieldCategoryID, f.CategoryID)
	}
	if err := f.ValidateAgainst(cat); err != nil {
		return err
	}

	acc, err := g.store.GetAccount(ctx, f.AccountID)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%w: unknown account %s", core.ErrValidation, f.AccountID)
	}
	if err != nil {
		return g.fail(ctx, "resolve account", err, log.FieldAccountID, f.AccountID)
	}
	if acc.UserID != u.ID {
		return fmt.Errorf("%w: unknown account %s", core.ErrValidation, f.AccountID)
	}
	return nil
}
