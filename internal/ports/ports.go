// Package ports declares the outbound interfaces a document store backend
// implements. Backends return errors wrapping the core sentinels
// (core.ErrNotFound, core.ErrValidation, core.ErrNotAuthenticated,
// core.ErrRemoteUnavailable).
package ports

import (
	"context"

	"walletsync/internal/core"
)

type (
	AccountStore interface {
		ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
		GetAccount(ctx context.Context, id string) (core.Account, error)
		CreateAccount(ctx context.Context, f core.AccountFields) (core.Account, error)
		UpdateAccount(ctx context.Context, id string, f core.AccountFields) (core.Account, error)
		// SetBalance stores the denormalized current balance of an account.
		SetBalance(ctx context.Context, id string, balance core.Money) error
	}

	CategoryStore interface {
		// ListCategories returns the categories of type t, or all of them when
		// t is empty.
		ListCategories(ctx context.Context, t core.CategoryType) ([]core.Category, error)
		GetCategory(ctx context.Context, id string) (core.Category, error)
	}

	TransactionStore interface {
		// ListTransactions returns the transactions of the given accounts.
		ListTransactions(ctx context.Context, accountIDs []string) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		CreateTransaction(ctx context.Context, f core.TransactionFields) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, id string, f core.TransactionFields) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
	}

	// Store is everything the gateway needs from a backend.
	Store interface {
		AccountStore
		CategoryStore
		TransactionStore
	}
)
