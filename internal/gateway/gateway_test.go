package gateway

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletsync/internal/core"
	"walletsync/internal/log"
	"walletsync/internal/ports"
	"walletsync/internal/session"
	"walletsync/internal/storage/memory"
)

// countingStore counts transaction loads and can fail or block them. A
// blocked load gives up when its context is done.
type countingStore struct {
	ports.Store
	loads   atomic.Int32
	creates atomic.Int32
	fail    error
	block   chan struct{}
}

func (s *countingStore) ListTransactions(ctx context.Context, ids []string) ([]core.Transaction, error) {
	s.loads.Add(1)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.fail != nil {
		return nil, s.fail
	}
	return s.Store.ListTransactions(ctx, ids)
}

func (s *countingStore) CreateTransaction(ctx context.Context, f core.TransactionFields) (core.Transaction, error) {
	s.creates.Add(1)
	return s.Store.CreateTransaction(ctx, f)
}

type fixture struct {
	gw      *Gateway
	store   *countingStore
	session *session.Manager
	account core.Account
}

func newFixture(t *testing.T, ttl time.Duration) *fixture {
	t.Helper()
	store := &countingStore{Store: memory.New(memory.DefaultCategories())}
	sess := session.NewManager(log.Discard())
	require.NoError(t, sess.SignIn(core.User{ID: "u1"}))
	gw := New(store, sess, Options{CacheTTL: ttl, CacheSize: 8, Logger: log.Discard()})
	acc, err := gw.CreateAccount(context.Background(), core.AccountFields{Name: "Checking"})
	require.NoError(t, err)
	return &fixture{gw: gw, store: store, session: sess, account: acc}
}

func (f *fixture) fields(cents int64, income bool, category string) core.TransactionFields {
	return core.TransactionFields{
		AccountID:  f.account.ID,
		CategoryID: category,
		Amount:     core.Money{Cents: cents},
		IsIncome:   income,
		Date:       core.NewDate(2025, 5, 10),
	}
}

func TestGateway_RequiresSession(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()
	f.session.SignOut()

	_, err := f.gw.ListAccounts(ctx, "u1")
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	_, err = f.gw.ListTransactions(ctx, "u1", false)
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	_, err = f.gw.ListCategories(ctx, "")
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	assert.ErrorIs(t, f.gw.DeleteTransaction(ctx, "x"), core.ErrNotAuthenticated)

	gw := New(f.store, nil, Options{})
	_, err = gw.ListAccounts(ctx, "u1")
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
}

func TestGateway_OtherUserIsRejected(t *testing.T) {
	f := newFixture(t, time.Minute)
	_, err := f.gw.ListAccounts(context.Background(), "u2")
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	_, err = f.gw.CreateAccount(context.Background(), core.AccountFields{UserID: "u2", Name: "x"})
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
}

func TestGateway_LargeIncomeUpdatesBalance(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	_, err := f.gw.CreateTransaction(ctx, f.fields(100_000_000, true, "salary"))
	require.NoError(t, err)

	txs, err := f.gw.ListTransactions(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(100_000_000), core.CurrentBalance(f.account, txs).Cents)
}

func TestGateway_CategoryDirectionMismatch(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	_, err := f.gw.CreateTransaction(ctx, f.fields(500, true, "food"))
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.ErrorIs(t, err, core.ErrCategoryMismatch)

	_, err = f.gw.CreateTransaction(ctx, f.fields(500, false, "nope"))
	assert.ErrorIs(t, err, core.ErrValidation)

	bad := f.fields(500, false, "food")
	bad.AccountID = "missing"
	_, err = f.gw.CreateTransaction(ctx, bad)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.gw.CreateTransaction(ctx, f.fields(0, false, "food"))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	assert.Equal(t, int32(0), f.store.creates.Load(), "invalid input must not reach the store")
}

func TestGateway_UnknownIDs(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	_, err := f.gw.UpdateTransaction(ctx, "missing", f.fields(100, false, "food"))
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, f.gw.DeleteTransaction(ctx, "missing"), core.ErrNotFound)
	_, err = f.gw.GetTransaction(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = f.gw.GetAccount(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestGateway_CacheAndInvalidation(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	_, err := f.gw.ListTransactions(ctx, "u1", false)
	require.NoError(t, err)
	_, err = f.gw.ListTransactions(ctx, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.store.loads.Load(), "second read served from cache")

	_, err = f.gw.ListTransactions(ctx, "u1", true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.store.loads.Load(), "force refresh bypasses cache")

	tx, err := f.gw.CreateTransaction(ctx, f.fields(700, false, "food"))
	require.NoError(t, err)
	txs, err := f.gw.ListTransactions(ctx, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.store.loads.Load(), "mutation invalidates cache")
	require.Len(t, txs, 1)

	require.NoError(t, f.gw.DeleteTransaction(ctx, tx.ID))
	txs, err = f.gw.ListTransactions(ctx, "u1", false)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestGateway_CacheReturnsCopies(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()
	_, err := f.gw.CreateTransaction(ctx, f.fields(700, false, "food"))
	require.NoError(t, err)

	first, err := f.gw.ListTransactions(ctx, "u1", false)
	require.NoError(t, err)
	first[0].Note = "mutated"

	second, err := f.gw.ListTransactions(ctx, "u1", false)
	require.NoError(t, err)
	assert.Empty(t, second[0].Note)
}

func TestGateway_CacheExpires(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	ctx := context.Background()

	_, err := f.gw.ListTransactions(ctx, "u1", false)
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)
	_, err = f.gw.ListTransactions(ctx, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.store.loads.Load())
}

func TestGateway_NoCacheWhenTTLZero(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.gw.ListTransactions(ctx, "u1", false)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), f.store.loads.Load())
}

func TestGateway_ConcurrentLoadsShareOneRoundTrip(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.store.block = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.gw.ListTransactions(context.Background(), "u1", false)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(f.store.block)
	wg.Wait()

	assert.Equal(t, int32(1), f.store.loads.Load())
}

func TestGateway_BackendFailureIsRemoteUnavailable(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.store.fail = errors.New("connection reset")

	_, err := f.gw.ListTransactions(context.Background(), "u1", true)
	assert.ErrorIs(t, err, core.ErrRemoteUnavailable)
}

func TestGateway_ListCategoriesByType(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	income, err := f.gw.ListCategories(ctx, core.Income)
	require.NoError(t, err)
	for _, c := range income {
		assert.Equal(t, core.Income, c.Type)
	}
	all, err := f.gw.ListCategories(ctx, "")
	require.NoError(t, err)
	assert.Greater(t, len(all), len(income))

	_, err = f.gw.ListCategories(ctx, "transfer")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestGateway_MigrateBalances(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	_, err := f.gw.CreateTransaction(ctx, f.fields(5000, true, "salary"))
	require.NoError(t, err)
	_, err = f.gw.CreateTransaction(ctx, f.fields(1200, false, "food"))
	require.NoError(t, err)

	accounts, err := f.gw.MigrateBalances(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(3800), accounts[0].Balance.Cents)

	stored, err := f.gw.GetAccount(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3800), stored.Balance.Cents)
}

func TestGateway_UpdateAccount(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	a, err := f.gw.UpdateAccount(ctx, f.account.ID, core.AccountFields{Name: "Savings", InitialBalance: core.Money{Cents: 100}})
	require.NoError(t, err)
	assert.Equal(t, "Savings", a.Name)

	_, err = f.gw.UpdateAccount(ctx, f.account.ID, core.AccountFields{Name: " "})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestGateway_CancelledCallerLeavesSharedLoadRunning(t *testing.T) {
	f := newFixture(t, time.Minute)
	_, err := f.gw.CreateTransaction(context.Background(), f.fields(700, false, "food"))
	require.NoError(t, err)
	f.store.block = make(chan struct{})

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.gw.ListTransactions(first, "u1", false)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return f.store.loads.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		txs []core.Transaction
		err error
	}
	second := make(chan result, 1)
	go func() {
		txs, err := f.gw.ListTransactions(context.Background(), "u1", false)
		second <- result{txs, err}
	}()

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting for the shared load")
	}

	close(f.store.block)
	r := <-second
	require.NoError(t, r.err)
	assert.Len(t, r.txs, 1)
	assert.Equal(t, int32(1), f.store.loads.Load())
}

func TestGateway_TransactionsOfOtherUsersAreNotFound(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()
	tx, err := f.gw.CreateTransaction(ctx, f.fields(700, false, "food"))
	require.NoError(t, err)

	require.NoError(t, f.session.SignIn(core.User{ID: "u2"}))
	own, err := f.gw.CreateAccount(ctx, core.AccountFields{Name: "Mine"})
	require.NoError(t, err)
	_, err = f.gw.GetTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	moved := f.fields(1, false, "food")
	moved.AccountID = own.ID
	_, err = f.gw.UpdateTransaction(ctx, tx.ID, moved)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, f.gw.DeleteTransaction(ctx, tx.ID), core.ErrNotFound)

	require.NoError(t, f.session.SignIn(core.User{ID: "u1"}))
	got, err := f.gw.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), got.Amount.Cents)
	assert.Equal(t, f.account.ID, got.AccountID)
}

func TestGateway_InitialBalanceEditKeepsStoredBalanceInStep(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()
	_, err := f.gw.CreateTransaction(ctx, f.fields(1200, false, "food"))
	require.NoError(t, err)
	_, err = f.gw.MigrateBalances(ctx, "u1")
	require.NoError(t, err)

	a, err := f.gw.UpdateAccount(ctx, f.account.ID, core.AccountFields{Name: "Checking", InitialBalance: core.Money{Cents: 10_000}})
	require.NoError(t, err)
	assert.Equal(t, int64(8800), a.Balance.Cents)

	txs, err := f.gw.ListTransactions(ctx, "u1", true)
	require.NoError(t, err)
	assert.Equal(t, core.CurrentBalance(a, txs), a.Balance)
}
