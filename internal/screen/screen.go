// Package screen holds headless view controllers. Each screen owns its own
// copy of the data, subscribes to change events while focused and rebuilds
// its view from a forced re-fetch on every event.
package screen

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"walletsync/internal/core"
	"walletsync/internal/events"
	"walletsync/internal/log"
)

// Source is the read side of the gateway.
type Source interface {
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	ListCategories(ctx context.Context, t core.CategoryType) ([]core.Category, error)
	ListTransactions(ctx context.Context, userID string, forceRefresh bool) ([]core.Transaction, error)
}

type Subscriber interface {
	Subscribe(name string, h events.Handler) *events.Subscription
}

// Data is one screen's private copy of the remote data.
type Data struct {
	Accounts     []core.Account
	Categories   []core.Category
	Transactions []core.Transaction
}

// Screen fetches Data and derives a view T from it with compute.
type Screen[T any] struct {
	name    string
	userID  string
	src     Source
	bus     Subscriber
	compute func(Data) T
	logger  *log.Logger

	mu       sync.Mutex
	data     Data
	view     T
	loaded   bool
	seq      uint64 // last started refresh
	applied  uint64 // last refresh whose result was kept
	sub      *events.Subscription
	cancel   context.CancelFunc
	focusCtx context.Context
	onChange func(T)
}

func New[T any](name, userID string, src Source, bus Subscriber, compute func(Data) T, logger *log.Logger) *Screen[T] {
	return &Screen[T]{
		name:    name,
		userID:  userID,
		src:     src,
		bus:     bus,
		compute: compute,
		logger:  log.OrDefault(logger, log.ComponentScreen).With(log.FieldScreen, name),
	}
}

func (s *Screen[T]) Name() string { return s.name }

// OnChange registers fn to receive every recomputed view. fn runs on the
// goroutine that triggered the change.
func (s *Screen[T]) OnChange(fn func(T)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Focus subscribes to change events and force-refreshes. The returned error
// is the foreground refresh failure, for the caller to show.
func (s *Screen[T]) Focus(ctx context.Context) error {
	s.mu.Lock()
	if s.sub == nil {
		s.focusCtx, s.cancel = context.WithCancel(ctx)
		s.sub = s.bus.Subscribe(s.name, s.handle)
	}
	focusCtx := s.focusCtx
	s.mu.Unlock()

	return s.Refresh(focusCtx, true)
}

// Blur unsubscribes and cancels in-flight refreshes. Events raised while
// blurred are missed; the next Focus re-fetches.
func (s *Screen[T]) Blur() {
	s.mu.Lock()
	sub, cancel := s.sub, s.cancel
	s.sub, s.cancel, s.focusCtx = nil, nil, nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
}

// Focused reports whether the screen is subscribed.
func (s *Screen[T]) Focused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub != nil
}

func (s *Screen[T]) handle(ctx context.Context, e events.Event) {
	s.mu.Lock()
	focusCtx := s.focusCtx
	s.mu.Unlock()
	if focusCtx == nil {
		return
	}
	// Stop when either the subscription or the focus ends.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(focusCtx, cancel)
	defer stop()

	s.logger.DebugContext(ctx, "Change event received",
		log.FieldAction, e.Action,
		log.FieldTransactionID, e.ID,
		"origin", e.Origin)
	if err := s.Refresh(ctx, true); err != nil {
		s.logger.WarnContext(ctx, "Background refresh failed, keeping stale data",
			log.FieldError, err)
	}
}

// Refresh fetches accounts, categories and transactions concurrently and
// recomputes the view. On failure the previous data is kept. A result that
// arrives after a newer refresh was applied, or after ctx ended, is dropped.
func (s *Screen[T]) Refresh(ctx context.Context, force bool) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	var d Data
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		accounts, err := s.src.ListAccounts(gctx, s.userID)
		if err != nil {
			return fmt.Errorf("accounts: %w", err)
		}
		d.Accounts = accounts
		return nil
	})
	g.Go(func() error {
		cats, err := s.src.ListCategories(gctx, "")
		if err != nil {
			return fmt.Errorf("categories: %w", err)
		}
		d.Categories = cats
		return nil
	})
	g.Go(func() error {
		txs, err := s.src.ListTransactions(gctx, s.userID, force)
		if err != nil {
			return fmt.Errorf("transactions: %w", err)
		}
		d.Transactions = txs
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("refresh %s: %w", s.name, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if seq < s.applied {
		s.mu.Unlock()
		return nil
	}
	s.applied = seq
	s.data = d
	s.loaded = true
	view := s.compute(d)
	s.view = view
	fn := s.onChange
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Screen refreshed",
		log.FieldForceRefresh, force,
		log.FieldCount, len(d.Transactions))
	if fn != nil {
		fn(view)
	}
	return nil
}

// Recompute rebuilds the view from the data already held, e.g. after a
// period change. It does nothing before the first load.
func (s *Screen[T]) Recompute() {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return
	}
	view := s.compute(s.data)
	s.view = view
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(view)
	}
}

func (s *Screen[T]) View() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Screen[T]) Data() Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

func (s *Screen[T]) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}
