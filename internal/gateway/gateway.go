// Package gateway is the single entry point screens and coordinators use to
// read and mutate remote data. It checks the session, validates input before
// any round trip, classifies backend failures and keeps a short-lived read
// cache that every mutation invalidates.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"walletsync/internal/cache"
	"walletsync/internal/core"
	"walletsync/internal/log"
	"walletsync/internal/ports"
)

// Session reports the signed-in user.
type Session interface {
	Current() (core.User, error)
}

type Options struct {
	CacheTTL  time.Duration // zero disables the read cache
	CacheSize int
	// Manager, when set, sweeps expired cache entries periodically.
	Manager *cache.Manager
	Logger  *log.Logger
}

type Gateway struct {
	store   ports.Store
	session Session
	logger  *log.Logger

	transactions *cache.LRUCache[[]core.Transaction]
	categories   *cache.LRUCache[[]core.Category]
	loads        singleflight.Group
	// generation changes on every invalidation so loads started before a
	// mutation never populate the cache or get shared with later callers.
	generation atomic.Uint64
}

func New(store ports.Store, session Session, opts Options) *Gateway {
	g := &Gateway{
		store:   store,
		session: session,
		logger:  log.OrDefault(opts.Logger, log.ComponentGateway),
	}
	if opts.CacheTTL > 0 {
		size := opts.CacheSize
		if size < 1 {
			size = 64
		}
		g.transactions = cache.NewLRUCache[[]core.Transaction](size, opts.CacheTTL)
		g.categories = cache.NewLRUCache[[]core.Category](4, opts.CacheTTL)
		if opts.Manager != nil {
			opts.Manager.Register(g.transactions)
			opts.Manager.Register(g.categories)
		}
	}
	return g
}

// Invalidate drops every cached read.
func (g *Gateway) Invalidate() {
	g.generation.Add(1)
	if g.transactions != nil {
		g.transactions.Clear()
		g.categories.Clear()
	}
}

func (g *Gateway) user() (core.User, error) {
	if g.session == nil {
		return core.User{}, core.ErrNotAuthenticated
	}
	return g.session.Current()
}

// requireUser checks there is a session and that it belongs to userID.
func (g *Gateway) requireUser(userID string) (core.User, error) {
	u, err := g.user()
	if err != nil {
		return core.User{}, err
	}
	if userID != u.ID {
		return core.User{}, fmt.Errorf("%w: session does not match user %s", core.ErrNotAuthenticated, userID)
	}
	return u, nil
}

// classify makes sure every backend failure carries one of the core
// failure classes.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, core.ErrNotAuthenticated),
		errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrRemoteUnavailable):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, core.ErrRemoteUnavailable, err)
	}
}

func (g *Gateway) fail(ctx context.Context, op string, err error, args ...any) error {
	err = classify(op, err)
	if !errors.Is(err, core.ErrValidation) && !errors.Is(err, core.ErrNotAuthenticated) {
		g.logger.ErrorContext(ctx, "Gateway operation failed",
			append([]any{log.FieldOperation, op, log.FieldError, err}, args...)...)
	}
	return err
}

func (g *Gateway) genKey(key string) string {
	return key + "@" + strconv.FormatUint(g.generation.Load(), 10)
}
