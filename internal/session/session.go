// Package session holds the signed-in user for the lifetime of a process.
package session

import (
	"fmt"
	"strings"
	"sync"

	"walletsync/internal/core"
	"walletsync/internal/log"
)

// Manager is the explicit application-state container. It is safe for
// concurrent use.
type Manager struct {
	mu        sync.RWMutex
	user      *core.User
	listeners []func(core.User)
	logger    *log.Logger
}

func NewManager(logger *log.Logger) *Manager {
	return &Manager{logger: log.OrDefault(logger, log.ComponentSession)}
}

// SignIn makes u the active user, replacing any previous session.
func (m *Manager) SignIn(u core.User) error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("%w: user id is required", core.ErrValidation)
	}
	m.mu.Lock()
	m.user = &u
	m.mu.Unlock()
	m.logger.Info("Signed in", log.FieldUserID, u.ID)
	return nil
}

// SignOut clears the session and runs the sign-out listeners with the user
// that was signed in. It is a no-op without a session.
func (m *Manager) SignOut() {
	m.mu.Lock()
	prev := m.user
	m.user = nil
	listeners := append([]func(core.User){}, m.listeners...)
	m.mu.Unlock()

	if prev == nil {
		return
	}
	for _, fn := range listeners {
		fn(*prev)
	}
	m.logger.Info("Signed out", log.FieldUserID, prev.ID)
}

// OnSignOut registers fn to run after every sign-out. Listeners tear down
// per-user state such as caches and subscriptions.
func (m *Manager) OnSignOut(fn func(core.User)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Current returns the signed-in user or core.ErrNotAuthenticated.
func (m *Manager) Current() (core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return core.User{}, core.ErrNotAuthenticated
	}
	return *m.user, nil
}

// Require returns the signed-in user and checks it is userID.
func (m *Manager) Require(userID string) (core.User, error) {
	u, err := m.Current()
	if err != nil {
		return core.User{}, err
	}
	if u.ID != userID {
		return core.User{}, fmt.Errorf("%w: session belongs to another user", core.ErrNotAuthenticated)
	}
	return u, nil
}
