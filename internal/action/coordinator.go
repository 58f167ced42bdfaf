// Package action sequences the confirm, mutate, notify flow behind the
// transaction action menu and the create/edit forms.
package action

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"walletsync/internal/core"
	"walletsync/internal/events"
	"walletsync/internal/log"
)

type State int

const (
	Idle State = iota
	ActionMenuOpen
	DeleteConfirming
	NavigatingToEdit
	Deleting
	SuccessShown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ActionMenuOpen:
		return "action_menu_open"
	case DeleteConfirming:
		return "delete_confirming"
	case NavigatingToEdit:
		return "navigating_to_edit"
	case Deleting:
		return "deleting"
	case SuccessShown:
		return "success_shown"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrDeleteInFlight    = errors.New("delete already in progress")
)

// Presenter is the modal surface of a screen. Calls are made without the
// coordinator lock held, in the order the user should see them.
type Presenter interface {
	OpenActionMenu(tx core.Transaction)
	CloseActionMenu()
	ShowDeleteConfirm(tx core.Transaction)
	ShowSuccess(message string)
	ShowError(message string)
}

// EditNavigator receives the full snapshot of the transaction to edit.
type EditNavigator interface {
	NavigateToEdit(tx core.Transaction)
}

type Deleter interface {
	DeleteTransaction(ctx context.Context, id string) error
}

// Coordinator drives one screen's transaction action flow. At most one
// delete is in flight per coordinator.
type Coordinator struct {
	mu       sync.Mutex
	state    State
	selected core.Transaction
	deleting bool

	deleter   Deleter
	publisher events.Publisher
	presenter Presenter
	navigator EditNavigator
	logger    *log.Logger
}

func NewCoordinator(d Deleter, pub events.Publisher, p Presenter, nav EditNavigator, logger *log.Logger) *Coordinator {
	return &Coordinator{
		deleter:   d,
		publisher: pub,
		presenter: p,
		navigator: nav,
		logger:    log.OrDefault(logger, log.ComponentCoordinator),
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Selected returns the transaction the menu was opened for.
func (c *Coordinator) Selected() (core.Transaction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.state != Idle
}

// CanConfirm reports whether the confirm button should be enabled.
func (c *Coordinator) CanConfirm() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == DeleteConfirming && !c.deleting
}

// transition moves from one of the allowed states to next. Callers hold mu.
func (c *Coordinator) transition(next State, allowed ...State) error {
	for _, s := range allowed {
		if c.state == s {
			c.logger.Debug("State transition",
				"from", c.state.String(),
				log.FieldState, next.String(),
				log.FieldTransactionID, c.selected.ID)
			c.state = next
			return nil
		}
	}
	if c.deleting {
		return ErrDeleteInFlight
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, next)
}

// Open shows the action menu for tx.
func (c *Coordinator) Open(tx core.Transaction) error {
	c.mu.Lock()
	if err := c.transition(ActionMenuOpen, Idle); err != nil {
		c.mu.Unlock()
		return err
	}
	c.selected = tx
	c.mu.Unlock()

	c.presenter.OpenActionMenu(tx)
	return nil
}

// RequestDelete closes the action menu, then asks for confirmation.
func (c *Coordinator) RequestDelete() error {
	c.mu.Lock()
	if err := c.transition(DeleteConfirming, ActionMenuOpen); err != nil {
		c.mu.Unlock()
		return err
	}
	tx := c.selected
	c.mu.Unlock()

	c.presenter.CloseActionMenu()
	c.presenter.ShowDeleteConfirm(tx)
	return nil
}

// RequestEdit closes the action menu and hands the whole transaction to the
// edit destination. The coordinator is idle again afterwards.
func (c *Coordinator) RequestEdit() error {
	c.mu.Lock()
	if err := c.transition(NavigatingToEdit, ActionMenuOpen); err != nil {
		c.mu.Unlock()
		return err
	}
	tx := c.selected
	c.mu.Unlock()

	c.presenter.CloseActionMenu()
	c.navigator.NavigateToEdit(tx)

	c.mu.Lock()
	if c.state == NavigatingToEdit {
		c.state = Idle
		c.selected = core.Transaction{}
	}
	c.mu.Unlock()
	return nil
}

// ConfirmDelete deletes the selected transaction. The lock is not held
// during the remote call; the deleting flag rejects a second confirmation
// until the first resolves. The delete event is published only after the
// remote delete succeeded.
func (c *Coordinator) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	if c.deleting {
		c.mu.Unlock()
		return ErrDeleteInFlight
	}
	if err := c.transition(Deleting, DeleteConfirming); err != nil {
		c.mu.Unlock()
		return err
	}
	c.deleting = true
	tx := c.selected
	c.mu.Unlock()

	err := c.deleter.DeleteTransaction(ctx, tx.ID)

	c.mu.Lock()
	c.deleting = false
	if err != nil {
		c.state = Idle
		c.selected = core.Transaction{}
		c.mu.Unlock()

		c.logger.ErrorContext(ctx, "Delete failed", log.FieldTransactionID, tx.ID, log.FieldError, err)
		c.presenter.ShowError(core.UserMessage(err))
		return err
	}
	c.state = SuccessShown
	c.mu.Unlock()

	c.publisher.Publish(ctx, events.Event{Action: events.ActionDelete, ID: tx.ID})
	c.logger.InfoContext(ctx, "Transaction deleted", log.FieldTransactionID, tx.ID)
	c.presenter.ShowSuccess("Transaction deleted")
	return nil
}

// Cancel leaves the menu or the confirmation without side effects.
func (c *Coordinator) Cancel() error {
	c.mu.Lock()
	prev := c.state
	if err := c.transition(Idle, ActionMenuOpen, DeleteConfirming); err != nil {
		c.mu.Unlock()
		return err
	}
	c.selected = core.Transaction{}
	c.mu.Unlock()

	if prev == ActionMenuOpen {
		c.presenter.CloseActionMenu()
	}
	return nil
}

// DismissSuccess closes the success modal.
func (c *Coordinator) DismissSuccess() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transition(Idle, SuccessShown); err != nil {
		return err
	}
	c.selected = core.Transaction{}
	return nil
}
