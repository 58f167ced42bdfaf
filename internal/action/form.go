package action

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"walletsync/internal/core"
	"walletsync/internal/events"
	"walletsync/internal/log"
)

type TransactionWriter interface {
	CreateTransaction(ctx context.Context, f core.TransactionFields) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, f core.TransactionFields) (core.Transaction, error)
}

// TransactionInput is the raw form state.
type TransactionInput struct {
	AccountID  string
	CategoryID string
	Amount     string // decimal, dot or comma
	IsIncome   bool
	Date       string // YYYY-MM-DD
	Note       string
}

// Fields parses and validates the input.
func (in TransactionInput) Fields() (core.TransactionFields, error) {
	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return core.TransactionFields{}, err
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.TransactionFields{}, err
	}
	f := core.TransactionFields{
		AccountID:  strings.TrimSpace(in.AccountID),
		CategoryID: strings.TrimSpace(in.CategoryID),
		Amount:     core.Money{Cents: cents},
		IsIncome:   in.IsIncome,
		Date:       date,
		Note:       strings.TrimSpace(in.Note),
	}
	return f, f.Validate()
}

// TransactionForm creates or edits a transaction and announces the change.
type TransactionForm struct {
	writer    TransactionWriter
	publisher events.Publisher
	logger    *log.Logger
}

func NewTransactionForm(w TransactionWriter, pub events.Publisher, logger *log.Logger) *TransactionForm {
	return &TransactionForm{writer: w, publisher: pub, logger: log.OrDefault(logger, log.ComponentForm)}
}

// Submit creates a transaction when id is empty and replaces transaction id
// otherwise. Invalid fields fail before any remote call.
func (f *TransactionForm) Submit(ctx context.Context, id string, fields core.TransactionFields) (core.Transaction, error) {
	if err := fields.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var (
		tx     core.Transaction
		err    error
		action = events.ActionCreate
	)
	if id == "" {
		tx, err = f.writer.CreateTransaction(ctx, fields)
	} else {
		action = events.ActionUpdate
		tx, err = f.writer.UpdateTransaction(ctx, id, fields)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%s transaction: %w", action, err)
	}

	f.publisher.Publish(ctx, events.Event{Action: action, ID: tx.ID})
	f.logger.InfoContext(ctx, "Transaction saved", log.FieldAction, action, log.FieldTransactionID, tx.ID)
	return tx, nil
}

type AccountWriter interface {
	GetAccount(ctx context.Context, id string) (core.Account, error)
	CreateAccount(ctx context.Context, f core.AccountFields) (core.Account, error)
	UpdateAccount(ctx context.Context, id string, f core.AccountFields) (core.Account, error)
}

// ErrUploadDisabled is returned by SetAvatar when no uploader is configured.
var ErrUploadDisabled = errors.New("avatar upload is not configured")

// Uploader stores an image and returns its public URL.
type Uploader interface {
	UploadJPEG(ctx context.Context, jpeg []byte) (string, error)
}

// AccountInput is the raw account form state.
type AccountInput struct {
	Name           string
	InitialBalance string // signed decimal, empty means zero
	AvatarURL      string
}

func (in AccountInput) Fields() (core.AccountFields, error) {
	var cents int64
	if s := strings.TrimSpace(in.InitialBalance); s != "" {
		c, err := core.ParseSignedDecimalToCents(s)
		if err != nil {
			return core.AccountFields{}, fmt.Errorf("initial balance: %w", err)
		}
		cents = c
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return core.AccountFields{}, core.ErrEmptyName
	}
	return core.AccountFields{
		Name:           name,
		InitialBalance: core.Money{Cents: cents},
		AvatarURL:      in.AvatarURL,
	}, nil
}

type AccountForm struct {
	writer    AccountWriter
	uploader  Uploader
	publisher events.Publisher
	logger    *log.Logger
}

func NewAccountForm(w AccountWriter, u Uploader, pub events.Publisher, logger *log.Logger) *AccountForm {
	return &AccountForm{writer: w, uploader: u, publisher: pub, logger: log.OrDefault(logger, log.ComponentForm)}
}

// Submit creates an account when id is empty, updates it otherwise.
func (f *AccountForm) Submit(ctx context.Context, id string, fields core.AccountFields) (core.Account, error) {
	if strings.TrimSpace(fields.Name) == "" {
		return core.Account{}, core.ErrEmptyName
	}
	var (
		a   core.Account
		err error
	)
	if id == "" {
		a, err = f.writer.CreateAccount(ctx, fields)
	} else {
		a, err = f.writer.UpdateAccount(ctx, id, fields)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("save account: %w", err)
	}
	f.publisher.Publish(ctx, events.Event{Action: events.ActionAccountUpdate, ID: a.ID})
	f.logger.InfoContext(ctx, "Account saved", log.FieldAccountID, a.ID)
	return a, nil
}

// SetAvatar uploads jpeg and stores its URL on the account.
func (f *AccountForm) SetAvatar(ctx context.Context, accountID string, jpeg []byte) (core.Account, error) {
	if f.uploader == nil {
		return core.Account{}, ErrUploadDisabled
	}
	if len(jpeg) == 0 {
		return core.Account{}, fmt.Errorf("%w: empty image", core.ErrValidation)
	}
	a, err := f.writer.GetAccount(ctx, accountID)
	if err != nil {
		return core.Account{}, err
	}
	url, err := f.uploader.UploadJPEG(ctx, jpeg)
	if err != nil {
		return core.Account{}, fmt.Errorf("upload avatar: %w", err)
	}
	fields := a.Fields()
	fields.AvatarURL = url
	return f.Submit(ctx, accountID, fields)
}
