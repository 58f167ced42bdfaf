package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"walletsync/internal/action"
	"walletsync/internal/amqp"
	"walletsync/internal/backend"
	"walletsync/internal/cache"
	"walletsync/internal/chat"
	"walletsync/internal/config"
	"walletsync/internal/core"
	"walletsync/internal/events"
	"walletsync/internal/gateway"
	"walletsync/internal/log"
	"walletsync/internal/report/sheets"
	"walletsync/internal/session"
	"walletsync/internal/upload"
)

// App holds the wired components one command invocation works with.
type App struct {
	Config     *config.Config
	Logger     *log.Logger
	InstanceID string
	Session    *session.Manager
	Gateway    *gateway.Gateway
	Bus        *events.Bus
	Cache      *cache.Manager

	backend *backend.BackendResult
	broker  *amqp.Client
}

// NewApp opens the configured backend and builds the gateway on top of it.
// The user in SESSION_USER_ID, if any, is signed in.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}

	sess := session.NewManager(logger)
	if cfg.SessionUserID != "" {
		if err := sess.SignIn(core.User{ID: cfg.SessionUserID}); err != nil {
			_ = res.Close()
			return nil, err
		}
	}

	a := &App{
		Config:     cfg,
		Logger:     logger,
		InstanceID: uuid.NewString(),
		Session:    sess,
		Bus:        events.NewBus(events.WithLogger(logger)),
		backend:    res,
	}
	a.Cache = cache.NewManager(func(removed int) {
		logger.WithComponent(log.ComponentCache).Debug("Expired cache entries removed", log.FieldCount, removed)
	})
	a.Gateway = gateway.New(res.Store, sess, gateway.Options{
		CacheTTL:  cfg.CacheTTL,
		CacheSize: cfg.CacheSize,
		Manager:   a.Cache,
		Logger:    logger,
	})
	sess.OnSignOut(func(core.User) { a.Gateway.Invalidate() })

	if cfg.AMQPURL != "" {
		a.broker = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, logger)
	}
	return a, nil
}

// UserID returns the signed-in user's id.
func (a *App) UserID() (string, error) {
	u, err := a.Session.Current()
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// Publisher is where one-shot commands emit change events: the broker when
// one is configured, the local bus otherwise.
func (a *App) Publisher() events.Publisher {
	if a.broker != nil {
		return amqp.NewRelay(a.broker, a.InstanceID, a.Logger)
	}
	return a.Bus
}

// Bridge relays the local bus through the broker, or returns nil when no
// broker is configured.
func (a *App) Bridge() *amqp.Bridge {
	if a.broker == nil {
		return nil
	}
	return amqp.NewBridge(a.broker, a.Bus, a.InstanceID, a.Logger)
}

func (a *App) TransactionForm(pub events.Publisher) *action.TransactionForm {
	return action.NewTransactionForm(a.Gateway, pub, a.Logger)
}

func (a *App) AccountForm(pub events.Publisher) *action.AccountForm {
	return action.NewAccountForm(a.Gateway, a.Uploader(), pub, a.Logger)
}

// Uploader returns the avatar uploader, or nil when UPLOAD_API_KEY is unset.
func (a *App) Uploader() action.Uploader {
	if a.Config.UploadAPIKey == "" {
		return nil
	}
	return upload.New(a.Config.UploadURL, a.Config.UploadAPIKey, a.Config.HTTPTimeout, a.Logger)
}

func (a *App) Chat() (*chat.Client, error) {
	if a.Config.ChatWebhookURL == "" {
		return nil, errors.New("chat is not configured (set CHAT_WEBHOOK_URL)")
	}
	return chat.New(a.Config.ChatWebhookURL, a.Config.HTTPTimeout, a.Logger), nil
}

func (a *App) Exporter(ctx context.Context) (*sheets.Exporter, error) {
	if a.Config.GoogleSpreadsheetID == "" {
		return nil, errors.New("report export is not configured (set GOOGLE_SPREADSHEET_ID)")
	}
	return sheets.New(ctx, sheets.Config{
		SpreadsheetID:      a.Config.GoogleSpreadsheetID,
		SheetName:          a.Config.GoogleSheetName,
		ServiceAccountJSON: a.Config.GoogleServiceAccountJSON,
		ServiceAccountFile: a.Config.GoogleServiceAccountFile,
		ClientID:           a.Config.GoogleOAuthClientID,
		ClientSecret:       a.Config.GoogleOAuthClientSecret,
		RefreshToken:       a.Config.GoogleOAuthRefreshToken,
	}, a.Logger)
}

// Close releases the broker connection, the bus and the backend.
func (a *App) Close() error {
	a.Cache.Stop()
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			a.Logger.Warn("Failed to close broker connection", log.FieldError, err)
		}
	}
	a.Bus.Close()
	start := time.Now()
	err := a.backend.Close()
	a.Logger.Debug("Backend closed", log.FieldDuration, time.Since(start).Milliseconds())
	return err
}
