package backend

import (
	"context"
	"fmt"

	"walletsync/internal/appwrite"
	"walletsync/internal/log"
	"walletsync/internal/storage"
	"walletsync/internal/storage/memory"
	"walletsync/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{
		logger: log.OrDefault(logger, log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case AppwriteBackend:
		return f.createAppwriteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := postgres.New(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL store: %w", err)
	}

	f.logger.Info("Initialized PostgreSQL backend")

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createAppwriteBackend(config Config) (*BackendResult, error) {
	client, err := appwrite.New(appwrite.Config{
		Endpoint:   config.AppwriteEndpoint,
		Project:    config.AppwriteProject,
		APIKey:     config.AppwriteAPIKey,
		Session:    config.AppwriteSession,
		DatabaseID: config.AppwriteDatabaseID,
		Collections: appwrite.Collections{
			Accounts:     config.AccountsCollection,
			Categories:   config.CategoriesCollection,
			Transactions: config.TransactionsCollection,
		},
		Timeout: config.HTTPTimeout,
	}, nil, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Appwrite client: %w", err)
	}

	f.logger.Info("Initialized Appwrite backend",
		"endpoint", config.AppwriteEndpoint,
		"database", config.AppwriteDatabaseID)

	return &BackendResult{Store: client}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{Store: store}, nil
}
