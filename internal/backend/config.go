package backend

import (
	"fmt"

	"walletsync/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,

		AppwriteEndpoint:       appConfig.AppwriteEndpoint,
		AppwriteProject:        appConfig.AppwriteProject,
		AppwriteAPIKey:         appConfig.AppwriteAPIKey,
		AppwriteSession:        appConfig.AppwriteSession,
		AppwriteDatabaseID:     appConfig.AppwriteDatabaseID,
		AccountsCollection:     appConfig.AccountsCollection,
		CategoriesCollection:   appConfig.CategoriesCollection,
		TransactionsCollection: appConfig.TransactionsCollection,
		HTTPTimeout:            appConfig.HTTPTimeout,

		DataDirectory: appConfig.DataDirectory,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case AppwriteBackend:
		if c.AppwriteEndpoint == "" || c.AppwriteProject == "" || c.AppwriteDatabaseID == "" {
			return fmt.Errorf("endpoint, project and database id are required for appwrite backend")
		}
		if c.AppwriteAPIKey == "" && c.AppwriteSession == "" {
			return fmt.Errorf("either an API key or a session is required for appwrite backend")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data" when empty
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend, AppwriteBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
