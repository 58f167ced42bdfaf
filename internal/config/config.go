package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP API (serve command)
	Port               string
	RateLimitPerMinute int

	// Backend selection
	DataBackend string

	// Memory backend seed directory
	DataDirectory string

	// SQLite
	SQLiteDBPath string

	// PostgreSQL
	DatabaseURL string

	// Appwrite
	AppwriteEndpoint       string
	AppwriteProject        string
	AppwriteAPIKey         string
	AppwriteSession        string
	AppwriteDatabaseID     string
	AccountsCollection     string
	CategoriesCollection   string
	TransactionsCollection string

	// Session
	SessionUserID string

	// Gateway read cache
	CacheTTL  time.Duration
	CacheSize int

	// AMQP event bridge (optional)
	AMQPURL      string
	AMQPExchange string

	// External services
	UploadURL      string
	UploadAPIKey   string
	ChatWebhookURL string
	HTTPTimeout    time.Duration

	// Google Sheets report export (optional)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	GoogleOAuthClientID      string
	GoogleOAuthClientSecret  string
	GoogleOAuthRefreshToken  string

	// Logging
	LogLevel  string
	LogFormat string
}

var validBackends = []string{"memory", "sqlite", "postgres", "appwrite"}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataBackend:   getEnv("DATA_BACKEND", "memory"),
		DataDirectory: getEnv("DATA_DIRECTORY", "data"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/walletsync.db"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		AppwriteEndpoint:       getEnv("APPWRITE_ENDPOINT", "https://cloud.appwrite.io/v1"),
		AppwriteProject:        getEnv("APPWRITE_PROJECT", ""),
		AppwriteAPIKey:         getEnv("APPWRITE_API_KEY", ""),
		AppwriteSession:        getEnv("APPWRITE_SESSION", ""),
		AppwriteDatabaseID:     getEnv("APPWRITE_DATABASE_ID", ""),
		AccountsCollection:     getEnv("APPWRITE_ACCOUNTS_COLLECTION", "accounts"),
		CategoriesCollection:   getEnv("APPWRITE_CATEGORIES_COLLECTION", "categories"),
		TransactionsCollection: getEnv("APPWRITE_TRANSACTIONS_COLLECTION", "transactions"),

		SessionUserID: getEnv("SESSION_USER_ID", ""),

		CacheTTL:  getEnvDuration("CACHE_TTL", 30*time.Second),
		CacheSize: getEnvInt("CACHE_SIZE", 64),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "walletsync.events"),

		UploadURL:      getEnv("UPLOAD_URL", "https://api.imgbb.com/1/upload"),
		UploadAPIKey:   getEnv("UPLOAD_API_KEY", ""),
		ChatWebhookURL: getEnv("CHAT_WEBHOOK_URL", ""),
		HTTPTimeout:    getEnvDuration("HTTP_TIMEOUT", 15*time.Second),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Report"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleOAuthClientID:      getEnv("GOOGLE_OAUTH_CLIENT_ID", ""),
		GoogleOAuthClientSecret:  getEnv("GOOGLE_OAUTH_CLIENT_SECRET", ""),
		GoogleOAuthRefreshToken:  getEnv("GOOGLE_OAUTH_REFRESH_TOKEN", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, "invalid DATABASE_URL: must be a postgres:// or postgresql:// URL")
		}
	case "appwrite":
		if err := validateHTTPURL(c.AppwriteEndpoint); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Appwrite endpoint '%s': %v", c.AppwriteEndpoint, err))
		}
		if c.AppwriteProject == "" {
			errors = append(errors, "APPWRITE_PROJECT is required when using appwrite backend")
		}
		if c.AppwriteDatabaseID == "" {
			errors = append(errors, "APPWRITE_DATABASE_ID is required when using appwrite backend")
		}
		if c.AppwriteAPIKey == "" && c.AppwriteSession == "" {
			errors = append(errors, "either APPWRITE_API_KEY or APPWRITE_SESSION must be provided for appwrite backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.UploadURL != "" {
		if err := validateHTTPURL(c.UploadURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid upload URL '%s': %v", c.UploadURL, err))
		}
	}
	if c.ChatWebhookURL != "" {
		if err := validateHTTPURL(c.ChatWebhookURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid chat webhook URL '%s': %v", c.ChatWebhookURL, err))
		}
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" && c.GoogleOAuthRefreshToken == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_OAUTH_REFRESH_TOKEN must be provided for report export")
	}
	if c.GoogleOAuthRefreshToken != "" && (c.GoogleOAuthClientID == "" || c.GoogleOAuthClientSecret == "") {
		errors = append(errors, "GOOGLE_OAUTH_CLIENT_ID and GOOGLE_OAUTH_CLIENT_SECRET are required with GOOGLE_OAUTH_REFRESH_TOKEN")
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	} else if c.CacheTTL > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 1 hour", c.CacheTTL))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.HTTPTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at least 1 second", c.HTTPTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be 'http' or 'https'")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
