package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Data backends.
const (
	BackendAppsScript = "appsscript"
	BackendSheets     = "sheets"
	BackendMemory     = "memory"
)

// Session stores.
const (
	SessionSQLite = "sqlite"
	SessionMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port          string
	SecureCookies bool
	RateLimit     int

	// Gateway
	DataBackend    string
	GatewayURL     string
	GatewayTimeout time.Duration
	UsersTimeout   time.Duration
	DataDir        string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	ProjectsSheet            string
	FinancialSheet           string

	// Sessions
	SessionStore string
	SQLiteDBPath string
	SessionTTL   time.Duration

	// AMQP; activity is written directly when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Activity log feed
	LogPollInterval time.Duration
	LogPollLimit    int

	ProjectCatalogFile string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8081"),
		SecureCookies: getEnvBool("SECURE_COOKIES", false),
		RateLimit:     getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataBackend:    getEnv("DATA_BACKEND", BackendAppsScript),
		GatewayURL:     getEnv("GATEWAY_URL", ""),
		GatewayTimeout: getEnvDuration("GATEWAY_TIMEOUT", 30*time.Second),
		UsersTimeout:   getEnvDuration("USERS_TIMEOUT", 6*time.Second),
		DataDir:        getEnv("DATA_DIR", "./data"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		ProjectsSheet:            getEnv("GOOGLE_PROJECTS_SHEET", "Principal"),
		FinancialSheet:           getEnv("GOOGLE_FINANCIAL_SHEET", "Tabla_Eje_Financiera"),

		SessionStore: getEnv("SESSION_STORE", SessionSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/seguimiento.db"),
		SessionTTL:   getEnvDuration("SESSION_TTL", 24*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "seguimiento"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "activity_log"),

		LogPollInterval: getEnvDuration("LOG_POLL_INTERVAL", 30*time.Second),
		LogPollLimit:    getEnvInt("LOG_POLL_LIMIT", 100),

		ProjectCatalogFile: getEnv("PROJECT_CATALOG_FILE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate checks every setting and reports all problems in one error.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be positive", c.RateLimit))
	}

	validBackends := []string{BackendAppsScript, BackendSheets, BackendMemory}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// the sheets backend still relies on the web app for users, config and logs
	if c.DataBackend == BackendAppsScript || c.DataBackend == BackendSheets {
		if c.GatewayURL == "" {
			errors = append(errors, "GATEWAY_URL is required for the appsscript and sheets backends")
		} else if u, err := url.Parse(c.GatewayURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid gateway URL '%s': must be an absolute http(s) URL", c.GatewayURL))
		}
	}
	if c.DataBackend == BackendSheets {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}
	if c.GatewayTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid gateway timeout %v: must be positive", c.GatewayTimeout))
	}
	if c.UsersTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid users timeout %v: must be positive", c.UsersTimeout))
	}

	switch c.SessionStore {
	case SessionMemory:
	case SessionSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite sessions")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid session store '%s': must be one of [%s %s]", c.SessionStore, SessionSQLite, SessionMemory))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.LogPollInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid log poll interval %v: must be at least 1 second", c.LogPollInterval))
	}
	if c.LogPollLimit < 1 || c.LogPollLimit > 1000 {
		errors = append(errors, fmt.Sprintf("invalid log poll limit %d: must be between 1 and 1000", c.LogPollLimit))
	}

	if c.ProjectCatalogFile != "" {
		if _, err := os.Stat(c.ProjectCatalogFile); err != nil {
			errors = append(errors, fmt.Sprintf("project catalog file not readable: %s", c.ProjectCatalogFile))
		}
	}

	if _, err := c.SlogLevel(); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel)
	}
	return lvl, nil
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
