// Package cli holds the startup steps shared by cmd/seguimiento and
// cmd/activity-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"seguimiento/internal/config"
	"seguimiento/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// makes it the slog default. An unparseable level falls back to info;
// Validate reports it.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	level, _ := cfg.SlogLevel()
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Output:    os.Stdout,
		Component: component,
	})
	log.SetDefault(logger)
	return logger
}

// Init loads the environment and configuration, sets up logging and exits
// the process when the configuration is invalid.
func Init(component string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg, logger
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Fatal logs msg with err and exits.
func Fatal(logger *log.Logger, msg string, err error, args ...any) {
	logger.Error(msg, append([]any{log.FieldError, err.Error()}, args...)...)
	os.Exit(1)
}
