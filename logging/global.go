// Package logging wires log/slog for the drug database browser: a console
// handler, an optional rotating JSON file and package-level helpers.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/giygas/drugdb/config"
)

type LoggingService struct {
	Logger   *slog.Logger
	rotating *RotatingLogger
}

var DefaultLoggingService *LoggingService

// InitLogger initializes the global logger instance with defaults.
// An empty logDir logs to the console only.
func InitLogger(logDir string) {
	initService(logDir, slog.LevelInfo, slog.LevelInfo, 4, defaultMaxFileSize)
}

// InitLoggerWithConfig initializes the global logger from the loaded configuration
func InitLoggerWithConfig(cfg *config.Config, verbose bool) {
	consoleLevel := GetConsoleLogLevel(cfg.Env, cfg.LogLevel, verbose)
	fileLevel := parseLogLevel(cfg.LogLevel)
	initService(cfg.LogDir, consoleLevel, fileLevel, cfg.LogRetentionWeeks, cfg.MaxLogFileSize)
}

// InitConsoleLogger logs text records at level to w only. Command line
// tools use it to keep stdout for their output.
func InitConsoleLogger(w io.Writer, level string) {
	_ = Close()
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLogLevel(level)}))
	DefaultLoggingService = &LoggingService{Logger: logger}
	slog.SetDefault(logger)
}

func initService(logDir string, consoleLevel, fileLevel slog.Level, retentionWeeks int, maxFileSize int64) {
	if DefaultLoggingService != nil && DefaultLoggingService.rotating != nil {
		_ = DefaultLoggingService.rotating.Close()
	}

	logger, rotating := setupLogger(logDir, consoleLevel, fileLevel, retentionWeeks, maxFileSize)
	DefaultLoggingService = &LoggingService{
		Logger:   logger,
		rotating: rotating,
	}
	slog.SetDefault(logger)
}

// Close flushes and closes the log file, if any
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.rotating == nil {
		return nil
	}
	err := DefaultLoggingService.rotating.Close()
	DefaultLoggingService.rotating = nil
	return err
}

// parseLogLevel maps a LOG_LEVEL value to a slog level, defaulting to info
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConsoleLogLevel resolves the console level for an environment.
// Tests stay quiet unless verbose; an explicit level wins elsewhere.
func GetConsoleLogLevel(env config.Environment, logLevel string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if logLevel != "" {
		return parseLogLevel(logLevel)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Logger returns the configured logger or a console fallback
func Logger() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return DefaultLoggingService.Logger
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// InfoContext logs with the request context so handlers can pick up request ids
func InfoContext(ctx context.Context, msg string, args ...any) {
	Logger().InfoContext(ctx, msg, args...)
}
