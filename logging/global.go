package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/giygas/rxpad/config"
)

// LoggingService owns the process logger and the rotating file behind it
type LoggingService struct {
	Logger  *slog.Logger
	rotator *RotatingLogger
}

var DefaultLoggingService *LoggingService

// InitLogger initializes the global logger instance with default levels
func InitLogger(logDir string) {
	InitLoggerWithOptions(Options{Dir: logDir, RetentionWeeks: 4, ConsoleLevel: slog.LevelInfo})
}

// InitLoggerWithOptions initializes the global logger and makes it the slog default
func InitLoggerWithOptions(opts Options) {
	logger, rotator := setupLogger(opts)
	DefaultLoggingService = &LoggingService{
		Logger:  logger,
		rotator: rotator,
	}
	slog.SetDefault(logger)
}

// Close flushes and closes the log file, if any
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.rotator == nil {
		return nil
	}
	return DefaultLoggingService.rotator.Close()
}

// parseLogLevel maps a LOG_LEVEL value to a slog level, info when unknown
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// GetConsoleLogLevel picks the console level for an environment.
// An explicit LOG_LEVEL wins, except under tests where only verbose runs log below error.
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

// GetFileLogLevel returns the file level: the file always keeps debug records
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

// Package-level functions for direct access

func fallbackLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func current() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return nil
	}
	return DefaultLoggingService.Logger
}

func Info(msg string, args ...any) {
	if l := current(); l != nil {
		l.Info(msg, args...)
		return
	}
	fallbackLogger(slog.LevelInfo).Info(msg, args...)
}

func Error(msg string, args ...any) {
	if l := current(); l != nil {
		l.Error(msg, args...)
		return
	}
	fallbackLogger(slog.LevelError).Error(msg, args...)
}

func Warn(msg string, args ...any) {
	if l := current(); l != nil {
		l.Warn(msg, args...)
		return
	}
	fallbackLogger(slog.LevelWarn).Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	if l := current(); l != nil {
		l.Debug(msg, args...)
		return
	}
	fallbackLogger(slog.LevelDebug).Debug(msg, args...)
}
