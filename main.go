package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giygas/rxpad/catalogparser"
	"github.com/giygas/rxpad/config"
	"github.com/giygas/rxpad/data"
	"github.com/giygas/rxpad/handlers"
	"github.com/giygas/rxpad/health"
	"github.com/giygas/rxpad/logging"
	"github.com/giygas/rxpad/scheduler"
	"github.com/giygas/rxpad/server"
	"github.com/giygas/rxpad/suggest"
	"github.com/giygas/rxpad/validation"
	"github.com/joho/godotenv"
)

func init() {
	// Get the working directory and read the env variables
	if err := godotenv.Load(); err != nil {
		// If failed, try loading from executable directory
		ex, err := os.Executable()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Failed to get executable path:", err)
			os.Exit(1)
		}

		if err := os.Chdir(filepath.Dir(ex)); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to change directory:", err)
			os.Exit(1)
		}
		_ = godotenv.Load()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logging.InitLoggerWithOptions(logging.Options{
		Dir:            cfg.LogDir,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
		ConsoleLevel:   logging.GetConsoleLogLevel(cfg.Env, cfg.LogLevel, false),
	})

	code := 0
	if len(os.Args) > 1 {
		code = runCommand(cfg, os.Args[1:])
	} else if err := serve(cfg); err != nil {
		logging.Error("Server error", "error", err)
		code = 1
	}

	if err := logging.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to close log file:", err)
	}
	os.Exit(code)
}

// newHistoryStore keeps history in HISTORY_FILE, or in memory when unset
func newHistoryStore(cfg *config.Config) (suggest.HistoryStore, error) {
	if cfg.HistoryFile == "" {
		return suggest.NewMemoryHistoryStore(), nil
	}
	store, err := suggest.NewFileHistoryStore(cfg.HistoryFile)
	if err != nil {
		return nil, err
	}
	logging.Info("Recent searches stored on disk", "path", store.Path())
	return store, nil
}

func serve(cfg *config.Config) error {
	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(time.Now())

	validator := validation.NewDataValidator()
	parser := catalogparser.NewCatalogParser(cfg.CatalogDir, cfg.CatalogURL)

	sched := scheduler.NewScheduler(dataContainer, parser, validator)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	store, err := newHistoryStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}

	handler := handlers.NewHTTPHandler(
		dataContainer,
		validator,
		health.NewHealthChecker(dataContainer),
		suggest.NewHistory(store),
		cfg.SuggestionLimit,
	)
	srv := server.NewServer(cfg, handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logging.Info("Received signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}
