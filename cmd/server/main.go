package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"terminal-messenger/api"
	"terminal-messenger/contract"
	"terminal-messenger/domain/theme"
	"terminal-messenger/internal"
	"terminal-messenger/moderation"
	"terminal-messenger/observability"
	"terminal-messenger/render"
	"terminal-messenger/repositories"
	"terminal-messenger/runtime/workers"
	"terminal-messenger/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/gops/agent"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and owns their lifecycle, so deferred cleanups
// (closing the store last) run before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	if config.GopsEnabled {
		// Signals stay with run(): the agent must not exit the process itself.
		if err := agent.Listen(agent.Options{ShutdownCleanup: false}); err != nil {
			logger.Warn("Could not start gops agent", "error", err)
		} else {
			defer agent.Close()
		}
	}

	charReplacement, _ := internal.CharacterRune(config.CharReplacement)
	location, _ := config.Location()
	catalog, err := theme.NewCatalog(config.DefaultTheme)
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	moderator, err := moderation.NewModerator(config.CensoredWordList(), charReplacement, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("moderation dictionary: %w", err)
	}

	// 2. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Store
	supervisor := workers.NewSupervisor(logger, config.RestartInterval)
	repository, closeStore, err := openRepository(ctx, config, logger, supervisor)
	if err != nil {
		return exitRuntime, err
	}
	defer closeStore()

	// 4. Service & background work
	service := services.NewMessageService(
		logger, repository, catalog, metrics, config.MessageTTL, config.MaxContentLength,
		services.WithModerator(moderator),
	)
	monitor := workers.NewProcessMonitorWorker(logger, metrics, config.MetricInterval)
	supervisor.Add(monitor)
	if config.MessageTTL > 0 {
		supervisor.Add(workers.NewSweepWorker(logger, service, config.SweepInterval))
	}
	workersCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	supervisorDone := make(chan struct{})
	go func() {
		supervisor.Run(workersCtx)
		close(supervisorDone)
	}()

	// 5. HTTP server
	server := api.NewServer(logger, service, render.NewRenderer(catalog, location), metrics, api.Options{
		PublicURL: config.PublicURL,
		CLIAgents: config.CLIAgentList(),
		Gatherer:  registry,
		Process:   monitor,
	})

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Terminal Messenger ready", "backend", config.StoreBackend, "ttl", config.MessageTTL)
		if err := server.Start(config.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 7. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	stopWorkers()
	<-supervisorDone
	logger.Info("Program stopped cleanly")

	return code, runErr
}

// openRepository returns the configured store and the function releasing it.
// The badger backend also registers its value log GC worker.
func openRepository(
	ctx context.Context,
	config internal.Config,
	logger *slog.Logger,
	supervisor contract.ISupervisor,
) (repositories.IMessageRepository, func(), error) {
	switch config.StoreBackend {
	case internal.BackendMemory:
		logger.Warn("Using the in-memory store, messages are lost on restart")
		return repositories.NewMemoryMessageRepository(), func() {}, nil

	case internal.BackendBadger:
		db, err := badger.Open(buildBadgerOpts(ctx, config, logger))
		if err != nil {
			return nil, nil, fmt.Errorf("database opening failed: %w", err)
		}
		if logger.Enabled(ctx, slog.LevelDebug) {
			endpoint := "/inspect"
			url := fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint)
			logger.Info("Debug Badger inspector available", "url", url)
			database.StartDebugServer(db, config.DebugPort, endpoint, repositories.InspectMapper)
		}
		supervisor.Add(workers.NewBadgerGCWorker(logger, db, config.BadgerGCInterval))
		closeDB := func() {
			logger.Info("Closing BadgerDB...")
			_ = db.Close()
		}
		return repositories.NewBadgerMessageRepository(db, logger, config.MessageTTL), closeDB, nil

	default:
		repository, err := repositories.NewFileMessageRepository(config.MessagesFile, logger)
		if err != nil {
			return nil, nil, err
		}
		return repository, func() {}, nil
	}
}

func buildBadgerOpts(ctx context.Context, config internal.Config, logger *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}
