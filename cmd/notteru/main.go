package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notteru/internal/bot"
	"notteru/internal/config"
	"notteru/internal/datastore"
	"notteru/internal/detector"
	"notteru/internal/extractor"
	"notteru/internal/fetcher"
	"notteru/internal/httpapi"
	"notteru/internal/logger"
	"notteru/internal/notifier"
	"notteru/internal/orchestrator"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "notteru: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	appLogger, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := datastore.NewSQLiteWatchStore(cfg.Store.Path, appLogger)
	if err != nil {
		return fmt.Errorf("failed to open watch store: %w", err)
	}
	defer store.Close()

	httpClient := &http.Client{Timeout: time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second}

	pageFetcher := fetcher.NewPageFetcher(httpClient, appLogger, int64(cfg.Fetch.MaxBodySizeMB)*1024*1024)
	htmlExtractor := extractor.NewHTMLExtractor(appLogger)
	changeDetector := detector.NewChangeDetector(pageFetcher, htmlExtractor, appLogger)
	telegramNotifier := notifier.NewTelegramNotifier(&cfg.Telegram, appLogger, httpClient)

	scanOrchestrator := orchestrator.NewScanOrchestrator(store, changeDetector, telegramNotifier, appLogger)
	commandHandler := bot.NewCommandHandler(&cfg.Telegram, store, telegramNotifier, appLogger)
	apiServer := httpapi.NewServer(commandHandler, scanOrchestrator, appLogger)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           apiServer.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().Str("addr", cfg.Server.ListenAddr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
		appLogger.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	appLogger.Info().Msg("Server stopped")
	return nil
}
