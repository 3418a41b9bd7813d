package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kaibo-Huang/Anchor/internal/api"
	"github.com/Kaibo-Huang/Anchor/internal/config"
	"github.com/Kaibo-Huang/Anchor/internal/db"
	"github.com/Kaibo-Huang/Anchor/internal/event"
	"github.com/Kaibo-Huang/Anchor/internal/logging"
	"github.com/Kaibo-Huang/Anchor/internal/media"
	"github.com/Kaibo-Huang/Anchor/internal/search"
	"github.com/Kaibo-Huang/Anchor/internal/timeline"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting anchor daemon", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := event.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                     ANCHOR DAEMON v0.1.0                  ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	var searchClient search.Client
	searchEnabled := cfg.SearchBaseURL() != "" && cfg.SearchAPIKey() != ""
	if searchEnabled {
		searchClient = search.NewHTTPClient(cfg.SearchBaseURL(), cfg.SearchAPIKey(), logger)
		logger.Info("semantic search enabled", "base_url", cfg.SearchBaseURL())
	} else {
		searchClient = search.NewStubClient(logger)
		logger.Info("semantic search not configured, scene detection disabled")
	}

	extractor := media.NewExtractor(cfg.FFmpegPath(), cfg.AlignTimeout(), logging.WithComponent(logger, "media"))
	prober := media.NewProber(cfg.FFprobePath(), cfg.ProbeTimeout(), logging.WithComponent(logger, "media"))
	aligner := timeline.NewAligner(extractor, logging.WithComponent(logger, "align"))
	synthesizer := timeline.NewSynthesizer(searchClient, logging.WithComponent(logger, "timeline"))

	eventSvc := event.NewService(repo, aligner, prober, synthesizer, logging.WithComponent(logger, "event"))
	eventSvc.SetDefaultMaxDuration(cfg.MaxReelDuration())

	apiServer := api.NewServer(api.ServerConfig{
		Port:          cfg.Port(),
		EventService:  eventSvc,
		Repository:    repo,
		SearchEnabled: searchEnabled,
		Logger:        logging.WithComponent(logger, "api"),
		StartTime:     startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureAuthToken(repo event.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
