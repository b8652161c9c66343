package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwygoda/fetchd/internal/adapter/aria2"
	httpAdapter "github.com/cwygoda/fetchd/internal/adapter/http"
	"github.com/cwygoda/fetchd/internal/adapter/notify"
	"github.com/cwygoda/fetchd/internal/adapter/probe"
	"github.com/cwygoda/fetchd/internal/adapter/sqlite"
	"github.com/cwygoda/fetchd/internal/config"
	"github.com/cwygoda/fetchd/internal/domain"
	"github.com/cwygoda/fetchd/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	log.Printf("starting fetchd on port %d", cfg.Port)
	log.Printf("daemon RPC: %s", cfg.RPCURL)
	log.Printf("history: %s", cfg.HistoryPath)
	log.Printf("poll interval: %s, per-user limit: %d", cfg.UpdateInterval, cfg.MaxConcurrent)

	// Initialize history store
	history, err := sqlite.New(cfg.HistoryPath)
	if err != nil {
		log.Fatalf("failed to initialize history database: %v", err)
	}
	defer history.Close()

	// Initialize notifier
	var notifier domain.Notifier
	if cfg.NotifyURL != "" {
		notifier = notify.NewWebhook(cfg.NotifyURL)
	} else {
		log.Println("no notify-url configured, logging notifications")
		notifier = notify.NewLogger()
	}

	// Initialize orchestrator
	registry := domain.NewRegistry(cfg.MaxConcurrent)
	client := aria2.New(cfg.RPCURL, cfg.RPCSecret)
	svc := domain.NewService(registry, client, notifier, probe.New(), history)
	trk := tracker.New(registry, client, notifier, history, cfg.UpdateInterval)
	svc.SetTracker(trk)

	// Initialize HTTP server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := httpAdapter.NewServer(svc, addr, cfg.APISecret)

	// Graceful shutdown setup
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	log.Printf("received signal %v, shutting down", sig)

	// Stop admitting submissions, then drain tracking loops
	svc.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := trk.Shutdown(shutdownCtx); err != nil {
		log.Printf("tracker drain error: %v", err)
	}

	log.Println("shutdown complete")
}
