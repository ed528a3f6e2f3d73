package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/ronten/internal/api"
	"github.com/dgallion1/ronten/internal/config"
	"github.com/dgallion1/ronten/internal/judge"
	"github.com/dgallion1/ronten/internal/ledger"
	"github.com/dgallion1/ronten/internal/library"
	"github.com/dgallion1/ronten/internal/metrics"
	"github.com/dgallion1/ronten/internal/session"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := metrics.NewRecorder(true)

	// Study-time ledger.
	led, err := ledger.Open(ctx, ledger.Driver(cfg.LedgerDriver), cfg.LedgerTarget())
	if err != nil {
		log.Error("open ledger", "driver", cfg.LedgerDriver, "error", err)
		os.Exit(1)
	}

	// Content.
	sources, remote := library.SourcesFromConfig(cfg, log, rec)
	lib := library.New(sources, log, rec)
	if _, err := lib.Reload(ctx); err != nil {
		log.Error("initial content load", "error", err)
	}

	// Sessions.
	method, _ := judge.ParseMethod(cfg.ScoreMethod)
	j := judge.New(method)
	sessions := session.NewManager(lib, session.Options{
		TTL:        cfg.SessionTTL,
		IdleCutoff: cfg.IdleCutoff,
		Judge:      j,
		Ledger:     led,
		Logger:     log,
		Metrics:    rec,
	})
	go sessions.Run(ctx, time.Minute)

	deps := api.Deps{
		Content:  lib,
		Sessions: sessions,
		Judge:    j,
		Ledger:   led,
		Metrics:  rec,
	}
	if remote != nil {
		deps.Remote = remote
	}
	srv := api.NewServer(deps, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if remote != nil {
			remote.Close()
		}
		led.Close()
	}()

	log.Info("starting ronten", "port", cfg.Port, "sources", cfg.ContentSources, "method", method)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
