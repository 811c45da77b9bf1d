package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lucaferri/parla/internal/archive"
	"github.com/lucaferri/parla/internal/config"
	"github.com/lucaferri/parla/internal/httpapi"
	"github.com/lucaferri/parla/internal/observability"
	"github.com/lucaferri/parla/internal/session"
	"github.com/lucaferri/parla/internal/tools"
	"github.com/lucaferri/parla/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	archiveStore, err := archive.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("archive store init failed: %v", err)
	}
	defer archiveStore.Close()
	if cfg.DatabaseURL != "" {
		log.Printf("archive: postgres")
	} else {
		log.Printf("archive: disabled")
	}

	var registryTools []tools.Tool
	registryTools = append(registryTools, tools.NewWeatherTool())
	if cfg.TavilyAPIKey != "" {
		registryTools = append(registryTools, tools.NewWebSearchTool(cfg.TavilyAPIKey))
	}
	registry := tools.NewRegistry(registryTools...)

	factory := voice.NewProviderFactory(cfg)
	switch {
	case cfg.VoiceProvider == "mock":
		log.Printf("voice provider: mock")
	case cfg.VoiceProvider == "live":
		log.Printf("voice provider: live (assemblyai + gemini + elevenlabs)")
	default:
		log.Printf("voice provider: auto (live when all vendor keys are present)")
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
	})

	orchestrator := voice.NewOrchestrator(
		sessions,
		archiveStore,
		factory,
		registry,
		metrics,
		cfg.ElevenLabsTTSVoice,
		cfg.ToolRoundLimit,
	)

	api := httpapi.New(cfg, sessions, orchestrator, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
