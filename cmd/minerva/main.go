package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/minervabot/minerva/internal/auth"
	"github.com/minervabot/minerva/internal/brain"
	"github.com/minervabot/minerva/internal/config"
	"github.com/minervabot/minerva/internal/dialogue"
	"github.com/minervabot/minerva/internal/httpapi"
	"github.com/minervabot/minerva/internal/observability"
	"github.com/minervabot/minerva/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()

	var sessionStore auth.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping failed: %v", err)
		}
		defer rdb.Close()
		sessionStore = auth.NewRedisStore(rdb, cfg.SessionTTL*2)
		log.Printf("session store: redis (%s)", cfg.RedisAddr)
	} else {
		sessionStore = auth.NewMemoryStore()
		log.Printf("session store: in-memory")
	}

	var contexts dialogue.ContextStore
	if cfg.DatabaseURL != "" {
		pgStore, err := dialogue.NewPostgresContextStore(ctx, cfg.DatabaseURL, cfg.ContextWindow)
		if err != nil {
			log.Fatalf("context store init failed: %v", err)
		}
		defer pgStore.Close()
		contexts = pgStore
		log.Printf("context store: postgres")
	} else {
		contexts = dialogue.NewMemoryContextStore(cfg.ContextWindow)
		log.Printf("context store: in-memory")
	}

	adapter, err := brain.NewAdapter(brain.Config{
		Mode:      cfg.BrainMode,
		HTTPURL:   cfg.BrainHTTPURL,
		APIKey:    cfg.AnthropicAPIKey,
		Model:     cfg.AnthropicModel,
		MaxTokens: cfg.AnthropicMaxTok,
	})
	if err != nil {
		log.Fatalf("brain adapter init failed: %v", err)
	}

	policy := brain.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.RetryMaxAttempts
	policy.BackoffBase = cfg.RetryBackoffBase
	policy.BackoffCap = cfg.RetryBackoffCap

	breaker := brain.NewBreaker(cfg.BreakerThreshold, cfg.BreakerWindow, cfg.BreakerCooldown)
	brainClient := brain.NewClient(adapter, policy, breaker, cfg.SubQuestionTimeout, metrics)

	identity := auth.NewHTTPIdentityClient(cfg.IdentityBaseURL)
	gate := auth.NewGate(sessionStore, identity, cfg.SessionTTL)

	orchestrator := dialogue.NewOrchestrator(gate, contexts, brainClient, metrics, cfg.FanoutConcurrency, cfg.FanoutCeiling)

	api := httpapi.New(cfg, gate, orchestrator, contexts, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	if cfg.TelegramToken != "" {
		poller := telegram.NewPoller(telegram.NewClient(cfg.TelegramToken), orchestrator, cfg.TelegramPollInterval)
		go func() {
			log.Printf("telegram poller started")
			if err := poller.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("telegram poller stopped: %v", err)
			}
		}()
	} else {
		log.Printf("telegram poller disabled (no bot token)")
	}

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
