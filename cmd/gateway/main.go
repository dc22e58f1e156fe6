// Package main is the entry point for the analyzer gateway.
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

	"go.uber.org/zap"

	"github.com/chat-analyzer/gateway/internal/app"
	"github.com/chat-analyzer/gateway/internal/config"
	"github.com/chat-analyzer/gateway/internal/handler"
	"github.com/chat-analyzer/gateway/internal/llm"
	natsclient "github.com/chat-analyzer/gateway/internal/nats"
	"github.com/chat-analyzer/gateway/internal/store"
	"github.com/chat-analyzer/gateway/internal/transport"
	"github.com/chat-analyzer/gateway/pkg/logger"
	"github.com/chat-analyzer/gateway/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetGlobal(log)

	if err := run(cfg, log); err != nil {
		log.Error("gateway stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting gateway", zap.String("api_base_url", cfg.APIBaseURL))

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chat-analyzer-gateway", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer func() { _ = tracing.Shutdown(context.Background(), tp) }()
		}
	}

	routerCfg := handler.RouterConfig{
		Logger:            log,
		JWTSecret:         cfg.JWTSecret,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		AllowedOrigins:    cfg.AllowedOrigins(),
	}

	var notifier store.Notifier = store.NopNotifier{}
	if cfg.NATSURL != "" {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			return fmt.Errorf("ensure stream: %w", err)
		}
		notifier = natsclient.NewEventNotifier(natsClient.JetStream(), log)
		routerCfg.Bus = natsClient
		routerCfg.Events = streamManager
	} else {
		log.Info("event bus disabled")
	}

	var llmClient llm.Client
	if cfg.DigestEnabled() {
		c, err := llm.Select(llm.Provider(cfg.DefaultLLM), cfg.AnthropicAPIKey, cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn("failed to create LLM client, digest disabled", zap.Error(err))
		} else {
			llmClient = c
			log.Info("digest enabled", zap.String("provider", c.Name()))
		}
	}

	application := app.New(app.Options{
		Client:          transport.New(cfg.APIBaseURL, transport.WithLogger(log)),
		Notifier:        notifier,
		Logger:          log,
		LLM:             llmClient,
		DigestModel:     cfg.DigestModel,
		DigestMaxTokens: cfg.DigestMaxTokens,
	})
	application.Session.Bootstrap(ctx)
	log.Info("session bootstrapped", zap.String("auth_status", string(application.Session.Status())))

	routerCfg.App = application
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler.NewRouter(routerCfg),
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
