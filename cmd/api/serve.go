package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kryta-backend/internal/ai"
	"kryta-backend/internal/analytics"
	"kryta-backend/internal/db"
	"kryta-backend/internal/server"
	"kryta-backend/internal/settings"
	"kryta-backend/internal/verify"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, database, logger, err := bootstrap(opts)
	if logger != nil {
		defer func() { _ = logger.Sync() }()
	}
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(database, logger); err != nil {
		return err
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		// local mode only; tokens do not survive a restart
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate jwt secret: %w", err)
		}
		logger.Warn("auth.jwt_secret not set, using an ephemeral secret")
	}

	store := settings.NewStore(database)
	llm := ai.New(ai.Config{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		APIKey:   cfg.LLMAPIKey,
		BaseURL:  cfg.LLMBaseURL,
	}, store.LLMAPIKey)
	logger.Info("llm configured", zap.String("provider", llm.Provider()), zap.Bool("config_key", cfg.LLMAPIKey != ""))

	sink, err := analytics.NewPostHogSink(cfg.PostHogKey, cfg.PostHogEndpoint)
	if err != nil {
		return fmt.Errorf("init posthog: %w", err)
	}
	recorder := analytics.NewRecorder(database, sink, logger)
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Warn("posthog flush failed", zap.Error(err))
		}
	}()

	machine := verify.NewMachine(
		verify.NewAdapter(ai.NewVerifier(llm), cfg.JudgmentTimeout, logger),
		verify.NewDispatcher(ai.NewMotivator(llm), cfg.RewardTimeout, logger),
	)

	handler := server.NewHandler(server.Deps{
		Config:    cfg,
		DB:        database,
		Logger:    logger,
		Secret:    secret,
		Verify:    verify.NewService(database, machine, recorder, logger),
		Planner:   ai.NewPlanner(llm),
		Reflector: ai.NewReflector(llm),
		Recorder:  recorder,
		Settings:  store,
	})

	logger.Info("starting api",
		zap.String("addr", cfg.HTTPAddr),
		zap.Bool("local_mode", cfg.LocalMode),
		zap.Strings("allowed_origins", cfg.AllowedOrigins),
	)
	return server.Run(ctx, server.New(cfg, handler), logger)
}
