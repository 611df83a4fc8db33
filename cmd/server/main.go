package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"model-manager/internal/config"
	"model-manager/internal/domain/conversation"
	"model-manager/internal/domain/credential"
	"model-manager/internal/domain/preference"
	"model-manager/internal/domain/usage"
	"model-manager/internal/health"
	"model-manager/internal/infrastructure/database"
	"model-manager/internal/infrastructure/database/repository/conversationrepo"
	"model-manager/internal/infrastructure/database/repository/credentialrepo"
	"model-manager/internal/infrastructure/database/repository/preferencerepo"
	"model-manager/internal/infrastructure/database/repository/usagerepo"
	"model-manager/internal/infrastructure/logger"
	"model-manager/internal/infrastructure/metrics"
	"model-manager/internal/infrastructure/observability"
	"model-manager/internal/infrastructure/providers"
	"model-manager/internal/interfaces/httpserver"
	"model-manager/internal/interfaces/httpserver/handlers/conversationhandler"
	"model-manager/internal/interfaces/httpserver/handlers/credentialhandler"
	"model-manager/internal/interfaces/httpserver/handlers/generationhandler"
	"model-manager/internal/interfaces/httpserver/handlers/healthhandler"
	"model-manager/internal/interfaces/httpserver/handlers/modelhandler"
	"model-manager/internal/interfaces/httpserver/handlers/preferencehandler"
	"model-manager/internal/interfaces/httpserver/handlers/usagehandler"
	"model-manager/internal/orchestrator"
	"model-manager/internal/utils/retry"

	_ "model-manager/internal/infrastructure/database/dbschema"
)

func main() {
	if err := run(); err != nil {
		log := logger.GetLogger()
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("setup observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOtel(shutdownCtx)
	}()

	db, err := database.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if cfg.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}

	credentials := credential.NewStore(credentialrepo.NewCredentialGormRepository(db), cfg.CredentialSecret)
	storedKey := func(family string) string {
		key, err := credentials.Get(ctx, family)
		if err != nil {
			log.Warn().Err(err).Str("provider", family).Msg("credential lookup failed")
			return ""
		}
		return key
	}

	registry, err := providers.BuildRegistry(cfg.ProviderConfigsWithFallback(storedKey))
	if err != nil {
		return fmt.Errorf("build provider registry: %w", err)
	}
	log.Info().Strs("providers", registry.Names()).Msg("providers registered")

	ledger := usage.NewService(
		usagerepo.NewUsageGormRepository(db),
		metrics.LedgerWriteFailuresTotal.Inc,
	)
	conversations := conversation.NewService(conversationrepo.NewConversationGormRepository(db))
	preferences := preference.NewService(preferencerepo.NewPreferenceGormRepository(db))

	orch := orchestrator.New(registry, ledger, preferences, orchestrator.Options{
		RetryPolicy: retry.Policy{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
		},
		RequestTimeout: cfg.RequestTimeout,
		TrackCost:      cfg.EnableCostTracking,
	})
	aggregator := health.NewAggregator(registry, 10*time.Second)

	server := httpserver.NewHTTPServer(cfg, log, httpserver.Handlers{
		Models:        modelhandler.NewModelHandler(orch),
		Generation:    generationhandler.NewGenerationHandler(orch),
		Usage:         usagehandler.NewUsageHandler(ledger),
		Conversations: conversationhandler.NewConversationHandler(conversations),
		Preferences:   preferencehandler.NewPreferenceHandler(preferences),
		Credentials:   credentialhandler.NewCredentialHandler(credentials),
		Health:        healthhandler.NewHealthHandler(aggregator),
	})

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var eg errgroup.Group
	eg.Go(func() error {
		log.Info().Int("port", cfg.HTTPPort).Msg("http server listening")
		return server.Run()
	})
	eg.Go(func() error {
		log.Info().Int("port", cfg.MetricsPort).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
		return server.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
