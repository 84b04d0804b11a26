package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pricelens/backend/config"
	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/infrastructure/estimator"
	"github.com/pricelens/backend/internal/infrastructure/memory"
	"github.com/pricelens/backend/internal/infrastructure/postgres"
	"github.com/pricelens/backend/internal/infrastructure/redis"
	"github.com/pricelens/backend/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := config.SetupLogger(cfg.Log, cfg.Server.Environment)
	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Type).
		Msg("starting PriceLens backend")

	ctx := context.Background()

	// Variants and lists are kept in memory; the cascade and repricer read the same store
	local := memory.NewStore()

	ledgerStore, history, closeStorage, err := openStorage(ctx, cfg.Storage, local, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}
	defer closeStorage()

	sizeMatch := usecase.SizeMatchConfig{
		Tolerance:      cfg.Comparison.SizeTolerance,
		ExactTolerance: cfg.Comparison.ExactTolerance,
	}

	ledger := usecase.NewPriceLedger(ledgerStore, history, usecase.LedgerConfig{
		MaxRetries: cfg.Ledger.MaxRetries,
		Policy:     usecase.NewDecayPolicy(cfg.Ledger.DecayDays),
	}, logger)

	services := httpDelivery.Services{
		Ledger: ledger,
		Cascade: usecase.NewResolutionCascade(ledger, local, history, usecase.CascadeConfig{
			PersonalConfidence:     cfg.Cascade.PersonalConfidence,
			CrowdsourcedConfidence: cfg.Cascade.CrowdsourcedConfidence,
			SizeMatch:              sizeMatch,
		}, logger),
		Matcher: usecase.NewFuzzyMatcher(usecase.FuzzyMatcherConfig{
			MinSimilarity:      usecase.Threshold(cfg.Matching.MinSimilarity),
			MaxResults:         cfg.Matching.MaxResults,
			DuplicateThreshold: cfg.Matching.DuplicateThreshold,
		}),
		Comparator: usecase.NewStoreComparator(ledger, sizeMatch, logger),
		Repricer:   usecase.NewStoreSwitchRepricer(ledger, local, sizeMatch, logger),
		Variants:   usecase.NewVariantCatalog(local, logger),
		Lists:      local,
	}

	if cfg.Estimator.BaseURL != "" {
		estimateCache := cache.NewMemoryCache()
		defer estimateCache.Close()

		client := estimator.NewClient(estimator.Config{
			BaseURL:           cfg.Estimator.BaseURL,
			APIKey:            cfg.Estimator.APIKey,
			RequestsPerSecond: cfg.Estimator.RequestsPerSecond,
			Timeout:           cfg.Estimator.Timeout,
		}, logger)
		services.Estimator = usecase.NewPriceEstimator(client, estimateCache, local, usecase.PriceEstimatorConfig{
			CacheTTL: cfg.Estimator.CacheTTL,
		}, logger)
		logger.Info().Str("base_url", cfg.Estimator.BaseURL).Dur("cache_ttl", cfg.Estimator.CacheTTL).Msg("price estimator enabled")
	} else {
		logger.Warn().Msg("price estimator not configured, estimate endpoint disabled")
	}

	handler := httpDelivery.NewHandler(services, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
	logger.Info().Msg("bye")
}

// openStorage returns the ledger store and purchase history for the configured
// backend, plus a function releasing its connections
func openStorage(
	ctx context.Context,
	cfg config.StorageConfig,
	local *memory.Store,
	logger zerolog.Logger,
) (domain.LedgerStore, domain.PurchaseHistoryRepository, func(), error) {
	switch cfg.Type {
	case config.StorageRedis:
		client, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info().Str("addr", client.Options().Addr).Msg("connected to redis")
		store := redis.NewLedgerStore(client)
		return store, store, func() { _ = client.Close() }, nil

	case config.StoragePostgres:
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		store := postgres.NewLedgerStore(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, nil, nil, err
		}
		logger.Info().Msg("connected to postgres")
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return store, store, closeDB, nil
	}

	return local, local, func() {}, nil
}
