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

	"github.com/lutefd/tabletop-api/internal/cache"
	"github.com/lutefd/tabletop-api/internal/cards"
	"github.com/lutefd/tabletop-api/internal/config"
	"github.com/lutefd/tabletop-api/internal/events"
	httpserver "github.com/lutefd/tabletop-api/internal/http"
	"github.com/lutefd/tabletop-api/internal/logging"
	"github.com/lutefd/tabletop-api/internal/metrics"
	"github.com/lutefd/tabletop-api/internal/projections"
	"github.com/lutefd/tabletop-api/internal/storage/memory"
	"github.com/lutefd/tabletop-api/internal/storage/postgres"
	"github.com/lutefd/tabletop-api/internal/storage/sqlite"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "api",
		Short:         "Serve session history, leaderboards and deck archetypes over HTTP",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return run(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "tabletop.toml", "path to the TOML config file")
	return cmd
}

type closer func()

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var cleanup []closer
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	cleanup = append(cleanup, closeStore)

	leaderboardCache, closeCache := openCache(ctx, cfg, logger)
	cleanup = append(cleanup, closeCache)

	bus := events.NewBus()
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("tabletop-api"))
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		cleanup = append(cleanup, func() { _ = nc.Drain() })
		events.NewNATSForwarder(nc, cfg.NATSPrefix, logger).
			Attach(bus, events.SessionRecorded, events.DeckSaved, events.DeckTagged)
		logger.Info("forwarding events to nats", zap.String("prefix", cfg.NATSPrefix))
	}

	resolver, closeCards, err := openResolver(cfg, logger)
	if err != nil {
		return err
	}
	cleanup = append(cleanup, closeCards)

	svc := projections.NewService(store, resolver, projections.Options{
		GameID:   cfg.GameID,
		CacheTTL: cfg.CacheTTL,
		Cache:    leaderboardCache,
		Bus:      bus,
		Logger:   logger,
	})

	srv := httpserver.NewServer(httpserver.Dependencies{
		Service:       svc,
		Metrics:       metrics.NewCollector(time.Now().UTC()),
		Logger:        logger,
		APIToken:      cfg.APIToken,
		DefaultUserID: cfg.DefaultUserID,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("addr", httpServer.Addr), zap.String("store", cfg.StoreDriver))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	case <-stop:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (projections.Store, closer, error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory store; history is lost on restart")
		return memory.NewStore(), func() {}, nil
	}
	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.EnsureGame(ctx, cfg.GameID, cfg.GameName); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("ensure game: %w", err)
	}
	return store, store.Close, nil
}

// openCache falls back to process memory when Redis is not configured or
// unreachable at startup.
func openCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (projections.Cache, closer) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, caching in memory", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return cache.NewMemory(), func() {}
	}
	return cache.NewRedis(client, "tabletop"), func() { _ = client.Close() }
}

func openResolver(cfg config.Config, logger *zap.Logger) (*cards.Resolver, closer, error) {
	client := cards.NewClient(cfg.CardsBaseURL, cfg.CardsTimeout)
	if cfg.CardsCache == "" {
		return cards.NewResolver(client, nil, cfg.CardsParallel, logger), func() {}, nil
	}
	cardCache, err := sqlite.OpenCardCache(cfg.CardsCache)
	if err != nil {
		return nil, nil, fmt.Errorf("open card cache: %w", err)
	}
	return cards.NewResolver(client, cardCache, cfg.CardsParallel, logger), func() { _ = cardCache.Close() }, nil
}
