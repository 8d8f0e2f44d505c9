package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tao_dividends_api/internal/adapter/cache"
	"tao_dividends_api/internal/adapter/substrate"
	"tao_dividends_api/internal/port"
	"tao_dividends_api/internal/usecase"
	httpPkg "tao_dividends_api/pkg/http"
	"tao_dividends_api/pkg/config"
	"tao_dividends_api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := log.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "error syncing logger: %v\n", err)
		}
	}()
	zap.ReplaceGlobals(log)

	backend, closeBackend, err := newCacheBackend(cfg)
	if err != nil {
		zap.L().Fatal("init cache backend", zap.Error(err))
	}
	defer closeBackend()

	store, err := cache.NewStore(backend, cfg.Cache.TTL)
	if err != nil {
		zap.L().Fatal("init cache store", zap.Error(err))
	}

	resolver := substrate.NewEndpointResolver(cfg.Bittensor.Endpoints)
	dialer := substrate.RPCDialer{DialTimeout: cfg.Chain.DialTimeout}
	query := substrate.NewDividendQuery(substrate.BittensorSS58Prefix)
	connCfg := substrate.ConnectionConfig{
		Network:     cfg.Bittensor.Network,
		MaxAttempts: cfg.Chain.MaxRetries,
		BaseDelay:   cfg.Chain.Backoff,
	}

	newService := func() *usecase.DividendService {
		conn := substrate.NewChainConnection(connCfg, resolver, dialer)
		return usecase.NewDividendService(conn, query, store, cfg.Cache.KeyPrefix)
	}

	srv := &stdhttp.Server{
		Addr:              cfg.Server.Address,
		Handler:           httpPkg.NewRouter(cfg, newService),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("starting server",
			zap.String("address", cfg.Server.Address),
			zap.String("network", cfg.Bittensor.Network),
			zap.String("cache", cfg.Cache.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zap.L().Error("server exited with error", zap.Error(err))
	}
	zap.L().Info("server stopped")
}

func newCacheBackend(cfg *config.Config) (port.CacheBackend, func(), error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendMemory:
		m, err := cache.NewMemoryBackend(cfg.Cache.MaxEntries)
		if err != nil {
			return nil, nil, err
		}
		return m, func() {}, nil
	default:
		r := cache.NewRedisBackend(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Timeout:  cfg.Redis.Timeout,
		})
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.Timeout)
		defer cancel()
		if err := r.Ping(ctx); err != nil {
			zap.L().Warn("redis not reachable at startup, lookups will bypass the cache until it is", zap.Error(err))
		}
		closeFn := func() {
			if err := r.Close(); err != nil {
				zap.L().Warn("closing redis", zap.Error(err))
			}
		}
		return r, closeFn, nil
	}
}
