// Package main - точка входа для HTTP API XP Engine.
//
// API обслуживает чтение лидерборда, рангов и стриков, приём off-chain
// активности, привязку кошельков и административный запуск сверки.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/superteam-academy/xp-engine/config"
	"github.com/superteam-academy/xp-engine/internal/application/command"
	"github.com/superteam-academy/xp-engine/internal/application/query"
	"github.com/superteam-academy/xp-engine/internal/infrastructure/external/solana"
	"github.com/superteam-academy/xp-engine/internal/infrastructure/persistence/postgres"
	"github.com/superteam-academy/xp-engine/internal/infrastructure/persistence/redis"
	httpapi "github.com/superteam-academy/xp-engine/internal/interface/http"
	"github.com/superteam-academy/xp-engine/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slogger := setupSlog(cfg)
	httpLog := logger.New(os.Stdout, logger.ParseLevel(cfg.Observability.LogLevel))

	slogger.Info("starting XP Engine API",
		"env", cfg.App.Environment,
		"address", fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	if cfg.Database.AutoMigrate {
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache  *redis.Cache
		resultCache query.ResultCache
		invalidator command.LeaderboardInvalidator
	)

	if !cfg.Redis.Disabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			slogger.Warn("failed to connect to Redis, caching disabled", "error", err)
		} else {
			defer redisCache.Close()
			lbCache := redis.NewLeaderboardCache(redisCache, cfg.Redis.LeaderboardTTL)
			resultCache = lbCache
			invalidator = lbCache
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. РЕПОЗИТОРИИ, КЛИЕНТ SOLANA И ОБРАБОТЧИКИ
	// ─────────────────────────────────────────────────────────────────────────
	recordRepo := postgres.NewXPRecordRepository(dbConn)
	streakRepo := postgres.NewStreakRepository(dbConn)
	syncRunRepo := postgres.NewSyncRunRepository(dbConn)

	solanaCfg := solana.DefaultClientConfig(cfg.Solana.RPCURL, cfg.Solana.XPMint)
	solanaCfg.Commitment = cfg.Solana.Commitment
	solanaCfg.Timeout = cfg.Solana.RequestTimeout
	solanaCfg.Logger = slogger
	solanaClient := solana.NewClient(solanaCfg)

	fetcherCfg := solana.DefaultBatchFetcherConfig()
	fetcherCfg.BatchSize = cfg.Solana.BatchSize
	fetcherCfg.BatchDelay = cfg.Solana.BatchDelay
	fetcherCfg.ReadTimeout = cfg.Solana.ReadTimeout
	fetcherCfg.Logger = slogger
	gateway := solana.NewGateway(solanaClient, fetcherCfg)

	deps := httpapi.Dependencies{
		GetLeaderboardHandler: query.NewGetLeaderboardHandler(recordRepo, resultCache, slogger),
		GetUserRankHandler:    query.NewGetUserRankHandler(recordRepo),
		GetStreakHandler:      query.NewGetStreakHandler(streakRepo),
		GetXPStatsHandler:     query.NewGetXPStatsHandler(recordRepo),
		RecordActivityHandler: command.NewRecordActivityHandler(recordRepo),
		BindWalletHandler:     command.NewBindWalletHandler(recordRepo),
		UpdateStreakHandler:   command.NewUpdateStreakHandler(streakRepo, recordRepo),
		Reconciler:            command.NewReconcileHandler(recordRepo, gateway, syncRunRepo, invalidator, slogger),
		Logger:                httpLog,
		HealthChecker:         &healthChecker{db: dbConn, cache: redisCache},
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. HTTP СЕРВЕР И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverCfg.AdminTokenHash = cfg.HTTP.AdminTokenHash

	server := httpapi.NewServer(serverCfg, deps)
	errCh := server.StartAsync()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slogger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slogger.Info("shutdown completed successfully")
	return nil
}

// healthChecker проверяет доступность базы и кеша.
type healthChecker struct {
	db    *postgres.Connection
	cache *redis.Cache
}

func (h *healthChecker) Check(ctx context.Context) httpapi.HealthStatus {
	if err := h.db.Ping(ctx); err != nil {
		return httpapi.HealthStatus{Healthy: false, Ready: false, Message: "database unreachable"}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			// Кеш не обязателен: деградация, но сервис жив.
			return httpapi.HealthStatus{Healthy: true, Ready: true, Message: "cache unreachable"}
		}
	}
	return httpapi.HealthStatus{Healthy: true, Ready: true}
}

func setupSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
