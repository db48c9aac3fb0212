// Package main - точка входа для фонового процесса (Worker) XP Engine.
//
// Worker отвечает за периодическую сверку XP:
// - Чтение балансов XP-токена для всех привязанных кошельков
// - Монотонное слияние on-chain баланса с накопленным итогом
// - Сброс кеша лидерборда после изменений
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
	"github.com/superteam-academy/xp-engine/internal/infrastructure/external/solana"
	"github.com/superteam-academy/xp-engine/internal/infrastructure/persistence/postgres"
	"github.com/superteam-academy/xp-engine/internal/infrastructure/persistence/redis"
	"github.com/superteam-academy/xp-engine/internal/infrastructure/scheduler"
	"github.com/superteam-academy/xp-engine/internal/infrastructure/scheduler/jobs"
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
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting XP Engine worker",
		"env", cfg.App.Environment,
		"debug", cfg.App.Debug,
		"sync_interval", cfg.Scheduler.SyncInterval.String(),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.AutoMigrate {
		log.Info("checking database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var invalidator command.LeaderboardInvalidator

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, cache invalidation disabled", "error", err)
		} else {
			defer redisCache.Close()
			invalidator = redis.NewLeaderboardCache(redisCache, cfg.Redis.LeaderboardTTL)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ И КЛИЕНТА SOLANA
	// ─────────────────────────────────────────────────────────────────────────
	recordRepo := postgres.NewXPRecordRepository(dbConn)
	syncRunRepo := postgres.NewSyncRunRepository(dbConn)

	solanaCfg := solana.DefaultClientConfig(cfg.Solana.RPCURL, cfg.Solana.XPMint)
	solanaCfg.Commitment = cfg.Solana.Commitment
	solanaCfg.Timeout = cfg.Solana.RequestTimeout
	solanaCfg.RateLimiterConfig.RequestsPerSecond = float64(cfg.Solana.RateLimit)
	solanaCfg.RateLimiterConfig.BurstSize = cfg.Solana.RateLimitBurst
	solanaCfg.CircuitBreakerConfig.FailureThreshold = cfg.Solana.CircuitBreakerThreshold
	solanaCfg.CircuitBreakerConfig.Timeout = cfg.Solana.CircuitBreakerTimeout
	solanaCfg.Logger = log
	solanaCfg.Debug = cfg.App.Debug
	solanaClient := solana.NewClient(solanaCfg)

	fetcherCfg := solana.DefaultBatchFetcherConfig()
	fetcherCfg.BatchSize = cfg.Solana.BatchSize
	fetcherCfg.BatchDelay = cfg.Solana.BatchDelay
	fetcherCfg.ReadTimeout = cfg.Solana.ReadTimeout
	fetcherCfg.Logger = log
	gateway := solana.NewGateway(solanaClient, fetcherCfg)

	reconciler := command.NewReconcileHandler(recordRepo, gateway, syncRunRepo, invalidator, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ЗАПУСК ПЛАНИРОВЩИКА
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(log)

	if cfg.Scheduler.Enabled {
		syncJob := jobs.NewSyncXPJob(reconciler, cfg.Scheduler.JobTimeout)
		if err := sched.Register(syncJob, scheduler.NewIntervalSchedule(cfg.Scheduler.SyncInterval)); err != nil {
			return fmt.Errorf("failed to register sync job: %w", err)
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()
	} else {
		log.Warn("scheduler disabled, no periodic reconciliation will run")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("XP Engine worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	return nil
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
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
