package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/moneynplay/engine/internal/allowance"
	"github.com/moneynplay/engine/internal/api"
	"github.com/moneynplay/engine/internal/config"
	"github.com/moneynplay/engine/internal/goal"
	"github.com/moneynplay/engine/internal/invest"
	"github.com/moneynplay/engine/internal/jobs"
	"github.com/moneynplay/engine/internal/ledger"
	"github.com/moneynplay/engine/internal/marketplace"
	"github.com/moneynplay/engine/internal/mission"
	"github.com/moneynplay/engine/internal/notify"
	"github.com/moneynplay/engine/internal/ownerlock"
	"github.com/moneynplay/engine/internal/progress"
	"github.com/moneynplay/engine/internal/store"
)

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.AppLogLevel),
	}))
	slog.SetDefault(logger)

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.StorageBackend == "postgres" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseDSN())
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL", "host", cfg.DBHost)

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, time.Duration(cfg.CacheTTLSeconds)*time.Second)
			slog.Info("Redis cache enabled", "addr", cfg.RedisAddr)
		}
	} else {
		slog.Warn("using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	locks := ownerlock.New(time.Duration(cfg.OwnerLockTimeoutMS) * time.Millisecond)

	// --- WebSocket hub ---
	hub := notify.NewHub()
	go hub.Run()

	// --- Services ---
	seed := cfg.PriceSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	money := ledger.NewMoneyService(st, locks)
	coins := ledger.NewCoinService(st, locks)
	goals := goal.NewService(st, locks, hub)
	investments := invest.NewService(st, locks, invest.NewRandomWalk(seed), cfg.MaxInvestedCents)
	progression := progress.NewService(st, locks, hub)
	missions := mission.NewService(st, locks, hub)
	market := marketplace.NewService(st, locks, hub)
	allowances := allowance.NewService(st, locks, hub)

	// --- Background jobs ---
	scheduler, err := jobs.New(cfg, allowances, investments, missions)
	if err != nil {
		slog.Error("scheduler setup failed", "err", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// --- HTTP server ---
	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: (&api.Server{
			Money:       money,
			Coins:       coins,
			Goals:       goals,
			Invest:      investments,
			Progress:    progression,
			Missions:    missions,
			Marketplace: market,
			Allowances:  allowances,
			Hub:         hub,
		}).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("engine listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownSeconds)*time.Second)
	defer cancel()

	slog.Info("shutting down engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("engine stopped")
}
