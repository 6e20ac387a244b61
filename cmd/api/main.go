package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"eeytech.com/console/internal/auth"
	"eeytech.com/console/internal/config"
	"eeytech.com/console/internal/httpapi"
	"eeytech.com/console/internal/migrate"
	"eeytech.com/console/internal/obs"
	"eeytech.com/console/internal/store/cache"
	"eeytech.com/console/internal/store/pg"
	"eeytech.com/console/internal/stream"
	"eeytech.com/console/internal/tickets"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.LogFormat, os.Stdout)
	obs.SetLogger(logger)
	obs.Init()
	obs.InitBuildInfo("eeytech-console", version, commit)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("console stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("console stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var (
		store       auth.Store
		ticketStore tickets.Store
		db          *sql.DB
	)
	if cfg.PGDSN != "" {
		pgStore, err := pg.Open(cfg.PGDSN)
		if err != nil {
			return err
		}
		defer pgStore.Close()
		if err := pgStore.Ping(ctx); err != nil {
			logger.Warn("postgres ping", slog.Any("error", err))
		}
		store, ticketStore, db = pgStore, pgStore, pgStore.DB()
	} else {
		logger.Warn("PG_DSN not set, using in-memory storage")
		store, ticketStore = auth.NewMemoryStore(), tickets.NewInMemory()
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, api key cache disabled", slog.Any("error", err))
		} else {
			redisClient = client
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
		}
	}

	hasher := auth.BcryptHasher{}
	if cfg.BootstrapPassword != "" {
		res, err := migrate.Bootstrap(ctx, store, hasher, migrate.BootstrapInput{
			AdminAppSlug: cfg.AdminAppSlug,
			Email:        cfg.SuperAdminEmail,
			Password:     cfg.BootstrapPassword,
		})
		if err != nil {
			return err
		}
		logger.Info("super admin ensured",
			slog.String("user_id", res.User.ID),
			slog.String("application", res.Application.Slug),
			slog.Bool("created_user", res.CreatedUser),
		)
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	})
	if err != nil {
		return err
	}
	sessions, err := auth.NewSessionManager(store, tokens,
		auth.WithAdminApplication(cfg.AdminAppSlug),
		auth.WithPasswordHasher(hasher),
		auth.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	gate := auth.NewGate(cfg.SuperAdminEmail)
	admin, err := auth.NewAdminService(store, gate, hasher, cfg.AdminAppSlug)
	if err != nil {
		return err
	}

	hub := stream.New()
	ticketSvc, err := tickets.NewService(ticketStore, tickets.WithPublisher(hub))
	if err != nil {
		return err
	}

	ready := httpapi.ReadyProbe{DB: db}
	api, err := httpapi.New(httpapi.Deps{
		Sessions:       sessions,
		Admin:          admin,
		Gate:           gate,
		Tickets:        ticketSvc,
		APIKeys:        cache.NewAPIKeys(store, redisClient, cfg.APIKeyCacheTTL),
		Stream:         hub,
		Ready:          ready,
		Logger:         logger,
		Version:        version,
		CookieDomain:   cfg.CookieDomain,
		Production:     cfg.IsProduction(),
		RequestTimeout: cfg.RequestTimeout,
		RateBurst:      cfg.RateBurst,
		RatePerSec:     cfg.RatePerSec,
		APIKeyRPM:      cfg.APIKeyRPM,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	grpcSrv := grpc.NewServer()
	health := httpapi.NewGRPCServer(ready, logger)
	health.Register(grpcSrv)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", slog.String("addr", srv.Addr), slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		logger.Info("grpc listening", slog.String("addr", cfg.GRPCAddr))
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		health.Watch(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		grpcSrv.GracefulStop()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
