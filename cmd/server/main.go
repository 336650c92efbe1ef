// Command server runs the content pipeline HTTP API.
//
// @title          SMM Pipeline API
// @version        1.0
// @description    Content items, editorial feedback and the agent learning loop.
// @BasePath       /api
//
//go:generate swag init -g cmd/server/main.go -d ../../ -o ../../docs
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/smm-pipeline/docs"
	"github.com/tbourn/smm-pipeline/internal/config"
	httpapi "github.com/tbourn/smm-pipeline/internal/http"
	"github.com/tbourn/smm-pipeline/internal/observability"
	"github.com/tbourn/smm-pipeline/internal/repo"
	"github.com/tbourn/smm-pipeline/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownGrace = 15 * time.Second

func main() {
	var (
		envFile     = pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
		migrateOnly = pflag.Bool("migrate-only", false, "apply the schema and exit")
		showVersion = pflag.Bool("version", false, "print the version and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}
	if err := run(*envFile, *migrateOnly); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(envFile string, migrateOnly bool) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.Setup(ctx, cfg.OTEL, observability.Info{
		Version:     version,
		Environment: os.Getenv("APP_ENV"),
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	db, err := repo.Open(repo.Options{
		Driver:  cfg.DB.Driver,
		Path:    cfg.DB.Path,
		DSN:     cfg.DB.DSN,
		Tracing: cfg.OTEL.Enabled,
		Silent:  cfg.LogLevel != "debug",
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info().Str("driver", cfg.DB.Driver).Msg("schema ready")
	if migrateOnly {
		return nil
	}

	deps := httpapi.Deps{DB: db, Version: version}
	if cfg.RateLimit.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RateLimit.RedisAddr).Msg("redis unreachable; rate limiter fails open until it recovers")
		}
		deps.Redis = rdb
	}

	gin.SetMode(cfg.GinMode)
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.BasePath = cfg.APIBasePath

	r := gin.New()
	httpapi.RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
