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

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"prstocks-api/internal/cache"
	"prstocks-api/internal/config"
	"prstocks-api/internal/handler"
	"prstocks-api/internal/middleware"
	"prstocks-api/internal/repository"
	"prstocks-api/internal/router"
	"prstocks-api/internal/service"
	"prstocks-api/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "prstocks-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := pflag.String("env-file", "", "load environment variables from this file before reading config")
	pflag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			return fmt.Errorf("failed to load %s: %w", *envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.App.LogLevel, cfg.App.Environment)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting",
		logger.String("app", cfg.App.Name),
		logger.String("version", cfg.App.Version),
		logger.String("env", cfg.App.Environment))

	ctx := context.Background()

	stores, err := repository.OpenStores(ctx, cfg, log.Named("[store]"))
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Warn("failed to close stores", logger.ErrorF(err))
		}
	}()

	sessions, err := openCache(ctx, cfg.Cache, log)
	if err != nil {
		return err
	}
	defer sessions.Close()

	// Services
	inventoryService := service.NewInventoryService(stores.Inventory, log)
	userService := service.NewUserService(stores.Users, log)
	preferenceService := service.NewPreferenceService(stores.Preferences, log)
	adminService := service.NewAdminService(cfg.Admin.PasswordHash, cfg.Admin.TokenTTL, sessions, log)
	databaseService := service.NewDatabaseService(stores, log)

	// Handlers
	httpLog := log.Named("[http]")
	routes := router.Config{
		Handler:           handler.New(cfg.App.Name, cfg.App.Version, stores.All(), sessions),
		InventoryHandler:  handler.NewInventoryHandler(inventoryService, httpLog),
		UserHandler:       handler.NewUserHandler(userService, httpLog),
		PreferenceHandler: handler.NewPreferenceHandler(preferenceService, httpLog),
		AdminHandler:      handler.NewAdminHandler(adminService, databaseService, httpLog),
		Logger:            httpLog,
	}
	if cfg.Admin.RequireToken {
		routes.AdminGuard = middleware.RequireAdminToken(adminService, httpLog)
		log.Info("admin routes require a token")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router.New(routes),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening",
			logger.String("addr", srv.Addr),
			logger.Bool("tls", cfg.Server.TLSEnabled()))

		var err error
		if cfg.Server.TLSEnabled() {
			err = srv.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		log.Info("shutting down", logger.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", logger.ErrorF(err))
	}

	log.Info("server stopped")
	return nil
}

// openCache picks the admin session cache from config.
func openCache(ctx context.Context, cfg config.CacheConfig, log *zap.Logger) (cache.Cache, error) {
	if cfg.Type == "redis" {
		c, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:      cfg.RedisAddress(),
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: "prstocks",
		})
		if err != nil {
			return nil, err
		}
		log.Info("admin sessions stored in redis", logger.String("addr", cfg.RedisAddress()))
		return c, nil
	}

	log.Info("admin sessions stored in memory")
	return cache.NewMemoryCache(time.Minute), nil
}
