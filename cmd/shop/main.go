package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/handmade_shop/internal/config"
	"github.com/Skotchmaster/handmade_shop/internal/crypt"
	"github.com/Skotchmaster/handmade_shop/internal/db"
	"github.com/Skotchmaster/handmade_shop/internal/httpserver"
	"github.com/Skotchmaster/handmade_shop/internal/logging"
	authmw "github.com/Skotchmaster/handmade_shop/internal/middleware/auth"
	"github.com/Skotchmaster/handmade_shop/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/handmade_shop/internal/middleware/logging"
	"github.com/Skotchmaster/handmade_shop/internal/mykafka"
	"github.com/Skotchmaster/handmade_shop/internal/notify"
	"github.com/Skotchmaster/handmade_shop/internal/repo"
	"github.com/Skotchmaster/handmade_shop/internal/search"
	"github.com/Skotchmaster/handmade_shop/internal/service"
	"github.com/Skotchmaster/handmade_shop/internal/tokens"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("env_file_not_loaded", "error", err)
	}

	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET")
	config.MustOneOf(cfg.DBDriver, "DB_DRIVER", db.DriverPostgres, db.DriverSQLite)
	if err := config.CheckCORSOrigins(cfg.CORSOrigins); err != nil {
		slog.Error("invalid_config", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server_exit", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := logging.IntoContext(context.Background(), log)

	if err := crypt.Register(cfg.FieldEncryptionKey); err != nil {
		return fmt.Errorf("field encryption: %w", err)
	}
	if cfg.FieldEncryptionKey == "" {
		log.Warn("field_encryption_disabled")
	}

	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		return err
	}
	if n, err := db.NormalizeLegacyStatuses(ctx, gdb); err != nil {
		return err
	} else if n > 0 {
		log.Info("legacy_statuses_normalized", "rows", n)
	}
	r := &repo.GormRepo{DB: gdb}

	var events service.EventPublisher = mykafka.Nop{Logger: log}
	if len(cfg.KafkaBrokers) > 0 {
		prod := mykafka.NewProducer(cfg.KafkaBrokers)
		defer func() {
			if err := prod.Close(); err != nil {
				log.Warn("kafka_close_error", "error", err)
			}
		}()
		events = prod
	} else {
		log.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}
	mailer := &notify.KafkaSender{Publisher: events}

	catalog := &service.CatalogService{Repo: r, Events: events}
	if cfg.ESURL != "" {
		es, err := search.NewClient(ctx, cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			// search falls back to the database
			log.Warn("search_disabled", "error", err)
		} else {
			catalog.Index = &search.Index{ES: es, Name: cfg.ESIndex}
		}
	}

	issuer := &tokens.Issuer{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}
	accounts := &service.AccountService{Repo: r, Issuer: issuer, Notifier: mailer, Events: events, ClientURL: cfg.ClientURL}
	orders := &service.OrderService{Repo: r, Events: events, Notifier: mailer, Catalog: catalog}

	deps := &httpserver.Deps{
		Auth:          &httpserver.AuthHTTP{Svc: accounts, CookieSecure: cfg.CookieSecure},
		Catalog:       &httpserver.CatalogHTTP{Svc: catalog},
		Cart:          &httpserver.CartHTTP{Svc: &service.CartService{Repo: r, Orders: orders}},
		Favorites:     &httpserver.FavoriteHTTP{Svc: &service.FavoriteService{Repo: r}},
		Orders:        &httpserver.OrderHTTP{Svc: orders},
		Imports:       &httpserver.ImportHTTP{Svc: &service.ImportService{Repo: r, Events: events, Catalog: catalog}},
		Reports:       &httpserver.ReportHTTP{Svc: &service.ReportService{Repo: r}},
		Users:         &httpserver.UserHTTP{Svc: &service.UserService{Repo: r}},
		Settings:      &httpserver.SettingsHTTP{Svc: &service.SettingsService{Repo: r}},
		AuthMW:        authmw.NewAutoRefreshMiddleware(cfg.JWTAccessSecret, accounts, cfg.CookieSecure),
		Ready:         r.Ping,
		AuthRateLimit: cfg.AuthRateLimit,
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(log))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
			echo.HeaderAuthorization, "X-CSRF-Token", "Idempotency-Key",
		},
	}))
	if cfg.CSRFEnabled {
		csrfCfg := csrf.DefaultConfig()
		csrfCfg.Secure = cfg.CookieSecure
		csrfCfg.SkipPrefixes = []string{"/health"}
		e.Use(csrf.Middleware(csrfCfg))
	}
	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http_listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case sig := <-quit:
		log.Info("shutting_down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server_shutdown_error", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Warn("db_close_error", "error", err)
		}
	}
	log.Info("shutdown_complete")
	return nil
}
