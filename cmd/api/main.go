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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ledgerline/backend/api/routes"
	"github.com/ledgerline/backend/internal/auth"
	"github.com/ledgerline/backend/internal/customers"
	"github.com/ledgerline/backend/internal/invoices"
	"github.com/ledgerline/backend/internal/notifications"
	"github.com/ledgerline/backend/internal/settings"
	"github.com/ledgerline/backend/internal/users"
	stripewebhook "github.com/ledgerline/backend/internal/webhooks/stripe"
	"github.com/ledgerline/backend/pkg/config"
	"github.com/ledgerline/backend/pkg/db"
	"github.com/ledgerline/backend/pkg/logger"
	"github.com/ledgerline/backend/pkg/metrics"
	"github.com/ledgerline/backend/pkg/migrate"
	"github.com/ledgerline/backend/pkg/pdf"
	"github.com/ledgerline/backend/pkg/redis"
	"github.com/ledgerline/backend/pkg/stripegateway"
)

const shutdownGrace = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logg := logger.New(logger.Options{
		ServiceName: "ledgerline-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.Features.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer func() { _ = dbClient.Close() }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("connecting redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	wm := metrics.NewWorkflowMetrics(prometheus.DefaultRegisterer)

	userRepo := users.NewRepository(dbClient.DB())
	customerRepo := customers.NewRepository(dbClient.DB())
	invoiceRepo := invoices.NewRepository(dbClient.DB())
	settingsRepo := settings.NewRepository(dbClient.DB())

	settingsSvc, err := settings.NewService(settings.ServiceParams{
		Repo:   settingsRepo,
		Runner: dbClient,
		Config: cfg,
		Logger: logg,
	})
	if err != nil {
		return err
	}

	resolver, err := settings.NewResolver(settingsRepo, cfg)
	if err != nil {
		return err
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		Users:    userRepo,
		Settings: settingsSvc,
		Runner:   dbClient,
		Config:   cfg,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	customerSvc, err := customers.NewService(customers.ServiceParams{
		Repo:   customerRepo,
		Logger: logg,
	})
	if err != nil {
		return err
	}

	dispatcher, err := notifications.NewSMTPDispatcher(cfg.SMTP, logg)
	if err != nil {
		return fmt.Errorf("building notification dispatcher: %w", err)
	}

	invoiceSvc, err := invoices.NewService(invoices.ServiceParams{
		Repo:       invoiceRepo,
		Customers:  customerRepo,
		Gateway:    stripegateway.New(),
		Resolver:   resolver,
		Dispatcher: dispatcher,
		Renderer:   pdf.NewRenderer(),
		Runner:     dbClient,
		Metrics:    wm,
		Logger:     logg,
	})
	if err != nil {
		return err
	}

	guard, err := stripewebhook.NewRedisGuard(redisClient, stripewebhook.DefaultEventTTL)
	if err != nil {
		return err
	}
	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Ledger: invoiceRepo,
		Guard:  guard,
		Logger: logg,
	})
	if err != nil {
		return err
	}

	router := routes.New(routes.Dependencies{
		Config:        cfg,
		Logger:        logg,
		Auth:          authSvc,
		Customers:     customerSvc,
		Invoices:      invoiceSvc,
		Settings:      settingsSvc,
		StripeWebhook: webhookSvc,
		Metrics:       wm,
		DB:            dbClient,
		Redis:         redisClient,
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "http server listening on "+server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
