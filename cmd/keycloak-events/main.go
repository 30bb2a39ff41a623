package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq"

	"github.com/latitudexlabs/keycloak-events/pkg/api"
	"github.com/latitudexlabs/keycloak-events/pkg/auth"
	"github.com/latitudexlabs/keycloak-events/pkg/billing"
	"github.com/latitudexlabs/keycloak-events/pkg/config"
	"github.com/latitudexlabs/keycloak-events/pkg/forward"
	"github.com/latitudexlabs/keycloak-events/pkg/identity"
	"github.com/latitudexlabs/keycloak-events/pkg/middleware"
	"github.com/latitudexlabs/keycloak-events/pkg/observability"
	"github.com/latitudexlabs/keycloak-events/pkg/orgs"
	"github.com/latitudexlabs/keycloak-events/pkg/razorpay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)
	logger.Info("starting organization billing service")

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Error("failed to open database")
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	if err := db.Ping(); err != nil {
		logger.WithError(err).Error("database is unreachable")
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.WithError(err).Warn("redis is unreachable, call limiting disabled")
			redisClient = nil
		}
	}

	verifier, err := auth.NewOIDCVerifier(context.Background(), cfg.OIDC.IssuerURL)
	if err != nil {
		logger.WithError(err).Error("failed to initialize token verifier")
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	store := identity.NewPostgresStore(db)
	attrs := orgs.NewAttributeService(store)
	provisioner := orgs.NewProvisioner(store, attrs, logger, metrics)
	dispatcher := orgs.NewDispatcher(provisioner)

	gatewayCfg := razorpay.DefaultConfig(cfg.Gateway.KeyID, cfg.Gateway.KeySecret)
	gatewayCfg.BaseURL = cfg.Gateway.BaseURL
	gatewayCfg.Timeout = cfg.Gateway.Timeout
	gateway := razorpay.NewClient(gatewayCfg, metrics.ObserveGatewayCall)

	billingSvc := billing.NewService(store, attrs, gateway, logger, metrics)
	reconciler := billing.NewReconciler(attrs, gateway, cfg.Gateway.KeySecret, logger, metrics)

	var forwarder *forward.Forwarder
	if cfg.Forward.BaseURL != "" {
		forwardLog := logrus.New()
		forwardLog.SetFormatter(&logrus.JSONFormatter{})
		forwarder = forward.NewForwarder(cfg.Forward.BaseURL, cfg.Forward.Timeout, forwardLog)
	}

	var callLimiter *middleware.CallLimiter
	if redisClient != nil {
		callLimiter = middleware.NewCallLimiter(redisClient, middleware.DefaultCallLimitConfig(), logger)
	}

	server := api.NewServer(api.ServerOptions{
		Store:       store,
		Attrs:       attrs,
		Billing:     billingSvc,
		Reconciler:  reconciler,
		Forwarder:   forwarder,
		Dispatcher:  dispatcher,
		AuthMW:      middleware.NewAuthMiddleware(verifier),
		OrgResolver: middleware.NewOrgResolver(store),
		CallLimiter: callLimiter,
		Logger:      logger,
		Metrics:     metrics,
		OrgsEnabled: cfg.Features.OrgProvisioningEnabled,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	health := observability.NewHealthChecker(db, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	healthMux.Handle("/metrics", metrics.Handler())
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	var scheduler *cron.Cron
	if cfg.Features.SweepSchedule != "" {
		scheduler = cron.New()
		sweep := billing.NewSweep(store, attrs, gateway, logger)
		if _, err := sweep.Schedule(scheduler, cfg.Features.SweepSchedule); err != nil {
			logger.WithError(err).Error("invalid sweep schedule")
			os.Exit(1)
		}
		scheduler.Start()
		logger.Infof("subscription sweep scheduled: %s", cfg.Features.SweepSchedule)
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	if scheduler != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			stopCtx := scheduler.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
			return nil
		})
	}
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				return err
			}
		}
		return db.Close()
	})

	var g errgroup.Group
	g.Go(func() error {
		logger.Infof("API server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return shutdown.WaitForShutdown()
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("service exited with error")
		os.Exit(1)
	}
	logger.Info("service stopped")
}
