package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"alert-integrator/internal/alerts"
	"alert-integrator/internal/audit"
	"alert-integrator/internal/auth"
	"alert-integrator/internal/config"
	"alert-integrator/internal/httpapi"
	"alert-integrator/internal/ingest"
	"alert-integrator/internal/zabbix"
	"alert-integrator/pkg/logger"
	"alert-integrator/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := alerts.EnsureSchema(rootCtx, db); err != nil {
		log.Error("schema init failed", "err", err)
		os.Exit(1)
	}
	if err := audit.EnsureSchema(rootCtx, db); err != nil {
		log.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	loc, err := time.LoadLocation(cfg.Ingest.TimeZone)
	if err != nil {
		// Validate already checked this; only a broken tz database lands here.
		log.Error("ingest time zone failed", "tz", cfg.Ingest.TimeZone, "err", err)
		os.Exit(1)
	}

	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	alertSvc := alerts.NewService(
		alerts.NewPostgresRepo(db),
		alerts.WithAudit(auditSvc),
		alerts.WithOrigins(cfg.Zabbix.Origin),
	)

	client := zabbix.NewClient(cfg.Zabbix.URL, cfg.Zabbix.Token, zabbix.WithTimeout(cfg.Zabbix.Timeout))
	poller := ingest.NewPoller(client, ingest.NewNormalizer(loc, cfg.Zabbix.Origin), alertSvc, ingest.Options{
		Interval:     cfg.Ingest.Interval,
		StoreTimeout: cfg.Ingest.StoreTimeout,
		Logger:       log,
	})
	// Without a credential Start logs once and the API still serves the backlog.
	if err := poller.Start(rootCtx); err != nil && !errors.Is(err, zabbix.ErrMissingCredential) {
		log.Error("ingest start failed", "err", err)
		os.Exit(1)
	}

	sessions := auth.NewRedisSessions(rdb, cfg.Auth.SessionIdleTimeout)
	h := httpapi.Handlers{
		Alerts:   alertSvc,
		Ingest:   poller,
		Audit:    auditSvc,
		Sessions: sessions,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerPublicRoutes(r, readiness{db: db, rdb: rdb})
	registerProtectedRoutes(r, auth.RequireAccessToken(authManager, sessions), h)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// A manual trigger runs a full cycle: upstream timeout plus store timeout.
		WriteTimeout: cfg.Zabbix.Timeout + cfg.Ingest.StoreTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "ingestion", poller.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	poller.Stop()
}
