package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"alert-integrator/internal/httpapi"
	"alert-integrator/internal/rbac"
	"alert-integrator/pkg/logger"
	"alert-integrator/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type readiness struct {
	db  *sql.DB
	rdb *redis.Client
}

func (rd readiness) check(ctx context.Context) error {
	if err := utils.HealthCheck(ctx, rd.db, 2*time.Second); err != nil {
		return err
	}
	return utils.RedisHealthCheck(ctx, rd.rdb, 2*time.Second)
}

// registerPublicRoutes wires unauthenticated probes.
func registerPublicRoutes(r *gin.Engine, rd readiness) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if err := rd.check(c.Request.Context()); err != nil {
			logger.FromGin(c).Warn("not ready", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// registerProtectedRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerProtectedRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers) {
	v1 := r.Group("/v1")
	v1.Use(authMW)

	v1.POST("/auth/logout", h.Logout)

	ingestion := v1.Group("/ingest")
	{
		ingestion.GET("/status", h.IngestStatus)
		ingestion.POST("/trigger", rbac.RequireAnyRole(rbac.Writers...), h.TriggerIngest)
	}

	events := v1.Group("/events")
	{
		events.GET("/unmanaged", h.ListUnmanaged)
		events.GET("/hourly", h.HourlyCounts)
		events.PUT("/:event_id/management", rbac.RequireAnyRole(rbac.Writers...), h.Manage)
	}
}
