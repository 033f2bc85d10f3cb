package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"alert-integrator/internal/alerts"
	"alert-integrator/internal/auth"
	"alert-integrator/internal/ingest"
	"alert-integrator/internal/zabbix"
	"alert-integrator/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Ingestor is the part of the poller the API drives.
type Ingestor interface {
	Trigger(ctx context.Context) (ingest.CycleReport, error)
	Status() ingest.Status
}

// TriggerAuditor records who asked for a manual cycle.
type TriggerAuditor interface {
	LogManualTrigger(ctx context.Context, actorUserID, actorRole, ip, metadata string) error
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Alerts   *alerts.Service
	Ingest   Ingestor
	Audit    TriggerAuditor
	Sessions auth.SessionStore
}

// --- Ingestion ---

type triggerResponse struct {
	Started bool                    `json:"started"`
	Skipped bool                    `json:"skipped"`
	Outcome alerts.ReconcileOutcome `json:"outcome"`
	Fetched int                     `json:"fetched"`
	Error   string                  `json:"error,omitempty"`
}

// TriggerIngest runs one cycle now. A cycle already in flight is not an
// error: the caller gets skipped=true and nothing else runs.
func (h Handlers) TriggerIngest(c *gin.Context) {
	if h.Ingest == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "ingestion not configured"})
		return
	}

	report, err := h.Ingest.Trigger(c.Request.Context())
	if errors.Is(err, zabbix.ErrMissingCredential) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "ingestion disabled: upstream credential not configured"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("trigger failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "trigger failed"})
		return
	}

	if h.Audit != nil && !report.Skipped {
		uid, _ := auth.UserID(c.Request.Context())
		role, _ := auth.Role(c.Request.Context())
		meta, _ := json.Marshal(gin.H{"fetched": report.Fetched, "outcome": report.Outcome, "error": report.Error})
		if err := h.Audit.LogManualTrigger(c.Request.Context(), uid, role, c.ClientIP(), string(meta)); err != nil {
			logger.FromGin(c).Warn("audit manual trigger failed", "err", err)
		}
	}

	c.JSON(http.StatusOK, triggerResponse{
		Started: !report.Skipped,
		Skipped: report.Skipped,
		Outcome: report.Outcome,
		Fetched: report.Fetched,
		Error:   report.Error,
	})
}

func (h Handlers) IngestStatus(c *gin.Context) {
	if h.Ingest == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "ingestion not configured"})
		return
	}
	c.JSON(http.StatusOK, h.Ingest.Status())
}

// --- Events ---

type unmanagedItem struct {
	alerts.EventRecord
	// Source tags the backlog entry with the monitoring system name.
	Source string `json:"fuente"`
}

func (h Handlers) ListUnmanaged(c *gin.Context) {
	if h.Alerts == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "alerts not configured"})
		return
	}
	recs, err := h.Alerts.Unmanaged(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Error("list unmanaged failed", "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}

	out := make([]unmanagedItem, 0, len(recs))
	for _, r := range recs {
		out = append(out, unmanagedItem{EventRecord: r, Source: r.Origin})
	}
	c.JSON(http.StatusOK, out)
}

type manageRequest struct {
	Comment          string `json:"comment"`
	ResponsibleParty string `json:"responsible_party"`
	ImpactedClient   string `json:"impacted_client"`
	ImpactedSystem   string `json:"impacted_system"`
}

// Manage records the single disposition for an event.
func (h Handlers) Manage(c *gin.Context) {
	if h.Alerts == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "alerts not configured"})
		return
	}
	userID, err := auth.UserID(c.Request.Context())
	if err != nil || userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	eventID := strings.TrimSpace(c.Param("event_id"))
	if eventID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "event_id required"})
		return
	}

	var req manageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	rec, err := h.Alerts.Manage(c.Request.Context(), alerts.ManageRequest{
		EventID:          eventID,
		Comment:          req.Comment,
		ResponsibleParty: req.ResponsibleParty,
		ImpactedClient:   req.ImpactedClient,
		ImpactedSystem:   req.ImpactedSystem,
		ActingUserID:     userID,
	})
	if err != nil {
		switch {
		case errors.Is(err, alerts.ErrInvalidArgument):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, alerts.ErrEventNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "event not found"})
		case errors.Is(err, alerts.ErrDuplicateManagement):
			logger.FromGin(c).Info("event already managed", "event_id", eventID, "user_id", userID)
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "event already managed"})
		default:
			logger.FromGin(c).Error("manage failed", "event_id", eventID, "err", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		}
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// HourlyCounts returns 24-bucket counts per origin for ?date=YYYY-MM-DD.
func (h Handlers) HourlyCounts(c *gin.Context) {
	if h.Alerts == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "alerts not configured"})
		return
	}
	date := c.Query("date")
	series, err := h.Alerts.HourlyCounts(c.Request.Context(), date)
	if err != nil {
		if errors.Is(err, alerts.ErrInvalidDate) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		logger.FromGin(c).Error("hourly counts failed", "date", date, "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "series": series})
}

// --- Session ---

// Logout ends the caller's session; the token stops working immediately.
func (h Handlers) Logout(c *gin.Context) {
	if h.Sessions == nil {
		c.Status(http.StatusNoContent)
		return
	}
	sid := c.GetString(auth.SessionIDKey)
	if sid == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session required"})
		return
	}
	if err := h.Sessions.Close(c.Request.Context(), sid); err != nil {
		logger.FromGin(c).Error("logout failed", "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	c.Status(http.StatusNoContent)
}
