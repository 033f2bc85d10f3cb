package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"alert-integrator/internal/alerts"
	"alert-integrator/internal/auth"
	"alert-integrator/internal/ingest"
	"alert-integrator/internal/zabbix"

	"github.com/gin-gonic/gin"
)

type fakeIngestor struct {
	report ingest.CycleReport
	err    error
	calls  int
}

func (f *fakeIngestor) Trigger(ctx context.Context) (ingest.CycleReport, error) {
	f.calls++
	return f.report, f.err
}

func (f *fakeIngestor) Status() ingest.Status {
	return ingest.Status{Enabled: f.err == nil, Interval: 20 * time.Second}
}

type fakeTriggerAudit struct {
	actors []string
}

func (f *fakeTriggerAudit) LogManualTrigger(ctx context.Context, actorUserID, actorRole, ip, metadata string) error {
	f.actors = append(f.actors, actorUserID+"/"+actorRole)
	return nil
}

func newEngine(h Handlers, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			ctx := auth.WithIdentity(c.Request.Context(), userID, "operator")
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	})
	r.POST("/v1/ingest/trigger", h.TriggerIngest)
	r.GET("/v1/ingest/status", h.IngestStatus)
	r.GET("/v1/events/unmanaged", h.ListUnmanaged)
	r.PUT("/v1/events/:event_id/management", h.Manage)
	r.GET("/v1/events/hourly", h.HourlyCounts)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	r.ServeHTTP(w, req)
	return w
}

func seeded(t *testing.T) (*alerts.Service, *alerts.MemoryRepo) {
	t.Helper()
	repo := alerts.NewMemoryRepo()
	svc := alerts.NewService(repo, alerts.WithOrigins("Zabbix"))
	_, err := svc.Reconcile(context.Background(), []alerts.EventRecord{
		{EventID: "100", Name: "disk full", Severity: 4, Clock: 1753538400, Origin: "Zabbix", ObservedAt: "2025-07-26 09:00:00"},
		{EventID: "101", Name: "cpu high", Severity: 2, Clock: 1753542000, Origin: "Zabbix", ObservedAt: "2025-07-26 10:00:00"},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return svc, repo
}

func TestTriggerIngest(t *testing.T) {
	t.Run("started", func(t *testing.T) {
		ing := &fakeIngestor{report: ingest.CycleReport{Fetched: 3, Outcome: alerts.ReconcileOutcome{Inserted: 3}}}
		aud := &fakeTriggerAudit{}
		w := serve(newEngine(Handlers{Ingest: ing, Audit: aud}, "u-1"), http.MethodPost, "/v1/ingest/trigger", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp triggerResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !resp.Started || resp.Skipped || resp.Outcome.Inserted != 3 {
			t.Fatalf("unexpected response: %+v", resp)
		}
		if len(aud.actors) != 1 || aud.actors[0] != "u-1/operator" {
			t.Fatalf("expected one audit entry, got %v", aud.actors)
		}
	})

	t.Run("already running", func(t *testing.T) {
		ing := &fakeIngestor{report: ingest.CycleReport{Skipped: true}}
		aud := &fakeTriggerAudit{}
		w := serve(newEngine(Handlers{Ingest: ing, Audit: aud}, "u-1"), http.MethodPost, "/v1/ingest/trigger", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"skipped":true`) {
			t.Fatalf("expected skipped ack, got %s", w.Body.String())
		}
		if len(aud.actors) != 0 {
			t.Fatalf("skipped trigger must not be audited")
		}
	})

	t.Run("failed cycle is still acknowledged", func(t *testing.T) {
		ing := &fakeIngestor{report: ingest.CycleReport{Error: "upstream 502"}}
		w := serve(newEngine(Handlers{Ingest: ing}, "u-1"), http.MethodPost, "/v1/ingest/trigger", "")
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "upstream 502") {
			t.Fatalf("expected 200 with error text, got %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("disabled", func(t *testing.T) {
		ing := &fakeIngestor{err: zabbix.ErrMissingCredential}
		w := serve(newEngine(Handlers{Ingest: ing}, "u-1"), http.MethodPost, "/v1/ingest/trigger", "")
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", w.Code)
		}
	})
}

func TestIngestStatus(t *testing.T) {
	w := serve(newEngine(Handlers{Ingest: &fakeIngestor{}}, "u-1"), http.MethodGet, "/v1/ingest/status", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"enabled":true`) {
		t.Fatalf("unexpected status response: %d %s", w.Code, w.Body.String())
	}
}

func TestListUnmanaged(t *testing.T) {
	svc, repo := seeded(t)
	r := newEngine(Handlers{Alerts: svc}, "u-1")

	if w := serve(r, http.MethodPut, "/v1/events/100/management", `{"comment":"handled"}`); w.Code != http.StatusCreated {
		t.Fatalf("manage: expected 201, got %d", w.Code)
	}

	w := serve(r, http.MethodGet, "/v1/events/unmanaged", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var items []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0]["event_id"] != "101" || items[0]["fuente"] != "Zabbix" {
		t.Fatalf("unexpected backlog: %v", items)
	}

	repo.SetErr(errors.New("connection refused"))
	if w := serve(r, http.MethodGet, "/v1/events/unmanaged", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestManage(t *testing.T) {
	svc, _ := seeded(t)
	r := newEngine(Handlers{Alerts: svc}, "u-1")
	body := `{"comment":"rebooted","responsible_party":"noc","impacted_client":"acme","impacted_system":"db01"}`

	w := serve(r, http.MethodPut, "/v1/events/100/management", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var rec alerts.ManagementRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.EventID != "100" || rec.ActingUserID != "u-1" || rec.ID == "" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if w := serve(r, http.MethodPut, "/v1/events/100/management", body); w.Code != http.StatusConflict {
		t.Fatalf("second disposition: expected 409, got %d", w.Code)
	}
	if w := serve(r, http.MethodPut, "/v1/events/999/management", body); w.Code != http.StatusNotFound {
		t.Fatalf("unknown event: expected 404, got %d", w.Code)
	}
	if w := serve(r, http.MethodPut, "/v1/events/101/management", `{`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json: expected 400, got %d", w.Code)
	}
}

func TestManage_RequiresIdentity(t *testing.T) {
	svc, _ := seeded(t)
	w := serve(newEngine(Handlers{Alerts: svc}, ""), http.MethodPut, "/v1/events/100/management", `{"comment":"x"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestHourlyCounts(t *testing.T) {
	svc, _ := seeded(t)
	r := newEngine(Handlers{Alerts: svc}, "u-1")

	w := serve(r, http.MethodGet, "/v1/events/hourly?date=2025-07-26", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Date   string           `json:"date"`
		Series map[string][]int `json:"series"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	z := resp.Series["Zabbix"]
	if len(z) != 24 || z[9] != 1 || z[10] != 1 || z[0] != 0 {
		t.Fatalf("unexpected series: %v", z)
	}

	for _, q := range []string{"", "?date=26-07-2025", "?date=2025-02-30"} {
		if w := serve(r, http.MethodGet, "/v1/events/hourly"+q, ""); w.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", q, w.Code)
		}
	}
}
