package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"alert-integrator/internal/config"

	"github.com/gin-gonic/gin"
)

type fakeSessions struct {
	mu      sync.Mutex
	active  map[string]bool
	touched []string
	err     error
}

func (f *fakeSessions) Touch(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if !f.active[id] {
		return ErrSessionExpired
	}
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeSessions) Close(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, id)
	return nil
}

func newRouter(m *Manager, s SessionStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireAccessToken(m, s), func(c *gin.Context) {
		uid, _ := UserID(c.Request.Context())
		role, _ := Role(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": uid, "role": role})
	})
	return r
}

func do(r *gin.Engine, bearer string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAccessToken(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret"})
	tok, jti, err := m.Issue(time.Now(), "user-1", "viewer", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	t.Run("missing header", func(t *testing.T) {
		w := do(newRouter(m, &fakeSessions{}), "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		w := do(newRouter(m, &fakeSessions{}), "not-a-jwt")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("idle session", func(t *testing.T) {
		w := do(newRouter(m, &fakeSessions{active: map[string]bool{}}), tok)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("session store down", func(t *testing.T) {
		w := do(newRouter(m, &fakeSessions{err: errors.New("dial tcp: refused")}), tok)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", w.Code)
		}
	})

	t.Run("active session is touched", func(t *testing.T) {
		s := &fakeSessions{active: map[string]bool{jti: true}}
		w := do(newRouter(m, s), tok)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if len(s.touched) != 1 || s.touched[0] != jti {
			t.Fatalf("expected session %s touched, got %v", jti, s.touched)
		}
	})
}
