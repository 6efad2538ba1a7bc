package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type fixedStore struct {
	allow bool
	calls int
}

func (s *fixedStore) Allow(string) (bool, error) {
	s.calls++
	return s.allow, nil
}

func serve(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newLimitedEcho(store *fixedStore) *echo.Echo {
	e := echo.New()
	e.Use(RateLimit(store))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/api/v1/services", ok)
	e.GET("/health", ok)
	return e
}

func TestRateLimit_Denies(t *testing.T) {
	store := &fixedStore{allow: false}
	rec := serve(newLimitedEcho(store), "/api/v1/services")
	requireEnvelope(t, rec, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED")
}

func TestRateLimit_Allows(t *testing.T) {
	store := &fixedStore{allow: true}
	rec := serve(newLimitedEcho(store), "/api/v1/services")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.calls != 1 {
		t.Fatalf("expected store to be consulted once, got %d", store.calls)
	}
}

func TestRateLimit_SkipsHealth(t *testing.T) {
	store := &fixedStore{allow: false}
	rec := serve(newLimitedEcho(store), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.calls != 0 {
		t.Fatalf("health check must not consume budget")
	}
}

func TestMemoryStore_EnforcesBurst(t *testing.T) {
	store := NewMemoryStore(time.Hour, 2)
	for i := 0; i < 2; i++ {
		if ok, _ := store.Allow("10.0.0.1"); !ok {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if ok, _ := store.Allow("10.0.0.1"); ok {
		t.Fatalf("third request should be denied")
	}
	if ok, _ := store.Allow("10.0.0.2"); !ok {
		t.Fatalf("other identifiers have their own budget")
	}
}
