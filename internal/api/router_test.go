package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fleetcore/fleet-api/internal/api/middleware"
	"github.com/fleetcore/fleet-api/internal/core/catalog"
	"github.com/fleetcore/fleet-api/internal/core/domain"
	"github.com/fleetcore/fleet-api/internal/core/ports"
	"github.com/fleetcore/fleet-api/internal/core/service"
	"github.com/fleetcore/fleet-api/internal/infrastructure/db/memory"
)

const testSecret = "router-test-secret"

type nopNotifier struct{}

func (nopNotifier) Notify(domain.ChangeEvent) {}

type envelope struct {
	Success    bool               `json:"success"`
	Data       json.RawMessage    `json:"data"`
	Message    string             `json:"message"`
	Error      string             `json:"error"`
	Fields     []string           `json:"fields"`
	Pagination *domain.Pagination `json:"pagination"`
}

func newTestRouter(t *testing.T, limiter bool) *echo.Echo {
	t.Helper()
	log := zerolog.Nop()
	repo := memory.NewResourceRepository()

	var resources []ports.ResourceService
	for _, def := range catalog.All() {
		resources = append(resources, service.NewResourceService(def, repo, nopNotifier{}, log))
	}

	deps := Deps{
		Logger:    log,
		JWTSecret: testSecret,
		Version:   "test",
		Auth:      service.NewAuthService(memory.NewAuthRepository(), testSecret, time.Hour),
		Resources: resources,
	}
	if limiter {
		deps.RateLimit = middleware.NewMemoryStore(time.Minute, 2)
	}
	return NewRouter(deps)
}

func do(t *testing.T, e *echo.Echo, method, path, token, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// login registers a user with role and returns a bearer token for it.
func login(t *testing.T, e *echo.Echo, role string) string {
	t.Helper()
	email := role + "@fleet.test"
	status, _ := do(t, e, http.MethodPost, "/api/v1/auth/register", "",
		`{"name":"`+role+`","email":"`+email+`","password":"password123","role":"`+role+`"}`)
	require.Equal(t, http.StatusCreated, status)

	status, env := do(t, e, http.MethodPost, "/api/v1/auth/login", "",
		`{"email":"`+email+`","password":"password123"}`)
	require.Equal(t, http.StatusOK, status)
	data := decode[struct {
		Token string `json:"token"`
	}](t, env.Data)
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestRouter_ServiceLifecycle(t *testing.T) {
	e := newTestRouter(t, false)
	token := login(t, e, domain.RoleAdmin)

	status, env := do(t, e, http.MethodPost, "/api/v1/services", token,
		`{"name":"Oil Change","description":"Full synthetic","category":"maintenance","price":29.99}`)
	require.Equal(t, http.StatusCreated, status)
	require.True(t, env.Success)
	created := decode[map[string]any](t, env.Data)
	require.Equal(t, 29.99, created["price"])
	require.Equal(t, "active", created["status"])
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	status, env = do(t, e, http.MethodGet, "/api/v1/services/"+id, token, "")
	require.Equal(t, http.StatusOK, status)
	got := decode[map[string]any](t, env.Data)
	require.Equal(t, "Oil Change", got["name"])
	require.Equal(t, 29.99, got["price"])

	status, env = do(t, e, http.MethodPatch, "/api/v1/services/"+id+"/status", token, `{"status":"inactive"}`)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, env.Message, "inactive")

	status, env = do(t, e, http.MethodGet, "/api/v1/services/"+id, token, "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "inactive", decode[map[string]any](t, env.Data)["status"])

	status, env = do(t, e, http.MethodGet, "/api/v1/services/category/maintenance", token, "")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, decode[[]map[string]any](t, env.Data), 1)

	status, env = do(t, e, http.MethodGet, "/api/v1/services/stats/overview", token, "")
	require.Equal(t, http.StatusOK, status)
	stats := decode[domain.Stats](t, env.Data)
	require.Equal(t, int64(1), stats.Total)
	require.Equal(t, int64(1), stats.ByStatus["inactive"])

	status, _ = do(t, e, http.MethodDelete, "/api/v1/services/"+id, token, "")
	require.Equal(t, http.StatusOK, status)

	status, env = do(t, e, http.MethodGet, "/api/v1/services/"+id, token, "")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "SERVICE_NOT_FOUND", env.Error)
}

func TestRouter_ErrorEnvelopes(t *testing.T) {
	e := newTestRouter(t, false)
	admin := login(t, e, domain.RoleAdmin)
	staff := login(t, e, domain.RoleStaff)

	t.Run("not found has no data", func(t *testing.T) {
		status, env := do(t, e, http.MethodGet, "/api/v1/services/65f0000000000000000000ff", admin, "")
		require.Equal(t, http.StatusNotFound, status)
		require.False(t, env.Success)
		require.Equal(t, "SERVICE_NOT_FOUND", env.Error)
		require.Empty(t, env.Data)
	})

	t.Run("missing fields", func(t *testing.T) {
		status, env := do(t, e, http.MethodPost, "/api/v1/services", admin, `{"name":"Oil Change"}`)
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "MISSING_REQUIRED_FIELDS", env.Error)
		require.ElementsMatch(t, []string{"description", "category", "price"}, env.Fields)
	})

	t.Run("invalid id", func(t *testing.T) {
		status, env := do(t, e, http.MethodGet, "/api/v1/services/not-an-id", admin, "")
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "INVALID_ID", env.Error)
	})

	t.Run("no token", func(t *testing.T) {
		status, env := do(t, e, http.MethodGet, "/api/v1/services", "", "")
		require.Equal(t, http.StatusUnauthorized, status)
		require.Equal(t, "UNAUTHORIZED", env.Error)
	})

	t.Run("staff cannot write services", func(t *testing.T) {
		status, env := do(t, e, http.MethodPost, "/api/v1/services", staff,
			`{"name":"Oil Change","description":"x","category":"maintenance","price":1}`)
		require.Equal(t, http.StatusForbidden, status)
		require.Equal(t, "FORBIDDEN", env.Error)
	})

	t.Run("staff can read services", func(t *testing.T) {
		status, env := do(t, e, http.MethodGet, "/api/v1/services", staff, "")
		require.Equal(t, http.StatusOK, status)
		require.NotNil(t, env.Pagination)
	})

	t.Run("staff can write notifications", func(t *testing.T) {
		status, _ := do(t, e, http.MethodPost, "/api/v1/notifications", staff,
			`{"recipientId":"r1","title":"Oil due","message":"Book a slot"}`)
		require.Equal(t, http.StatusCreated, status)
	})

	t.Run("unknown route", func(t *testing.T) {
		status, env := do(t, e, http.MethodGet, "/nope", "", "")
		require.Equal(t, http.StatusNotFound, status)
		require.Equal(t, "ROUTE_NOT_FOUND", env.Error)
	})

	t.Run("bad credentials", func(t *testing.T) {
		status, env := do(t, e, http.MethodPost, "/api/v1/auth/login", "",
			`{"email":"admin@fleet.test","password":"wrong-password"}`)
		require.Equal(t, http.StatusUnauthorized, status)
		require.Equal(t, "INVALID_CREDENTIALS", env.Error)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		status, env := do(t, e, http.MethodPost, "/api/v1/auth/register", "",
			`{"name":"again","email":"admin@fleet.test","password":"password123"}`)
		require.Equal(t, http.StatusConflict, status)
		require.Equal(t, "USER_EXISTS", env.Error)
	})
}

func TestRouter_RateLimit(t *testing.T) {
	e := newTestRouter(t, true)

	for i := 0; i < 2; i++ {
		status, _ := do(t, e, http.MethodPost, "/api/v1/auth/login", "", `{}`)
		require.Equal(t, http.StatusBadRequest, status)
	}
	status, env := do(t, e, http.MethodPost, "/api/v1/auth/login", "", `{}`)
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, "RATE_LIMIT_EXCEEDED", env.Error)

	// Health stays reachable.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	e := newTestRouter(t, false)

	for _, path := range []string{"/health", "/health/ready", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}
