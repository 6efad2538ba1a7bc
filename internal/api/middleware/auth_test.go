package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/fleetcore/fleet-api/internal/api/response"
)

func signed(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func runAuth(t *testing.T, header string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth("secret")(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec, called
}

func requireEnvelope(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d", status, rec.Code)
	}
	var body response.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success || body.Error != code {
		t.Fatalf("unexpected envelope: %+v", body)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	token := signed(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{
		"sub":         "65f000000000000000000001",
		"role":        "admin",
		"permissions": []string{"billing:write"},
		"exp":         time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth("secret")(func(c echo.Context) error {
		called = true
		p := PrincipalFrom(c)
		if p.ID != "65f000000000000000000001" {
			t.Fatalf("user id not set: %q", p.ID)
		}
		if p.Role != "admin" {
			t.Fatalf("role not set: %q", p.Role)
		}
		if len(p.Permissions) != 1 || p.Permissions[0] != "billing:write" {
			t.Fatalf("permissions not set: %v", p.Permissions)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	rec, called := runAuth(t, "")
	if called {
		t.Fatalf("should not reach next")
	}
	requireEnvelope(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestAuthMiddleware_InvalidHeaderFormat(t *testing.T) {
	rec, called := runAuth(t, "Token abc")
	if called {
		t.Fatalf("should not reach next")
	}
	requireEnvelope(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	token := signed(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "u1", "role": "admin"})
	rec, called := runAuth(t, "Bearer "+token)
	if called {
		t.Fatalf("should not reach next")
	}
	requireEnvelope(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestAuthMiddleware_Expired(t *testing.T) {
	token := signed(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{
		"sub": "u1", "role": "admin", "exp": time.Now().Add(-time.Minute).Unix(),
	})
	rec, called := runAuth(t, "Bearer "+token)
	if called {
		t.Fatalf("should not reach next")
	}
	requireEnvelope(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestAuthMiddleware_RejectsOtherAlgorithms(t *testing.T) {
	token := signed(t, jwt.SigningMethodHS512, []byte("secret"), jwt.MapClaims{"sub": "u1", "role": "admin"})
	rec, called := runAuth(t, "Bearer "+token)
	if called {
		t.Fatalf("should not reach next")
	}
	requireEnvelope(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestAuthMiddleware_MissingIdentityClaims(t *testing.T) {
	token := signed(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{"role": "admin"})
	rec, called := runAuth(t, "Bearer "+token)
	if called {
		t.Fatalf("should not reach next")
	}
	requireEnvelope(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}
