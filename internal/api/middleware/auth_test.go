package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/99minutos/marketplace/internal/core/domain"
)

const testAddr = "0x0000000000000000000000000000000000000012"

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	signed := signedToken(t, jwt.MapClaims{"username": "alice", "address": testAddr})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	mw := Auth("secret")
	handler := mw(func(c echo.Context) error {
		called = true
		if c.Get(UsernameKey) != "alice" {
			t.Fatalf("username not set")
		}
		caller, ok := c.Get(CallerKey).(domain.Principal)
		if !ok || caller.Hex() != testAddr {
			t.Fatalf("caller not set: %v", c.Get(CallerKey))
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

func TestAuthMiddleware_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"invalid header format", "Token abc"},
		{"invalid token", "Bearer not-a-token"},
		{"wrong secret", "Bearer " + mustSign(jwt.MapClaims{"address": testAddr}, "other")},
		{"missing address", "Bearer " + mustSign(jwt.MapClaims{"username": "alice"}, "secret")},
		{"malformed address", "Bearer " + mustSign(jwt.MapClaims{"address": "0x12"}, "secret")},
		{"zero address", "Bearer " + mustSign(jwt.MapClaims{"address": "0x0000000000000000000000000000000000000000"}, "secret")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := Auth("secret")(func(c echo.Context) error {
				t.Fatalf("should not reach next")
				return nil
			})

			if err := handler(c); err != nil {
				e.HTTPErrorHandler(err, c)
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func mustSign(claims jwt.MapClaims, secret string) string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return signed
}
