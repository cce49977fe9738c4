package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/99minutos/marketplace/internal/core/domain"
)

// Context keys set by Auth.
const (
	UsernameKey = "username"
	CallerKey   = "caller"
)

// Auth validates the JWT and injects the caller's address into context.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			addr, _ := claims["address"].(string)
			caller, err := domain.ParsePrincipal(addr)
			if err != nil || caller == domain.ZeroPrincipal {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing caller address")
			}

			c.Set(UsernameKey, claims["username"])
			c.Set(CallerKey, caller)

			return next(c)
		}
	}
}
