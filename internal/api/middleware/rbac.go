package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
)

// Role names accepted by RBAC.
const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RoleStoreOwner = "store_owner"
)

// RoleChecker reports the live role membership of a principal.
type RoleChecker interface {
	RolesOf(addr domain.Principal) ports.Roles
}

// RBAC lets the request through when the caller currently holds any of the
// allowed roles. Membership is looked up on every request, so a revoked role
// takes effect immediately.
func RBAC(checker RoleChecker, allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := c.Get(CallerKey).(domain.Principal)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing caller"})
			}
			if !holdsAny(checker.RolesOf(caller), allowed) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

func holdsAny(roles ports.Roles, allowed map[string]struct{}) bool {
	held := map[string]bool{
		RoleOwner:      roles.Owner,
		RoleAdmin:      roles.Admin,
		RoleStoreOwner: roles.StoreOwner,
	}
	for r := range allowed {
		if held[r] {
			return true
		}
	}
	return false
}
