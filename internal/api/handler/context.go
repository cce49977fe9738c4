package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/marketplace/internal/api/middleware"
	"github.com/99minutos/marketplace/internal/core/domain"
)

// ctxCaller returns the principal the Auth middleware resolved from the
// token. Its absence means the route was mounted without Auth.
func ctxCaller(c echo.Context) (domain.Principal, error) {
	caller, ok := c.Get(middleware.CallerKey).(domain.Principal)
	if !ok || caller == domain.ZeroPrincipal {
		return domain.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return caller, nil
}

// bindAndValidate decodes the request body into req and runs the registered
// validator on it.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
