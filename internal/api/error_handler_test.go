package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/marketplace/internal/core/domain"
)

func TestHTTPErrorHandler_MapsDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrCallerNotOwner, http.StatusForbidden},
		{domain.ErrCallerNotStoreOwnerOf, http.StatusForbidden},
		{domain.ErrStoreNotFound, http.StatusNotFound},
		{domain.ErrItemInactive, http.StatusNotFound},
		{domain.ErrPriceMismatch, http.StatusPaymentRequired},
		{domain.ErrItemSoldOut, http.StatusConflict},
		{domain.ErrZeroAmount, http.StatusBadRequest},
		{fmt.Errorf("add store: %w", domain.ErrIDCollision), http.StatusInternalServerError},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrUserExists, http.StatusConflict},
		{fmt.Errorf("%w: bad signature", domain.ErrAddressNotProven), http.StatusUnauthorized},
		{echo.NewHTTPError(http.StatusTeapot, "teapot"), http.StatusTeapot},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	e := echo.New()
	handler := NewHTTPErrorHandler(zerolog.Nop())
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler(tc.err, c)

		if rec.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
		var body errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
			t.Fatalf("%v: expected error envelope, got %s", tc.err, rec.Body.String())
		}
	}
}

func TestHTTPErrorHandler_HidesUnexpectedErrors(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("mongo: connection refused"), c)

	var body errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "internal server error" {
		t.Fatalf("expected generic message, got %q", body.Error)
	}
}
