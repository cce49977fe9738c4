package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/marketplace/internal/core/domain"
)

// GetRoles handles GET /v1/roles/:address.
//
// @Summary      Get the roles held by an address
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        address  path      string  true  "0x-prefixed address"
// @Success      200      {object}  rolesResponse
// @Failure      400      {object}  errorResponse
// @Router       /v1/roles/{address} [get]
func (h *MarketplaceHandler) GetRoles(c echo.Context) error {
	addr, err := pathPrincipal(c, "address")
	if err != nil {
		return err
	}
	roles := h.ledger.RolesOf(addr)
	return c.JSON(http.StatusOK, rolesResponse{
		Address:    addr.Hex(),
		Owner:      roles.Owner,
		Admin:      roles.Admin,
		StoreOwner: roles.StoreOwner,
	})
}

// AddAdmin handles POST /v1/admins.
//
// @Summary      Appoint an admin
// @Tags         roles
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  principalRequest  true  "Admin address"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/admins [post]
func (h *MarketplaceHandler) AddAdmin(c echo.Context) error {
	caller, target, err := h.roleTarget(c)
	if err != nil {
		return err
	}
	if err := h.ledger.AddAdmin(c.Request().Context(), caller, target); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveAdmin handles DELETE /v1/admins/:address.
//
// @Summary      Revoke an admin
// @Tags         roles
// @Security     BearerAuth
// @Param        address  path  string  true  "0x-prefixed address"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/admins/{address} [delete]
func (h *MarketplaceHandler) RemoveAdmin(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	target, err := pathPrincipal(c, "address")
	if err != nil {
		return err
	}
	if err := h.ledger.RemoveAdmin(c.Request().Context(), caller, target); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// AddStoreOwner handles POST /v1/store-owners.
//
// @Summary      Appoint a store owner
// @Tags         roles
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  principalRequest  true  "Store owner address"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/store-owners [post]
func (h *MarketplaceHandler) AddStoreOwner(c echo.Context) error {
	caller, target, err := h.roleTarget(c)
	if err != nil {
		return err
	}
	if err := h.ledger.AddStoreOwner(c.Request().Context(), caller, target); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveStoreOwner handles DELETE /v1/store-owners/:address.
//
// @Summary      Revoke a store owner
// @Tags         roles
// @Security     BearerAuth
// @Param        address  path  string  true  "0x-prefixed address"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/store-owners/{address} [delete]
func (h *MarketplaceHandler) RemoveStoreOwner(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	target, err := pathPrincipal(c, "address")
	if err != nil {
		return err
	}
	if err := h.ledger.RemoveStoreOwner(c.Request().Context(), caller, target); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// roleTarget resolves the caller and the address in a principalRequest body.
func (h *MarketplaceHandler) roleTarget(c echo.Context) (domain.Principal, domain.Principal, error) {
	caller, err := ctxCaller(c)
	if err != nil {
		return domain.Principal{}, domain.Principal{}, err
	}
	var req principalRequest
	if err := bindAndValidate(c, &req); err != nil {
		return domain.Principal{}, domain.Principal{}, err
	}
	target, err := domain.ParsePrincipal(req.Address)
	if err != nil {
		return domain.Principal{}, domain.Principal{}, err
	}
	return caller, target, nil
}
