package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
)

// AddStore handles POST /v1/stores.
//
// @Summary      Create a store owned by the caller
// @Tags         stores
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      addStoreRequest  true  "Store details"
// @Success      201   {object}  idResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/stores [post]
func (h *MarketplaceHandler) AddStore(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	var req addStoreRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	id, err := h.ledger.AddStore(c.Request().Context(), caller, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, idResponse{ID: id.Hex()})
}

// RemoveStore handles DELETE /v1/stores/:store_id.
//
// @Summary      Deactivate one of the caller's stores
// @Tags         stores
// @Security     BearerAuth
// @Param        store_id  path  string  true  "Store ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/stores/{store_id} [delete]
func (h *MarketplaceHandler) RemoveStore(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	storeID, err := pathID(c, "store_id")
	if err != nil {
		return err
	}
	if err := h.ledger.RemoveStore(c.Request().Context(), caller, storeID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListStores handles GET /v1/owners/:owner/stores.
//
// @Summary      List a store owner's store IDs in creation order
// @Tags         stores
// @Produce      json
// @Security     BearerAuth
// @Param        owner  path      string  true  "Store owner address"
// @Success      200    {object}  idListResponse
// @Failure      400    {object}  errorResponse
// @Router       /v1/owners/{owner}/stores [get]
func (h *MarketplaceHandler) ListStores(c echo.Context) error {
	owner, err := pathPrincipal(c, "owner")
	if err != nil {
		return err
	}
	ids := h.ledger.GetStoreIDList(c.Request().Context(), owner)
	return c.JSON(http.StatusOK, idListResponse{IDs: idStrings(ids)})
}

// GetStore handles GET /v1/owners/:owner/stores/:store_id.
//
// @Summary      Get a store
// @Tags         stores
// @Produce      json
// @Security     BearerAuth
// @Param        owner     path      string  true  "Store owner address"
// @Param        store_id  path      string  true  "Store ID"
// @Success      200       {object}  storeResponse
// @Failure      404       {object}  errorResponse
// @Router       /v1/owners/{owner}/stores/{store_id} [get]
func (h *MarketplaceHandler) GetStore(c echo.Context) error {
	owner, err := pathPrincipal(c, "owner")
	if err != nil {
		return err
	}
	storeID, err := pathID(c, "store_id")
	if err != nil {
		return err
	}

	store, err := h.ledger.GetStore(c.Request().Context(), owner, storeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toStoreResponse(store))
}

// AddItem handles POST /v1/stores/:store_id/items.
//
// @Summary      List a new item in one of the caller's stores
// @Tags         items
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        store_id  path      string          true  "Store ID"
// @Param        body      body      addItemRequest  true  "Item details"
// @Success      201       {object}  idResponse
// @Failure      400       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Failure      404       {object}  errorResponse
// @Router       /v1/stores/{store_id}/items [post]
func (h *MarketplaceHandler) AddItem(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	storeID, err := pathID(c, "store_id")
	if err != nil {
		return err
	}
	var req addItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	price, err := domain.ParseAmount(req.Price)
	if err != nil {
		return err
	}
	image, err := parseImage(req.Image)
	if err != nil {
		return err
	}

	id, err := h.ledger.AddItem(c.Request().Context(), caller, ports.AddItemInput{
		StoreID:     storeID,
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Image:       image,
		Stock:       req.Stock,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, idResponse{ID: id.Hex()})
}

// RemoveItem handles DELETE /v1/stores/:store_id/items/:item_id.
//
// @Summary      Deactivate an item
// @Tags         items
// @Security     BearerAuth
// @Param        store_id  path  string  true  "Store ID"
// @Param        item_id   path  string  true  "Item ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/stores/{store_id}/items/{item_id} [delete]
func (h *MarketplaceHandler) RemoveItem(c echo.Context) error {
	caller, storeID, itemID, err := itemPath(c)
	if err != nil {
		return err
	}
	if err := h.ledger.RemoveItem(c.Request().Context(), caller, storeID, itemID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListItems handles GET /v1/owners/:owner/stores/:store_id/items.
//
// @Summary      List a store's item IDs in creation order
// @Tags         items
// @Produce      json
// @Security     BearerAuth
// @Param        owner     path      string  true  "Store owner address"
// @Param        store_id  path      string  true  "Store ID"
// @Success      200       {object}  idListResponse
// @Failure      404       {object}  errorResponse
// @Router       /v1/owners/{owner}/stores/{store_id}/items [get]
func (h *MarketplaceHandler) ListItems(c echo.Context) error {
	owner, err := pathPrincipal(c, "owner")
	if err != nil {
		return err
	}
	storeID, err := pathID(c, "store_id")
	if err != nil {
		return err
	}

	ids, err := h.ledger.GetItemIDList(c.Request().Context(), owner, storeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, idListResponse{IDs: idStrings(ids)})
}

// GetItem handles GET /v1/owners/:owner/stores/:store_id/items/:item_id.
//
// @Summary      Get an item
// @Tags         items
// @Produce      json
// @Security     BearerAuth
// @Param        owner     path      string  true  "Store owner address"
// @Param        store_id  path      string  true  "Store ID"
// @Param        item_id   path      string  true  "Item ID"
// @Success      200       {object}  itemResponse
// @Failure      404       {object}  errorResponse
// @Router       /v1/owners/{owner}/stores/{store_id}/items/{item_id} [get]
func (h *MarketplaceHandler) GetItem(c echo.Context) error {
	owner, err := pathPrincipal(c, "owner")
	if err != nil {
		return err
	}
	storeID, err := pathID(c, "store_id")
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "item_id")
	if err != nil {
		return err
	}

	item, err := h.ledger.GetItem(c.Request().Context(), owner, storeID, itemID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toItemResponse(item))
}

// Restock handles POST /v1/stores/:store_id/items/:item_id/restock.
//
// @Summary      Add stock to an item
// @Tags         items
// @Accept       json
// @Security     BearerAuth
// @Param        store_id  path  string          true  "Store ID"
// @Param        item_id   path  string          true  "Item ID"
// @Param        body      body  restockRequest  true  "Units to add"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/stores/{store_id}/items/{item_id}/restock [post]
func (h *MarketplaceHandler) Restock(c echo.Context) error {
	caller, storeID, itemID, err := itemPath(c)
	if err != nil {
		return err
	}
	var req restockRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.ledger.Restock(c.Request().Context(), caller, storeID, itemID, req.Amount); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangePrice handles PUT /v1/stores/:store_id/items/:item_id/price.
//
// @Summary      Change an item's price
// @Tags         items
// @Accept       json
// @Security     BearerAuth
// @Param        store_id  path  string              true  "Store ID"
// @Param        item_id   path  string              true  "Item ID"
// @Param        body      body  changePriceRequest  true  "New price"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/stores/{store_id}/items/{item_id}/price [put]
func (h *MarketplaceHandler) ChangePrice(c echo.Context) error {
	caller, storeID, itemID, err := itemPath(c)
	if err != nil {
		return err
	}
	var req changePriceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	price, err := domain.ParseAmount(req.Price)
	if err != nil {
		return err
	}
	if err := h.ledger.ChangePrice(c.Request().Context(), caller, storeID, itemID, price); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// itemPath resolves the caller and the store and item path parameters of an
// item mutation.
func itemPath(c echo.Context) (caller domain.Principal, storeID, itemID domain.ID, err error) {
	if caller, err = ctxCaller(c); err != nil {
		return
	}
	if storeID, err = pathID(c, "store_id"); err != nil {
		return
	}
	itemID, err = pathID(c, "item_id")
	return
}
