package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/marketplace/internal/api/metrics"
	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
)

const purchaseScope = "purchase"

// Purchase handles POST /v1/purchases.
//
// @Summary      Buy one unit of an item
// @Description  The payment must equal the item's current price exactly.
// @Tags         purchases
// @Accept       json
// @Security     BearerAuth
// @Param        Idempotency-Key  header  string           false  "Key that makes retries of this request safe"
// @Param        body             body    purchaseRequest  true   "Item and payment"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      402  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/purchases [post]
func (h *MarketplaceHandler) Purchase(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	var req purchaseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	in, err := toPurchaseInput(req)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	key := c.Request().Header.Get("Idempotency-Key")
	if key != "" && h.guard != nil {
		fresh, err := h.guard.Claim(ctx, purchaseScope, caller, key)
		if err != nil {
			return err
		}
		if !fresh {
			metrics.PurchaseReplaysTotal.Inc()
			return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate request"})
		}
	}

	if err := h.ledger.Purchase(ctx, caller, in); err != nil {
		metrics.PurchasesTotal.WithLabelValues(purchaseResult(err)).Inc()
		if key != "" && h.guard != nil {
			if relErr := h.guard.Release(ctx, purchaseScope, caller, key); relErr != nil {
				zerolog.Ctx(ctx).Error().Err(relErr).
					Str("caller", caller.Hex()).
					Str("idempotency_key", key).
					Msg("could not release idempotency key after failed purchase")
			}
		}
		return err
	}

	metrics.PurchasesTotal.WithLabelValues("ok").Inc()
	return c.NoContent(http.StatusNoContent)
}

// Withdraw handles POST /v1/withdrawals.
//
// @Summary      Withdraw the caller's whole balance
// @Tags         balances
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  withdrawalResponse
// @Failure      403  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /v1/withdrawals [post]
func (h *MarketplaceHandler) Withdraw(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	amount, err := h.ledger.Withdraw(c.Request().Context(), caller)
	if err != nil {
		metrics.WithdrawalsTotal.WithLabelValues("error").Inc()
		return err
	}
	if amount.IsZero() {
		metrics.WithdrawalsTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.WithdrawalsTotal.WithLabelValues("ok").Inc()
	}
	return c.JSON(http.StatusOK, withdrawalResponse{Amount: amount.Dec()})
}

// GetBalance handles GET /v1/balances/:owner.
//
// @Summary      Get a store owner's withdrawable balance
// @Tags         balances
// @Produce      json
// @Security     BearerAuth
// @Param        owner  path      string  true  "Store owner address"
// @Success      200    {object}  balanceResponse
// @Failure      400    {object}  errorResponse
// @Router       /v1/balances/{owner} [get]
func (h *MarketplaceHandler) GetBalance(c echo.Context) error {
	owner, err := pathPrincipal(c, "owner")
	if err != nil {
		return err
	}
	bal := h.ledger.GetBalance(c.Request().Context(), owner)
	return c.JSON(http.StatusOK, balanceResponse{Owner: owner.Hex(), Balance: bal.Dec()})
}

// ListPayouts handles GET /v1/payouts.
//
// @Summary      List the caller's recorded payouts, newest first
// @Tags         balances
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   payoutResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/payouts [get]
func (h *MarketplaceHandler) ListPayouts(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	resp := []payoutResponse{}
	if h.payouts == nil {
		return c.JSON(http.StatusOK, resp)
	}

	payouts, err := h.payouts.ListByStoreOwner(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	for _, p := range payouts {
		resp = append(resp, toPayoutResponse(p))
	}
	return c.JSON(http.StatusOK, resp)
}

func toPurchaseInput(req purchaseRequest) (ports.PurchaseInput, error) {
	owner, err := domain.ParsePrincipal(req.StoreOwner)
	if err != nil {
		return ports.PurchaseInput{}, err
	}
	storeID, err := domain.ParseID(req.StoreID)
	if err != nil {
		return ports.PurchaseInput{}, err
	}
	itemID, err := domain.ParseID(req.ItemID)
	if err != nil {
		return ports.PurchaseInput{}, err
	}
	payment, err := domain.ParseAmount(req.Payment)
	if err != nil {
		return ports.PurchaseInput{}, err
	}
	return ports.PurchaseInput{
		StoreOwner: owner,
		StoreID:    storeID,
		ItemID:     itemID,
		Payment:    payment,
	}, nil
}

func purchaseResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidPayment):
		return "invalid_payment"
	case errors.Is(err, domain.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
