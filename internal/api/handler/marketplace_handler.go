package handler

import (
	"context"

	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
)

// IdempotencyGuard reserves client-supplied request keys.
type IdempotencyGuard interface {
	Claim(ctx context.Context, scope string, caller domain.Principal, key string) (bool, error)
	Release(ctx context.Context, scope string, caller domain.Principal, key string) error
}

// PayoutHistory lists the payouts recorded for a store owner.
type PayoutHistory interface {
	ListByStoreOwner(ctx context.Context, owner domain.Principal) ([]domain.Payout, error)
}

// MarketplaceHandler exposes the ledger over HTTP. Mutating routes take the
// caller from the token; the ledger itself decides whether it may act.
type MarketplaceHandler struct {
	ledger  ports.Marketplace
	guard   IdempotencyGuard
	payouts PayoutHistory
}

// NewMarketplaceHandler builds the handler. guard and payouts may be nil:
// without a guard Idempotency-Key is ignored, without payouts the payout
// listing is empty.
func NewMarketplaceHandler(ledger ports.Marketplace, guard IdempotencyGuard, payouts PayoutHistory) *MarketplaceHandler {
	return &MarketplaceHandler{ledger: ledger, guard: guard, payouts: payouts}
}
