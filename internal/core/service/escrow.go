package service

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
)

// Purchase buys one unit of an item. Any principal may buy. The payment must
// equal the item price exactly; it is credited to the store owner's balance.
func (l *Ledger) Purchase(_ context.Context, caller domain.Principal, in ports.PurchaseInput) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, err := l.lookupStore(in.StoreOwner, in.StoreID)
	if err != nil {
		return err
	}
	if !entry.store.Active {
		return domain.ErrStoreInactive
	}
	item, ok := entry.items[in.ItemID]
	if !ok {
		return domain.ErrItemNotFound
	}
	if !item.Active {
		return domain.ErrItemInactive
	}
	if item.Stock == 0 {
		return domain.ErrItemSoldOut
	}
	if in.Payment == nil || !item.Price.Eq(in.Payment) {
		return domain.ErrPriceMismatch
	}

	err = l.commit(domain.ChangeEvent{
		Kind:       domain.EventPurchase,
		StoreOwner: in.StoreOwner,
		StoreID:    in.StoreID,
		ItemID:     in.ItemID,
		Customer:   caller,
		Price:      in.Payment.Clone(),
	})
	if err != nil {
		return err
	}

	l.log.Info().
		Str("store_owner", in.StoreOwner.Hex()).
		Str("item_id", in.ItemID.Hex()).
		Str("customer", caller.Hex()).
		Str("price", in.Payment.Dec()).
		Msg("item purchased")
	return nil
}

// Withdraw transfers caller's whole balance out through the payout gateway
// and returns the amount sent.
//
// The balance is zeroed before the transfer starts and the lock is released
// for its duration, so a withdraw issued while the transfer is in flight
// observes a zero balance and sends nothing. A failed transfer puts the
// amount back.
func (l *Ledger) Withdraw(ctx context.Context, caller domain.Principal) (*uint256.Int, error) {
	l.mu.Lock()
	if err := l.requireStoreOwner(caller); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	bal := l.balances[caller]
	if bal == nil || bal.IsZero() {
		l.mu.Unlock()
		return new(uint256.Int), nil
	}
	amount := bal.Clone()
	bal.Clear()
	l.mu.Unlock()

	if err := l.payouts.Transfer(ctx, caller, amount); err != nil {
		l.mu.Lock()
		// Purchases made during the transfer may have refilled the balance
		// far enough that adding the amount back overflows.
		creditErr := l.credit(caller, amount)
		l.mu.Unlock()

		if creditErr != nil {
			l.log.Error().Err(creditErr).
				AnErr("transfer_error", err).
				Str("store_owner", caller.Hex()).
				Str("amount", amount.Dec()).
				Msg("payout failed and balance could not be restored")
			return nil, fmt.Errorf("withdraw: transfer: %w (restore: %v)", err, creditErr)
		}
		l.log.Warn().Err(err).
			Str("store_owner", caller.Hex()).
			Str("amount", amount.Dec()).
			Msg("payout failed, balance restored")
		return nil, fmt.Errorf("withdraw: transfer: %w", err)
	}

	l.mu.Lock()
	l.emit(domain.ChangeEvent{
		Kind:       domain.EventWithdrawal,
		StoreOwner: caller,
		Amount:     amount.Clone(),
	})
	l.mu.Unlock()

	l.log.Info().
		Str("store_owner", caller.Hex()).
		Str("amount", amount.Dec()).
		Msg("balance withdrawn")
	return amount, nil
}

// GetBalance returns owner's withdrawable balance.
func (l *Ledger) GetBalance(_ context.Context, owner domain.Principal) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if bal := l.balances[owner]; bal != nil {
		return bal.Clone()
	}
	return new(uint256.Int)
}
