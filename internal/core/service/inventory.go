package service

import (
	"context"
	"fmt"
	"math"

	"github.com/holiman/uint256"

	"github.com/99minutos/marketplace/internal/core/domain"
)

// Restock adds amount units to an item's stock.
func (l *Ledger) Restock(_ context.Context, caller domain.Principal, storeID, itemID domain.ID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, err := l.ownedActiveItem(caller, storeID, itemID)
	if err != nil {
		return err
	}
	if amount == 0 {
		return domain.ErrZeroAmount
	}
	if amount > math.MaxUint64-item.Stock {
		return domain.ErrStockOverflow
	}

	return l.commit(domain.ChangeEvent{
		Kind:       domain.EventRestocking,
		StoreOwner: caller,
		StoreID:    storeID,
		ItemID:     itemID,
		Amount:     uint256.NewInt(amount),
	})
}

// ChangePrice sets an item's price. Setting the current price again is a
// no-op.
func (l *Ledger) ChangePrice(_ context.Context, caller domain.Principal, storeID, itemID domain.ID, price *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, err := l.ownedActiveItem(caller, storeID, itemID)
	if err != nil {
		return err
	}
	if price == nil {
		return fmt.Errorf("%w: price is required", domain.ErrInvalidArgument)
	}
	if item.Price.Eq(price) {
		return nil
	}

	return l.commit(domain.ChangeEvent{
		Kind:       domain.EventPriceChanged,
		StoreOwner: caller,
		StoreID:    storeID,
		ItemID:     itemID,
		Price:      price.Clone(),
	})
}

func (l *Ledger) ownedActiveItem(caller domain.Principal, storeID, itemID domain.ID) (*domain.Item, error) {
	entry, err := l.ownedStore(caller, storeID)
	if err != nil {
		return nil, err
	}
	item, ok := entry.items[itemID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	if !item.Active {
		return nil, domain.ErrItemInactive
	}
	return item, nil
}
