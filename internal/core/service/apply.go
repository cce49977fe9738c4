package service

import (
	"fmt"
	"math"

	"github.com/holiman/uint256"

	"github.com/99minutos/marketplace/internal/core/domain"
)

// apply mutates the state as described by ev. It is shared by the live
// operations and journal replay; ev.Seq must already be the height the
// change lands at. Callers hold l.mu.
func (l *Ledger) apply(ev domain.ChangeEvent) error {
	switch ev.Kind {
	case domain.EventAddedAdmin:
		l.admins[ev.Admin] = struct{}{}
	case domain.EventRemovedAdmin:
		delete(l.admins, ev.Admin)
	case domain.EventAddedStoreOwner:
		l.storeOwners[ev.StoreOwner] = struct{}{}
	case domain.EventRemovedStoreOwner:
		delete(l.storeOwners, ev.StoreOwner)

	case domain.EventAddedStore:
		return l.applyAddedStore(ev)
	case domain.EventRemovedStore:
		entry, err := l.lookupStore(ev.StoreOwner, ev.StoreID)
		if err != nil {
			return err
		}
		entry.store.Active = false

	case domain.EventAddedItem:
		return l.applyAddedItem(ev)
	case domain.EventRemovedItem:
		item, err := l.lookupItem(ev.StoreOwner, ev.StoreID, ev.ItemID)
		if err != nil {
			return err
		}
		item.Active = false

	case domain.EventRestocking:
		item, err := l.lookupItem(ev.StoreOwner, ev.StoreID, ev.ItemID)
		if err != nil {
			return err
		}
		if ev.Amount == nil || !ev.Amount.IsUint64() {
			return domain.ErrStockOverflow
		}
		amount := ev.Amount.Uint64()
		if amount > math.MaxUint64-item.Stock {
			return domain.ErrStockOverflow
		}
		item.Stock += amount

	case domain.EventPriceChanged:
		item, err := l.lookupItem(ev.StoreOwner, ev.StoreID, ev.ItemID)
		if err != nil {
			return err
		}
		if ev.Price == nil {
			return fmt.Errorf("%w: price missing", domain.ErrInvalidArgument)
		}
		item.Price.Set(ev.Price)

	case domain.EventPurchase:
		item, err := l.lookupItem(ev.StoreOwner, ev.StoreID, ev.ItemID)
		if err != nil {
			return err
		}
		if item.Stock == 0 {
			return domain.ErrItemSoldOut
		}
		if ev.Price == nil {
			return fmt.Errorf("%w: price missing", domain.ErrInvalidArgument)
		}
		if err := l.credit(ev.StoreOwner, ev.Price); err != nil {
			return err
		}
		item.Stock--

	case domain.EventWithdrawal:
		bal := l.balances[ev.StoreOwner]
		if bal == nil || ev.Amount == nil || bal.Lt(ev.Amount) {
			return fmt.Errorf("%w: withdrawal exceeds balance", domain.ErrJournalCorrupt)
		}
		bal.Sub(bal, ev.Amount)

	default:
		return fmt.Errorf("%w: unknown event kind %q", domain.ErrJournalCorrupt, ev.Kind)
	}
	return nil
}

func (l *Ledger) applyAddedStore(ev domain.ChangeEvent) error {
	owned := l.stores[ev.StoreOwner]
	if owned == nil {
		owned = make(map[domain.ID]*storeEntry)
		l.stores[ev.StoreOwner] = owned
	}
	if _, exists := owned[ev.StoreID]; exists {
		return fmt.Errorf("%w: store %s", domain.ErrIDCollision, ev.StoreID.Hex())
	}
	index := uint64(len(l.storeIDs[ev.StoreOwner]))
	if ev.Index != index {
		return fmt.Errorf("%w: store index %d, expected %d", domain.ErrJournalCorrupt, ev.Index, index)
	}

	owned[ev.StoreID] = &storeEntry{
		store: &domain.Store{
			ID:          ev.StoreID,
			Owner:       ev.StoreOwner,
			Name:        ev.Name,
			Description: ev.Description,
			Index:       index,
			Active:      true,
		},
		items: make(map[domain.ID]*domain.Item),
	}
	l.storeIDs[ev.StoreOwner] = append(l.storeIDs[ev.StoreOwner], ev.StoreID)
	l.storeOwnerOf[ev.StoreID] = ev.StoreOwner
	return nil
}

func (l *Ledger) applyAddedItem(ev domain.ChangeEvent) error {
	entry, err := l.lookupStore(ev.StoreOwner, ev.StoreID)
	if err != nil {
		return err
	}
	if _, exists := entry.items[ev.ItemID]; exists {
		return fmt.Errorf("%w: item %s", domain.ErrIDCollision, ev.ItemID.Hex())
	}
	index := uint64(len(entry.store.ItemIDs))
	if ev.Index != index {
		return fmt.Errorf("%w: item index %d, expected %d", domain.ErrJournalCorrupt, ev.Index, index)
	}
	if ev.Price == nil {
		return fmt.Errorf("%w: price missing", domain.ErrInvalidArgument)
	}

	item := &domain.Item{
		ID:          ev.ItemID,
		StoreID:     ev.StoreID,
		Name:        ev.Name,
		Description: ev.Description,
		Image:       ev.Image,
		Stock:       ev.Stock,
		Index:       index,
		Active:      true,
	}
	item.Price.Set(ev.Price)

	entry.items[ev.ItemID] = item
	entry.store.ItemIDs = append(entry.store.ItemIDs, ev.ItemID)
	return nil
}

// credit adds amount to owner's balance, creating it on first credit.
func (l *Ledger) credit(owner domain.Principal, amount *uint256.Int) error {
	bal := l.balances[owner]
	if bal == nil {
		bal = new(uint256.Int)
		l.balances[owner] = bal
	}
	if _, overflow := new(uint256.Int).AddOverflow(bal, amount); overflow {
		return fmt.Errorf("%w: balance overflow", domain.ErrInvalidArgument)
	}
	bal.Add(bal, amount)
	return nil
}

func (l *Ledger) lookupStore(owner domain.Principal, storeID domain.ID) (*storeEntry, error) {
	entry, ok := l.stores[owner][storeID]
	if !ok {
		return nil, domain.ErrStoreNotFound
	}
	return entry, nil
}

func (l *Ledger) lookupItem(owner domain.Principal, storeID, itemID domain.ID) (*domain.Item, error) {
	entry, err := l.lookupStore(owner, storeID)
	if err != nil {
		return nil, err
	}
	item, ok := entry.items[itemID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return item, nil
}
