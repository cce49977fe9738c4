package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
)

// AddStore creates a store owned by caller and returns its ID. The store's
// index is the number of stores caller created before it.
func (l *Ledger) AddStore(_ context.Context, caller domain.Principal, name, description string) (domain.ID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireStoreOwner(caller); err != nil {
		return domain.ID{}, err
	}
	if strings.TrimSpace(name) == "" {
		return domain.ID{}, domain.ErrEmptyName
	}

	index := uint64(len(l.storeIDs[caller]))
	id := domain.DeriveID(name, index, caller, l.height+1)
	if _, exists := l.storeOwnerOf[id]; exists {
		l.log.Error().
			Str("store_owner", caller.Hex()).
			Str("store_id", id.Hex()).
			Msg("derived store id collides with existing store")
		return domain.ID{}, fmt.Errorf("add store: %w", domain.ErrIDCollision)
	}

	err := l.commit(domain.ChangeEvent{
		Kind:        domain.EventAddedStore,
		StoreOwner:  caller,
		StoreID:     id,
		Name:        name,
		Description: description,
		Index:       index,
	})
	if err != nil {
		return domain.ID{}, err
	}

	l.log.Info().
		Str("store_owner", caller.Hex()).
		Str("store_id", id.Hex()).
		Uint64("index", index).
		Msg("store added")
	return id, nil
}

// RemoveStore deactivates a store. Its ID and index stay resolvable.
func (l *Ledger) RemoveStore(_ context.Context, caller domain.Principal, storeID domain.ID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, err := l.ownedStore(caller, storeID)
	if err != nil {
		return err
	}
	if !entry.store.Active {
		return nil
	}
	return l.commit(domain.ChangeEvent{
		Kind:       domain.EventRemovedStore,
		StoreOwner: caller,
		StoreID:    storeID,
	})
}

// AddItem lists a new item in one of caller's active stores and returns its ID.
func (l *Ledger) AddItem(_ context.Context, caller domain.Principal, in ports.AddItemInput) (domain.ID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, err := l.ownedStore(caller, in.StoreID)
	if err != nil {
		return domain.ID{}, err
	}
	if !entry.store.Active {
		return domain.ID{}, domain.ErrStoreInactive
	}
	if strings.TrimSpace(in.Name) == "" {
		return domain.ID{}, domain.ErrEmptyName
	}
	if in.Price == nil {
		return domain.ID{}, fmt.Errorf("%w: price is required", domain.ErrInvalidArgument)
	}

	index := uint64(len(entry.store.ItemIDs))
	id := domain.DeriveID(in.Name, index, caller, l.height+1)
	if _, exists := entry.items[id]; exists {
		l.log.Error().
			Str("store_owner", caller.Hex()).
			Str("store_id", in.StoreID.Hex()).
			Str("item_id", id.Hex()).
			Msg("derived item id collides with existing item")
		return domain.ID{}, fmt.Errorf("add item: %w", domain.ErrIDCollision)
	}

	err = l.commit(domain.ChangeEvent{
		Kind:        domain.EventAddedItem,
		StoreOwner:  caller,
		StoreID:     in.StoreID,
		ItemID:      id,
		Name:        in.Name,
		Description: in.Description,
		Image:       in.Image,
		Price:       in.Price.Clone(),
		Stock:       in.Stock,
		Index:       index,
	})
	if err != nil {
		return domain.ID{}, err
	}

	l.log.Info().
		Str("store_owner", caller.Hex()).
		Str("store_id", in.StoreID.Hex()).
		Str("item_id", id.Hex()).
		Uint64("index", index).
		Msg("item added")
	return id, nil
}

// RemoveItem deactivates an item. Its ID and index stay resolvable.
func (l *Ledger) RemoveItem(_ context.Context, caller domain.Principal, storeID, itemID domain.ID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, err := l.ownedStore(caller, storeID)
	if err != nil {
		return err
	}
	item, ok := entry.items[itemID]
	if !ok {
		return domain.ErrItemNotFound
	}
	if !item.Active {
		return nil
	}
	return l.commit(domain.ChangeEvent{
		Kind:       domain.EventRemovedItem,
		StoreOwner: caller,
		StoreID:    storeID,
		ItemID:     itemID,
	})
}

func (l *Ledger) GetStore(_ context.Context, owner domain.Principal, storeID domain.ID) (*domain.Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, err := l.lookupStore(owner, storeID)
	if err != nil {
		return nil, err
	}
	return entry.store.Clone(), nil
}

// GetStoreIDList returns owner's store IDs in creation order, inactive
// stores included.
func (l *Ledger) GetStoreIDList(_ context.Context, owner domain.Principal) []domain.ID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.ID{}, l.storeIDs[owner]...)
}

func (l *Ledger) GetItem(_ context.Context, owner domain.Principal, storeID, itemID domain.ID) (*domain.Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, err := l.lookupItem(owner, storeID, itemID)
	if err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// GetItemIDList returns the store's item IDs in creation order.
func (l *Ledger) GetItemIDList(_ context.Context, owner domain.Principal, storeID domain.ID) ([]domain.ID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, err := l.lookupStore(owner, storeID)
	if err != nil {
		return nil, err
	}
	return append([]domain.ID{}, entry.store.ItemIDs...), nil
}

// ownedStore resolves a store for a mutation: caller must currently hold the
// store owner role and be the owner of storeID.
func (l *Ledger) ownedStore(caller domain.Principal, storeID domain.ID) (*storeEntry, error) {
	if err := l.requireStoreOwner(caller); err != nil {
		return nil, err
	}
	if entry, ok := l.stores[caller][storeID]; ok {
		return entry, nil
	}
	if _, exists := l.storeOwnerOf[storeID]; exists {
		return nil, domain.ErrCallerNotStoreOwnerOf
	}
	return nil, domain.ErrStoreNotFound
}
