package domain

import "github.com/holiman/uint256"

// Store is a named catalog container owned by one StoreOwner.
// Index is the 0-based position of the store in its owner's store list.
type Store struct {
	ID          ID
	Owner       Principal
	Name        string
	Description string
	ItemIDs     []ID
	Index       uint64
	Active      bool
}

// Item is a priced, stocked product belonging to one store.
// Index is the 0-based position of the item in its store's item list.
type Item struct {
	ID          ID
	StoreID     ID
	Name        string
	Description string
	Image       [32]byte
	Price       uint256.Int
	Stock       uint64
	Index       uint64
	Active      bool
}

// Clone returns a deep copy safe to hand out of the ledger.
func (s *Store) Clone() *Store {
	c := *s
	c.ItemIDs = append([]ID(nil), s.ItemIDs...)
	return &c
}

// Clone returns a copy safe to hand out of the ledger.
func (i *Item) Clone() *Item {
	c := *i
	return &c
}
