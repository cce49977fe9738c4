package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// EventKind names a change event. The values are part of the public feed.
type EventKind string

const (
	EventAddedAdmin        EventKind = "AddedAdmin"
	EventRemovedAdmin      EventKind = "RemovedAdmin"
	EventAddedStoreOwner   EventKind = "AddedStoreOwner"
	EventRemovedStoreOwner EventKind = "RemovedStoreOwner"
	EventAddedStore        EventKind = "AddedStore"
	EventRemovedStore      EventKind = "RemovedStore"
	EventAddedItem         EventKind = "AddedItem"
	EventRemovedItem       EventKind = "RemovedItem"
	EventRestocking        EventKind = "Restocking"
	EventPriceChanged      EventKind = "PriceChanged"
	EventPurchase          EventKind = "Purchase"
	EventWithdrawal        EventKind = "Withdrawal"
)

// ChangeEvent records one effective mutation of the ledger.
//
// Seq is the ledger height the change was applied at. It is strictly
// increasing without gaps and is the marker fed to DeriveID for creations.
// Only the fields relevant to Kind are set.
type ChangeEvent struct {
	Seq        uint64
	Kind       EventKind
	StoreOwner Principal
	Admin      Principal
	Customer   Principal
	StoreID    ID
	ItemID     ID
	Price      *uint256.Int
	Amount     *uint256.Int
	OccurredAt time.Time

	// Creation payload (AddedStore, AddedItem).
	Name        string
	Description string
	Image       [32]byte
	Stock       uint64
	Index       uint64
}
