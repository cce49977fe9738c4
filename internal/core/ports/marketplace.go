package ports

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/99minutos/marketplace/internal/core/domain"
)

// AddItemInput carries everything needed to list a new item in a store.
type AddItemInput struct {
	StoreID     domain.ID
	Name        string
	Description string
	Price       *uint256.Int
	Image       [32]byte
	Stock       uint64
}

// PurchaseInput identifies the item being bought and the attached payment.
type PurchaseInput struct {
	StoreOwner domain.Principal
	StoreID    domain.ID
	ItemID     domain.ID
	Payment    *uint256.Int
}

// Roles is the membership of one principal in each role set.
type Roles struct {
	Owner      bool
	Admin      bool
	StoreOwner bool
}

// Marketplace is the ledger's public operation surface. Every mutating call
// takes the authenticated caller as its first principal argument.
type Marketplace interface {
	AddAdmin(ctx context.Context, caller, admin domain.Principal) error
	RemoveAdmin(ctx context.Context, caller, admin domain.Principal) error
	AddStoreOwner(ctx context.Context, caller, storeOwner domain.Principal) error
	RemoveStoreOwner(ctx context.Context, caller, storeOwner domain.Principal) error

	AddStore(ctx context.Context, caller domain.Principal, name, description string) (domain.ID, error)
	RemoveStore(ctx context.Context, caller domain.Principal, storeID domain.ID) error
	AddItem(ctx context.Context, caller domain.Principal, in AddItemInput) (domain.ID, error)
	RemoveItem(ctx context.Context, caller domain.Principal, storeID, itemID domain.ID) error

	Restock(ctx context.Context, caller domain.Principal, storeID, itemID domain.ID, amount uint64) error
	ChangePrice(ctx context.Context, caller domain.Principal, storeID, itemID domain.ID, price *uint256.Int) error

	Purchase(ctx context.Context, caller domain.Principal, in PurchaseInput) error
	Withdraw(ctx context.Context, caller domain.Principal) (*uint256.Int, error)

	GetStore(ctx context.Context, owner domain.Principal, storeID domain.ID) (*domain.Store, error)
	GetStoreIDList(ctx context.Context, owner domain.Principal) []domain.ID
	GetItem(ctx context.Context, owner domain.Principal, storeID, itemID domain.ID) (*domain.Item, error)
	GetItemIDList(ctx context.Context, owner domain.Principal, storeID domain.ID) ([]domain.ID, error)
	GetBalance(ctx context.Context, owner domain.Principal) *uint256.Int

	Owner() domain.Principal
	IsAdmin(addr domain.Principal) bool
	IsStoreOwner(addr domain.Principal) bool
	RolesOf(addr domain.Principal) Roles
}
