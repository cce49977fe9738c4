package service

import (
	"context"

	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
)

// AddAdmin appoints admin. Only the owner may call it; re-adding a current
// admin succeeds without recording a change.
func (l *Ledger) AddAdmin(_ context.Context, caller, admin domain.Principal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if admin == domain.ZeroPrincipal {
		return domain.ErrZeroAddress
	}
	if _, ok := l.admins[admin]; ok {
		return nil
	}
	return l.commit(domain.ChangeEvent{Kind: domain.EventAddedAdmin, Admin: admin})
}

// RemoveAdmin revokes admin. Only the owner may call it.
func (l *Ledger) RemoveAdmin(_ context.Context, caller, admin domain.Principal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if _, ok := l.admins[admin]; !ok {
		return nil
	}
	return l.commit(domain.ChangeEvent{Kind: domain.EventRemovedAdmin, Admin: admin})
}

// AddStoreOwner appoints storeOwner. Any admin may call it.
func (l *Ledger) AddStoreOwner(_ context.Context, caller, storeOwner domain.Principal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if storeOwner == domain.ZeroPrincipal {
		return domain.ErrZeroAddress
	}
	if _, ok := l.storeOwners[storeOwner]; ok {
		return nil
	}
	return l.commit(domain.ChangeEvent{
		Kind:       domain.EventAddedStoreOwner,
		StoreOwner: storeOwner,
		Admin:      caller,
	})
}

// RemoveStoreOwner revokes storeOwner. Any admin may call it. The stores
// and balance of a revoked store owner stay in place.
func (l *Ledger) RemoveStoreOwner(_ context.Context, caller, storeOwner domain.Principal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if _, ok := l.storeOwners[storeOwner]; !ok {
		return nil
	}
	return l.commit(domain.ChangeEvent{
		Kind:       domain.EventRemovedStoreOwner,
		StoreOwner: storeOwner,
		Admin:      caller,
	})
}

// Owner returns the principal fixed at construction.
func (l *Ledger) Owner() domain.Principal { return l.owner }

func (l *Ledger) IsAdmin(addr domain.Principal) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.admins[addr]
	return ok
}

func (l *Ledger) IsStoreOwner(addr domain.Principal) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.storeOwners[addr]
	return ok
}

// RolesOf reports addr's membership in every role set at once.
func (l *Ledger) RolesOf(addr domain.Principal) ports.Roles {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, admin := l.admins[addr]
	_, storeOwner := l.storeOwners[addr]
	return ports.Roles{
		Owner:      addr == l.owner,
		Admin:      admin,
		StoreOwner: storeOwner,
	}
}

// The gates below do not chain: the owner is not implicitly an admin and
// an admin is not implicitly a store owner.

func (l *Ledger) requireOwner(caller domain.Principal) error {
	if caller != l.owner {
		return domain.ErrCallerNotOwner
	}
	return nil
}

func (l *Ledger) requireAdmin(caller domain.Principal) error {
	if _, ok := l.admins[caller]; !ok {
		return domain.ErrCallerNotAdmin
	}
	return nil
}

func (l *Ledger) requireStoreOwner(caller domain.Principal) error {
	if _, ok := l.storeOwners[caller]; !ok {
		return domain.ErrCallerNotStoreOwner
	}
	return nil
}
