package domain

import (
	"errors"
	"fmt"
)

// Error categories. Callers match them with errors.Is; the specific errors
// below wrap exactly one category.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrInvalidPayment   = errors.New("invalid payment")
	ErrOutOfStock       = errors.New("out of stock")
	ErrInvalidArgument  = errors.New("invalid argument")
)

var (
	ErrCallerNotOwner        = fmt.Errorf("%w: caller is not owner", ErrPermissionDenied)
	ErrCallerNotAdmin        = fmt.Errorf("%w: caller is not admin", ErrPermissionDenied)
	ErrCallerNotStoreOwner   = fmt.Errorf("%w: caller is not store owner", ErrPermissionDenied)
	ErrCallerNotStoreOwnerOf = fmt.Errorf("%w: caller does not own store", ErrPermissionDenied)

	ErrStoreNotFound = fmt.Errorf("%w: store not found", ErrNotFound)
	ErrItemNotFound  = fmt.Errorf("%w: item not found", ErrNotFound)
	ErrStoreInactive = fmt.Errorf("%w: store is inactive", ErrNotFound)
	ErrItemInactive  = fmt.Errorf("%w: item is inactive", ErrNotFound)

	ErrPriceMismatch = fmt.Errorf("%w: sent value does not match price", ErrInvalidPayment)
	ErrItemSoldOut   = fmt.Errorf("%w: item out of stock", ErrOutOfStock)

	ErrEmptyName     = fmt.Errorf("%w: name must not be empty", ErrInvalidArgument)
	ErrZeroAmount    = fmt.Errorf("%w: amount must be greater than zero", ErrInvalidArgument)
	ErrStockOverflow = fmt.Errorf("%w: stock overflow", ErrInvalidArgument)
	ErrZeroAddress   = fmt.Errorf("%w: zero address", ErrInvalidArgument)
)

// ErrIDCollision is returned when a derived identifier already names an
// existing entity. It is never retried.
var ErrIDCollision = errors.New("identifier collision")

// ErrJournalCorrupt is returned by replay when the journal does not describe
// a reachable ledger state.
var ErrJournalCorrupt = errors.New("journal corrupt")

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrAddressNotProven   = errors.New("address ownership not proven")
)
