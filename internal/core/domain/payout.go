package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// Payout is a completed transfer of a StoreOwner's withdrawn balance.
type Payout struct {
	ID          string
	StoreOwner  Principal
	Amount      *uint256.Int
	RequestedAt time.Time
}
