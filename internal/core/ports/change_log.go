package ports

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/99minutos/marketplace/internal/core/domain"
)

// ChangeLog receives every change event in the order the ledger applied
// them. Record is called while the ledger holds its write lock and must not
// call back into the ledger.
type ChangeLog interface {
	Record(event domain.ChangeEvent)
}

// JournalRepository durably stores change events.
type JournalRepository interface {
	// Append persists one event. Appending a seq that is already stored is
	// not an error.
	Append(ctx context.Context, event domain.ChangeEvent) error
	// LoadAll returns every stored event ordered by seq.
	LoadAll(ctx context.Context) ([]domain.ChangeEvent, error)
}

// EventPublisher fans change events out to live subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

// PayoutGateway moves withdrawn funds out of the ledger.
type PayoutGateway interface {
	Transfer(ctx context.Context, to domain.Principal, amount *uint256.Int) error
}
