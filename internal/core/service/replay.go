package service

import (
	"fmt"

	"github.com/99minutos/marketplace/internal/core/domain"
)

// Replay rebuilds state from journaled events. It must run on a fresh
// ledger before it serves calls; replayed events are not re-recorded.
//
// Events must be contiguous from seq 1 and every store and item ID must
// re-derive from the event's own name, index, creator and seq.
func (l *Ledger) Replay(events []domain.ChangeEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.height != 0 {
		return fmt.Errorf("replay: ledger already at height %d", l.height)
	}

	for _, ev := range events {
		if ev.Seq != l.height+1 {
			return fmt.Errorf("replay: %w: expected seq %d, got %d", domain.ErrJournalCorrupt, l.height+1, ev.Seq)
		}
		if err := verifyDerivedID(ev); err != nil {
			return fmt.Errorf("replay seq %d: %w", ev.Seq, err)
		}
		if err := l.apply(ev); err != nil {
			return fmt.Errorf("replay seq %d: %w", ev.Seq, err)
		}
		l.height = ev.Seq
	}

	l.log.Info().Uint64("height", l.height).Int("events", len(events)).Msg("ledger replayed")
	return nil
}

func verifyDerivedID(ev domain.ChangeEvent) error {
	var recorded domain.ID
	switch ev.Kind {
	case domain.EventAddedStore:
		recorded = ev.StoreID
	case domain.EventAddedItem:
		recorded = ev.ItemID
	default:
		return nil
	}
	if want := domain.DeriveID(ev.Name, ev.Index, ev.StoreOwner, ev.Seq); want != recorded {
		return fmt.Errorf("%w: id %s does not derive (want %s)", domain.ErrJournalCorrupt, recorded.Hex(), want.Hex())
	}
	return nil
}
