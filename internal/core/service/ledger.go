package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
)

var errPayoutsNotConfigured = errors.New("payout gateway not configured")

type storeEntry struct {
	store *domain.Store
	items map[domain.ID]*domain.Item
}

// Ledger is the in-memory marketplace state machine. A single mutex
// serialises every mutation: preconditions, state change and change event
// happen in one critical section, so a failed call never leaves a trace.
type Ledger struct {
	mu sync.Mutex

	owner       domain.Principal
	admins      map[domain.Principal]struct{}
	storeOwners map[domain.Principal]struct{}

	stores       map[domain.Principal]map[domain.ID]*storeEntry
	storeIDs     map[domain.Principal][]domain.ID
	storeOwnerOf map[domain.ID]domain.Principal

	balances map[domain.Principal]*uint256.Int

	// height counts effective mutations; it is the seq of the last event.
	height uint64

	changes ports.ChangeLog
	payouts ports.PayoutGateway
	now     func() time.Time
	log     zerolog.Logger
}

var _ ports.Marketplace = (*Ledger)(nil)

// LedgerOption customises a Ledger at construction.
type LedgerOption func(*Ledger)

// WithChangeLog sets the sink every change event is recorded to.
func WithChangeLog(c ports.ChangeLog) LedgerOption {
	return func(l *Ledger) {
		if c != nil {
			l.changes = c
		}
	}
}

// WithPayoutGateway sets the gateway Withdraw transfers funds through.
func WithPayoutGateway(p ports.PayoutGateway) LedgerOption {
	return func(l *Ledger) {
		if p != nil {
			l.payouts = p
		}
	}
}

// WithClock overrides the time source used to stamp change events.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLedger returns an empty ledger whose owner is fixed for its lifetime.
func NewLedger(owner domain.Principal, log zerolog.Logger, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		owner:        owner,
		admins:       make(map[domain.Principal]struct{}),
		storeOwners:  make(map[domain.Principal]struct{}),
		stores:       make(map[domain.Principal]map[domain.ID]*storeEntry),
		storeIDs:     make(map[domain.Principal][]domain.ID),
		storeOwnerOf: make(map[domain.ID]domain.Principal),
		balances:     make(map[domain.Principal]*uint256.Int),
		changes:      noopChangeLog{},
		payouts:      unconfiguredPayouts{},
		now:          func() time.Time { return time.Now().UTC() },
		log:          log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Height returns the seq of the last applied change event.
func (l *Ledger) Height() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}

// emit stamps ev with the next height and hands it to the change log.
// Callers hold l.mu and have already applied ev.
func (l *Ledger) emit(ev domain.ChangeEvent) {
	l.height++
	ev.Seq = l.height
	ev.OccurredAt = l.now()
	l.changes.Record(ev)

	l.log.Debug().
		Uint64("seq", ev.Seq).
		Str("kind", string(ev.Kind)).
		Msg("ledger change recorded")
}

// commit applies ev to the state and emits it. The live path only builds
// events whose preconditions it has verified, so an apply error here is a
// bug rather than a user error.
func (l *Ledger) commit(ev domain.ChangeEvent) error {
	ev.Seq = l.height + 1
	if err := l.apply(ev); err != nil {
		l.log.Error().Err(err).Str("kind", string(ev.Kind)).Msg("apply verified change failed")
		return err
	}
	l.emit(ev)
	return nil
}

type noopChangeLog struct{}

func (noopChangeLog) Record(domain.ChangeEvent) {}

type unconfiguredPayouts struct{}

func (unconfiguredPayouts) Transfer(context.Context, domain.Principal, *uint256.Int) error {
	return errPayoutsNotConfigured
}
