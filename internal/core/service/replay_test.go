package service

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
)

func buildHistory(t *testing.T) (*Ledger, []domain.ChangeEvent, domain.ID, domain.ID) {
	t.Helper()
	l, rec := newSellerLedger(t, WithPayoutGateway(&stubPayouts{}))
	ctx := context.Background()

	storeID, itemID := addStoreWithItem(t, l, 20, 1)
	require.NoError(t, l.Restock(ctx, sellerP, storeID, itemID, 4))
	require.NoError(t, l.ChangePrice(ctx, sellerP, storeID, itemID, uint256.NewInt(30)))
	in := ports.PurchaseInput{StoreOwner: sellerP, StoreID: storeID, ItemID: itemID, Payment: uint256.NewInt(30)}
	require.NoError(t, l.Purchase(ctx, customerP, in))
	require.NoError(t, l.Purchase(ctx, customerP, in))
	_, err := l.Withdraw(ctx, sellerP)
	require.NoError(t, err)
	require.NoError(t, l.Purchase(ctx, customerP, in))

	second, err := l.AddStore(ctx, sellerP, "Annex", "")
	require.NoError(t, err)
	require.NoError(t, l.RemoveStore(ctx, sellerP, second))
	require.NoError(t, l.RemoveStoreOwner(ctx, adminP, rivalP))

	return l, rec.all(), storeID, itemID
}

func TestReplay_RebuildsState(t *testing.T) {
	live, events, storeID, itemID := buildHistory(t)
	ctx := context.Background()

	rebuilt := NewLedger(ownerP, zerolog.Nop())
	require.NoError(t, rebuilt.Replay(events))

	require.Equal(t, live.Height(), rebuilt.Height())
	require.Equal(t, live.GetStoreIDList(ctx, sellerP), rebuilt.GetStoreIDList(ctx, sellerP))
	require.Equal(t, live.GetBalance(ctx, sellerP), rebuilt.GetBalance(ctx, sellerP))
	require.Equal(t, uint64(30), rebuilt.GetBalance(ctx, sellerP).Uint64())

	for _, p := range []domain.Principal{ownerP, adminP, sellerP, rivalP, customerP} {
		require.Equal(t, live.RolesOf(p), rebuilt.RolesOf(p), p.Hex())
	}

	for _, id := range live.GetStoreIDList(ctx, sellerP) {
		want, err := live.GetStore(ctx, sellerP, id)
		require.NoError(t, err)
		got, err := rebuilt.GetStore(ctx, sellerP, id)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	want, err := live.GetItem(ctx, sellerP, storeID, itemID)
	require.NoError(t, err)
	got, err := rebuilt.GetItem(ctx, sellerP, storeID, itemID)
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, uint64(2), got.Stock)

	// The next creation on the rebuilt ledger derives exactly as it would
	// have on the live one.
	liveID, err := live.AddStore(ctx, sellerP, "Next", "")
	require.NoError(t, err)
	rebuiltID, err := rebuilt.AddStore(ctx, sellerP, "Next", "")
	require.NoError(t, err)
	require.Equal(t, liveID, rebuiltID)
}

func TestReplay_DoesNotRecord(t *testing.T) {
	_, events, _, _ := buildHistory(t)

	rec := &recorder{}
	rebuilt := NewLedger(ownerP, zerolog.Nop(), WithChangeLog(rec))
	require.NoError(t, rebuilt.Replay(events))
	require.Zero(t, rec.count())
}

func TestReplay_RejectsCorruptJournal(t *testing.T) {
	_, events, _, _ := buildHistory(t)

	tests := []struct {
		name   string
		mutate func([]domain.ChangeEvent) []domain.ChangeEvent
	}{
		{
			name: "gap in seq",
			mutate: func(evs []domain.ChangeEvent) []domain.ChangeEvent {
				return append(evs[:2:2], evs[3:]...)
			},
		},
		{
			name: "store id does not derive",
			mutate: func(evs []domain.ChangeEvent) []domain.ChangeEvent {
				for i := range evs {
					if evs[i].Kind == domain.EventAddedStore {
						evs[i].StoreID = common.Hash{0xde, 0xad}
						break
					}
				}
				return evs
			},
		},
		{
			name: "item renamed",
			mutate: func(evs []domain.ChangeEvent) []domain.ChangeEvent {
				for i := range evs {
					if evs[i].Kind == domain.EventAddedItem {
						evs[i].Name = "Gadget"
						break
					}
				}
				return evs
			},
		},
		{
			name: "withdrawal exceeds balance",
			mutate: func(evs []domain.ChangeEvent) []domain.ChangeEvent {
				for i := range evs {
					if evs[i].Kind == domain.EventWithdrawal {
						evs[i].Amount = uint256.NewInt(1_000_000)
						break
					}
				}
				return evs
			},
		},
		{
			name: "unknown kind",
			mutate: func(evs []domain.ChangeEvent) []domain.ChangeEvent {
				evs[0].Kind = "Bogus"
				return evs
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evs := tt.mutate(append([]domain.ChangeEvent(nil), events...))
			l := NewLedger(ownerP, zerolog.Nop())
			require.ErrorIs(t, l.Replay(evs), domain.ErrJournalCorrupt)
		})
	}
}

func TestReplay_RequiresFreshLedger(t *testing.T) {
	_, events, _, _ := buildHistory(t)
	l, _ := newTestLedger(t)
	require.NoError(t, l.AddAdmin(context.Background(), ownerP, adminP))
	require.Error(t, l.Replay(events))
}

func TestProvision(t *testing.T) {
	l, rec := newTestLedger(t)
	ctx := context.Background()
	seed := Seed{
		Admins:      []domain.Principal{adminP},
		StoreOwners: []domain.Principal{sellerP, rivalP},
	}

	require.NoError(t, Provision(ctx, l, seed, zerolog.Nop()))
	require.True(t, l.IsAdmin(adminP))
	require.True(t, l.IsStoreOwner(sellerP))
	require.True(t, l.IsStoreOwner(rivalP))
	require.Equal(t, 3, rec.count())

	require.NoError(t, Provision(ctx, l, seed, zerolog.Nop()))
	require.Equal(t, 3, rec.count())
}

func TestProvision_NeedsAnAdmin(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	err := Provision(ctx, l, Seed{StoreOwners: []domain.Principal{sellerP}}, zerolog.Nop())
	require.ErrorIs(t, err, errNoProvisioner)

	// A provisioner that is not an admin is refused by the ledger itself.
	err = Provision(ctx, l, Seed{StoreOwners: []domain.Principal{sellerP}, Provisioner: customerP}, zerolog.Nop())
	require.ErrorIs(t, err, domain.ErrCallerNotAdmin)
	require.False(t, l.IsStoreOwner(sellerP))
}
