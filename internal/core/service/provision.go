package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
)

// Seed lists the roles to establish at bring-up.
type Seed struct {
	Admins      []domain.Principal
	StoreOwners []domain.Principal
	// Provisioner is the admin that appoints StoreOwners. Defaults to the
	// first seeded admin.
	Provisioner domain.Principal
}

var errNoProvisioner = errors.New("provision: store owners seeded without an admin to appoint them")

// Provision appoints the seeded admins as the owner and the seeded store
// owners as the provisioner, through the regular operations. Running it
// again against the same ledger changes nothing.
func Provision(ctx context.Context, m ports.Marketplace, seed Seed, log zerolog.Logger) error {
	for _, admin := range seed.Admins {
		if err := m.AddAdmin(ctx, m.Owner(), admin); err != nil {
			return fmt.Errorf("provision admin %s: %w", admin.Hex(), err)
		}
	}

	if len(seed.StoreOwners) == 0 {
		return nil
	}

	provisioner := seed.Provisioner
	if provisioner == domain.ZeroPrincipal {
		if len(seed.Admins) == 0 {
			return errNoProvisioner
		}
		provisioner = seed.Admins[0]
	}

	for _, so := range seed.StoreOwners {
		if err := m.AddStoreOwner(ctx, provisioner, so); err != nil {
			return fmt.Errorf("provision store owner %s: %w", so.Hex(), err)
		}
	}

	log.Info().
		Int("admins", len(seed.Admins)).
		Int("store_owners", len(seed.StoreOwners)).
		Str("provisioner", provisioner.Hex()).
		Msg("roles provisioned")
	return nil
}
