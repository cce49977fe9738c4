package ports

import (
	"context"

	"github.com/99minutos/marketplace/internal/core/domain"
)

// RegisterInput carries a registration together with the proof that the
// registrant controls Address: the challenge token issued for it and the
// 65-byte hex signature over the challenge message.
type RegisterInput struct {
	Username  string
	Password  string
	Email     string
	Address   string
	Challenge string
	Signature string
}

type AuthService interface {
	Challenge(ctx context.Context, address string) (*domain.AddressChallenge, error)
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}
