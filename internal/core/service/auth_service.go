package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
)

const (
	challengeTTL      = 10 * time.Minute
	challengeAudience = "marketplace:register"
)

// AuthService implements registration and login. Tokens carry the user's
// address, which the API uses as the caller of every ledger operation, so
// an address is only bound to an account once its holder has signed a
// challenge for it.
type AuthService struct {
	repo      ports.AuthRepository
	jwtSecret string
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewAuthService(repo ports.AuthRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{repo: repo, jwtSecret: jwtSecret, tokenTTL: tokenTTL, now: time.Now}
}

// Challenge issues a signed, expiring statement for address. Its token is
// keyed apart from session tokens, so it never authenticates a request.
func (s *AuthService) Challenge(_ context.Context, address string) (*domain.AddressChallenge, error) {
	addr, err := domain.ParsePrincipal(address)
	if err != nil || addr == domain.ZeroPrincipal {
		return nil, domain.ErrInvalidCredentials
	}

	nonce := uuid.NewString()
	expires := s.now().Add(challengeTTL).UTC().Truncate(time.Second)
	claims := jwt.MapClaims{
		"sub":   addr.Hex(),
		"aud":   challengeAudience,
		"nonce": nonce,
		"exp":   expires.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.challengeKey())
	if err != nil {
		return nil, err
	}

	return &domain.AddressChallenge{
		Address:   addr,
		Message:   challengeMessage(addr, nonce, expires),
		Token:     token,
		ExpiresAt: expires,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	if in.Username == "" || in.Password == "" || in.Email == "" {
		return nil, domain.ErrInvalidCredentials
	}
	addr, err := domain.ParsePrincipal(in.Address)
	if err != nil || addr == domain.ZeroPrincipal {
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.verifyAddressProof(addr, in.Challenge, in.Signature); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Address:      addr,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"username": user.Username,
		"address":  user.Address.Hex(),
		"exp":      s.now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

// verifyAddressProof checks that challenge was issued by this service for
// addr and is unexpired, and that signature is addr's EIP-191 signature
// over the challenge message.
func (s *AuthService) verifyAddressProof(addr domain.Principal, challenge, signature string) error {
	if challenge == "" || signature == "" {
		return fmt.Errorf("%w: challenge and signature are required", domain.ErrAddressNotProven)
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(challenge, claims,
		func(*jwt.Token) (interface{}, error) { return s.challengeKey(), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(challengeAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: challenge: %v", domain.ErrAddressNotProven, err)
	}

	sub, _ := claims.GetSubject()
	challenged, err := domain.ParsePrincipal(sub)
	if err != nil || challenged != addr {
		return fmt.Errorf("%w: challenge was issued for another address", domain.ErrAddressNotProven)
	}
	nonce, _ := claims["nonce"].(string)
	exp, err := claims.GetExpirationTime()
	if nonce == "" || err != nil || exp == nil {
		return fmt.Errorf("%w: malformed challenge", domain.ErrAddressNotProven)
	}

	signer, err := recoverSigner(challengeMessage(addr, nonce, exp.Time.UTC()), signature)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAddressNotProven, err)
	}
	if signer != addr {
		return fmt.Errorf("%w: signature is not from %s", domain.ErrAddressNotProven, addr.Hex())
	}
	return nil
}

func (s *AuthService) challengeKey() []byte {
	return []byte("challenge:" + s.jwtSecret)
}

func challengeMessage(addr domain.Principal, nonce string, expires time.Time) string {
	return fmt.Sprintf("Marketplace account registration\nAddress: %s\nNonce: %s\nExpires: %s",
		addr.Hex(), nonce, expires.UTC().Format(time.RFC3339))
}

// recoverSigner returns the address whose key produced the personal-message
// signature sigHex over message. Both 0/1 and 27/28 recovery ids are accepted.
func recoverSigner(message, sigHex string) (domain.Principal, error) {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("decode signature: %v", err)
	}
	if len(sig) != crypto.SignatureLength {
		return domain.Principal{}, fmt.Errorf("signature must be %d bytes", crypto.SignatureLength)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("recover public key: %v", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
