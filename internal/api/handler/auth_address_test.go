package handler

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/labstack/echo/v4"

	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/service"
)

// memUsers enforces the same uniqueness as the users collection: one
// account per email and per address.
type memUsers struct {
	mu    sync.Mutex
	users []*domain.User
}

func (r *memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email || existing.Address == u.Address {
			return nil, domain.ErrUserExists
		}
	}
	stored := *u
	r.users = append(r.users, &stored)
	return &stored, nil
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUsers) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func personalSign(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return hexutil.Encode(sig)
}

func postJSON(t *testing.T, h echo.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(string(raw)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h(echo.New().NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func requestChallenge(t *testing.T, h *AuthHandler, address string) domain.AddressChallenge {
	t.Helper()
	rec := postJSON(t, h.Challenge, "/auth/challenge", map[string]string{"address": address})
	if rec.Code != http.StatusOK {
		t.Fatalf("challenge: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var ch domain.AddressChallenge
	if err := json.Unmarshal(rec.Body.Bytes(), &ch); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return ch
}

func newAddressAuthHandler() (*AuthHandler, *memUsers) {
	repo := &memUsers{}
	return NewAuthHandler(service.NewAuthService(repo, "secret", time.Hour)), repo
}

func TestAuthHandler_Challenge_MalformedAddress(t *testing.T) {
	h, _ := newAddressAuthHandler()

	for _, addr := range []string{"bob", "0x1234", "0x0000000000000000000000000000000000000000"} {
		rec := postJSON(t, h.Challenge, "/auth/challenge", map[string]string{"address": addr})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("address %q: expected 400, got %d", addr, rec.Code)
		}
	}
}

func TestAuthHandler_Register_SignedChallenge(t *testing.T) {
	h, repo := newAddressAuthHandler()
	key := newKey(t)
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()

	ch := requestChallenge(t, h, addr)
	rec := postJSON(t, h.Register, "/auth/register", map[string]string{
		"username": "alice", "password": "pw", "email": "alice@example.com",
		"address": addr, "challenge": ch.Token, "signature": personalSign(t, key, ch.Message),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.count() != 1 {
		t.Fatalf("expected one account, got %d", repo.count())
	}
}

func TestAuthHandler_Register_AddressWithoutProof(t *testing.T) {
	h, repo := newAddressAuthHandler()
	owner := newKey(t)
	ownerAddr := crypto.PubkeyToAddress(owner.PublicKey).Hex()
	mallory := newKey(t)

	ch := requestChallenge(t, h, ownerAddr)
	attempts := map[string]map[string]string{
		"unsigned": {
			"username": "mallory", "password": "pw", "email": "m@example.com",
			"address": ownerAddr,
		},
		"signed by another key": {
			"username": "mallory", "password": "pw", "email": "m@example.com",
			"address": ownerAddr, "challenge": ch.Token, "signature": personalSign(t, mallory, ch.Message),
		},
	}
	for name, body := range attempts {
		rec := postJSON(t, h.Register, "/auth/register", body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
	if repo.count() != 0 {
		t.Fatalf("no account may be bound to an unproven address")
	}
}

func TestAuthHandler_Register_MalformedAddress(t *testing.T) {
	h, _ := newAddressAuthHandler()

	rec := postJSON(t, h.Register, "/auth/register", map[string]string{
		"username": "bob", "password": "pw", "email": "bob@example.com",
		"address": "0xnothex", "challenge": "x", "signature": "0x00",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthHandler_Register_AddressAlreadyBound(t *testing.T) {
	h, _ := newAddressAuthHandler()
	key := newKey(t)
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()

	for i, email := range []string{"first@example.com", "second@example.com"} {
		ch := requestChallenge(t, h, addr)
		rec := postJSON(t, h.Register, "/auth/register", map[string]string{
			"username": "u", "password": "pw", "email": email,
			"address": addr, "challenge": ch.Token, "signature": personalSign(t, key, ch.Message),
		})
		want := http.StatusCreated
		if i == 1 {
			want = http.StatusConflict
		}
		if rec.Code != want {
			t.Fatalf("registration %d: expected %d, got %d", i+1, want, rec.Code)
		}
	}
}
