package domain

import "time"

// User is an account of the identity layer. Address is the principal every
// ledger call made with this user's token is attributed to.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Address      Principal `json:"address"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AddressChallenge is a short-lived statement the holder of Address signs
// (EIP-191 personal message) before an account may be bound to it. Token
// is handed back unchanged on registration.
type AddressChallenge struct {
	Address   Principal `json:"address"`
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
