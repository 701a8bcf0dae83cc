package teatime

import (
	"sync"
	"time"

	"github.com/teatime-io/teatime/internal/constants"
)

// TokenKind tags a session token with the header semantics it requires.
// Structurally every token is an opaque string; vendors differ only in how the
// string is presented, so the kind travels with the value.
type TokenKind string

const (
	// TokenKindBearer is an OAuth-style token sent as "Authorization: Bearer".
	TokenKindBearer TokenKind = "bearer"
	// TokenKindPrivate is a personal access token sent in a vendor header.
	TokenKindPrivate TokenKind = "private"
	// TokenKindVault is a Vault client token sent as "X-Vault-Token".
	TokenKindVault TokenKind = "vault"
)

// Token is a session token produced by a login flow. A zero ExpiresAt means
// the token does not expire.
type Token struct {
	Value     string
	Kind      TokenKind
	ExpiresAt time.Time
}

// Valid reports whether the token exists and is not within the expiry buffer.
func (t *Token) Valid() bool {
	if t == nil || t.Value == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	// Tokens about to expire count as invalid so a request started now does
	// not race the expiry.
	return time.Now().Add(constants.TokenExpirationBuffer).Before(t.ExpiresAt)
}

// TokenStore holds the current session token for a client. It is safe for
// concurrent use; Login writes it and every authenticated request reads it.
type TokenStore struct {
	mu    sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Set stores a token, replacing any previous one.
func (s *TokenStore) Set(token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Get returns the stored token, or nil if none is set.
func (s *TokenStore) Get() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Clear removes the stored token.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
}
