package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/cfsync/internal/constants"
	"golang.org/x/oauth2"
)

// Claims are the JWT payload fields the session cares about.
type Claims struct {
	Expiry   int64    `json:"exp,omitempty"`
	IssuedAt int64    `json:"iat,omitempty"`
	Issuer   string   `json:"iss,omitempty"`
	UserName string   `json:"user_name,omitempty"`
	Email    string   `json:"email,omitempty"`
	ClientID string   `json:"client_id,omitempty"`
	Scope    []string `json:"scope,omitempty"`
}

// AccessToken is a decoded bearer token. Expiry is zero when the payload has
// no exp claim.
type AccessToken struct {
	token  *oauth2.Token
	claims Claims
}

// Raw returns the encoded JWT.
func (t *AccessToken) Raw() string {
	return t.token.AccessToken
}

// ExpiresAt returns the exp claim, or the zero time.
func (t *AccessToken) ExpiresAt() time.Time {
	return t.token.Expiry
}

// Claims returns the decoded payload.
func (t *AccessToken) Claims() Claims {
	return t.claims
}

// OAuth2 returns the token in the form the HTTP layer attaches to requests.
func (t *AccessToken) OAuth2() *oauth2.Token {
	return t.token
}

// Expired reports whether the exp claim is in the past at now. Tokens without
// an expiry never expire client-side; the platform decides.
func (t *AccessToken) Expired(now time.Time) bool {
	expiry := t.ExpiresAt()

	return !expiry.IsZero() && !now.Before(expiry)
}

// ExpiresWithin reports whether the token expires within d of now.
func (t *AccessToken) ExpiresWithin(now time.Time, d time.Duration) bool {
	expiry := t.ExpiresAt()

	return !expiry.IsZero() && expiry.Sub(now) < d
}

// TokenDecodeError reports a token that is not a well formed JWT.
type TokenDecodeError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *TokenDecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token decode failed: %s: %v", e.Reason, e.Err)
	}

	return "token decode failed: " + e.Reason
}

// Unwrap returns the underlying cause.
func (e *TokenDecodeError) Unwrap() error {
	return e.Err
}

// DecodeToken parses header.payload.signature, decoding the payload as
// base64url with or without padding. The signature is not verified.
func DecodeToken(raw string) (*AccessToken, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != constants.TokenPartsCount {
		return nil, &TokenDecodeError{
			Reason: fmt.Sprintf("expected %d segments, got %d", constants.TokenPartsCount, len(parts)),
			Err:    constants.ErrInvalidJWTFormat,
		}
	}

	payload := strings.TrimRight(parts[1], "=")
	if payload == "" {
		return nil, &TokenDecodeError{Reason: "empty payload", Err: constants.ErrInvalidJWTFormat}
	}

	if rem := len(payload) % constants.Base64PaddingLength; rem != 0 {
		payload += strings.Repeat("=", constants.Base64PaddingLength-rem)
	}

	data, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return nil, &TokenDecodeError{Reason: "payload is not base64url", Err: err}
	}

	var claims Claims

	err = json.Unmarshal(data, &claims)
	if err != nil {
		return nil, &TokenDecodeError{Reason: "payload is not JSON", Err: err}
	}

	token := &oauth2.Token{
		AccessToken: strings.Join(parts, "."),
		TokenType:   "bearer",
	}

	if claims.Expiry > 0 {
		token.Expiry = time.Unix(claims.Expiry, 0)
	}

	return &AccessToken{token: token, claims: claims}, nil
}

// TokenStore holds at most one token.
type TokenStore struct {
	mu    sync.RWMutex
	token *AccessToken
}

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the stored token or nil.
func (s *TokenStore) Get() *AccessToken {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Set replaces the stored token.
func (s *TokenStore) Set(token *AccessToken) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

// Clear drops the stored token.
func (s *TokenStore) Clear() {
	s.Set(nil)
}
