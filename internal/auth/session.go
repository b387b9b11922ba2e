// Package auth keeps the single bearer token shared by every remote call.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
	"golang.org/x/sync/singleflight"
)

// TokenSource mints a raw JWT. cli.Session.OAuthToken satisfies it.
type TokenSource interface {
	OAuthToken(ctx context.Context) (string, error)
}

// LogoutSource ends the underlying login. Optional for token sources.
type LogoutSource interface {
	Logout(ctx context.Context) error
}

// Session caches one access token and mints a new one on demand after it was
// invalidated. It is safe for concurrent use.
type Session struct {
	source TokenSource
	logger capi.Logger
	store  *TokenStore
	group  singleflight.Group
}

// NewSession creates a session over source.
func NewSession(source TokenSource, logger capi.Logger) *Session {
	return &Session{
		source: source,
		logger: logger,
		store:  NewTokenStore(),
	}
}

// GetToken returns the cached token, fetching one first when the cache is
// empty. Concurrent cold callers share a single fetch.
//
// Errors wrap ErrInvalidRefreshToken when the login cannot mint tokens anymore
// and ErrTokenUnavailable otherwise. A malformed token additionally wraps a
// *TokenDecodeError and is not cached.
func (s *Session) GetToken(ctx context.Context) (*AccessToken, error) {
	if token := s.store.Get(); token != nil {
		return token, nil
	}

	result, err, _ := s.group.Do("token", func() (interface{}, error) {
		if token := s.store.Get(); token != nil {
			return token, nil
		}

		return s.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}

	token, _ := result.(*AccessToken)

	return token, nil
}

func (s *Session) fetch(ctx context.Context) (*AccessToken, error) {
	raw, err := s.source.OAuthToken(ctx)
	if err != nil {
		if errors.Is(err, constants.ErrInvalidRefreshToken) {
			s.logger.Error("refresh token rejected", map[string]interface{}{
				"error": err.Error(),
			})

			return nil, err
		}

		s.logger.Debug("no token available", map[string]interface{}{
			"error": err.Error(),
		})

		return nil, fmt.Errorf("%w: %w", constants.ErrTokenUnavailable, err)
	}

	token, err := DecodeToken(raw)
	if err != nil {
		s.logger.Error("failed to decode access token", map[string]interface{}{
			"error": err.Error(),
		})

		return nil, fmt.Errorf("%w: %w", constants.ErrTokenUnavailable, err)
	}

	s.store.Set(token)

	s.logger.Debug("access token acquired", map[string]interface{}{
		"expires_at": token.ExpiresAt(),
	})

	return token, nil
}

// Token returns the cached token without fetching.
func (s *Session) Token() *AccessToken {
	return s.store.Get()
}

// InvalidateToken drops the cached token so the next GetToken fetches anew.
func (s *Session) InvalidateToken() {
	s.store.Clear()
	s.logger.Debug("access token invalidated", nil)
}

// Logout drops the cached token and ends the login when the source supports it.
func (s *Session) Logout(ctx context.Context) error {
	s.store.Clear()

	if source, ok := s.source.(LogoutSource); ok {
		err := source.Logout(ctx)
		if err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
	}

	return nil
}
