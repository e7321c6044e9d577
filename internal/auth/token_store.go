package auth

import (
	"context"
	"fmt"
	"time"

	"contentflow/internal/cache"
)

const refreshTokenKeyPrefix = "refresh_token:"

// TokenStoreInterface defines the interface for token storage operations.
type TokenStoreInterface interface {
	StoreRefreshToken(ctx context.Context, tokenID string, p Principal, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, tokenID string) (*Principal, error)
	DeleteRefreshToken(ctx context.Context, tokenID string) error
}

// TokenStore handles storage and retrieval of refresh tokens in Redis.
type TokenStore struct {
	cache *cache.Client
}

// Ensure TokenStore implements TokenStoreInterface
var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

// StoreRefreshToken stores the principal a refresh token was issued to.
func (s *TokenStore) StoreRefreshToken(ctx context.Context, tokenID string, p Principal, ttl time.Duration) error {
	if err := s.cache.SetJSON(ctx, refreshTokenKeyPrefix+tokenID, p, ttl); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken retrieves the principal stored for a refresh token.
func (s *TokenStore) GetRefreshToken(ctx context.Context, tokenID string) (*Principal, error) {
	var p Principal
	if !s.cache.GetJSON(ctx, refreshTokenKeyPrefix+tokenID, &p) || p.Subject == "" {
		return nil, fmt.Errorf("refresh token not found")
	}
	return &p, nil
}

// DeleteRefreshToken removes a refresh token from Redis.
func (s *TokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return s.cache.Delete(ctx, refreshTokenKeyPrefix+tokenID)
}
