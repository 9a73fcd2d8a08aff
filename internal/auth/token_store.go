package auth

import (
	"context"
	"time"

	"gocms/internal/cache"
)

const denylistKeyPrefix = "denylist:refresh_token:"

// TokenStoreInterface is the refresh-token denylist. Rotation stays
// stateless (a rotated refresh token remains valid until its own expiry);
// only logout writes here.
type TokenStoreInterface interface {
	DenyRefreshToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRefreshTokenDenied(ctx context.Context, tokenID string) (bool, error)
}

// TokenStore keeps denylisted refresh token IDs in Redis until they would
// have expired anyway.
type TokenStore struct {
	cache *cache.Client
}

var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

// DenyRefreshToken marks a refresh token ID as unusable for its remaining lifetime.
func (s *TokenStore) DenyRefreshToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, denylistKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsRefreshTokenDenied checks whether a refresh token ID has been denylisted.
func (s *TokenStore) IsRefreshTokenDenied(ctx context.Context, tokenID string) (bool, error) {
	data, err := s.cache.Get(ctx, denylistKeyPrefix+tokenID)
	if err != nil {
		return false, nil
	}
	return data != nil, nil
}
