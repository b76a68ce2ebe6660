package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/consentproxy/domain"
)

// AccessTokenStore implements domain.AccessTokenRepository using ttlcache.
// Tokens are keyed by their hash, never by the raw value.
type AccessTokenStore struct {
	cache *ttlcache.Cache[string, *domain.AccessToken]
}

// NewAccessTokenStore creates an in-memory access-token store.
func NewAccessTokenStore(defaultTTL time.Duration) *AccessTokenStore {
	c := ttlcache.New(
		ttlcache.WithTTL[string, *domain.AccessToken](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, *domain.AccessToken](),
	)

	go c.Start()

	return &AccessTokenStore{cache: c}
}

// Save implements domain.AccessTokenRepository.Save.
func (s *AccessTokenStore) Save(_ context.Context, token *domain.AccessToken, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Until(token.ExpiresAt)
	}
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	s.cache.Set(HashKey(token.Token), token, ttl)
	return nil
}

// Get implements domain.AccessTokenRepository.Get.
func (s *AccessTokenStore) Get(_ context.Context, tokenValue string) (*domain.AccessToken, error) {
	item := s.cache.Get(HashKey(tokenValue))
	if item == nil {
		return nil, domain.ErrAccessTokenNotFound
	}
	return item.Value(), nil
}

// Delete implements domain.AccessTokenRepository.Delete.
func (s *AccessTokenStore) Delete(_ context.Context, tokenValue string) error {
	s.cache.Delete(HashKey(tokenValue))
	return nil
}

// Stop terminates the background expiry loop.
func (s *AccessTokenStore) Stop() {
	s.cache.Stop()
}
