package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/consentproxy/domain"
)

// ProxyCodeStore implements domain.ProxyCodeRepository using ttlcache. Codes
// are keyed by their hash so the raw credential never appears as a map key.
type ProxyCodeStore struct {
	cache *ttlcache.Cache[string, *domain.ProxyCode]
}

// NewProxyCodeStore creates an in-memory proxy-code store.
func NewProxyCodeStore(defaultTTL time.Duration) *ProxyCodeStore {
	c := ttlcache.New(
		ttlcache.WithTTL[string, *domain.ProxyCode](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, *domain.ProxyCode](),
	)

	go c.Start()

	return &ProxyCodeStore{cache: c}
}

// Save implements domain.ProxyCodeRepository.Save.
func (s *ProxyCodeStore) Save(_ context.Context, code *domain.ProxyCode, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	s.cache.Set(HashKey(code.Code), code, ttl)
	return nil
}

// Consume implements domain.ProxyCodeRepository.Consume. A second call for
// the same code always reports absence.
func (s *ProxyCodeStore) Consume(_ context.Context, code string) (*domain.ProxyCode, error) {
	item, present := s.cache.GetAndDelete(HashKey(code))
	if !present || item == nil || item.IsExpired() {
		return nil, domain.ErrProxyCodeNotFound
	}
	return item.Value(), nil
}

// Len returns the number of outstanding codes, for metrics.
func (s *ProxyCodeStore) Len() int {
	return s.cache.Len()
}

// Stop terminates the background expiry loop.
func (s *ProxyCodeStore) Stop() {
	s.cache.Stop()
}
