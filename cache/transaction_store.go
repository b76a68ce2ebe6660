// Package cache provides the in-process, TTL-bounded store implementations
// used by the consent flow. All stores are safe for concurrent handlers; the
// consume operations are atomic so a double-submitted consent form or a
// replayed redemption cannot both succeed.
package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/consentproxy/domain"
)

// TransactionStore implements domain.TransactionRepository using ttlcache.
type TransactionStore struct {
	cache *ttlcache.Cache[string, *domain.Transaction]
}

// NewTransactionStore creates an in-memory transaction store. Entries expire
// automatically after the TTL handed to Save, with defaultTTL as fallback.
func NewTransactionStore(defaultTTL time.Duration) *TransactionStore {
	c := ttlcache.New(
		ttlcache.WithTTL[string, *domain.Transaction](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, *domain.Transaction](),
	)

	// Start the expiry loop
	go c.Start()

	return &TransactionStore{cache: c}
}

// Save implements domain.TransactionRepository.Save.
func (s *TransactionStore) Save(_ context.Context, txn *domain.Transaction, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	s.cache.Set(txn.ID, txn, ttl)
	return nil
}

// Get implements domain.TransactionRepository.Get.
func (s *TransactionStore) Get(_ context.Context, id string) (*domain.Transaction, error) {
	item := s.cache.Get(id)
	if item == nil {
		return nil, domain.ErrTransactionNotFound
	}
	return item.Value(), nil
}

// Consume implements domain.TransactionRepository.Consume. ttlcache's
// GetAndDelete runs under the cache lock, which gives the exactly-once
// guarantee across concurrent submissions.
func (s *TransactionStore) Consume(_ context.Context, id string) (*domain.Transaction, error) {
	item, present := s.cache.GetAndDelete(id)
	if !present || item == nil || item.IsExpired() {
		return nil, domain.ErrTransactionNotFound
	}
	return item.Value(), nil
}

// Delete implements domain.TransactionRepository.Delete.
func (s *TransactionStore) Delete(_ context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

// Len returns the number of pending transactions, for metrics.
func (s *TransactionStore) Len() int {
	return s.cache.Len()
}

// Stop terminates the background expiry loop.
func (s *TransactionStore) Stop() {
	s.cache.Stop()
}
