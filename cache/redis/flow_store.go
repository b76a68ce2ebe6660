// Package redis provides Redis-backed implementations of the consent-flow
// stores, for deployments where pending transactions and proxy codes must
// survive a process restart or be shared between replicas.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"go.pilab.hu/consentproxy/cache"
	"go.pilab.hu/consentproxy/domain"
)

// TransactionStore implements domain.TransactionRepository on Redis. Entry
// lifetime is enforced by Redis key expiry; Consume uses GETDEL so exactly
// one of any number of concurrent consumers wins.
type TransactionStore struct {
	client *redis.Client
	prefix string
}

// NewTransactionStore creates a Redis-backed transaction store.
func NewTransactionStore(client *redis.Client, prefix string) *TransactionStore {
	return &TransactionStore{client: client, prefix: prefix}
}

func (s *TransactionStore) key(id string) string {
	return fmt.Sprintf("%s:txn:%s", s.prefix, id)
}

// Save implements domain.TransactionRepository.Save.
func (s *TransactionStore) Save(ctx context.Context, txn *domain.Transaction, ttl time.Duration) error {
	data, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}
	if err := s.client.Set(ctx, s.key(txn.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store transaction in Redis: %w", err)
	}
	return nil
}

// Get implements domain.TransactionRepository.Get.
func (s *TransactionStore) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to read transaction from Redis: %w", err)
	}
	return unmarshalTransaction(data)
}

// Consume implements domain.TransactionRepository.Consume.
func (s *TransactionStore) Consume(ctx context.Context, id string) (*domain.Transaction, error) {
	data, err := s.client.GetDel(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to consume transaction from Redis: %w", err)
	}
	return unmarshalTransaction(data)
}

// Delete implements domain.TransactionRepository.Delete.
func (s *TransactionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete transaction from Redis: %w", err)
	}
	return nil
}

func unmarshalTransaction(data []byte) (*domain.Transaction, error) {
	var txn domain.Transaction
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	return &txn, nil
}

// ProxyCodeStore implements domain.ProxyCodeRepository on Redis. Codes are
// keyed by their hash, and Consume uses GETDEL for single-use redemption.
type ProxyCodeStore struct {
	client *redis.Client
	prefix string
}

// NewProxyCodeStore creates a Redis-backed proxy-code store.
func NewProxyCodeStore(client *redis.Client, prefix string) *ProxyCodeStore {
	return &ProxyCodeStore{client: client, prefix: prefix}
}

func (s *ProxyCodeStore) key(code string) string {
	return fmt.Sprintf("%s:code:%s", s.prefix, cache.HashKey(code))
}

// Save implements domain.ProxyCodeRepository.Save.
func (s *ProxyCodeStore) Save(ctx context.Context, code *domain.ProxyCode, ttl time.Duration) error {
	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to marshal proxy code: %w", err)
	}
	if err := s.client.Set(ctx, s.key(code.Code), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store proxy code in Redis: %w", err)
	}
	return nil
}

// Consume implements domain.ProxyCodeRepository.Consume.
func (s *ProxyCodeStore) Consume(ctx context.Context, code string) (*domain.ProxyCode, error) {
	data, err := s.client.GetDel(ctx, s.key(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrProxyCodeNotFound
		}
		return nil, fmt.Errorf("failed to consume proxy code from Redis: %w", err)
	}

	var pc domain.ProxyCode
	if err := json.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal proxy code: %w", err)
	}
	return &pc, nil
}
