package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTransactionNotFound is returned for absent, expired and already
	// consumed transactions alike, so callers cannot distinguish the cases.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrProxyCodeNotFound is returned for absent, expired and already
	// redeemed proxy codes alike.
	ErrProxyCodeNotFound = errors.New("proxy code not found")

	// ErrPreferenceNotFound is returned when a subject has never submitted
	// a consent form.
	ErrPreferenceNotFound = errors.New("preference record not found")

	// ErrAccessTokenNotFound is returned for unknown or expired downstream
	// access tokens.
	ErrAccessTokenNotFound = errors.New("access token not found")
)

// TransactionRepository stores pending consent transactions. Implementations
// must bound entry lifetime by the TTL handed to Save and must make Consume
// atomic: of any number of concurrent Consume calls for the same id, exactly
// one receives the transaction, the rest receive ErrTransactionNotFound.
type TransactionRepository interface {
	// Save upserts a transaction under its ID with the given lifetime.
	Save(ctx context.Context, txn *Transaction, ttl time.Duration) error
	// Get returns the transaction or ErrTransactionNotFound.
	Get(ctx context.Context, id string) (*Transaction, error)
	// Consume atomically removes and returns the transaction, or returns
	// ErrTransactionNotFound if it is absent, expired or already consumed.
	Consume(ctx context.Context, id string) (*Transaction, error)
	// Delete removes the transaction if present. Deleting an absent
	// transaction is not an error.
	Delete(ctx context.Context, id string) error
}

// ProxyCodeRepository stores minted single-use authorization codes. The same
// atomicity requirement as TransactionRepository.Consume applies: one
// redemption per code, ever.
type ProxyCodeRepository interface {
	Save(ctx context.Context, code *ProxyCode, ttl time.Duration) error
	// Consume atomically removes and returns the code, or returns
	// ErrProxyCodeNotFound.
	Consume(ctx context.Context, code string) (*ProxyCode, error)
}

// PreferenceRepository stores the durable per-subject capability selection.
type PreferenceRepository interface {
	// Replace overwrites the record for record.Subject wholesale,
	// creating it if absent.
	Replace(ctx context.Context, record *PreferenceRecord) error
	// Get returns the record or ErrPreferenceNotFound.
	Get(ctx context.Context, subject string) (*PreferenceRecord, error)
}

// AccessTokenRepository stores downstream access tokens issued at proxy-code
// redemption, so capability requests can be resolved back to claims.
type AccessTokenRepository interface {
	Save(ctx context.Context, token *AccessToken, ttl time.Duration) error
	// Get returns the token entry or ErrAccessTokenNotFound.
	Get(ctx context.Context, tokenValue string) (*AccessToken, error)
	// Delete removes the token if present.
	Delete(ctx context.Context, tokenValue string) error
}
