package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/consentproxy/domain"
)

func newTestTransaction(id string) *domain.Transaction {
	now := time.Now().UTC()
	return &domain.Transaction{
		ID:          id,
		ClientID:    "client-1",
		RedirectURI: "https://client.example/cb",
		ClientState: "state-1",
		Scopes:      []string{"openid"},
		CreatedAt:   now,
		ExpiresAt:   now.Add(10 * time.Minute),
	}
}

func TestTransactionStore_SaveAndGet(t *testing.T) {
	store := NewTransactionStore(time.Minute)
	defer store.Stop()
	ctx := context.Background()

	txn := newTestTransaction("txn-1")
	require.NoError(t, store.Save(ctx, txn, time.Minute))

	got, err := store.Get(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, "client-1", got.ClientID)

	_, err = store.Get(ctx, "no-such-txn")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestTransactionStore_ConsumeIsExactlyOnce(t *testing.T) {
	store := NewTransactionStore(time.Minute)
	defer store.Stop()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newTestTransaction("txn-1"), time.Minute))

	got, err := store.Consume(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, "txn-1", got.ID)

	_, err = store.Consume(ctx, "txn-1")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	// A later Get must report absence too, never stale data.
	_, err = store.Get(ctx, "txn-1")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestTransactionStore_ConcurrentConsumeSingleWinner(t *testing.T) {
	store := NewTransactionStore(time.Minute)
	defer store.Stop()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newTestTransaction("txn-race"), time.Minute))

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Consume(ctx, "txn-race"); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	assert.Len(t, wins, 1, "exactly one concurrent consume may succeed")
}

func TestTransactionStore_EntriesExpire(t *testing.T) {
	store := NewTransactionStore(time.Minute)
	defer store.Stop()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newTestTransaction("txn-ttl"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := store.Get(ctx, "txn-ttl")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	_, err = store.Consume(ctx, "txn-ttl")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}
