package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/consentproxy/cache"
	"go.pilab.hu/consentproxy/domain"
	applog "go.pilab.hu/consentproxy/log"
)

func testLogger() applog.Logger {
	return applog.NewZerologAdapter(zerolog.Disabled, false)
}

// makeIDToken builds an unsigned identity token carrying the given claims,
// matching what the extractor decodes without verification.
func makeIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return signed
}

// MockExchanger is a testify mock for UpstreamExchanger.
type MockExchanger struct {
	mock.Mock
}

func (m *MockExchanger) Exchange(ctx context.Context, code, redirectURI, codeVerifier string) (*domain.UpstreamTokens, error) {
	args := m.Called(ctx, code, redirectURI, codeVerifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UpstreamTokens), args.Error(1)
}

// stagedTransaction returns a transaction that already passed the callback,
// carrying upstream tokens and claims for the given subject.
func stagedTransaction(id, subject, email string) *domain.Transaction {
	now := time.Now().UTC()
	return &domain.Transaction{
		ID:          id,
		ClientID:    "client-1",
		RedirectURI: "https://client.example/cb",
		ClientState: "client-state-xyz",
		Scopes:      []string{"openid", "email"},
		CreatedAt:   now,
		ExpiresAt:   now.Add(10 * time.Minute),
		Upstream: &domain.UpstreamResult{
			Tokens: domain.UpstreamTokens{
				AccessToken: "upstream-access",
				TokenType:   "Bearer",
				Expiry:      now.Add(time.Hour),
			},
			Claims: map[string]any{
				"sub":   subject,
				"email": email,
			},
			StagedAt: now,
		},
	}
}

func newFlowStores(t *testing.T) (*cache.TransactionStore, *cache.ProxyCodeStore) {
	t.Helper()
	transactions := cache.NewTransactionStore(time.Minute)
	codes := cache.NewProxyCodeStore(5 * time.Minute)
	t.Cleanup(func() {
		transactions.Stop()
		codes.Stop()
	})
	return transactions, codes
}
