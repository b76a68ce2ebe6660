package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/consentproxy/domain"
	serrors "go.pilab.hu/consentproxy/errors"
)

const testCallbackURI = "https://proxy.example/oauth2/idp/callback"

func newCallbackService(transactions domain.TransactionRepository, exchanger UpstreamExchanger) *CallbackService {
	return NewCallbackService(
		transactions, exchanger, NewClaimsExtractor(),
		testCallbackURI, "/consent", 10*time.Minute, testLogger())
}

func pendingTransaction(id string) *domain.Transaction {
	now := time.Now().UTC()
	return &domain.Transaction{
		ID:          id,
		ClientID:    "client-1",
		RedirectURI: "https://client.example/cb",
		ClientState: "client-state-xyz",
		Scopes:      []string{"openid"},
		CreatedAt:   now,
		ExpiresAt:   now.Add(10 * time.Minute),
	}
}

func TestCallback_UpstreamError(t *testing.T) {
	transactions, _ := newFlowStores(t)
	exchanger := new(MockExchanger)
	svc := newCallbackService(transactions, exchanger)

	_, err := svc.HandleCallback(context.Background(), CallbackParams{
		Error:            "access_denied",
		ErrorDescription: "user cancelled",
	})

	require.Error(t, err)
	assert.True(t, serrors.HasCode(err, serrors.UpstreamAuthError))
	assert.Contains(t, err.Error(), "access_denied")
	// No exchange may happen and no transaction may be touched.
	exchanger.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 0, transactions.Len())
}

func TestCallback_MissingCodeOrState(t *testing.T) {
	transactions, _ := newFlowStores(t)
	svc := newCallbackService(transactions, new(MockExchanger))

	for _, params := range []CallbackParams{
		{Code: "", State: "txn-1"},
		{Code: "upstream-code", State: ""},
	} {
		_, err := svc.HandleCallback(context.Background(), params)
		require.Error(t, err)
		assert.True(t, serrors.HasCode(err, serrors.MalformedCallback))
	}
}

func TestCallback_UnknownTransaction(t *testing.T) {
	transactions, _ := newFlowStores(t)
	exchanger := new(MockExchanger)
	svc := newCallbackService(transactions, exchanger)

	_, err := svc.HandleCallback(context.Background(), CallbackParams{
		Code:  "upstream-code",
		State: "never-created",
	})

	require.Error(t, err)
	assert.True(t, serrors.HasCode(err, serrors.UnknownOrExpiredTransaction))
	exchanger.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCallback_ExchangeFailureIsTerminal(t *testing.T) {
	transactions, _ := newFlowStores(t)
	ctx := context.Background()
	require.NoError(t, transactions.Save(ctx, pendingTransaction("txn-1"), time.Minute))

	exchanger := new(MockExchanger)
	exchanger.On("Exchange", mock.Anything, "upstream-code", testCallbackURI, "").
		Return(nil, errors.New("invalid_grant: code already redeemed")).Once()

	svc := newCallbackService(transactions, exchanger)
	_, err := svc.HandleCallback(ctx, CallbackParams{Code: "upstream-code", State: "txn-1"})

	require.Error(t, err)
	assert.True(t, serrors.HasCode(err, serrors.TokenExchangeFailed))
	// Single-use upstream codes are never retried.
	exchanger.AssertNumberOfCalls(t, "Exchange", 1)
}

func TestCallback_SuccessStagesResultAndRedirects(t *testing.T) {
	transactions, _ := newFlowStores(t)
	ctx := context.Background()
	require.NoError(t, transactions.Save(ctx, pendingTransaction("txn-1"), time.Minute))

	idToken := makeIDToken(t, jwt.MapClaims{
		"sub":   "google-sub-123",
		"email": "user@example.com",
		"name":  "Test User",
	})
	exchanger := new(MockExchanger)
	exchanger.On("Exchange", mock.Anything, "upstream-code", testCallbackURI, "").
		Return(&domain.UpstreamTokens{
			AccessToken: "upstream-access",
			IDToken:     idToken,
			TokenType:   "Bearer",
			Expiry:      time.Now().Add(time.Hour),
		}, nil).Once()

	svc := newCallbackService(transactions, exchanger)
	redirect, err := svc.HandleCallback(ctx, CallbackParams{Code: "upstream-code", State: "txn-1"})

	require.NoError(t, err)
	assert.Equal(t, "/consent?txn_id=txn-1", redirect)

	staged, err := transactions.Get(ctx, "txn-1")
	require.NoError(t, err)
	require.NotNil(t, staged.Upstream)
	assert.Equal(t, "google-sub-123", staged.Upstream.Subject())
	assert.Equal(t, "user@example.com", staged.Upstream.Email())
	assert.False(t, staged.Upstream.StagedAt.IsZero())
}

func TestCallback_ForwardsProxyPKCEVerifier(t *testing.T) {
	transactions, _ := newFlowStores(t)
	ctx := context.Background()

	txn := pendingTransaction("txn-pkce")
	txn.ProxyCodeVerifier = "proxy-verifier"
	require.NoError(t, transactions.Save(ctx, txn, time.Minute))

	exchanger := new(MockExchanger)
	exchanger.On("Exchange", mock.Anything, "upstream-code", testCallbackURI, "proxy-verifier").
		Return(&domain.UpstreamTokens{AccessToken: "ok"}, nil).Once()

	svc := newCallbackService(transactions, exchanger)
	_, err := svc.HandleCallback(ctx, CallbackParams{Code: "upstream-code", State: "txn-pkce"})

	require.NoError(t, err)
	exchanger.AssertExpectations(t)
}

func TestCallback_UndecodableIDTokenDegradesToEmptyClaims(t *testing.T) {
	transactions, _ := newFlowStores(t)
	ctx := context.Background()
	require.NoError(t, transactions.Save(ctx, pendingTransaction("txn-1"), time.Minute))

	exchanger := new(MockExchanger)
	exchanger.On("Exchange", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.UpstreamTokens{AccessToken: "ok", IDToken: "not-a-jwt"}, nil).Once()

	svc := newCallbackService(transactions, exchanger)
	redirect, err := svc.HandleCallback(ctx, CallbackParams{Code: "upstream-code", State: "txn-1"})

	// The callback itself succeeds; the missing subject is diagnosed at
	// consent submission.
	require.NoError(t, err)
	assert.Contains(t, redirect, "txn_id=txn-1")

	staged, err := transactions.Get(ctx, "txn-1")
	require.NoError(t, err)
	require.NotNil(t, staged.Upstream)
	assert.Empty(t, staged.Upstream.Claims)
	assert.Empty(t, staged.Upstream.Subject())
}
