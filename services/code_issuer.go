package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	serrors "go.pilab.hu/consentproxy/errors"
	"go.pilab.hu/consentproxy/internal/metrics"

	"go.pilab.hu/consentproxy/domain"
)

// DefaultProxyCodeTTL bounds how long a minted code stays redeemable.
const DefaultProxyCodeTTL = 5 * time.Minute

// CodeIssuer mints the single-use proxy authorization code that stands in
// for the completed upstream flow, stores it, and builds the downstream
// client's callback redirect.
type CodeIssuer struct {
	codes   domain.ProxyCodeRepository
	codeTTL time.Duration
}

// NewCodeIssuer creates an issuer writing into the given code store.
func NewCodeIssuer(codes domain.ProxyCodeRepository, codeTTL time.Duration) *CodeIssuer {
	if codeTTL <= 0 {
		codeTTL = DefaultProxyCodeTTL
	}
	return &CodeIssuer{codes: codes, codeTTL: codeTTL}
}

// Issue mints and stores a code bound to the transaction's downstream
// parameters and upstream tokens, then returns the full redirect URL for the
// downstream client's callback. The store write completes before the URL is
// returned, so the code is always redeemable once the browser follows the
// redirect.
func (i *CodeIssuer) Issue(ctx context.Context, txn *domain.Transaction) (string, error) {
	code, err := generateOpaqueToken()
	if err != nil {
		return "", serrors.NewServerError("failed to generate authorization code")
	}

	now := time.Now().UTC()
	proxyCode := &domain.ProxyCode{
		Code:                code,
		ClientID:            txn.ClientID,
		RedirectURI:         txn.RedirectURI,
		CodeChallenge:       txn.CodeChallenge,
		CodeChallengeMethod: txn.CodeChallengeMethod,
		Scopes:              txn.Scopes,
		UpstreamTokens:      txn.Upstream.Tokens,
		CreatedAt:           now,
		ExpiresAt:           now.Add(i.codeTTL),
	}
	if err := i.codes.Save(ctx, proxyCode, i.codeTTL); err != nil {
		return "", serrors.NewServerError("failed to store authorization code")
	}

	metrics.ProxyCodesIssuedTotal.Inc()

	return appendQuery(txn.RedirectURI, url.Values{
		"code":  {code},
		"state": {txn.ClientState},
	}), nil
}

// appendQuery appends params to a redirect URI, respecting an existing query
// string. Parameters already present in the URI are left untouched.
func appendQuery(redirectURI string, params url.Values) string {
	separator := "?"
	if strings.Contains(redirectURI, "?") {
		separator = "&"
	}
	return redirectURI + separator + params.Encode()
}
