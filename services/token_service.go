package services

import (
	"context"
	"strings"
	"time"

	"go.pilab.hu/consentproxy/api"
	serrors "go.pilab.hu/consentproxy/errors"
	"go.pilab.hu/consentproxy/internal/metrics"
	applog "go.pilab.hu/consentproxy/log"

	"go.pilab.hu/consentproxy/domain"
)

const defaultAccessTokenTTL = time.Hour

// TokenRequest is the downstream client's authorization_code grant.
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	ClientID     string
	CodeVerifier string
}

// TokenService redeems proxy authorization codes: it consumes the code
// atomically, verifies the client/redirect binding and the PKCE verifier,
// and issues a downstream access token carrying the identity claims from the
// upstream exchange.
type TokenService struct {
	codes  domain.ProxyCodeRepository
	tokens domain.AccessTokenRepository
	claims *ClaimsExtractor
	logger applog.Logger
}

// NewTokenService wires the downstream token endpoint.
func NewTokenService(
	codes domain.ProxyCodeRepository,
	tokens domain.AccessTokenRepository,
	claims *ClaimsExtractor,
	logger applog.Logger,
) *TokenService {
	return &TokenService{
		codes:  codes,
		tokens: tokens,
		claims: claims,
		logger: logger,
	}
}

// Exchange redeems one proxy code. The code is consumed before any further
// validation, so a failed redemption still burns it: a code presented with a
// bad verifier must not remain redeemable.
func (s *TokenService) Exchange(ctx context.Context, req TokenRequest) (*api.TokenResponse, error) {
	if req.GrantType != "authorization_code" {
		return nil, serrors.NewUnsupportedGrantType("only authorization_code is supported")
	}
	if req.Code == "" {
		return nil, serrors.NewInvalidRequest("missing code")
	}

	proxyCode, err := s.codes.Consume(ctx, req.Code)
	if err != nil {
		return nil, serrors.NewInvalidGrant("authorization code is invalid or expired")
	}
	if proxyCode.Expired(time.Now()) {
		return nil, serrors.NewInvalidGrant("authorization code is invalid or expired")
	}

	if req.ClientID != "" && req.ClientID != proxyCode.ClientID {
		return nil, serrors.NewInvalidClient("code was issued to a different client")
	}
	if req.RedirectURI != proxyCode.RedirectURI {
		return nil, serrors.NewInvalidGrant("redirect_uri does not match the authorization request")
	}

	if proxyCode.CodeChallenge != "" {
		if req.CodeVerifier == "" {
			return nil, serrors.NewInvalidPKCE("code_verifier is required")
		}
		if !ValidatePKCEChallenge(proxyCode.CodeChallenge, proxyCode.CodeChallengeMethod, req.CodeVerifier) {
			return nil, serrors.NewInvalidPKCE("code_verifier does not match the challenge")
		}
	}

	claims := s.claims.Extract(proxyCode.UpstreamTokens.IDToken)
	subject, _ := claims["sub"].(string)

	accessToken, err := generateOpaqueToken()
	if err != nil {
		return nil, serrors.NewServerError("failed to generate access token")
	}

	ttl := defaultAccessTokenTTL
	if !proxyCode.UpstreamTokens.Expiry.IsZero() {
		if remaining := time.Until(proxyCode.UpstreamTokens.Expiry); remaining > 0 {
			ttl = remaining
		}
	}

	now := time.Now().UTC()
	entry := &domain.AccessToken{
		Token:     accessToken,
		Subject:   subject,
		ClientID:  proxyCode.ClientID,
		Scopes:    proxyCode.Scopes,
		Claims:    claims,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.tokens.Save(ctx, entry, ttl); err != nil {
		s.logger.Error(ctx, "Failed to store access token", err, nil)
		return nil, serrors.NewServerError("failed to store access token")
	}

	metrics.ProxyCodesRedeemedTotal.Inc()
	s.logger.Info(ctx, "Proxy code redeemed", map[string]interface{}{
		"client_id": proxyCode.ClientID,
		"subject":   subject,
	})

	return &api.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
		Scope:       strings.Join(proxyCode.Scopes, " "),
	}, nil
}
