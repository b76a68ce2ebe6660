package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"go.pilab.hu/consentproxy/domain"
)

// UpstreamExchanger performs the server-to-server authorization-code
// exchange against the identity provider's token endpoint. The exchange is
// never retried: upstream authorization codes are single-use.
type UpstreamExchanger interface {
	Exchange(ctx context.Context, code, redirectURI, codeVerifier string) (*domain.UpstreamTokens, error)
}

// AuthCodeURLBuilder builds the authorization URL the browser is redirected
// to when a flow starts.
type AuthCodeURLBuilder interface {
	AuthCodeURL(state, redirectURI string, opts ...oauth2.AuthCodeOption) string
}

// OAuth2Exchanger implements UpstreamExchanger and AuthCodeURLBuilder on top
// of golang.org/x/oauth2.
type OAuth2Exchanger struct {
	clientID     string
	clientSecret string
	endpoint     oauth2.Endpoint
	scopes       []string
	timeout      time.Duration
}

// NewOAuth2Exchanger creates an exchanger for an arbitrary provider endpoint.
func NewOAuth2Exchanger(clientID, clientSecret string, endpoint oauth2.Endpoint, scopes []string, timeout time.Duration) *OAuth2Exchanger {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OAuth2Exchanger{
		clientID:     clientID,
		clientSecret: clientSecret,
		endpoint:     endpoint,
		scopes:       scopes,
		timeout:      timeout,
	}
}

// NewGoogleExchanger creates an exchanger against Google's well-known
// endpoints, requesting the openid/profile/email scopes the consent page
// needs for display identity.
func NewGoogleExchanger(clientID, clientSecret string, timeout time.Duration) *OAuth2Exchanger {
	return NewOAuth2Exchanger(clientID, clientSecret, google.Endpoint, []string{
		"openid",
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
	}, timeout)
}

func (e *OAuth2Exchanger) config(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     e.clientID,
		ClientSecret: e.clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       e.scopes,
		Endpoint:     e.endpoint,
	}
}

// AuthCodeURL implements AuthCodeURLBuilder.
func (e *OAuth2Exchanger) AuthCodeURL(state, redirectURI string, opts ...oauth2.AuthCodeOption) string {
	return e.config(redirectURI).AuthCodeURL(state, opts...)
}

// Exchange implements UpstreamExchanger. The call is bounded by the
// configured timeout; the verifier is forwarded only when the original
// request carried a proxy PKCE challenge.
func (e *OAuth2Exchanger) Exchange(ctx context.Context, code, redirectURI, codeVerifier string) (*domain.UpstreamTokens, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var opts []oauth2.AuthCodeOption
	if codeVerifier != "" {
		opts = append(opts, oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	}

	token, err := e.config(redirectURI).Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("code exchange with identity provider failed: %w", err)
	}

	idToken, _ := token.Extra("id_token").(string)

	return &domain.UpstreamTokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      idToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}, nil
}
