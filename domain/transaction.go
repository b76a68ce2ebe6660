package domain

import "time"

// Transaction represents one in-flight upstream OAuth round trip that is
// waiting for user consent. Its ID is the value used as the `state` parameter
// on the upstream authorization redirect, so the identity provider echoes it
// back on the callback.
type Transaction struct {
	ID                  string    `json:"id" bson:"_id"`
	ClientID            string    `json:"client_id"`             // Downstream client application ID
	RedirectURI         string    `json:"redirect_uri"`          // Downstream client's callback URL
	ClientState         string    `json:"client_state"`          // Opaque state supplied by the downstream client
	CodeChallenge       string    `json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `json:"code_challenge_method,omitempty"`
	Scopes              []string  `json:"scopes"`
	CreatedAt           time.Time `json:"created_at"`
	ExpiresAt           time.Time `json:"expires_at"`

	// ProxyCodeVerifier is set only when this proxy forwarded its own PKCE
	// challenge to the upstream provider; it is replayed on the upstream
	// token exchange.
	ProxyCodeVerifier string `json:"proxy_code_verifier,omitempty"`

	// Upstream holds the staged result of the server-side code exchange.
	// Nil until the identity provider's callback has been processed.
	Upstream *UpstreamResult `json:"upstream,omitempty"`
}

// UpstreamTokens is the opaque token bundle returned by the identity
// provider's token endpoint.
type UpstreamTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// UpstreamResult is attached to a Transaction after a successful upstream
// token exchange. StagedAt drives TTL accounting for the consent gap
// independently of the transaction's original lifetime.
type UpstreamResult struct {
	Tokens   UpstreamTokens `json:"tokens"`
	Claims   map[string]any `json:"claims"`
	StagedAt time.Time      `json:"staged_at"`
}

// Subject returns the stable subject identifier decoded from the identity
// token, or "" when the claim is absent.
func (r *UpstreamResult) Subject() string {
	if r == nil {
		return ""
	}
	sub, _ := r.Claims["sub"].(string)
	return sub
}

// Email returns the email claim, or "" when absent.
func (r *UpstreamResult) Email() string {
	if r == nil {
		return ""
	}
	email, _ := r.Claims["email"].(string)
	return email
}
