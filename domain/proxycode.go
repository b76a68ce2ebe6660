package domain

import "time"

// ProxyCode is the single-use authorization code this proxy mints after the
// user has consented. It stands in for the completed upstream flow: the
// downstream client redeems it at the token endpoint exactly once.
type ProxyCode struct {
	Code                string         `json:"code"`
	ClientID            string         `json:"client_id"`    // Client the code is bound to
	RedirectURI         string         `json:"redirect_uri"` // Redirect URI the code is bound to
	CodeChallenge       string         `json:"code_challenge,omitempty"`
	CodeChallengeMethod string         `json:"code_challenge_method,omitempty"`
	Scopes              []string       `json:"scopes"`
	UpstreamTokens      UpstreamTokens `json:"upstream_tokens"`
	ExpiresAt           time.Time      `json:"expires_at"`
	CreatedAt           time.Time      `json:"created_at"`
}

// Expired reports whether the code is past its expiry.
func (p *ProxyCode) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
