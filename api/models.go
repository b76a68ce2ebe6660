// Package api defines the wire models shared by the HTTP handlers.
package api

// TokenResponse is the downstream token endpoint's success payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// ProfileResponse is returned by the capability-gated profile endpoints.
type ProfileResponse struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}
