package domain

import "time"

// AccessToken is a downstream bearer token issued when a ProxyCode is
// redeemed. It carries the identity claims obtained during the upstream
// exchange so capability handlers can resolve the caller's subject.
type AccessToken struct {
	Token     string         `json:"token"`
	Subject   string         `json:"subject"`
	ClientID  string         `json:"client_id"`
	Scopes    []string       `json:"scopes"`
	Claims    map[string]any `json:"claims"`
	ExpiresAt time.Time      `json:"expires_at"`
	CreatedAt time.Time      `json:"created_at"`
}
