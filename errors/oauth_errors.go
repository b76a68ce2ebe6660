// Package errors defines the OAuth 2.0 wire errors and the consent-flow
// error taxonomy. Every flow error is terminal for the request it occurs in;
// nothing here is retried, because each step involves a single-use
// authorization code or a user action that cannot be replayed.
package errors

import "fmt"

// OAuth2Error represents a standardized OAuth 2.0 error.
type OAuth2Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
	State       string `json:"state,omitempty"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Standard OAuth2 error codes, used on the downstream token endpoint.
const (
	InvalidRequest       = "invalid_request"
	UnauthorizedClient   = "unauthorized_client"
	AccessDenied         = "access_denied"
	UnsupportedGrantType = "unsupported_grant_type"
	InvalidScope         = "invalid_scope"
	InvalidClient        = "invalid_client"
	InvalidGrant         = "invalid_grant"
	ServerError          = "server_error"
)

// Consent-flow error codes. UnknownOrExpiredTransaction is deliberately one
// code for both the never-existed and the expired/consumed case, so the
// response gives no existence oracle over transaction ids.
const (
	UpstreamAuthError           = "upstream_auth_error"
	MalformedCallback           = "malformed_callback"
	UnknownOrExpiredTransaction = "unknown_or_expired_transaction"
	TokenExchangeFailed         = "token_exchange_failed"
	MissingSubjectClaim         = "missing_subject_claim"
	CapabilityNotEnabled        = "capability_not_enabled"
)

// HasCode reports whether err is an *OAuth2Error carrying the given code.
func HasCode(err error, code string) bool {
	oe, ok := err.(*OAuth2Error)
	return ok && oe.Code == code
}

func NewInvalidRequest(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidRequest, Description: description}
}

func NewInvalidClient(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidClient, Description: description}
}

func NewInvalidGrant(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidGrant, Description: description}
}

func NewUnsupportedGrantType(description string) *OAuth2Error {
	return &OAuth2Error{Code: UnsupportedGrantType, Description: description}
}

func NewServerError(description string) *OAuth2Error {
	return &OAuth2Error{Code: ServerError, Description: description}
}

// NewInvalidPKCE wraps a PKCE verification failure on the token endpoint.
func NewInvalidPKCE(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidGrant,
		Description: fmt.Sprintf("PKCE validation failed: %s", description),
	}
}

// NewUpstreamAuthError surfaces an error the identity provider sent on the
// callback (e.g. access_denied when the user cancelled). The provider's code
// and description are carried through so the error page can show them.
func NewUpstreamAuthError(code, description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        UpstreamAuthError,
		Description: fmt.Sprintf("%s: %s", code, description),
	}
}

func NewMalformedCallback(description string) *OAuth2Error {
	return &OAuth2Error{Code: MalformedCallback, Description: description}
}

func NewUnknownOrExpiredTransaction() *OAuth2Error {
	return &OAuth2Error{
		Code:        UnknownOrExpiredTransaction,
		Description: "Invalid or expired transaction. Please start over.",
	}
}

// NewTokenExchangeFailed surfaces the upstream token endpoint's refusal. The
// wrapped detail must never contain the client secret or any token material.
func NewTokenExchangeFailed(detail string) *OAuth2Error {
	return &OAuth2Error{
		Code:        TokenExchangeFailed,
		Description: fmt.Sprintf("upstream token exchange failed: %s", detail),
	}
}

func NewMissingSubjectClaim() *OAuth2Error {
	return &OAuth2Error{
		Code:        MissingSubjectClaim,
		Description: "identity token carried no subject claim",
	}
}

// NewCapabilityNotEnabled reports only the requested capability; it must not
// reveal anything about the subject's other capabilities.
func NewCapabilityNotEnabled(name string) *OAuth2Error {
	return &OAuth2Error{
		Code:        CapabilityNotEnabled,
		Description: fmt.Sprintf("capability %q is not enabled for this account", name),
	}
}
