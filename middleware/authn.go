// Package middleware provides the bearer-token authentication middleware for
// the capability endpoints.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"go.pilab.hu/consentproxy/domain"
)

// claimsContextKey is the echo context key the verified claims are stored
// under.
const claimsContextKey = "auth.claims"

// RequireAccessToken validates the Authorization bearer token against the
// issued-token store and attaches the token's claims to the request context.
// Requests without a valid token never reach the handler.
func RequireAccessToken(tokens domain.AccessTokenRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format: expected Bearer token")
			}

			entry, err := tokens.Get(c.Request().Context(), parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
			if time.Now().After(entry.ExpiresAt) {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(claimsContextKey, entry.Claims)
			return next(c)
		}
	}
}

// ClaimsFrom returns the verified claims attached by RequireAccessToken, or
// an empty map when the middleware did not run.
func ClaimsFrom(c echo.Context) map[string]any {
	if claims, ok := c.Get(claimsContextKey).(map[string]any); ok {
		return claims
	}
	return map[string]any{}
}
