package echo

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/consentproxy/errors"
)

func splitSpace(s string) []string {
	return strings.Fields(s)
}

// flowErrorStatus maps consent-flow errors to HTTP statuses for the browser
// endpoints. Unknown transactions and expired transactions share a code on
// purpose, so they share a status and page here too.
func flowErrorStatus(e *errors.OAuth2Error) int {
	switch e.Code {
	case errors.UpstreamAuthError,
		errors.MalformedCallback,
		errors.UnknownOrExpiredTransaction,
		errors.MissingSubjectClaim,
		errors.InvalidRequest:
		return http.StatusBadRequest
	case errors.TokenExchangeFailed:
		return http.StatusBadGateway
	case errors.CapabilityNotEnabled:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// tokenErrorStatus maps OAuth wire errors on the token endpoint.
func tokenErrorStatus(e *errors.OAuth2Error) int {
	switch e.Code {
	case errors.InvalidClient:
		return http.StatusUnauthorized
	case errors.ServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// writeFlowError renders a flow error. Browser-facing codes get a small HTML
// error page carrying the code and description; capability denials are JSON
// because their callers are API clients.
func writeFlowError(c echo.Context, err error) error {
	oe, ok := err.(*errors.OAuth2Error)
	if !ok {
		log.Error().Err(err).Msg("Unexpected error in flow handler")
		oe = errors.NewServerError("internal server error")
	}

	status := flowErrorStatus(oe)
	if oe.Code == errors.CapabilityNotEnabled {
		return c.JSON(status, oe)
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return errorTemplate.Execute(c.Response(), oe)
}

var errorTemplate = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Sign-in error</title></head>
<body>
  <h1>Sign-in error</h1>
  <p>{{.Description}}</p>
</body>
</html>
`))
