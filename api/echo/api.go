// Package echo exposes the consent proxy's HTTP surface: the authorization
// entry point, the identity provider callback, the consent page and the
// downstream token endpoint.
package echo

import (
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/consentproxy/domain"
	"go.pilab.hu/consentproxy/errors"
	"go.pilab.hu/consentproxy/middleware"
	"go.pilab.hu/consentproxy/services"
)

// Route paths. CallbackPath must match the redirect URI registered with the
// upstream provider.
const (
	AuthorizePath = "/oauth2/authorize"
	CallbackPath  = "/oauth2/idp/callback"
	ConsentPath   = "/consent"
	TokenPath     = "/oauth2/token"
)

// ConsentProxyAPI holds the handler dependencies.
type ConsentProxyAPI struct {
	authorize    *services.AuthorizeService
	callback     *services.CallbackService
	consent      *services.ConsentService
	tokens       *services.TokenService
	enforcement  *services.EnforcementService
	accessTokens domain.AccessTokenRepository
}

// NewConsentProxyAPI initializes the API.
func NewConsentProxyAPI(
	authorize *services.AuthorizeService,
	callback *services.CallbackService,
	consent *services.ConsentService,
	tokens *services.TokenService,
	enforcement *services.EnforcementService,
	accessTokens domain.AccessTokenRepository,
) *ConsentProxyAPI {
	return &ConsentProxyAPI{
		authorize:    authorize,
		callback:     callback,
		consent:      consent,
		tokens:       tokens,
		enforcement:  enforcement,
		accessTokens: accessTokens,
	}
}

// RegisterRoutes registers all routes on the echo instance.
func (a *ConsentProxyAPI) RegisterRoutes(e *echo.Echo) {
	e.GET(AuthorizePath, a.AuthorizeHandler)
	e.GET(CallbackPath, a.CallbackHandler)
	e.GET(ConsentPath, a.ConsentDisplayHandler)
	e.POST(ConsentPath, a.ConsentSubmitHandler)
	e.POST(TokenPath, a.TokenHandler)

	authn := middleware.RequireAccessToken(a.accessTokens)
	profile := e.Group("/api/profile", authn)
	profile.GET("/email", a.GetEmailHandler)
	profile.GET("/name", a.GetNameHandler)

	e.GET("/healthz", a.HealthHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// AuthorizeHandler starts a flow: it stores the transaction and redirects
// the browser to the identity provider.
func (a *ConsentProxyAPI) AuthorizeHandler(c echo.Context) error {
	req := services.AuthorizeRequest{
		ClientID:            c.QueryParam("client_id"),
		RedirectURI:         c.QueryParam("redirect_uri"),
		State:               c.QueryParam("state"),
		CodeChallenge:       c.QueryParam("code_challenge"),
		CodeChallengeMethod: c.QueryParam("code_challenge_method"),
		Scopes:              splitScopes(c.QueryParam("scope")),
	}

	authURL, err := a.authorize.Begin(c.Request().Context(), req)
	if err != nil {
		return writeFlowError(c, err)
	}
	return c.Redirect(http.StatusFound, authURL)
}

// CallbackHandler is the interception point for the identity provider's
// redirect. Success is always a redirect into the consent page; every error
// is a terminal error page.
func (a *ConsentProxyAPI) CallbackHandler(c echo.Context) error {
	params := services.CallbackParams{
		Code:             c.QueryParam("code"),
		State:            c.QueryParam("state"),
		Error:            c.QueryParam("error"),
		ErrorDescription: c.QueryParam("error_description"),
	}

	consentURL, err := a.callback.HandleCallback(c.Request().Context(), params)
	if err != nil {
		return writeFlowError(c, err)
	}
	return c.Redirect(http.StatusFound, consentURL)
}

// ConsentDisplayHandler renders the capability selection form for a staged
// transaction.
func (a *ConsentProxyAPI) ConsentDisplayHandler(c echo.Context) error {
	view, err := a.consent.Display(c.Request().Context(), c.QueryParam("txn_id"))
	if err != nil {
		return writeFlowError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	if err := consentTemplate.Execute(c.Response(), view); err != nil {
		log.Error().Err(err).Msg("Failed to render consent page")
		return err
	}
	return nil
}

// ConsentSubmitHandler accepts the selection, persists it and redirects the
// browser to the downstream client with the freshly minted proxy code.
func (a *ConsentProxyAPI) ConsentSubmitHandler(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return writeFlowError(c, errors.NewInvalidRequest("malformed form submission"))
	}

	txnID := c.FormValue("txn_id")
	selected := form["capabilities"]

	redirectURL, err := a.consent.Submit(c.Request().Context(), txnID, selected)
	if err != nil {
		return writeFlowError(c, err)
	}
	return c.Redirect(http.StatusFound, redirectURL)
}

// TokenHandler redeems a proxy authorization code for downstream tokens.
func (a *ConsentProxyAPI) TokenHandler(c echo.Context) error {
	req := services.TokenRequest{
		GrantType:    c.FormValue("grant_type"),
		Code:         c.FormValue("code"),
		RedirectURI:  c.FormValue("redirect_uri"),
		ClientID:     c.FormValue("client_id"),
		CodeVerifier: c.FormValue("code_verifier"),
	}

	resp, err := a.tokens.Exchange(c.Request().Context(), req)
	if err != nil {
		if oe, ok := err.(*errors.OAuth2Error); ok {
			return c.JSON(tokenErrorStatus(oe), oe)
		}
		return c.JSON(http.StatusInternalServerError, errors.NewServerError("token exchange failed"))
	}
	return c.JSON(http.StatusOK, resp)
}

// GetEmailHandler returns the caller's email address. The capability check
// runs before anything else.
func (a *ConsentProxyAPI) GetEmailHandler(c echo.Context) error {
	claims := middleware.ClaimsFrom(c)
	if err := a.enforcement.Require(c.Request().Context(), claims, "get_email"); err != nil {
		return writeFlowError(c, err)
	}
	email, _ := claims["email"].(string)
	return c.JSON(http.StatusOK, apiProfile{Email: email})
}

// GetNameHandler returns the caller's display name, gated the same way.
func (a *ConsentProxyAPI) GetNameHandler(c echo.Context) error {
	claims := middleware.ClaimsFrom(c)
	if err := a.enforcement.Require(c.Request().Context(), claims, "get_name"); err != nil {
		return writeFlowError(c, err)
	}
	name, _ := claims["name"].(string)
	return c.JSON(http.StatusOK, apiProfile{Name: name})
}

// HealthHandler reports liveness.
func (a *ConsentProxyAPI) HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type apiProfile struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

func splitScopes(scope string) []string {
	if scope == "" {
		return nil
	}
	var scopes []string
	for _, s := range splitSpace(scope) {
		if s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

var consentTemplate = template.Must(template.New("consent").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Select capabilities</title>
</head>
<body>
  <h1>Signed in as {{.Email}}</h1>
  <p>Choose which capabilities this client may invoke on your behalf.</p>
  <form method="post" action="/consent">
    <input type="hidden" name="txn_id" value="{{.TransactionID}}">
    {{range .Capabilities}}
    <label>
      <input type="checkbox" name="capabilities" value="{{.Name}}"{{if index $.Enabled .Name}} checked{{end}}>
      {{.Name}}: {{.Description}}
    </label><br>
    {{end}}
    <button type="submit">Save and continue</button>
  </form>
</body>
</html>
`))
