package services

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	serrors "go.pilab.hu/consentproxy/errors"
	applog "go.pilab.hu/consentproxy/log"

	"go.pilab.hu/consentproxy/domain"
)

// DefaultTransactionTTL bounds how long a flow may sit between the initial
// redirect and the provider callback.
const DefaultTransactionTTL = 15 * time.Minute

// AuthorizeRequest captures the downstream client's authorization request.
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	Scopes              []string
}

// AuthorizeService handles the initial downstream authorization request: it
// creates the transaction, generates the transaction id used as the upstream
// state parameter, and builds the identity provider's authorization URL.
type AuthorizeService struct {
	transactions domain.TransactionRepository
	urls         AuthCodeURLBuilder
	redirectURI  string // the proxy's upstream callback URL
	txnTTL       time.Duration
	forwardPKCE  bool
	logger       applog.Logger
}

// NewAuthorizeService wires the authorization entry point. With forwardPKCE
// enabled the proxy generates its own verifier/challenge pair and forwards
// the challenge upstream.
func NewAuthorizeService(
	transactions domain.TransactionRepository,
	urls AuthCodeURLBuilder,
	redirectURI string,
	txnTTL time.Duration,
	forwardPKCE bool,
	logger applog.Logger,
) *AuthorizeService {
	if txnTTL <= 0 {
		txnTTL = DefaultTransactionTTL
	}
	return &AuthorizeService{
		transactions: transactions,
		urls:         urls,
		redirectURI:  redirectURI,
		txnTTL:       txnTTL,
		forwardPKCE:  forwardPKCE,
		logger:       logger,
	}
}

// Begin validates the request, stores a new transaction and returns the
// upstream authorization URL to redirect the browser to.
func (s *AuthorizeService) Begin(ctx context.Context, req AuthorizeRequest) (string, error) {
	if req.ClientID == "" {
		return "", serrors.NewInvalidRequest("missing client_id")
	}
	if req.RedirectURI == "" {
		return "", serrors.NewInvalidRequest("missing redirect_uri")
	}
	if req.CodeChallengeMethod != "" &&
		req.CodeChallengeMethod != PKCEMethodS256 &&
		req.CodeChallengeMethod != PKCEMethodPlain {
		return "", serrors.NewInvalidRequest("invalid code_challenge_method")
	}

	txnID, err := generateOpaqueToken()
	if err != nil {
		return "", serrors.NewServerError("failed to generate transaction id")
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:                  txnID,
		ClientID:            req.ClientID,
		RedirectURI:         req.RedirectURI,
		ClientState:         req.State,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		Scopes:              req.Scopes,
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.txnTTL),
	}

	var opts []oauth2.AuthCodeOption
	if s.forwardPKCE {
		verifier, err := generateOpaqueToken()
		if err != nil {
			return "", serrors.NewServerError("failed to generate PKCE verifier")
		}
		txn.ProxyCodeVerifier = verifier
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", ComputeS256Challenge(verifier)),
			oauth2.SetAuthURLParam("code_challenge_method", PKCEMethodS256),
		)
	}

	if err := s.transactions.Save(ctx, txn, s.txnTTL); err != nil {
		s.logger.Error(ctx, "Failed to store transaction", err, nil)
		return "", serrors.NewServerError("failed to store transaction")
	}

	s.logger.Info(ctx, "Authorization flow started", map[string]interface{}{
		"txn_id":    txnID,
		"client_id": req.ClientID,
	})

	return s.urls.AuthCodeURL(txnID, s.redirectURI, opts...), nil
}
