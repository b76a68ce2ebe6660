package services

import (
	"context"
	"errors"
	"net/url"
	"time"

	serrors "go.pilab.hu/consentproxy/errors"
	"go.pilab.hu/consentproxy/internal/metrics"
	applog "go.pilab.hu/consentproxy/log"

	"go.pilab.hu/consentproxy/domain"
)

// CallbackParams are the query parameters the identity provider sends on its
// redirect back to the proxy.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// CallbackService intercepts the identity provider's redirect: it exchanges
// the upstream code server-side, decodes the identity claims, stages the
// result on the pending transaction and redirects the browser into the
// consent gate. The browser never sees the upstream code exchange.
type CallbackService struct {
	transactions domain.TransactionRepository
	exchanger    UpstreamExchanger
	claims       *ClaimsExtractor
	redirectURI  string // fixed upstream redirect URI registered with the provider
	consentPath  string
	consentTTL   time.Duration
	logger       applog.Logger
}

// NewCallbackService wires the callback interceptor.
func NewCallbackService(
	transactions domain.TransactionRepository,
	exchanger UpstreamExchanger,
	claims *ClaimsExtractor,
	redirectURI string,
	consentPath string,
	consentTTL time.Duration,
	logger applog.Logger,
) *CallbackService {
	if consentTTL <= 0 {
		consentTTL = 10 * time.Minute
	}
	return &CallbackService{
		transactions: transactions,
		exchanger:    exchanger,
		claims:       claims,
		redirectURI:  redirectURI,
		consentPath:  consentPath,
		consentTTL:   consentTTL,
		logger:       logger,
	}
}

// HandleCallback processes one provider callback and returns the consent
// page URL to redirect the browser to. Every error is terminal for the
// request: the upstream code is single-use and cannot be replayed.
func (s *CallbackService) HandleCallback(ctx context.Context, p CallbackParams) (string, error) {
	if p.Error != "" {
		s.logger.Warn(ctx, "Identity provider returned an error on callback", map[string]interface{}{
			"error": p.Error,
		})
		return "", serrors.NewUpstreamAuthError(p.Error, p.ErrorDescription)
	}

	if p.Code == "" || p.State == "" {
		return "", serrors.NewMalformedCallback("missing authorization code or transaction ID")
	}

	// The upstream state parameter is the transaction id. Unknown and
	// expired transactions get the identical answer.
	txn, err := s.transactions.Get(ctx, p.State)
	if err != nil {
		if !errors.Is(err, domain.ErrTransactionNotFound) {
			s.logger.Error(ctx, "Transaction lookup failed", err, nil)
		}
		return "", serrors.NewUnknownOrExpiredTransaction()
	}

	tokens, err := s.exchanger.Exchange(ctx, p.Code, s.redirectURI, txn.ProxyCodeVerifier)
	if err != nil {
		metrics.TokenExchangeFailuresTotal.Inc()
		s.logger.Error(ctx, "Upstream token exchange failed", err, map[string]interface{}{
			"txn_id": txn.ID,
		})
		return "", serrors.NewTokenExchangeFailed(err.Error())
	}

	// Decode failure degrades to empty claims; the consent gate's
	// missing-subject check reports the precise failure later.
	claims := s.claims.Extract(tokens.IDToken)

	txn.Upstream = &domain.UpstreamResult{
		Tokens:   *tokens,
		Claims:   claims,
		StagedAt: time.Now().UTC(),
	}
	if err := s.transactions.Save(ctx, txn, s.consentTTL); err != nil {
		s.logger.Error(ctx, "Failed to stage upstream result", err, map[string]interface{}{
			"txn_id": txn.ID,
		})
		return "", serrors.NewServerError("failed to stage transaction")
	}

	metrics.CallbacksInterceptedTotal.Inc()
	s.logger.Info(ctx, "Upstream exchange staged, redirecting to consent", map[string]interface{}{
		"txn_id":  txn.ID,
		"subject": txn.Upstream.Subject(),
	})

	return s.consentPath + "?txn_id=" + url.QueryEscape(txn.ID), nil
}
