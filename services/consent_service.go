package services

import (
	"context"
	"errors"
	"time"

	serrors "go.pilab.hu/consentproxy/errors"
	"go.pilab.hu/consentproxy/internal/metrics"
	applog "go.pilab.hu/consentproxy/log"

	"go.pilab.hu/consentproxy/domain"
)

// ConsentView is what the consent page renders: the pending transaction, the
// user's display identity and the selectable capabilities with their current
// enabled state.
type ConsentView struct {
	TransactionID string
	Email         string
	Capabilities  []domain.Capability
	Enabled       map[string]bool
}

// ConsentService is the gate between identity verification and code
// issuance. Display shows the capability choices for a staged transaction;
// Submit persists the selection and completes the flow through the issuer.
type ConsentService struct {
	transactions domain.TransactionRepository
	preferences  domain.PreferenceRepository
	registry     *domain.CapabilityRegistry
	issuer       *CodeIssuer
	logger       applog.Logger
}

// NewConsentService wires the consent gate.
func NewConsentService(
	transactions domain.TransactionRepository,
	preferences domain.PreferenceRepository,
	registry *domain.CapabilityRegistry,
	issuer *CodeIssuer,
	logger applog.Logger,
) *ConsentService {
	return &ConsentService{
		transactions: transactions,
		preferences:  preferences,
		registry:     registry,
		issuer:       issuer,
		logger:       logger,
	}
}

// Display returns the consent view for a staged transaction. A transaction
// that is absent, expired or not yet through the callback yields the same
// unknown-or-expired answer.
func (s *ConsentService) Display(ctx context.Context, txnID string) (*ConsentView, error) {
	if txnID == "" {
		return nil, serrors.NewUnknownOrExpiredTransaction()
	}

	txn, err := s.transactions.Get(ctx, txnID)
	if err != nil || txn.Upstream == nil {
		return nil, serrors.NewUnknownOrExpiredTransaction()
	}

	email := txn.Upstream.Email()
	if email == "" {
		email = "user"
	}

	// Pre-check boxes from an earlier consent, when one exists.
	enabled := make(map[string]bool)
	if subject := txn.Upstream.Subject(); subject != "" {
		if record, err := s.preferences.Get(ctx, subject); err == nil {
			for _, name := range record.EnabledCapabilities {
				enabled[name] = true
			}
		}
	}

	return &ConsentView{
		TransactionID: txnID,
		Email:         email,
		Capabilities:  s.registry.List(),
		Enabled:       enabled,
	}, nil
}

// Submit consumes the transaction, replaces the subject's preference record
// with the submitted selection and delegates to the code issuer. The
// consume is atomic, so of two concurrent submissions for the same
// transaction exactly one returns a redirect; the other gets
// unknown-or-expired.
func (s *ConsentService) Submit(ctx context.Context, txnID string, selected []string) (string, error) {
	if txnID == "" {
		return "", serrors.NewUnknownOrExpiredTransaction()
	}

	txn, err := s.transactions.Consume(ctx, txnID)
	if err != nil {
		if !errors.Is(err, domain.ErrTransactionNotFound) {
			s.logger.Error(ctx, "Transaction consume failed", err, nil)
		}
		return "", serrors.NewUnknownOrExpiredTransaction()
	}
	if txn.Upstream == nil {
		// Callback never completed for this transaction.
		return "", serrors.NewUnknownOrExpiredTransaction()
	}

	subject := txn.Upstream.Subject()
	if subject == "" {
		// Fail before any preference write; the flow is unrecoverable
		// either way because the transaction is gone.
		return "", serrors.NewMissingSubjectClaim()
	}

	enabled := s.registry.Intersect(selected)
	if err := s.preferences.Replace(ctx, &domain.PreferenceRecord{
		Subject:             subject,
		EnabledCapabilities: enabled,
		UpdatedAt:           time.Now().UTC(),
	}); err != nil {
		s.logger.Error(ctx, "Failed to persist preferences", err, map[string]interface{}{
			"subject": subject,
		})
		return "", serrors.NewServerError("failed to persist preferences")
	}
	metrics.ConsentsRecordedTotal.Inc()

	redirectURL, err := s.issuer.Issue(ctx, txn)
	if err != nil {
		return "", err
	}

	s.logger.Info(ctx, "Consent recorded, flow completed", map[string]interface{}{
		"txn_id":  txnID,
		"subject": subject,
		"enabled": enabled,
	})

	return redirectURL, nil
}
