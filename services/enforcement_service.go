package services

import (
	"context"
	"errors"

	serrors "go.pilab.hu/consentproxy/errors"
	"go.pilab.hu/consentproxy/internal/metrics"

	"go.pilab.hu/consentproxy/domain"
)

// EnforcementService is the capability-invocation-time check: it resolves
// the caller's subject from their access-token claims and denies the call
// unless the capability is in the subject's preference record. It runs
// before any capability logic and reveals nothing about other capabilities.
type EnforcementService struct {
	preferences domain.PreferenceRepository
	registry    *domain.CapabilityRegistry
}

// NewEnforcementService wires the enforcement check.
func NewEnforcementService(preferences domain.PreferenceRepository, registry *domain.CapabilityRegistry) *EnforcementService {
	return &EnforcementService{preferences: preferences, registry: registry}
}

// Require returns nil only when the claims resolve to a subject whose
// preference record enables the named capability. Every other outcome,
// including a subject with no record at all, is the same
// capability-not-enabled denial.
func (s *EnforcementService) Require(ctx context.Context, claims map[string]any, capability string) error {
	subject, _ := claims["sub"].(string)
	if subject == "" {
		metrics.CapabilityDeniedTotal.Inc()
		return serrors.NewCapabilityNotEnabled(capability)
	}

	record, err := s.preferences.Get(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrPreferenceNotFound) {
			metrics.CapabilityDeniedTotal.Inc()
			return serrors.NewCapabilityNotEnabled(capability)
		}
		return serrors.NewServerError("preference lookup failed")
	}

	if !record.Enabled(capability) {
		metrics.CapabilityDeniedTotal.Inc()
		return serrors.NewCapabilityNotEnabled(capability)
	}
	return nil
}
