package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/consentproxy/cache"
	"go.pilab.hu/consentproxy/domain"
	serrors "go.pilab.hu/consentproxy/errors"
)

func newEnforcement(t *testing.T) (*cache.PreferenceStore, *EnforcementService) {
	preferences := cache.NewPreferenceStore()
	return preferences, NewEnforcementService(preferences, domain.DefaultCapabilityRegistry())
}

func claimsFor(subject string) map[string]any {
	return map[string]any{"sub": subject, "email": subject + "@example.com"}
}

func TestEnforcement_EnabledCapabilityAllowed(t *testing.T) {
	preferences, svc := newEnforcement(t)
	ctx := context.Background()

	require.NoError(t, preferences.Replace(ctx, &domain.PreferenceRecord{
		Subject:             "sub-1",
		EnabledCapabilities: []string{"get_email"},
		UpdatedAt:           time.Now().UTC(),
	}))

	assert.NoError(t, svc.Require(ctx, claimsFor("sub-1"), "get_email"))
}

func TestEnforcement_DisabledCapabilityDenied(t *testing.T) {
	preferences, svc := newEnforcement(t)
	ctx := context.Background()

	require.NoError(t, preferences.Replace(ctx, &domain.PreferenceRecord{
		Subject:             "sub-1",
		EnabledCapabilities: []string{"get_email"},
	}))

	err := svc.Require(ctx, claimsFor("sub-1"), "get_name")
	require.Error(t, err)
	assert.True(t, serrors.HasCode(err, serrors.CapabilityNotEnabled))
}

func TestEnforcement_NoRecordDenied(t *testing.T) {
	// A subject that never completed consent has no record, which is the
	// same denial as an explicit opt-out.
	_, svc := newEnforcement(t)

	err := svc.Require(context.Background(), claimsFor("sub-unknown"), "get_email")
	require.Error(t, err)
	assert.True(t, serrors.HasCode(err, serrors.CapabilityNotEnabled))
}

func TestEnforcement_MissingSubjectDenied(t *testing.T) {
	_, svc := newEnforcement(t)

	err := svc.Require(context.Background(), map[string]any{"email": "user@example.com"}, "get_email")
	require.Error(t, err)
	assert.True(t, serrors.HasCode(err, serrors.CapabilityNotEnabled))
}

func TestEnforcement_RevokedAfterReplace(t *testing.T) {
	preferences, svc := newEnforcement(t)
	ctx := context.Background()

	require.NoError(t, preferences.Replace(ctx, &domain.PreferenceRecord{
		Subject:             "sub-1",
		EnabledCapabilities: []string{"get_email", "get_name"},
	}))
	require.NoError(t, svc.Require(ctx, claimsFor("sub-1"), "get_name"))

	// Re-consenting with a narrower selection revokes the rest.
	require.NoError(t, preferences.Replace(ctx, &domain.PreferenceRecord{
		Subject:             "sub-1",
		EnabledCapabilities: []string{"get_email"},
	}))

	assert.NoError(t, svc.Require(ctx, claimsFor("sub-1"), "get_email"))
	err := svc.Require(ctx, claimsFor("sub-1"), "get_name")
	require.Error(t, err)
	assert.True(t, serrors.HasCode(err, serrors.CapabilityNotEnabled))
}
