package cache

import (
	"context"
	"sync"
	"time"

	"go.pilab.hu/consentproxy/domain"
)

// PreferenceStore is an in-process domain.PreferenceRepository for
// development and tests. Production deployments use the MongoDB-backed
// repository; preference records have no TTL either way.
type PreferenceStore struct {
	mu      sync.RWMutex
	records map[string]domain.PreferenceRecord
}

// NewPreferenceStore creates an empty in-memory preference store.
func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{
		records: make(map[string]domain.PreferenceRecord),
	}
}

// Replace implements domain.PreferenceRepository.Replace. The stored record
// is overwritten wholesale; earlier selections do not survive.
func (s *PreferenceStore) Replace(_ context.Context, record *domain.PreferenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *record
	stored.EnabledCapabilities = append([]string(nil), record.EnabledCapabilities...)
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}
	s.records[record.Subject] = stored
	return nil
}

// Get implements domain.PreferenceRepository.Get.
func (s *PreferenceStore) Get(_ context.Context, subject string) (*domain.PreferenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[subject]
	if !ok {
		return nil, domain.ErrPreferenceNotFound
	}

	out := record
	out.EnabledCapabilities = append([]string(nil), record.EnabledCapabilities...)
	return &out, nil
}
