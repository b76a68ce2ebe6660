package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"go.pilab.hu/consentproxy/domain"
)

// PreferenceRepository implements domain.PreferenceRepository on MongoDB.
// Records are keyed by subject (_id), so ReplaceOne with upsert gives the
// wholesale last-write-wins semantics the consent gate requires.
type PreferenceRepository struct {
	prefs *mongo.Collection
}

// NewPreferenceRepository creates a repository over the preferences collection.
func NewPreferenceRepository(db *mongo.Database) *PreferenceRepository {
	return &PreferenceRepository{
		prefs: db.Collection(PreferencesCollection),
	}
}

// Replace implements domain.PreferenceRepository.Replace.
func (r *PreferenceRepository) Replace(ctx context.Context, record *domain.PreferenceRecord) error {
	if record.Subject == "" {
		return errors.New("preference subject cannot be empty")
	}

	record.UpdatedAt = time.Now().UTC()
	_, err := r.prefs.ReplaceOne(ctx,
		bson.M{"_id": record.Subject},
		record,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		log.Error().Err(err).Str("subject", record.Subject).Msg("Error replacing preference record")
		return fmt.Errorf("failed to replace preference record: %w", err)
	}

	log.Debug().
		Str("subject", record.Subject).
		Strs("enabled", record.EnabledCapabilities).
		Msg("Preference record replaced")

	return nil
}

// Get implements domain.PreferenceRepository.Get.
func (r *PreferenceRepository) Get(ctx context.Context, subject string) (*domain.PreferenceRecord, error) {
	var record domain.PreferenceRecord
	err := r.prefs.FindOne(ctx, bson.M{"_id": subject}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPreferenceNotFound
		}
		log.Error().Err(err).Str("subject", subject).Msg("Error retrieving preference record")
		return nil, fmt.Errorf("failed to retrieve preference record: %w", err)
	}
	return &record, nil
}
