package domain

import "time"

// PreferenceRecord is the durable per-subject set of enabled capabilities.
// Every consent submission replaces the record wholesale; there is no merge
// with an earlier selection.
type PreferenceRecord struct {
	Subject             string    `json:"subject" bson:"_id"`
	EnabledCapabilities []string  `json:"enabled_capabilities" bson:"enabled_capabilities"`
	UpdatedAt           time.Time `json:"updated_at" bson:"updated_at"`
}

// Enabled reports whether the named capability is in the enabled set.
func (p *PreferenceRecord) Enabled(name string) bool {
	if p == nil {
		return false
	}
	for _, c := range p.EnabledCapabilities {
		if c == name {
			return true
		}
	}
	return false
}
