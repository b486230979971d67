package domain

import (
	"time"

	"github.com/google/uuid"
)

// Correction is a flat wrong->correct replacement consulted during preprocess.
type Correction struct {
	ID          uuid.UUID `json:"id"`
	WrongText   string    `json:"wrong_text"`
	CorrectText string    `json:"correct_text"`
	UsageCount  int       `json:"usage_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// VocabularyEntry stores a canonical spelling with phonetic codes and a
// running tally of observed spelling variants. CorrectSpelling is unique per
// EntityType.
type VocabularyEntry struct {
	ID                uuid.UUID      `json:"id"`
	CorrectSpelling   string         `json:"correct_spelling"`
	EntityType        string         `json:"entity_type"`
	PhoneticPrimary   string         `json:"phonetic_primary"`
	PhoneticSecondary string         `json:"phonetic_secondary,omitempty"`
	VariantCounts     map[string]int `json:"variant_counts,omitempty"`
	ContextHints      []string       `json:"context_hints,omitempty"`
	UsageCount        int            `json:"usage_count"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// CanonicalizationSuggestion proposes rewriting an observed spelling to a
// vocabulary entry's canonical form.
type CanonicalizationSuggestion struct {
	EntryID         uuid.UUID `json:"entry_id"`
	ObservedText    string    `json:"observed_text"`
	CorrectSpelling string    `json:"correct_spelling"`
	Confidence      float64   `json:"confidence"`
}
