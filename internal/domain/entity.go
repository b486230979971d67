package domain

import (
	"time"

	"github.com/google/uuid"
)

// MentionType classifies how a referent surfaced in the text.
type MentionType string

const (
	MentionNamed      MentionType = "named"
	MentionPronominal MentionType = "pronominal"
	MentionNominal    MentionType = "nominal"
)

// EntityMention is a span in one conversation unit that refers to some entity.
// ResolvedEntityID stays nil until the resolution stage succeeds.
type EntityMention struct {
	ID               uuid.UUID   `json:"id"`
	UnitID           uuid.UUID   `json:"unit_id"`
	Text             string      `json:"text"`
	MentionType      MentionType `json:"mention_type"`
	SuggestedType    string      `json:"suggested_type,omitempty"`
	ResolvedEntityID *uuid.UUID  `json:"resolved_entity_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Entity is a resolved referent. CanonicalName is unique per EntityType.
type Entity struct {
	ID            uuid.UUID `json:"id"`
	CanonicalName string    `json:"canonical_name"`
	EntityType    string    `json:"entity_type"`
	MentionCount  int       `json:"mention_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
