package domain

import (
	"time"

	"github.com/google/uuid"
)

// Pattern records a recurring structural similarity across recent claims.
type Pattern struct {
	ID              uuid.UUID `json:"id"`
	PatternType     string    `json:"pattern_type"`
	Description     string    `json:"description"`
	OccurrenceCount int       `json:"occurrence_count"`
	Confidence      float64   `json:"confidence"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
}

type ContradictionType string

const (
	ContradictionVolitional ContradictionType = "volitional"
	ContradictionFactual    ContradictionType = "factual"
)

// Contradiction links two distinct claims whose stances oppose. Resolved is
// monotone: once true it never reverts, and resolution is always an explicit
// user or derived action, never automatic.
type Contradiction struct {
	ID                uuid.UUID         `json:"id"`
	ClaimAID          uuid.UUID         `json:"claim_a_id"`
	ClaimBID          uuid.UUID         `json:"claim_b_id"`
	ContradictionType ContradictionType `json:"contradiction_type"`
	Resolved          bool              `json:"resolved"`
	ResolutionType    string            `json:"resolution_type,omitempty"`
	ResolutionNotes   string            `json:"resolution_notes,omitempty"`
	DetectedAt        time.Time         `json:"detected_at"`
	ResolvedAt        *time.Time        `json:"resolved_at,omitempty"`
}
