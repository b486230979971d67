package domain

import (
	"time"

	"github.com/google/uuid"
)

type ClaimType string

const (
	ClaimFact       ClaimType = "fact"
	ClaimPreference ClaimType = "preference"
	ClaimIntention  ClaimType = "intention"
	ClaimConcern    ClaimType = "concern"
	ClaimQuestion   ClaimType = "question"
	ClaimBelief     ClaimType = "belief"
)

func ValidClaimType(t string) bool {
	switch ClaimType(t) {
	case ClaimFact, ClaimPreference, ClaimIntention, ClaimConcern, ClaimQuestion, ClaimBelief:
		return true
	}
	return false
}

// ClaimState tracks the lifecycle of a claim. Claims are never physically
// deleted, only state-transitioned.
type ClaimState string

const (
	ClaimActive    ClaimState = "active"
	ClaimStale     ClaimState = "stale"
	ClaimRetracted ClaimState = "retracted"
)

// MemoryTier classifies a claim as recent working knowledge or consolidated
// long-term knowledge. Promotion is one-directional.
type MemoryTier string

const (
	TierWorking  MemoryTier = "working"
	TierLongTerm MemoryTier = "long_term"
)

// Temporality controls how fast a claim's confidence and salience decay.
type Temporality string

const (
	TemporalityEternal  Temporality = "eternal"
	TemporalityDurable  Temporality = "durable"
	TemporalityEpisodic Temporality = "episodic"
)

// DecayRate returns the per-day exponential decay rate for this temporality.
// Eternal claims decay negligibly; episodic claims decay fastest.
func (t Temporality) DecayRate() float64 {
	switch t {
	case TemporalityEternal:
		return 0.002
	case TemporalityDurable:
		return 0.02
	case TemporalityEpisodic:
		return 0.10
	default:
		return 0.02
	}
}

type SourceType string

const (
	SourceStated   SourceType = "stated"
	SourceInferred SourceType = "inferred"
)

// Claim is a derived, persisted unit of knowledge combining a proposition and
// its stance, subject to confidence decay and memory tiering.
type Claim struct {
	ID                 uuid.UUID   `json:"id"`
	Statement          string      `json:"statement"`
	ClaimType          ClaimType   `json:"claim_type"`
	Subject            string      `json:"subject"`
	Stakes             float64     `json:"stakes"`
	Temporality        Temporality `json:"temporality"`
	Abstraction        string      `json:"abstraction,omitempty"`
	SourceType         SourceType  `json:"source_type"`
	State              ClaimState  `json:"state"`
	CurrentConfidence  float64     `json:"current_confidence"`
	EmotionalValence   float64     `json:"emotional_valence"`
	EmotionalIntensity float64     `json:"emotional_intensity"`
	ConfirmationCount  int         `json:"confirmation_count"`
	Salience           float64     `json:"salience"`
	MemoryTier         MemoryTier  `json:"memory_tier"`
	CreatedAt          time.Time   `json:"created_at"`
	LastConfirmed      *time.Time  `json:"last_confirmed,omitempty"`
	LastAccessedAt     *time.Time  `json:"last_accessed_at,omitempty"`
	PromotedAt         *time.Time  `json:"promoted_at,omitempty"`
}
