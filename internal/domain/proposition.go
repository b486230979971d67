package domain

import (
	"time"

	"github.com/google/uuid"
)

// PropositionType classifies what kind of atomic statement was extracted.
type PropositionType string

const (
	PropositionFact        PropositionType = "fact"
	PropositionPreference  PropositionType = "preference"
	PropositionIntention   PropositionType = "intention"
	PropositionQuestion    PropositionType = "question"
	PropositionObservation PropositionType = "observation"
)

func ValidPropositionType(t string) bool {
	switch PropositionType(t) {
	case PropositionFact, PropositionPreference, PropositionIntention,
		PropositionQuestion, PropositionObservation:
		return true
	}
	return false
}

// Proposition is an atomic statement extracted from one conversation unit:
// the "what was said", independent of how it was held.
type Proposition struct {
	ID        uuid.UUID       `json:"id"`
	UnitID    uuid.UUID       `json:"unit_id"`
	Content   string          `json:"content"`
	Type      PropositionType `json:"type"`
	Subject   string          `json:"subject"`
	CreatedAt time.Time       `json:"created_at"`
}

// VolitionalType distinguishes wanting from avoiding from aiming-at.
type VolitionalType string

const (
	VolitionalDesire   VolitionalType = "desire"
	VolitionalAversion VolitionalType = "aversion"
	VolitionalGoal     VolitionalType = "goal"
	VolitionalNone     VolitionalType = "none"
)

// EpistemicStance captures how certain the speaker was and on what evidence.
type EpistemicStance struct {
	Certainty float64 `json:"certainty"`
	Evidence  string  `json:"evidence,omitempty"`
}

// VolitionalStance captures want/avoid orientation. Valence is signed:
// positive for pursuit, negative for avoidance.
type VolitionalStance struct {
	Type     VolitionalType `json:"type"`
	Strength float64        `json:"strength"`
	Valence  float64        `json:"valence"`
}

// DeonticStance captures obligation/permission coloring.
type DeonticStance struct {
	Type     string  `json:"type,omitempty"`
	Strength float64 `json:"strength"`
}

// AffectiveStance captures emotional coloring.
type AffectiveStance struct {
	Valence  float64  `json:"valence"`
	Arousal  float64  `json:"arousal"`
	Emotions []string `json:"emotions,omitempty"`
}

// Stance is the epistemic/volitional/deontic/affective coloring attached to
// exactly one proposition: the "how it was held".
type Stance struct {
	PropositionID uuid.UUID        `json:"proposition_id"`
	Epistemic     EpistemicStance  `json:"epistemic"`
	Volitional    VolitionalStance `json:"volitional"`
	Deontic       DeonticStance    `json:"deontic"`
	Affective     AffectiveStance  `json:"affective"`
}

// Relation links two propositions of the same unit (contrast, causal, ...).
type Relation struct {
	ID             uuid.UUID `json:"id"`
	PropositionAID uuid.UUID `json:"proposition_a_id"`
	PropositionBID uuid.UUID `json:"proposition_b_id"`
	Category       string    `json:"category"`
	Subtype        string    `json:"subtype,omitempty"`
	Strength       float64   `json:"strength"`
	CreatedAt      time.Time `json:"created_at"`
}
