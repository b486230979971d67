package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventStepCompleted  EventType = "step_completed"
	EventStepFailed     EventType = "step_failed"
	EventUnitCompleted  EventType = "unit_completed"
	EventSessionStarted EventType = "session_started"
	EventSessionEnded   EventType = "session_ended"
)

// Event is one entry in the kernel's bounded event stream. Step events carry
// step-specific counters (spans found, propositions produced, mentions
// resolved, claims created) so observers can react without polling.
type Event struct {
	Type     EventType      `json:"type"`
	UnitID   uuid.UUID      `json:"unit_id,omitempty"`
	Step     Step           `json:"step,omitempty"`
	Counters map[string]int `json:"counters,omitempty"`
	Error    string         `json:"error,omitempty"`
	At       time.Time      `json:"at"`
}
