package domain

import (
	"time"

	"github.com/google/uuid"
)

type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalAchieved  GoalStatus = "achieved"
	GoalBlocked   GoalStatus = "blocked"
	GoalAbandoned GoalStatus = "abandoned"
	GoalDeferred  GoalStatus = "deferred"
)

// ValidGoalTransition encodes the goal status state machine:
// active -> {achieved, blocked, abandoned, deferred}, blocked <-> active,
// deferred -> {active, abandoned}. Achieved and abandoned are terminal.
func ValidGoalTransition(from, to GoalStatus) bool {
	switch from {
	case GoalActive:
		return to == GoalAchieved || to == GoalBlocked || to == GoalAbandoned || to == GoalDeferred
	case GoalBlocked:
		return to == GoalActive || to == GoalAbandoned
	case GoalDeferred:
		return to == GoalActive || to == GoalAbandoned
	}
	return false
}

type Goal struct {
	ID            uuid.UUID  `json:"id"`
	Statement     string     `json:"statement"`
	Status        GoalStatus `json:"status"`
	ProgressValue float64    `json:"progress_value"`
	GoalType      string     `json:"goal_type,omitempty"`
	Timeframe     string     `json:"timeframe,omitempty"`
	Priority      int        `json:"priority"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Milestone is an append-only sub-record of a goal.
type Milestone struct {
	ID          uuid.UUID `json:"id"`
	GoalID      uuid.UUID `json:"goal_id"`
	Description string    `json:"description"`
	Reached     bool      `json:"reached"`
	CreatedAt   time.Time `json:"created_at"`
}

type BlockerStatus string

const (
	BlockerOpen     BlockerStatus = "open"
	BlockerResolved BlockerStatus = "resolved"
)

// Blocker is an append-only sub-record of a goal. Resolving the last open
// blocker on a blocked goal reverts the goal to active.
type Blocker struct {
	ID          uuid.UUID     `json:"id"`
	GoalID      uuid.UUID     `json:"goal_id"`
	Description string        `json:"description"`
	Severity    float64       `json:"severity"`
	Status      BlockerStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
}
