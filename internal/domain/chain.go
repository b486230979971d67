package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChainState is the topic-thread lifecycle: active <-> dormant -> concluded.
// Concluded is terminal and explicit only; dormant chains revive when a new
// claim is assigned to them.
type ChainState string

const (
	ChainActive    ChainState = "active"
	ChainDormant   ChainState = "dormant"
	ChainConcluded ChainState = "concluded"
)

// ValidChainTransition reports whether a chain may move from one state to
// another.
func ValidChainTransition(from, to ChainState) bool {
	switch from {
	case ChainActive:
		return to == ChainDormant || to == ChainConcluded
	case ChainDormant:
		return to == ChainActive || to == ChainConcluded
	}
	return false
}

// ThoughtChain is a topic-clustered sequence of claims representing a
// continuing thread of thought.
type ThoughtChain struct {
	ID           uuid.UUID  `json:"id"`
	Topic        string     `json:"topic"`
	State        ChainState `json:"state"`
	LastExtended time.Time  `json:"last_extended"`
	BranchesFrom *uuid.UUID `json:"branches_from,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ChainClaim links a claim into a chain at a strictly increasing position.
type ChainClaim struct {
	ChainID   uuid.UUID `json:"chain_id"`
	ClaimID   uuid.UUID `json:"claim_id"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}
