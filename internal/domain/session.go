package domain

import (
	"time"

	"github.com/google/uuid"
)

// Source indicates how a conversation unit entered the system.
type Source string

const (
	SourceSpeech Source = "speech"
	SourceText   Source = "text"
)

func ValidSource(s string) bool {
	switch Source(s) {
	case SourceSpeech, SourceText:
		return true
	}
	return false
}

// Session groups conversation units. At most one session is open at a time.
type Session struct {
	ID        uuid.UUID  `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func (s *Session) Open() bool {
	return s.EndedAt == nil
}

// ConversationUnit is one submitted utterance. RawText is immutable;
// SanitizedText is RawText after preprocessing (corrections applied).
type ConversationUnit struct {
	ID            uuid.UUID `json:"id"`
	SessionID     uuid.UUID `json:"session_id"`
	RawText       string    `json:"raw_text"`
	SanitizedText string    `json:"sanitized_text"`
	Source        Source    `json:"source"`
	Processed     bool      `json:"processed"`
	Timestamp     time.Time `json:"timestamp"`
}
