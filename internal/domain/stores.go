package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Page bounds list queries.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) Clamp(def, max int) Page {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	GetOpen(ctx context.Context) (*Session, error)
	End(ctx context.Context, id uuid.UUID, endedAt time.Time) error
}

type UnitStore interface {
	Create(ctx context.Context, u *ConversationUnit) error
	GetByID(ctx context.Context, id uuid.UUID) (*ConversationUnit, error)
	UpdateSanitized(ctx context.Context, id uuid.UUID, sanitized string) error
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, page Page) ([]ConversationUnit, error)
}

type PropositionStore interface {
	Create(ctx context.Context, p *Proposition, st *Stance) error
	ListByUnit(ctx context.Context, unitID uuid.UUID) ([]Proposition, error)
	GetStance(ctx context.Context, propositionID uuid.UUID) (*Stance, error)
	CreateRelation(ctx context.Context, r *Relation) error
	ListRelationsByUnit(ctx context.Context, unitID uuid.UUID) ([]Relation, error)
}

type EntityStore interface {
	CreateMention(ctx context.Context, m *EntityMention) error
	ListMentionsByUnit(ctx context.Context, unitID uuid.UUID) ([]EntityMention, error)
	ListUnresolvedMentions(ctx context.Context, page Page) ([]EntityMention, error)
	ResolveMention(ctx context.Context, mentionID, entityID uuid.UUID) error
	CreateEntity(ctx context.Context, e *Entity) error
	GetEntityByID(ctx context.Context, id uuid.UUID) (*Entity, error)
	GetEntityByName(ctx context.Context, canonicalName, entityType string) (*Entity, error)
	ListEntities(ctx context.Context, page Page) ([]Entity, error)
	ListEntitiesByRecentMention(ctx context.Context, limit int) ([]Entity, error)
	IncrementMentionCount(ctx context.Context, id uuid.UUID) error
	RenameEntity(ctx context.Context, id uuid.UUID, canonicalName string) error
}

// ClaimStats summarizes the claim table for the memory-stats view.
type ClaimStats struct {
	Total         int     `json:"total"`
	Active        int     `json:"active"`
	Stale         int     `json:"stale"`
	Retracted     int     `json:"retracted"`
	Working       int     `json:"working"`
	LongTerm      int     `json:"long_term"`
	AvgConfidence float64 `json:"avg_confidence"`
}

type ClaimStore interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	List(ctx context.Context, state ClaimState, page Page) ([]Claim, error)
	ListBySubject(ctx context.Context, subject string, state ClaimState) ([]Claim, error)
	ListActiveSince(ctx context.Context, since time.Time, limit int) ([]Claim, error)
	ListForDecay(ctx context.Context) ([]Claim, error)
	UpdateConfidence(ctx context.Context, id uuid.UUID, confidence float64) error
	UpdateSalience(ctx context.Context, id uuid.UUID, salience float64) error
	Reinforce(ctx context.Context, id uuid.UUID, confidence float64, confirmations int, at time.Time) error
	RecordAccess(ctx context.Context, id uuid.UUID, at time.Time) error
	SetState(ctx context.Context, id uuid.UUID, state ClaimState) error
	Promote(ctx context.Context, id uuid.UUID, at time.Time) error
	Stats(ctx context.Context) (*ClaimStats, error)
}

type ChainStore interface {
	Create(ctx context.Context, c *ThoughtChain) error
	GetByID(ctx context.Context, id uuid.UUID) (*ThoughtChain, error)
	ListByState(ctx context.Context, state ChainState) ([]ThoughtChain, error)
	List(ctx context.Context, page Page) ([]ThoughtChain, error)
	UpdateState(ctx context.Context, id uuid.UUID, state ChainState) error
	UpdateLastExtended(ctx context.Context, id uuid.UUID, at time.Time) error
	AddClaim(ctx context.Context, cc *ChainClaim) error
	MaxPosition(ctx context.Context, chainID uuid.UUID) (int, error)
	ListClaims(ctx context.Context, chainID uuid.UUID) ([]ChainClaim, error)
}

type GoalStore interface {
	Create(ctx context.Context, g *Goal) error
	GetByID(ctx context.Context, id uuid.UUID) (*Goal, error)
	List(ctx context.Context, page Page) ([]Goal, error)
	ListByStatus(ctx context.Context, status GoalStatus) ([]Goal, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status GoalStatus, at time.Time) error
	UpdateProgress(ctx context.Context, id uuid.UUID, progress float64, at time.Time) error
	AddMilestone(ctx context.Context, m *Milestone) error
	ListMilestones(ctx context.Context, goalID uuid.UUID) ([]Milestone, error)
	AddBlocker(ctx context.Context, b *Blocker) error
	ListBlockers(ctx context.Context, goalID uuid.UUID) ([]Blocker, error)
	ResolveBlocker(ctx context.Context, blockerID uuid.UUID, at time.Time) error
}

type PatternStore interface {
	Create(ctx context.Context, p *Pattern) error
	GetBySignature(ctx context.Context, patternType, description string) (*Pattern, error)
	IncrementOccurrence(ctx context.Context, id uuid.UUID, confidence float64, at time.Time) error
	List(ctx context.Context, page Page) ([]Pattern, error)
}

type ContradictionStore interface {
	Create(ctx context.Context, c *Contradiction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Contradiction, error)
	ExistsForPair(ctx context.Context, claimA, claimB uuid.UUID) (bool, error)
	List(ctx context.Context, onlyUnresolved bool, page Page) ([]Contradiction, error)
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]Contradiction, error)
	Resolve(ctx context.Context, id uuid.UUID, resolutionType, notes string, at time.Time) error
}

type CorrectionStore interface {
	Create(ctx context.Context, c *Correction) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByWrongText(ctx context.Context, wrongText string) (*Correction, error)
	List(ctx context.Context, page Page) ([]Correction, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) error
}

type VocabularyStore interface {
	Create(ctx context.Context, v *VocabularyEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*VocabularyEntry, error)
	GetBySpelling(ctx context.Context, spelling, entityType string) (*VocabularyEntry, error)
	ListByPhonetic(ctx context.Context, code string) ([]VocabularyEntry, error)
	List(ctx context.Context, page Page) ([]VocabularyEntry, error)
	Update(ctx context.Context, v *VocabularyEntry) error
	IncrementUsage(ctx context.Context, id uuid.UUID) error
}

type TaskStore interface {
	Create(ctx context.Context, t *Task) error
	Update(ctx context.Context, t *Task) error
	ListByStatus(ctx context.Context, status TaskStatus, page Page) ([]Task, error)
	CountByStatus(ctx context.Context) (map[TaskStatus]int, error)
}

// ExtractorState persists the toggle and run statistics of one extractor.
type ExtractorState struct {
	Name         string    `json:"name"`
	Active       bool      `json:"active"`
	RunCount     int       `json:"run_count"`
	SuccessCount int       `json:"success_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s ExtractorState) SuccessRate() float64 {
	if s.RunCount == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.RunCount)
}

type ExtractorStateStore interface {
	Upsert(ctx context.Context, s *ExtractorState) error
	Get(ctx context.Context, name string) (*ExtractorState, error)
	List(ctx context.Context) ([]ExtractorState, error)
	RecordRun(ctx context.Context, name string, success bool) error
}

// SearchReplaceStore rewrites a literal text fragment across every text-bearing
// column, returning per-table replacement counts.
type SearchReplaceStore interface {
	ReplaceAll(ctx context.Context, oldText, newText string) (map[string]int64, error)
}

// ExtractedProposition is one proposition+stance pair produced by the
// extraction capability. Stance.PropositionID is assigned on persist.
type ExtractedProposition struct {
	Content    string          `json:"content"`
	Type       PropositionType `json:"type"`
	Subject    string          `json:"subject"`
	Confidence float64         `json:"confidence"`
	Stance     Stance          `json:"stance"`
}

// ExtractedMention is one entity span produced by extraction.
type ExtractedMention struct {
	Text          string      `json:"text"`
	MentionType   MentionType `json:"mention_type"`
	SuggestedType string      `json:"suggested_type"`
}

// ExtractionResult is the structured response of one capability invocation.
type ExtractionResult struct {
	Propositions []ExtractedProposition `json:"propositions"`
	Mentions     []ExtractedMention     `json:"mentions"`
}

// ExtractionClient is the external text-generation capability. The kernel
// treats it as opaque and must tolerate malformed responses without crashing
// the pipeline.
type ExtractionClient interface {
	ExtractKnowledge(ctx context.Context, text string) (*ExtractionResult, error)
	CheckContradiction(ctx context.Context, statementA, statementB string) (bool, error)
}
