package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noemahq/noema/internal/domain"
	"github.com/noemahq/noema/internal/store"
)

// In-memory store fakes shared by the service tests. They hold everything in
// maps under one mutex and mirror the pg stores' not-found behavior.

type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.Session
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: map[uuid.UUID]*domain.Session{}}
}

func (m *mockSessionStore) Create(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	s.StartedAt = time.Now()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *mockSessionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSessionStore) GetOpen(_ context.Context) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.EndedAt == nil {
			cp := *s
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

// set overwrites a session in place, for test setup.
func (m *mockSessionStore) set(s *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
}

func (m *mockSessionStore) End(_ context.Context, id uuid.UUID, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return store.ErrNotFound
	}
	s.EndedAt = &endedAt
	return nil
}

type mockUnitStore struct {
	mu    sync.Mutex
	units map[uuid.UUID]*domain.ConversationUnit
}

func newMockUnitStore() *mockUnitStore {
	return &mockUnitStore{units: map[uuid.UUID]*domain.ConversationUnit{}}
}

func (m *mockUnitStore) Create(_ context.Context, u *domain.ConversationUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.New()
	u.Timestamp = time.Now()
	cp := *u
	m.units[u.ID] = &cp
	return nil
}

func (m *mockUnitStore) GetByID(_ context.Context, id uuid.UUID) (*domain.ConversationUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUnitStore) UpdateSanitized(_ context.Context, id uuid.UUID, sanitized string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return store.ErrNotFound
	}
	u.SanitizedText = sanitized
	return nil
}

func (m *mockUnitStore) MarkProcessed(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Processed = true
	return nil
}

func (m *mockUnitStore) ListBySession(_ context.Context, sessionID uuid.UUID, _ domain.Page) ([]domain.ConversationUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ConversationUnit
	for _, u := range m.units {
		if u.SessionID == sessionID {
			out = append(out, *u)
		}
	}
	return out, nil
}

type mockPropositionStore struct {
	mu      sync.Mutex
	props   map[uuid.UUID]*domain.Proposition
	stances map[uuid.UUID]*domain.Stance
	rels    []domain.Relation
	order   []uuid.UUID
}

func newMockPropositionStore() *mockPropositionStore {
	return &mockPropositionStore{
		props:   map[uuid.UUID]*domain.Proposition{},
		stances: map[uuid.UUID]*domain.Stance{},
	}
}

func (m *mockPropositionStore) Create(_ context.Context, p *domain.Proposition, st *domain.Stance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	st.PropositionID = p.ID
	cp, cs := *p, *st
	m.props[p.ID] = &cp
	m.stances[p.ID] = &cs
	m.order = append(m.order, p.ID)
	return nil
}

func (m *mockPropositionStore) ListByUnit(_ context.Context, unitID uuid.UUID) ([]domain.Proposition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Proposition
	for _, id := range m.order {
		if p := m.props[id]; p.UnitID == unitID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPropositionStore) GetStance(_ context.Context, propositionID uuid.UUID) (*domain.Stance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stances[propositionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (m *mockPropositionStore) CreateRelation(_ context.Context, r *domain.Relation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.rels = append(m.rels, *r)
	return nil
}

func (m *mockPropositionStore) ListRelationsByUnit(_ context.Context, unitID uuid.UUID) ([]domain.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Relation
	for _, r := range m.rels {
		if a, ok := m.props[r.PropositionAID]; ok && a.UnitID == unitID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockEntityStore struct {
	mu       sync.Mutex
	mentions map[uuid.UUID]*domain.EntityMention
	entities map[uuid.UUID]*domain.Entity
	order    []uuid.UUID
}

func newMockEntityStore() *mockEntityStore {
	return &mockEntityStore{
		mentions: map[uuid.UUID]*domain.EntityMention{},
		entities: map[uuid.UUID]*domain.Entity{},
	}
}

func (m *mockEntityStore) CreateMention(_ context.Context, em *domain.EntityMention) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	em.ID = uuid.New()
	em.CreatedAt = time.Now()
	cp := *em
	m.mentions[em.ID] = &cp
	m.order = append(m.order, em.ID)
	return nil
}

func (m *mockEntityStore) ListMentionsByUnit(_ context.Context, unitID uuid.UUID) ([]domain.EntityMention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EntityMention
	for _, id := range m.order {
		if em := m.mentions[id]; em.UnitID == unitID {
			out = append(out, *em)
		}
	}
	return out, nil
}

func (m *mockEntityStore) ListUnresolvedMentions(_ context.Context, _ domain.Page) ([]domain.EntityMention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EntityMention
	for _, id := range m.order {
		if em := m.mentions[id]; em.ResolvedEntityID == nil {
			out = append(out, *em)
		}
	}
	return out, nil
}

func (m *mockEntityStore) ResolveMention(_ context.Context, mentionID, entityID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	em, ok := m.mentions[mentionID]
	if !ok {
		return store.ErrNotFound
	}
	em.ResolvedEntityID = &entityID
	return nil
}

func (m *mockEntityStore) CreateEntity(_ context.Context, e *domain.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.entities {
		if strings.EqualFold(existing.CanonicalName, e.CanonicalName) && existing.EntityType == e.EntityType {
			existing.MentionCount++
			*e = *existing
			return nil
		}
	}
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	m.entities[e.ID] = &cp
	return nil
}

func (m *mockEntityStore) GetEntityByID(_ context.Context, id uuid.UUID) (*domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockEntityStore) GetEntityByName(_ context.Context, canonicalName, entityType string) (*domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entities {
		if strings.EqualFold(e.CanonicalName, canonicalName) && e.EntityType == entityType {
			cp := *e
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockEntityStore) ListEntities(_ context.Context, _ domain.Page) ([]domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Entity
	for _, e := range m.entities {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CanonicalName < out[j].CanonicalName })
	return out, nil
}

func (m *mockEntityStore) ListEntitiesByRecentMention(_ context.Context, limit int) ([]domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Entity
	for _, e := range m.entities {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockEntityStore) IncrementMentionCount(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[id]
	if !ok {
		return store.ErrNotFound
	}
	e.MentionCount++
	e.UpdatedAt = time.Now()
	return nil
}

func (m *mockEntityStore) RenameEntity(_ context.Context, id uuid.UUID, canonicalName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[id]
	if !ok {
		return store.ErrNotFound
	}
	e.CanonicalName = canonicalName
	e.UpdatedAt = time.Now()
	return nil
}

type mockClaimStore struct {
	mu     sync.Mutex
	claims map[uuid.UUID]*domain.Claim
	order  []uuid.UUID
}

func newMockClaimStore() *mockClaimStore {
	return &mockClaimStore{claims: map[uuid.UUID]*domain.Claim{}}
}

func (m *mockClaimStore) Create(_ context.Context, c *domain.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	cp := *c
	m.claims[c.ID] = &cp
	m.order = append(m.order, c.ID)
	return nil
}

func (m *mockClaimStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockClaimStore) List(_ context.Context, state domain.ClaimState, _ domain.Page) ([]domain.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Claim
	for _, id := range m.order {
		if c := m.claims[id]; state == "" || c.State == state {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockClaimStore) ListBySubject(_ context.Context, subject string, state domain.ClaimState) ([]domain.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Claim
	for _, id := range m.order {
		c := m.claims[id]
		if strings.EqualFold(c.Subject, subject) && (state == "" || c.State == state) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockClaimStore) ListActiveSince(_ context.Context, since time.Time, limit int) ([]domain.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Claim
	for _, id := range m.order {
		c := m.claims[id]
		if c.State == domain.ClaimActive && c.CreatedAt.After(since) {
			out = append(out, *c)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockClaimStore) ListForDecay(_ context.Context) ([]domain.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Claim
	for _, id := range m.order {
		if c := m.claims[id]; c.State != domain.ClaimRetracted {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockClaimStore) UpdateConfidence(_ context.Context, id uuid.UUID, confidence float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return store.ErrNotFound
	}
	c.CurrentConfidence = confidence
	return nil
}

func (m *mockClaimStore) UpdateSalience(_ context.Context, id uuid.UUID, salience float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Salience = salience
	return nil
}

func (m *mockClaimStore) Reinforce(_ context.Context, id uuid.UUID, confidence float64, confirmations int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return store.ErrNotFound
	}
	c.CurrentConfidence = confidence
	c.ConfirmationCount = confirmations
	c.LastConfirmed = &at
	return nil
}

func (m *mockClaimStore) RecordAccess(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return store.ErrNotFound
	}
	c.LastAccessedAt = &at
	return nil
}

func (m *mockClaimStore) SetState(_ context.Context, id uuid.UUID, state domain.ClaimState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return store.ErrNotFound
	}
	c.State = state
	return nil
}

func (m *mockClaimStore) Promote(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return store.ErrNotFound
	}
	if c.MemoryTier != domain.TierWorking {
		return nil
	}
	c.MemoryTier = domain.TierLongTerm
	c.PromotedAt = &at
	return nil
}

func (m *mockClaimStore) Stats(_ context.Context) (*domain.ClaimStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.ClaimStats{}
	sum := 0.0
	for _, c := range m.claims {
		stats.Total++
		sum += c.CurrentConfidence
		switch c.State {
		case domain.ClaimActive:
			stats.Active++
		case domain.ClaimStale:
			stats.Stale++
		case domain.ClaimRetracted:
			stats.Retracted++
		}
		if c.MemoryTier == domain.TierWorking {
			stats.Working++
		} else {
			stats.LongTerm++
		}
	}
	if stats.Total > 0 {
		stats.AvgConfidence = sum / float64(stats.Total)
	}
	return stats, nil
}

// set overwrites a claim in place, for test setup.
func (m *mockClaimStore) set(c *domain.Claim) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	if _, ok := m.claims[c.ID]; !ok {
		m.order = append(m.order, c.ID)
	}
	m.claims[c.ID] = &cp
}

type mockChainStore struct {
	mu     sync.Mutex
	chains map[uuid.UUID]*domain.ThoughtChain
	links  []domain.ChainClaim
	order  []uuid.UUID
}

func newMockChainStore() *mockChainStore {
	return &mockChainStore{chains: map[uuid.UUID]*domain.ThoughtChain{}}
}

func (m *mockChainStore) Create(_ context.Context, c *domain.ThoughtChain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.LastExtended = c.CreatedAt
	cp := *c
	m.chains[c.ID] = &cp
	m.order = append(m.order, c.ID)
	return nil
}

func (m *mockChainStore) GetByID(_ context.Context, id uuid.UUID) (*domain.ThoughtChain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chains[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockChainStore) ListByState(_ context.Context, state domain.ChainState) ([]domain.ThoughtChain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ThoughtChain
	for _, id := range m.order {
		if c := m.chains[id]; c.State == state {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockChainStore) List(_ context.Context, _ domain.Page) ([]domain.ThoughtChain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ThoughtChain
	for _, id := range m.order {
		out = append(out, *m.chains[id])
	}
	return out, nil
}

func (m *mockChainStore) UpdateState(_ context.Context, id uuid.UUID, state domain.ChainState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chains[id]
	if !ok {
		return store.ErrNotFound
	}
	c.State = state
	return nil
}

func (m *mockChainStore) UpdateLastExtended(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chains[id]
	if !ok {
		return store.ErrNotFound
	}
	c.LastExtended = at
	return nil
}

func (m *mockChainStore) AddClaim(_ context.Context, cc *domain.ChainClaim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, *cc)
	return nil
}

func (m *mockChainStore) MaxPosition(_ context.Context, chainID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, l := range m.links {
		if l.ChainID == chainID && l.Position > max {
			max = l.Position
		}
	}
	return max, nil
}

func (m *mockChainStore) ListClaims(_ context.Context, chainID uuid.UUID) ([]domain.ChainClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ChainClaim
	for _, l := range m.links {
		if l.ChainID == chainID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *mockChainStore) set(c *domain.ThoughtChain) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	if _, ok := m.chains[c.ID]; !ok {
		m.order = append(m.order, c.ID)
	}
	m.chains[c.ID] = &cp
}

type mockGoalStore struct {
	mu         sync.Mutex
	goals      map[uuid.UUID]*domain.Goal
	milestones []domain.Milestone
	blockers   map[uuid.UUID]*domain.Blocker
	order      []uuid.UUID
}

func newMockGoalStore() *mockGoalStore {
	return &mockGoalStore{
		goals:    map[uuid.UUID]*domain.Goal{},
		blockers: map[uuid.UUID]*domain.Blocker{},
	}
}

func (m *mockGoalStore) Create(_ context.Context, g *domain.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = uuid.New()
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	cp := *g
	m.goals[g.ID] = &cp
	m.order = append(m.order, g.ID)
	return nil
}

func (m *mockGoalStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *mockGoalStore) List(_ context.Context, _ domain.Page) ([]domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Goal
	for _, id := range m.order {
		out = append(out, *m.goals[id])
	}
	return out, nil
}

func (m *mockGoalStore) ListByStatus(_ context.Context, status domain.GoalStatus) ([]domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Goal
	for _, id := range m.order {
		if g := m.goals[id]; g.Status == status {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *mockGoalStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.GoalStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	if !ok {
		return store.ErrNotFound
	}
	g.Status = status
	g.UpdatedAt = at
	return nil
}

func (m *mockGoalStore) UpdateProgress(_ context.Context, id uuid.UUID, progress float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[id]
	if !ok {
		return store.ErrNotFound
	}
	g.ProgressValue = progress
	g.UpdatedAt = at
	return nil
}

func (m *mockGoalStore) AddMilestone(_ context.Context, ms *domain.Milestone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms.ID = uuid.New()
	ms.CreatedAt = time.Now()
	m.milestones = append(m.milestones, *ms)
	return nil
}

func (m *mockGoalStore) ListMilestones(_ context.Context, goalID uuid.UUID) ([]domain.Milestone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Milestone
	for _, ms := range m.milestones {
		if ms.GoalID == goalID {
			out = append(out, ms)
		}
	}
	return out, nil
}

func (m *mockGoalStore) AddBlocker(_ context.Context, b *domain.Blocker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = uuid.New()
	b.CreatedAt = time.Now()
	cp := *b
	m.blockers[b.ID] = &cp
	return nil
}

func (m *mockGoalStore) ListBlockers(_ context.Context, goalID uuid.UUID) ([]domain.Blocker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Blocker
	for _, b := range m.blockers {
		if b.GoalID == goalID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockGoalStore) ResolveBlocker(_ context.Context, blockerID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blockers[blockerID]
	if !ok {
		return store.ErrNotFound
	}
	b.Status = domain.BlockerResolved
	b.ResolvedAt = &at
	return nil
}

type mockPatternStore struct {
	mu       sync.Mutex
	patterns map[uuid.UUID]*domain.Pattern
}

func newMockPatternStore() *mockPatternStore {
	return &mockPatternStore{patterns: map[uuid.UUID]*domain.Pattern{}}
}

func (m *mockPatternStore) Create(_ context.Context, p *domain.Pattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	p.FirstSeen = time.Now()
	p.LastSeen = p.FirstSeen
	cp := *p
	m.patterns[p.ID] = &cp
	return nil
}

func (m *mockPatternStore) GetBySignature(_ context.Context, patternType, description string) (*domain.Pattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patterns {
		if p.PatternType == patternType && p.Description == description {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockPatternStore) IncrementOccurrence(_ context.Context, id uuid.UUID, confidence float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patterns[id]
	if !ok {
		return store.ErrNotFound
	}
	p.OccurrenceCount++
	p.Confidence = confidence
	p.LastSeen = at
	return nil
}

func (m *mockPatternStore) List(_ context.Context, _ domain.Page) ([]domain.Pattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Pattern
	for _, p := range m.patterns {
		out = append(out, *p)
	}
	return out, nil
}

type mockContradictionStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.Contradiction
}

func newMockContradictionStore() *mockContradictionStore {
	return &mockContradictionStore{rows: map[uuid.UUID]*domain.Contradiction{}}
}

func (m *mockContradictionStore) Create(_ context.Context, c *domain.Contradiction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	c.DetectedAt = time.Now()
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *mockContradictionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Contradiction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockContradictionStore) ExistsForPair(_ context.Context, claimA, claimB uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if (c.ClaimAID == claimA && c.ClaimBID == claimB) ||
			(c.ClaimAID == claimB && c.ClaimBID == claimA) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockContradictionStore) List(_ context.Context, onlyUnresolved bool, _ domain.Page) ([]domain.Contradiction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Contradiction
	for _, c := range m.rows {
		if onlyUnresolved && c.Resolved {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockContradictionStore) ListByClaim(_ context.Context, claimID uuid.UUID) ([]domain.Contradiction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Contradiction
	for _, c := range m.rows {
		if c.ClaimAID == claimID || c.ClaimBID == claimID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockContradictionStore) Resolve(_ context.Context, id uuid.UUID, resolutionType, notes string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	if c.Resolved {
		return store.ErrNotFound
	}
	c.Resolved = true
	c.ResolutionType = resolutionType
	c.ResolutionNotes = notes
	c.ResolvedAt = &at
	return nil
}

type mockCorrectionStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.Correction
}

func newMockCorrectionStore() *mockCorrectionStore {
	return &mockCorrectionStore{rows: map[uuid.UUID]*domain.Correction{}}
}

func (m *mockCorrectionStore) Create(_ context.Context, c *domain.Correction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	if c.UsageCount == 0 {
		c.UsageCount = 1
	}
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *mockCorrectionStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *mockCorrectionStore) GetByWrongText(_ context.Context, wrongText string) (*domain.Correction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if strings.EqualFold(c.WrongText, wrongText) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockCorrectionStore) List(_ context.Context, _ domain.Page) ([]domain.Correction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Correction
	for _, c := range m.rows {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i].WrongText) > len(out[j].WrongText) })
	return out, nil
}

func (m *mockCorrectionStore) IncrementUsage(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	c.UsageCount++
	return nil
}

type mockVocabularyStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.VocabularyEntry
}

func newMockVocabularyStore() *mockVocabularyStore {
	return &mockVocabularyStore{rows: map[uuid.UUID]*domain.VocabularyEntry{}}
}

func (m *mockVocabularyStore) Create(_ context.Context, v *domain.VocabularyEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	cp := *v
	m.rows[v.ID] = &cp
	return nil
}

func (m *mockVocabularyStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *mockVocabularyStore) GetByID(_ context.Context, id uuid.UUID) (*domain.VocabularyEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *mockVocabularyStore) GetBySpelling(_ context.Context, spelling, entityType string) (*domain.VocabularyEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.rows {
		if strings.EqualFold(v.CorrectSpelling, spelling) && v.EntityType == entityType {
			cp := *v
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockVocabularyStore) ListByPhonetic(_ context.Context, code string) ([]domain.VocabularyEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.VocabularyEntry
	for _, v := range m.rows {
		if v.PhoneticPrimary == code || v.PhoneticSecondary == code {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *mockVocabularyStore) List(_ context.Context, _ domain.Page) ([]domain.VocabularyEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.VocabularyEntry
	for _, v := range m.rows {
		out = append(out, *v)
	}
	return out, nil
}

func (m *mockVocabularyStore) Update(_ context.Context, v *domain.VocabularyEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[v.ID]; !ok {
		return store.ErrNotFound
	}
	v.UpdatedAt = time.Now()
	cp := *v
	m.rows[v.ID] = &cp
	return nil
}

func (m *mockVocabularyStore) IncrementUsage(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	v.UsageCount++
	v.UpdatedAt = time.Now()
	return nil
}

type mockTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
}

func newMockTaskStore() *mockTaskStore {
	return &mockTaskStore{tasks: map[uuid.UUID]*domain.Task{}}
}

func (m *mockTaskStore) Create(_ context.Context, t *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockTaskStore) Update(_ context.Context, t *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return store.ErrNotFound
	}
	t.UpdatedAt = time.Now()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockTaskStore) ListByStatus(_ context.Context, status domain.TaskStatus, _ domain.Page) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Task
	for _, t := range m.tasks {
		if t.Status == status {
			out = append(out, *t)
		}
	}
	// Lower priority value first, like the pg store.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *mockTaskStore) CountByStatus(_ context.Context) (map[domain.TaskStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.TaskStatus]int{}
	for _, t := range m.tasks {
		out[t.Status]++
	}
	return out, nil
}

type mockExtractorStateStore struct {
	mu     sync.Mutex
	states map[string]*domain.ExtractorState
}

func newMockExtractorStateStore() *mockExtractorStateStore {
	return &mockExtractorStateStore{states: map[string]*domain.ExtractorState{}}
}

func (m *mockExtractorStateStore) Upsert(_ context.Context, s *domain.ExtractorState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.states[s.Name]
	if ok {
		existing.Active = s.Active
		existing.UpdatedAt = time.Now()
		return nil
	}
	cp := *s
	cp.UpdatedAt = time.Now()
	m.states[s.Name] = &cp
	return nil
}

func (m *mockExtractorStateStore) Get(_ context.Context, name string) (*domain.ExtractorState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockExtractorStateStore) List(_ context.Context) ([]domain.ExtractorState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ExtractorState
	for _, s := range m.states {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockExtractorStateStore) RecordRun(_ context.Context, name string, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[name]
	if !ok {
		return store.ErrNotFound
	}
	s.RunCount++
	if success {
		s.SuccessCount++
	}
	s.UpdatedAt = time.Now()
	return nil
}
