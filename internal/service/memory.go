package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noemahq/noema/internal/domain"
)

const (
	// StaleThreshold is the confidence below which an active claim goes stale.
	StaleThreshold = 0.2

	// Promotion floors: a working claim must clear all three to consolidate
	// into long-term memory.
	PromotionMinSalience      = 0.6
	PromotionMinConfirmations = 3
	PromotionMinAge           = 72 * time.Hour

	reinforceBoost = 0.15

	DefaultDecayInterval = 1 * time.Hour
)

// MemoryService owns confidence decay, salience, reinforcement, the
// working -> long_term promotion and the top-of-mind projection.
type MemoryService struct {
	claims   domain.ClaimStore
	entities domain.EntityStore
	logger   *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

func NewMemoryService(claims domain.ClaimStore, entities domain.EntityStore, logger *zap.Logger) *MemoryService {
	return &MemoryService{
		claims:   claims,
		entities: entities,
		logger:   logger,
		interval: DefaultDecayInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *MemoryService) SetDecayInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Start launches the periodic decay worker.
func (s *MemoryService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	s.wg.Add(1)
	go s.run()
	s.logger.Info("memory decay worker started", zap.Duration("interval", s.interval))
}

// Stop signals the worker and waits for the in-flight cycle to finish.
func (s *MemoryService) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("memory decay worker stopped")
}

func (s *MemoryService) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunDecayCycle(context.Background()); err != nil {
				s.logger.Error("decay cycle failed", zap.Error(err))
			}
		case <-s.stopCh:
			return
		}
	}
}

// RunDecayCycle decays every decayable claim once and returns how many went
// stale. Confidence only ever moves down here; reinforcement is the only way
// up.
func (s *MemoryService) RunDecayCycle(ctx context.Context) (int, error) {
	claims, err := s.claims.ListForDecay(ctx)
	if err != nil {
		return 0, fmt.Errorf("list claims for decay: %w", err)
	}

	now := time.Now()
	staled := 0
	for i := range claims {
		claim := &claims[i]

		decayed := decayedConfidence(claim, now)
		if decayed < claim.CurrentConfidence {
			if err := s.claims.UpdateConfidence(ctx, claim.ID, decayed); err != nil {
				return staled, fmt.Errorf("update confidence: %w", err)
			}
			claim.CurrentConfidence = decayed
		}

		salience := computeSalience(claim, now)
		if err := s.claims.UpdateSalience(ctx, claim.ID, salience); err != nil {
			return staled, fmt.Errorf("update salience: %w", err)
		}

		if claim.State == domain.ClaimActive && claim.CurrentConfidence < StaleThreshold {
			if err := s.claims.SetState(ctx, claim.ID, domain.ClaimStale); err != nil {
				return staled, fmt.Errorf("mark stale: %w", err)
			}
			staled++
		}
	}

	if staled > 0 {
		s.logger.Info("decay cycle complete",
			zap.Int("claims_processed", len(claims)),
			zap.Int("claims_staled", staled))
	}
	return staled, nil
}

// decayedConfidence applies exponential decay at the claim's temporality rate
// over the days since it was last confirmed (or created).
func decayedConfidence(claim *domain.Claim, now time.Time) float64 {
	anchor := claim.CreatedAt
	if claim.LastConfirmed != nil {
		anchor = *claim.LastConfirmed
	}
	days := now.Sub(anchor).Hours() / 24
	if days <= 0 {
		return claim.CurrentConfidence
	}
	return claim.CurrentConfidence * math.Exp(-claim.Temporality.DecayRate()*days)
}

// computeSalience blends stakes, emotional intensity, access recency and
// confirmation history into [0,1]. Recency decays at the claim's own
// temporality rate, so episodic claims fall out of mind faster.
func computeSalience(claim *domain.Claim, now time.Time) float64 {
	anchor := claim.CreatedAt
	if claim.LastAccessedAt != nil && claim.LastAccessedAt.After(anchor) {
		anchor = *claim.LastAccessedAt
	}
	if claim.LastConfirmed != nil && claim.LastConfirmed.After(anchor) {
		anchor = *claim.LastConfirmed
	}
	days := now.Sub(anchor).Hours() / 24
	if days < 0 {
		days = 0
	}
	recency := math.Exp(-claim.Temporality.DecayRate() * days)

	confirm := 1.0 - 1.0/float64(1+claim.ConfirmationCount)

	return clamp01(0.3*claim.Stakes + 0.2*claim.EmotionalIntensity + 0.3*recency + 0.2*confirm)
}

// Reinforce records a re-confirmation: bumps the confirmation count, restores
// confidence and refreshes lastConfirmed.
func (s *MemoryService) Reinforce(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}

	now := time.Now()
	confidence := clamp01(claim.CurrentConfidence + reinforceBoost)
	confirmations := claim.ConfirmationCount + 1

	if err := s.claims.Reinforce(ctx, id, confidence, confirmations, now); err != nil {
		return nil, fmt.Errorf("reinforce claim: %w", err)
	}

	claim.CurrentConfidence = confidence
	claim.ConfirmationCount = confirmations
	claim.LastConfirmed = &now

	salience := computeSalience(claim, now)
	if err := s.claims.UpdateSalience(ctx, id, salience); err != nil {
		return nil, fmt.Errorf("update salience: %w", err)
	}
	claim.Salience = salience

	if claim.State == domain.ClaimStale && confidence >= StaleThreshold {
		if err := s.claims.SetState(ctx, id, domain.ClaimActive); err != nil {
			return nil, fmt.Errorf("reactivate claim: %w", err)
		}
		claim.State = domain.ClaimActive
	}
	return claim, nil
}

// RecordAccess refreshes lastAccessedAt, which feeds the recency component of
// salience on the next cycle.
func (s *MemoryService) RecordAccess(ctx context.Context, id uuid.UUID) error {
	return s.claims.RecordAccess(ctx, id, time.Now())
}

// PromoteToLongTerm consolidates a working claim that clears the salience,
// confirmation and age floors. Returns false without error when the claim is
// already long-term or does not qualify. Promotion never lowers confidence
// and is one-directional.
func (s *MemoryService) PromoteToLongTerm(ctx context.Context, id uuid.UUID) (bool, error) {
	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("get claim: %w", err)
	}

	if claim.MemoryTier == domain.TierLongTerm {
		return false, nil
	}
	if claim.Salience < PromotionMinSalience ||
		claim.ConfirmationCount < PromotionMinConfirmations ||
		time.Since(claim.CreatedAt) < PromotionMinAge {
		return false, nil
	}

	if err := s.claims.Promote(ctx, id, time.Now()); err != nil {
		return false, fmt.Errorf("promote claim: %w", err)
	}
	s.logger.Info("claim promoted to long-term memory",
		zap.String("claim_id", id.String()),
		zap.String("subject", claim.Subject))
	return true, nil
}

// SubjectSalience is one aggregated row of the top-of-mind projection.
type SubjectSalience struct {
	Subject    string  `json:"subject"`
	Salience   float64 `json:"salience"`
	ClaimCount int     `json:"claim_count"`
}

// TopOfMind is a read-only snapshot of what currently matters: the most
// salient subjects, recently mentioned entities, high-stakes concerns and
// open questions.
type TopOfMind struct {
	Subjects  []SubjectSalience `json:"subjects"`
	Entities  []domain.Entity   `json:"entities"`
	Concerns  []domain.Claim    `json:"concerns"`
	Questions []domain.Claim    `json:"questions"`
}

const (
	topSubjects  = 5
	topEntities  = 5
	topConcerns  = 3
	topQuestions = 3
	topWindow    = 30 * 24 * time.Hour
)

// GetTopOfMind builds the projection from active claims of the last 30 days.
func (s *MemoryService) GetTopOfMind(ctx context.Context) (*TopOfMind, error) {
	claims, err := s.claims.ListActiveSince(ctx, time.Now().Add(-topWindow), 500)
	if err != nil {
		return nil, fmt.Errorf("list recent claims: %w", err)
	}

	bySubject := make(map[string]*SubjectSalience)
	var concerns, questions []domain.Claim
	for _, claim := range claims {
		if claim.Subject != "" {
			agg, ok := bySubject[claim.Subject]
			if !ok {
				agg = &SubjectSalience{Subject: claim.Subject}
				bySubject[claim.Subject] = agg
			}
			agg.Salience += claim.Salience
			agg.ClaimCount++
		}
		switch {
		case claim.ClaimType == domain.ClaimConcern && claim.Stakes >= 0.6:
			concerns = append(concerns, claim)
		case claim.ClaimType == domain.ClaimQuestion:
			questions = append(questions, claim)
		}
	}

	subjects := make([]SubjectSalience, 0, len(bySubject))
	for _, agg := range bySubject {
		subjects = append(subjects, *agg)
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].Salience != subjects[j].Salience {
			return subjects[i].Salience > subjects[j].Salience
		}
		return subjects[i].Subject < subjects[j].Subject
	})
	sort.Slice(concerns, func(i, j int) bool { return concerns[i].Stakes > concerns[j].Stakes })
	sort.Slice(questions, func(i, j int) bool { return questions[i].CreatedAt.After(questions[j].CreatedAt) })

	entities, err := s.entities.ListEntitiesByRecentMention(ctx, topEntities)
	if err != nil {
		return nil, fmt.Errorf("list recent entities: %w", err)
	}

	return &TopOfMind{
		Subjects:  truncateSubjects(subjects, topSubjects),
		Entities:  entities,
		Concerns:  truncateClaims(concerns, topConcerns),
		Questions: truncateClaims(questions, topQuestions),
	}, nil
}

// Stats returns the claim-table summary for the memory stats view.
func (s *MemoryService) Stats(ctx context.Context) (*domain.ClaimStats, error) {
	return s.claims.Stats(ctx)
}

func truncateSubjects(in []SubjectSalience, n int) []SubjectSalience {
	if len(in) > n {
		return in[:n]
	}
	return in
}

func truncateClaims(in []domain.Claim, n int) []domain.Claim {
	if len(in) > n {
		return in[:n]
	}
	return in
}
