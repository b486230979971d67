package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noemahq/noema/internal/domain"
)

const (
	// DefaultVolitionFloor is the minimum volitional strength for a claim to
	// spawn or extend a goal.
	DefaultVolitionFloor = 0.5
	// DefaultGoalMatchThreshold is the lexical overlap above which a claim
	// attaches to an existing open goal instead of creating a new one.
	DefaultGoalMatchThreshold = 0.3
)

// GoalService derives goals from intention-bearing claims and runs the goal
// status state machine.
type GoalService struct {
	goals  domain.GoalStore
	logger *zap.Logger

	VolitionFloor  float64
	MatchThreshold float64
}

func NewGoalService(goals domain.GoalStore, logger *zap.Logger) *GoalService {
	return &GoalService{
		goals:          goals,
		logger:         logger,
		VolitionFloor:  DefaultVolitionFloor,
		MatchThreshold: DefaultGoalMatchThreshold,
	}
}

// goalWorthy reports whether a claim plus its volitional stance clears the
// bar for goal derivation.
func (s *GoalService) goalWorthy(claim *domain.Claim, vol domain.VolitionalStance) bool {
	if claim.ClaimType == domain.ClaimIntention {
		return true
	}
	if vol.Type != domain.VolitionalGoal && vol.Type != domain.VolitionalDesire {
		return false
	}
	return vol.Strength >= s.VolitionFloor
}

// DeriveFromClaim matches an intention-bearing claim against open goals and
// attaches to the best lexical match, or creates a new active goal at zero
// progress. Returns nil when the claim is not goal-worthy.
func (s *GoalService) DeriveFromClaim(ctx context.Context, claim *domain.Claim, vol domain.VolitionalStance) (*domain.Goal, error) {
	if !s.goalWorthy(claim, vol) {
		return nil, nil
	}

	match, err := s.findMatchingGoal(ctx, claim)
	if err != nil {
		return nil, err
	}
	if match != nil {
		s.logger.Debug("claim matched existing goal",
			zap.String("goal_id", match.ID.String()),
			zap.String("claim_id", claim.ID.String()))
		return match, nil
	}

	goal := &domain.Goal{
		Statement: claim.Statement,
		Status:    domain.GoalActive,
		GoalType:  string(vol.Type),
		Priority:  priorityFromStakes(claim.Stakes),
	}
	if err := s.goals.Create(ctx, goal); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	s.logger.Info("goal derived",
		zap.String("goal_id", goal.ID.String()),
		zap.String("statement", goal.Statement))
	return goal, nil
}

// findMatchingGoal scans open (non-terminal) goals for the best lexical match
// above MatchThreshold. Ties break on goal id for determinism.
func (s *GoalService) findMatchingGoal(ctx context.Context, claim *domain.Claim) (*domain.Goal, error) {
	claimTokens := tokenize(claim.Statement + " " + claim.Subject)

	var best *domain.Goal
	var bestScore float64
	for _, status := range []domain.GoalStatus{domain.GoalActive, domain.GoalBlocked, domain.GoalDeferred} {
		open, err := s.goals.ListByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("list %s goals: %w", status, err)
		}
		for i := range open {
			goal := &open[i]
			score := jaccard(claimTokens, tokenize(goal.Statement))
			if score < s.MatchThreshold {
				continue
			}
			if best == nil || score > bestScore ||
				(score == bestScore && goal.ID.String() < best.ID.String()) {
				best = goal
				bestScore = score
			}
		}
	}
	return best, nil
}

// UpdateProgress clamps progress to [0,100] and auto-achieves at 100 unless
// the goal is blocked.
func (s *GoalService) UpdateProgress(ctx context.Context, id uuid.UUID, progress float64) (*domain.Goal, error) {
	goal, err := s.goals.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}

	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	now := time.Now()
	if err := s.goals.UpdateProgress(ctx, id, progress, now); err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}
	goal.ProgressValue = progress
	goal.UpdatedAt = now

	if progress >= 100 && goal.Status == domain.GoalActive {
		if err := s.goals.UpdateStatus(ctx, id, domain.GoalAchieved, now); err != nil {
			return nil, fmt.Errorf("auto-achieve: %w", err)
		}
		goal.Status = domain.GoalAchieved
		s.logger.Info("goal achieved", zap.String("goal_id", id.String()))
	}
	return goal, nil
}

// UpdateStatus applies one state-machine transition. Invalid transitions
// (including anything out of achieved or abandoned) are rejected.
func (s *GoalService) UpdateStatus(ctx context.Context, id uuid.UUID, to domain.GoalStatus) error {
	goal, err := s.goals.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get goal: %w", err)
	}
	if !domain.ValidGoalTransition(goal.Status, to) {
		return fmt.Errorf("goal %s: invalid transition %s -> %s", id, goal.Status, to)
	}
	if to == domain.GoalBlocked {
		return fmt.Errorf("goal %s: blocked is entered by adding a blocker", id)
	}
	return s.goals.UpdateStatus(ctx, id, to, time.Now())
}

// AddBlocker appends a blocker and moves an active goal to blocked.
func (s *GoalService) AddBlocker(ctx context.Context, goalID uuid.UUID, description string, severity float64) (*domain.Blocker, error) {
	goal, err := s.goals.GetByID(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}

	blocker := &domain.Blocker{
		GoalID:      goalID,
		Description: description,
		Severity:    clamp01(severity),
		Status:      domain.BlockerOpen,
	}
	if err := s.goals.AddBlocker(ctx, blocker); err != nil {
		return nil, fmt.Errorf("add blocker: %w", err)
	}

	if goal.Status == domain.GoalActive {
		if err := s.goals.UpdateStatus(ctx, goalID, domain.GoalBlocked, time.Now()); err != nil {
			return nil, fmt.Errorf("block goal: %w", err)
		}
		s.logger.Info("goal blocked",
			zap.String("goal_id", goalID.String()),
			zap.String("blocker", description))
	}
	return blocker, nil
}

// ResolveBlocker closes one blocker; when it was the last open blocker of a
// blocked goal, the goal reverts to active.
func (s *GoalService) ResolveBlocker(ctx context.Context, goalID, blockerID uuid.UUID) error {
	goal, err := s.goals.GetByID(ctx, goalID)
	if err != nil {
		return fmt.Errorf("get goal: %w", err)
	}

	if err := s.goals.ResolveBlocker(ctx, blockerID, time.Now()); err != nil {
		return fmt.Errorf("resolve blocker: %w", err)
	}

	if goal.Status != domain.GoalBlocked {
		return nil
	}

	blockers, err := s.goals.ListBlockers(ctx, goalID)
	if err != nil {
		return fmt.Errorf("list blockers: %w", err)
	}
	for _, b := range blockers {
		if b.Status == domain.BlockerOpen {
			return nil
		}
	}

	if err := s.goals.UpdateStatus(ctx, goalID, domain.GoalActive, time.Now()); err != nil {
		return fmt.Errorf("unblock goal: %w", err)
	}
	s.logger.Info("goal unblocked", zap.String("goal_id", goalID.String()))
	return nil
}

// AddMilestone appends a milestone to a goal.
func (s *GoalService) AddMilestone(ctx context.Context, goalID uuid.UUID, description string, reached bool) (*domain.Milestone, error) {
	if _, err := s.goals.GetByID(ctx, goalID); err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	m := &domain.Milestone{GoalID: goalID, Description: description, Reached: reached}
	if err := s.goals.AddMilestone(ctx, m); err != nil {
		return nil, fmt.Errorf("add milestone: %w", err)
	}
	return m, nil
}

func priorityFromStakes(stakes float64) int {
	switch {
	case stakes >= 0.8:
		return 1
	case stakes >= 0.5:
		return 2
	default:
		return 3
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
