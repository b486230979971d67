package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noemahq/noema/internal/domain"
)

const (
	DefaultMinChainRelevance = 0.3
	DefaultMaxActiveChains   = 10
	DefaultDormancyAfter     = 30 * time.Minute
)

// ChainService clusters claims into thought chains by lexical relevance and
// manages the chain lifecycle (dormancy, revival, branching, conclusion).
type ChainService struct {
	chains domain.ChainStore
	logger *zap.Logger

	MinRelevance    float64
	MaxActiveChains int
	DormancyAfter   time.Duration

	// mu serializes claim assignment so the active-chain cap holds under
	// concurrent submissions.
	mu sync.Mutex
}

func NewChainService(chains domain.ChainStore, logger *zap.Logger) *ChainService {
	return &ChainService{
		chains:          chains,
		logger:          logger,
		MinRelevance:    DefaultMinChainRelevance,
		MaxActiveChains: DefaultMaxActiveChains,
		DormancyAfter:   DefaultDormancyAfter,
	}
}

// ChainMatch is the result of scoring one chain against a claim.
type ChainMatch struct {
	Chain *domain.ThoughtChain
	Score float64
}

// FindMatchingChain scores every active chain against the claim's statement
// and subject, discards candidates under MinRelevance, and returns the best
// remaining one or nil. Deterministic: ties break on chain id.
func (s *ChainService) FindMatchingChain(ctx context.Context, claim *domain.Claim) (*ChainMatch, error) {
	active, err := s.chains.ListByState(ctx, domain.ChainActive)
	if err != nil {
		return nil, fmt.Errorf("list active chains: %w", err)
	}

	claimTokens := tokenize(claim.Statement + " " + claim.Subject)

	var best *ChainMatch
	for i := range active {
		chain := &active[i]
		score := jaccard(claimTokens, tokenize(chain.Topic))
		if score < s.MinRelevance {
			continue
		}
		if best == nil || score > best.Score ||
			(score == best.Score && chain.ID.String() < best.Chain.ID.String()) {
			best = &ChainMatch{Chain: chain, Score: score}
		}
	}
	return best, nil
}

// AssignClaim places a claim on its best-matching chain, or opens a new chain
// when nothing scores above threshold. Returns the chain the claim landed on.
func (s *ChainService) AssignClaim(ctx context.Context, claim *domain.Claim) (*domain.ThoughtChain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, err := s.FindMatchingChain(ctx, claim)
	if err != nil {
		return nil, err
	}

	if match != nil {
		if err := s.addClaim(ctx, match.Chain, claim.ID); err != nil {
			return nil, err
		}
		return match.Chain, nil
	}

	chain := &domain.ThoughtChain{
		Topic: chainTopic(claim),
		State: domain.ChainActive,
	}
	if err := s.chains.Create(ctx, chain); err != nil {
		return nil, fmt.Errorf("create chain: %w", err)
	}
	if err := s.addClaim(ctx, chain, claim.ID); err != nil {
		return nil, err
	}

	if err := s.enforceActiveCap(ctx, chain.ID); err != nil {
		return nil, err
	}
	return chain, nil
}

// AddClaimToChain appends a claim at the next position, bumps lastExtended
// and revives the chain if it was dormant.
func (s *ChainService) AddClaimToChain(ctx context.Context, chainID, claimID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain, err := s.chains.GetByID(ctx, chainID)
	if err != nil {
		return fmt.Errorf("get chain: %w", err)
	}
	return s.addClaim(ctx, chain, claimID)
}

func (s *ChainService) addClaim(ctx context.Context, chain *domain.ThoughtChain, claimID uuid.UUID) error {
	if chain.State == domain.ChainConcluded {
		return fmt.Errorf("chain %s is concluded", chain.ID)
	}

	max, err := s.chains.MaxPosition(ctx, chain.ID)
	if err != nil {
		return fmt.Errorf("max position: %w", err)
	}
	cc := &domain.ChainClaim{ChainID: chain.ID, ClaimID: claimID, Position: max + 1}
	if err := s.chains.AddClaim(ctx, cc); err != nil {
		return fmt.Errorf("add chain claim: %w", err)
	}

	now := time.Now()
	if err := s.chains.UpdateLastExtended(ctx, chain.ID, now); err != nil {
		return fmt.Errorf("update last extended: %w", err)
	}
	chain.LastExtended = now

	if chain.State == domain.ChainDormant {
		if err := s.chains.UpdateState(ctx, chain.ID, domain.ChainActive); err != nil {
			return fmt.Errorf("revive chain: %w", err)
		}
		chain.State = domain.ChainActive
		s.logger.Debug("chain revived",
			zap.String("chain_id", chain.ID.String()),
			zap.String("topic", chain.Topic))
	}
	return nil
}

// enforceActiveCap forces the oldest-by-lastExtended active chains dormant
// until at most MaxActiveChains remain active. The just-created chain is
// never the victim.
func (s *ChainService) enforceActiveCap(ctx context.Context, keep uuid.UUID) error {
	active, err := s.chains.ListByState(ctx, domain.ChainActive)
	if err != nil {
		return fmt.Errorf("list active chains: %w", err)
	}
	if len(active) <= s.MaxActiveChains {
		return nil
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].LastExtended.Before(active[j].LastExtended)
	})

	excess := len(active) - s.MaxActiveChains
	for _, chain := range active {
		if excess == 0 {
			break
		}
		if chain.ID == keep {
			continue
		}
		if err := s.chains.UpdateState(ctx, chain.ID, domain.ChainDormant); err != nil {
			return fmt.Errorf("force dormant: %w", err)
		}
		s.logger.Info("chain forced dormant by active cap",
			zap.String("chain_id", chain.ID.String()),
			zap.String("topic", chain.Topic))
		excess--
	}
	return nil
}

// CheckDormancy sweeps active chains whose lastExtended is older than
// DormancyAfter into dormant state. Idempotent: a second run right after the
// first changes nothing.
func (s *ChainService) CheckDormancy(ctx context.Context) (int, error) {
	active, err := s.chains.ListByState(ctx, domain.ChainActive)
	if err != nil {
		return 0, fmt.Errorf("list active chains: %w", err)
	}

	cutoff := time.Now().Add(-s.DormancyAfter)
	swept := 0
	for _, chain := range active {
		if chain.LastExtended.After(cutoff) {
			continue
		}
		if err := s.chains.UpdateState(ctx, chain.ID, domain.ChainDormant); err != nil {
			return swept, fmt.Errorf("mark dormant: %w", err)
		}
		swept++
	}
	if swept > 0 {
		s.logger.Info("dormancy sweep complete", zap.Int("chains_swept", swept))
	}
	return swept, nil
}

// BranchChain opens a new chain branching from an existing parent. The parent
// must exist; this fails before any mutation otherwise.
func (s *ChainService) BranchChain(ctx context.Context, parentID uuid.UUID, newTopic string) (*domain.ThoughtChain, error) {
	if _, err := s.chains.GetByID(ctx, parentID); err != nil {
		return nil, fmt.Errorf("branch parent %s: %w", parentID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chain := &domain.ThoughtChain{
		Topic:        newTopic,
		State:        domain.ChainActive,
		BranchesFrom: &parentID,
	}
	if err := s.chains.Create(ctx, chain); err != nil {
		return nil, fmt.Errorf("create branch: %w", err)
	}
	if err := s.enforceActiveCap(ctx, chain.ID); err != nil {
		return nil, err
	}
	return chain, nil
}

// ConcludeChain moves a chain to its terminal state. Explicit only.
func (s *ChainService) ConcludeChain(ctx context.Context, id uuid.UUID) error {
	chain, err := s.chains.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get chain: %w", err)
	}
	if !domain.ValidChainTransition(chain.State, domain.ChainConcluded) {
		return fmt.Errorf("chain %s cannot conclude from state %s", id, chain.State)
	}
	return s.chains.UpdateState(ctx, id, domain.ChainConcluded)
}

// chainTopic derives a short topic string for a new chain.
func chainTopic(claim *domain.Claim) string {
	if claim.Subject != "" {
		return claim.Subject
	}
	words := strings.Fields(claim.Statement)
	if len(words) > 5 {
		words = words[:5]
	}
	return strings.ToLower(strings.Join(words, " "))
}
