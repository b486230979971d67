// Package kernel wires the stores, services and workers into one façade. The
// HTTP layer talks only to this package; the kernel itself depends only on
// domain interfaces and the service implementations.
package kernel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noemahq/noema/internal/domain"
	"github.com/noemahq/noema/internal/extract"
	"github.com/noemahq/noema/internal/service"
)

// Stores bundles every record-store dependency of the kernel.
type Stores struct {
	Sessions        domain.SessionStore
	Units           domain.UnitStore
	Propositions    domain.PropositionStore
	Entities        domain.EntityStore
	Claims          domain.ClaimStore
	Chains          domain.ChainStore
	Goals           domain.GoalStore
	Patterns        domain.PatternStore
	Contradictions  domain.ContradictionStore
	Corrections     domain.CorrectionStore
	Vocabulary      domain.VocabularyStore
	Tasks           domain.TaskStore
	ExtractorStates domain.ExtractorStateStore
	SearchReplace   domain.SearchReplaceStore
}

// Options tunes the kernel's workers and thresholds. Zero values fall back to
// the service defaults.
type Options struct {
	PipelineConcurrency int
	MaxActiveChains     int
	ChainDormancy       time.Duration
	SessionIdle         time.Duration
	DecayInterval       time.Duration
	DormancySweep       time.Duration
	UseCapabilityCheck  bool
}

// Kernel is the single entry point to the knowledge pipeline: submission,
// lifecycle, queries and administration.
type Kernel struct {
	stores Stores
	logger *zap.Logger

	sessions   *service.SessionService
	vocabulary *service.VocabularyService
	chains     *service.ChainService
	goals      *service.GoalService
	memory     *service.MemoryService
	dispatcher *service.ObserverDispatcher
	registry   *extract.Registry
	pipeline   *service.PipelineService

	sweepInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup

	mu      sync.Mutex
	started bool
}

// New wires the kernel. The extraction client is the external text-generation
// capability; pattern extractors are registered alongside it.
func New(ctx context.Context, stores Stores, client domain.ExtractionClient, opts Options, logger *zap.Logger) (*Kernel, error) {
	sessions := service.NewSessionService(stores.Sessions, logger)
	if opts.SessionIdle > 0 {
		sessions.IdleAfter = opts.SessionIdle
	}

	vocabulary := service.NewVocabularyService(stores.Corrections, stores.Vocabulary, stores.Entities, logger)

	chains := service.NewChainService(stores.Chains, logger)
	if opts.MaxActiveChains > 0 {
		chains.MaxActiveChains = opts.MaxActiveChains
	}
	if opts.ChainDormancy > 0 {
		chains.DormancyAfter = opts.ChainDormancy
	}

	goals := service.NewGoalService(stores.Goals, logger)

	memory := service.NewMemoryService(stores.Claims, stores.Entities, logger)
	if opts.DecayInterval > 0 {
		memory.SetDecayInterval(opts.DecayInterval)
	}

	policy := service.DefaultContradictionPolicy()
	policy.UseCapabilityCheck = opts.UseCapabilityCheck

	dispatcher := service.NewObserverDispatcher(logger)
	if err := dispatcher.Register(service.NewContradictionObserver(
		stores.Claims, stores.Contradictions, client, policy, logger)); err != nil {
		return nil, err
	}
	if err := dispatcher.Register(service.NewPatternObserver(stores.Claims, stores.Patterns, logger)); err != nil {
		return nil, err
	}

	registry := extract.NewRegistry(stores.ExtractorStates, logger)
	for _, e := range []extract.Extractor{
		extract.CorrectionExtractor{},
		extract.NameSpanExtractor{},
		extract.TemporalMarkerExtractor{},
		extract.NewCapabilityExtractor(client, 0),
	} {
		if err := registry.Register(ctx, e); err != nil {
			return nil, fmt.Errorf("register extractor: %w", err)
		}
	}

	pipeline := service.NewPipelineService(service.PipelineDeps{
		Units:    stores.Units,
		Props:    stores.Propositions,
		Entities: stores.Entities,
		Claims:   stores.Claims,
		Tasks:    stores.Tasks,

		Sessions:   sessions,
		Vocab:      vocabulary,
		Chains:     chains,
		Goals:      goals,
		Memory:     memory,
		Dispatcher: dispatcher,
		Registry:   registry,
	}, opts.PipelineConcurrency, logger)

	sweep := opts.DormancySweep
	if sweep <= 0 {
		sweep = 5 * time.Minute
	}

	return &Kernel{
		stores:        stores,
		logger:        logger,
		sessions:      sessions,
		vocabulary:    vocabulary,
		chains:        chains,
		goals:         goals,
		memory:        memory,
		dispatcher:    dispatcher,
		registry:      registry,
		pipeline:      pipeline,
		sweepInterval: sweep,
		stopCh:        make(chan struct{}),
	}, nil
}

// Start brings up the pipeline workers, the decay worker and the dormancy
// sweeper.
func (k *Kernel) Start(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.started {
		return nil
	}
	k.started = true

	if err := k.pipeline.Start(ctx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	k.memory.Start()

	k.wg.Add(1)
	go k.dormancySweeper()

	k.logger.Info("kernel started")
	return nil
}

// Stop shuts down in reverse start order and waits for in-flight work.
func (k *Kernel) Stop() {
	k.mu.Lock()
	if !k.started {
		k.mu.Unlock()
		return
	}
	k.started = false
	k.mu.Unlock()

	close(k.stopCh)
	k.wg.Wait()
	k.memory.Stop()
	k.pipeline.Stop()
	k.logger.Info("kernel stopped")
}

func (k *Kernel) dormancySweeper() {
	defer k.wg.Done()

	ticker := time.NewTicker(k.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := k.chains.CheckDormancy(context.Background()); err != nil {
				k.logger.Error("dormancy sweep failed", zap.Error(err))
			}
		case <-k.stopCh:
			return
		}
	}
}

// Events exposes the pipeline's bounded event stream.
func (k *Kernel) Events() <-chan domain.Event {
	return k.pipeline.Events()
}

// --- sessions and input ---

func (k *Kernel) StartSession(ctx context.Context) (*domain.Session, error) {
	return k.sessions.StartSession(ctx)
}

func (k *Kernel) EndSession(ctx context.Context) (*domain.Session, error) {
	return k.sessions.EndSession(ctx)
}

func (k *Kernel) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return k.sessions.GetSession(ctx, id)
}

func (k *Kernel) ListUnits(ctx context.Context, sessionID uuid.UUID, page domain.Page) ([]domain.ConversationUnit, error) {
	return k.stores.Units.ListBySession(ctx, sessionID, page.Clamp(50, 200))
}

// Submit records raw text and queues it for processing, returning the unit id.
func (k *Kernel) Submit(ctx context.Context, text string, source domain.Source) (uuid.UUID, error) {
	return k.pipeline.Submit(ctx, text, source)
}

func (k *Kernel) QueueStatus(ctx context.Context) (*domain.QueueStatus, error) {
	return k.pipeline.QueueStatus(ctx)
}

// --- knowledge queries ---

func (k *Kernel) GetClaim(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	claim, err := k.stores.Claims.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Reads are accesses: they feed salience recency.
	if err := k.memory.RecordAccess(ctx, id); err != nil {
		k.logger.Warn("failed to record claim access", zap.Error(err))
	}
	return claim, nil
}

func (k *Kernel) ListClaims(ctx context.Context, state domain.ClaimState, page domain.Page) ([]domain.Claim, error) {
	return k.stores.Claims.List(ctx, state, page.Clamp(50, 200))
}

func (k *Kernel) ListClaimsBySubject(ctx context.Context, subject string, state domain.ClaimState) ([]domain.Claim, error) {
	return k.stores.Claims.ListBySubject(ctx, subject, state)
}

func (k *Kernel) ListEntities(ctx context.Context, page domain.Page) ([]domain.Entity, error) {
	return k.stores.Entities.ListEntities(ctx, page.Clamp(50, 200))
}

func (k *Kernel) ListPropositions(ctx context.Context, unitID uuid.UUID) ([]domain.Proposition, error) {
	return k.stores.Propositions.ListByUnit(ctx, unitID)
}

func (k *Kernel) ListRelations(ctx context.Context, unitID uuid.UUID) ([]domain.Relation, error) {
	return k.stores.Propositions.ListRelationsByUnit(ctx, unitID)
}

func (k *Kernel) ListGoals(ctx context.Context, page domain.Page) ([]domain.Goal, error) {
	return k.stores.Goals.List(ctx, page.Clamp(50, 200))
}

func (k *Kernel) ListChains(ctx context.Context, page domain.Page) ([]domain.ThoughtChain, error) {
	return k.stores.Chains.List(ctx, page.Clamp(50, 200))
}

func (k *Kernel) ListChainClaims(ctx context.Context, chainID uuid.UUID) ([]domain.ChainClaim, error) {
	if _, err := k.stores.Chains.GetByID(ctx, chainID); err != nil {
		return nil, err
	}
	return k.stores.Chains.ListClaims(ctx, chainID)
}

func (k *Kernel) ListPatterns(ctx context.Context, page domain.Page) ([]domain.Pattern, error) {
	return k.stores.Patterns.List(ctx, page.Clamp(50, 200))
}

func (k *Kernel) ListContradictions(ctx context.Context, onlyUnresolved bool, page domain.Page) ([]domain.Contradiction, error) {
	return k.stores.Contradictions.List(ctx, onlyUnresolved, page.Clamp(50, 200))
}

// --- memory ---

func (k *Kernel) MemoryStats(ctx context.Context) (*domain.ClaimStats, error) {
	return k.memory.Stats(ctx)
}

func (k *Kernel) TopOfMind(ctx context.Context) (*service.TopOfMind, error) {
	return k.memory.GetTopOfMind(ctx)
}

func (k *Kernel) ReinforceClaim(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	return k.memory.Reinforce(ctx, id)
}

func (k *Kernel) PromoteClaim(ctx context.Context, id uuid.UUID) (bool, error) {
	return k.memory.PromoteToLongTerm(ctx, id)
}

// --- goals ---

func (k *Kernel) UpdateGoalProgress(ctx context.Context, id uuid.UUID, progress float64) (*domain.Goal, error) {
	return k.goals.UpdateProgress(ctx, id, progress)
}

func (k *Kernel) UpdateGoalStatus(ctx context.Context, id uuid.UUID, status domain.GoalStatus) error {
	return k.goals.UpdateStatus(ctx, id, status)
}

func (k *Kernel) AddGoalBlocker(ctx context.Context, goalID uuid.UUID, description string, severity float64) (*domain.Blocker, error) {
	return k.goals.AddBlocker(ctx, goalID, description, severity)
}

func (k *Kernel) ResolveGoalBlocker(ctx context.Context, goalID, blockerID uuid.UUID) error {
	return k.goals.ResolveBlocker(ctx, goalID, blockerID)
}

func (k *Kernel) AddGoalMilestone(ctx context.Context, goalID uuid.UUID, description string, reached bool) (*domain.Milestone, error) {
	return k.goals.AddMilestone(ctx, goalID, description, reached)
}

func (k *Kernel) ListGoalBlockers(ctx context.Context, goalID uuid.UUID) ([]domain.Blocker, error) {
	return k.stores.Goals.ListBlockers(ctx, goalID)
}

func (k *Kernel) ListGoalMilestones(ctx context.Context, goalID uuid.UUID) ([]domain.Milestone, error) {
	return k.stores.Goals.ListMilestones(ctx, goalID)
}

// --- chains ---

func (k *Kernel) BranchChain(ctx context.Context, parentID uuid.UUID, topic string) (*domain.ThoughtChain, error) {
	return k.chains.BranchChain(ctx, parentID, topic)
}

func (k *Kernel) ConcludeChain(ctx context.Context, id uuid.UUID) error {
	return k.chains.ConcludeChain(ctx, id)
}

// --- contradictions ---

func (k *Kernel) ResolveContradiction(ctx context.Context, id uuid.UUID, resolutionType, notes string) error {
	return k.stores.Contradictions.Resolve(ctx, id, resolutionType, notes, time.Now())
}

// --- administration ---

func (k *Kernel) SetExtractorActive(ctx context.Context, name string, active bool) error {
	return k.registry.SetActive(ctx, name, active)
}

func (k *Kernel) ExtractorStates(ctx context.Context) ([]domain.ExtractorState, error) {
	return k.registry.States(ctx)
}

// DisableObserver permanently disables an observer; there is deliberately no
// re-enable short of restarting the kernel.
func (k *Kernel) DisableObserver(name string) error {
	return k.dispatcher.Disable(name)
}

func (k *Kernel) ObserverStats() []service.ObserverStats {
	return k.dispatcher.Stats()
}

// --- vocabulary and corrections ---

func (k *Kernel) AddCorrection(ctx context.Context, wrongText, correctText string) (*domain.Correction, error) {
	return k.vocabulary.LearnCorrection(ctx, wrongText, correctText)
}

func (k *Kernel) RemoveCorrection(ctx context.Context, id uuid.UUID) error {
	return k.vocabulary.RemoveCorrection(ctx, id)
}

func (k *Kernel) ListCorrections(ctx context.Context, page domain.Page) ([]domain.Correction, error) {
	return k.stores.Corrections.List(ctx, page.Clamp(50, 500))
}

func (k *Kernel) AddVocabularyEntry(ctx context.Context, spelling, entityType string, hints []string) (*domain.VocabularyEntry, error) {
	return k.vocabulary.AddEntry(ctx, spelling, entityType, hints)
}

func (k *Kernel) RemoveVocabularyEntry(ctx context.Context, id uuid.UUID) error {
	return k.vocabulary.RemoveEntry(ctx, id)
}

func (k *Kernel) ListVocabulary(ctx context.Context, page domain.Page) ([]domain.VocabularyEntry, error) {
	return k.stores.Vocabulary.List(ctx, page.Clamp(50, 500))
}

func (k *Kernel) SuggestCanonicalization(ctx context.Context, observed string) (*domain.CanonicalizationSuggestion, error) {
	return k.vocabulary.SuggestCanonicalization(ctx, observed)
}

func (k *Kernel) ApplyCanonicalization(ctx context.Context, sg *domain.CanonicalizationSuggestion) error {
	return k.vocabulary.ApplySuggestion(ctx, sg)
}

func (k *Kernel) SyncVocabulary(ctx context.Context) (int, error) {
	return k.vocabulary.SyncFromEntities(ctx)
}

// SearchAndReplace rewrites a literal fragment across every text-bearing
// record (raw input excepted) and returns per-record-type counts. When
// registerCorrection is set, the pair is also learned so future input is
// rewritten in preprocess.
func (k *Kernel) SearchAndReplace(ctx context.Context, oldText, newText string, registerCorrection bool) (map[string]int64, error) {
	if oldText == "" || oldText == newText {
		return nil, fmt.Errorf("nothing to replace")
	}
	counts, err := k.stores.SearchReplace.ReplaceAll(ctx, oldText, newText)
	if err != nil {
		return nil, fmt.Errorf("search and replace: %w", err)
	}

	if registerCorrection {
		if _, err := k.vocabulary.LearnCorrection(ctx, oldText, newText); err != nil {
			return counts, fmt.Errorf("register correction: %w", err)
		}
	}

	total := int64(0)
	for _, n := range counts {
		total += n
	}
	k.logger.Info("search and replace complete",
		zap.String("old", oldText),
		zap.String("new", newText),
		zap.Int64("replacements", total))
	return counts, nil
}
