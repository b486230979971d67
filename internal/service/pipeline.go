package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noemahq/noema/internal/domain"
	"github.com/noemahq/noema/internal/extract"
	"github.com/noemahq/noema/internal/store"
)

const (
	DefaultPipelineConcurrency = 1
	DefaultTaskMaxAttempts     = 3
	DefaultTaskPriority        = 5
	eventBufferSize            = 256

	// minDeriveCertainty gates proposition -> claim derivation. Questions are
	// exempt: an uncertain question is still a question.
	minDeriveCertainty = 0.3

	// reinforceOverlap is the statement similarity above which a new
	// proposition reinforces an existing claim instead of creating another.
	reinforceOverlap = 0.7
)

// PipelineService turns submitted text into knowledge through the strict
// per-unit stage order preprocess -> extract -> resolve -> derive. Stages run
// as queued tasks drained by a bounded worker pool; failing tasks are retried
// with exponential backoff and marked failed after MaxAttempts, never dropped.
type PipelineService struct {
	units    domain.UnitStore
	props    domain.PropositionStore
	entities domain.EntityStore
	claims   domain.ClaimStore
	tasks    domain.TaskStore

	sessions   *SessionService
	vocab      *VocabularyService
	chains     *ChainService
	goals      *GoalService
	memory     *MemoryService
	dispatcher *ObserverDispatcher
	registry   *extract.Registry

	logger      *zap.Logger
	concurrency int
	maxAttempts int

	queue  *taskQueue
	events chan domain.Event
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool

	// stash carries each unit's extraction output from extract to derive.
	stashMu sync.Mutex
	stash   map[uuid.UUID]*extract.Result
}

// PipelineDeps bundles the pipeline's collaborators for construction.
type PipelineDeps struct {
	Units    domain.UnitStore
	Props    domain.PropositionStore
	Entities domain.EntityStore
	Claims   domain.ClaimStore
	Tasks    domain.TaskStore

	Sessions   *SessionService
	Vocab      *VocabularyService
	Chains     *ChainService
	Goals      *GoalService
	Memory     *MemoryService
	Dispatcher *ObserverDispatcher
	Registry   *extract.Registry
}

func NewPipelineService(deps PipelineDeps, concurrency int, logger *zap.Logger) *PipelineService {
	if concurrency <= 0 {
		concurrency = DefaultPipelineConcurrency
	}
	return &PipelineService{
		units:       deps.Units,
		props:       deps.Props,
		entities:    deps.Entities,
		claims:      deps.Claims,
		tasks:       deps.Tasks,
		sessions:    deps.Sessions,
		vocab:       deps.Vocab,
		chains:      deps.Chains,
		goals:       deps.Goals,
		memory:      deps.Memory,
		dispatcher:  deps.Dispatcher,
		registry:    deps.Registry,
		logger:      logger,
		concurrency: concurrency,
		maxAttempts: DefaultTaskMaxAttempts,
		queue:       newTaskQueue(),
		events:      make(chan domain.Event, eventBufferSize),
		stopCh:      make(chan struct{}),
		stash:       map[uuid.UUID]*extract.Result{},
	}
}

// Start launches the worker pool and requeues any tasks left pending by a
// previous run.
func (s *PipelineService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.started = true

	pending, err := s.tasks.ListByStatus(ctx, domain.TaskPending, domain.Page{Limit: 1000})
	if err != nil {
		return fmt.Errorf("load pending tasks: %w", err)
	}
	for i := range pending {
		s.queue.push(&pending[i])
	}

	for i := 0; i < s.concurrency; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	s.logger.Info("pipeline started",
		zap.Int("workers", s.concurrency),
		zap.Int("requeued_tasks", len(pending)))
	return nil
}

// Stop drains nothing: it signals the workers and waits for in-flight tasks.
func (s *PipelineService) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("pipeline stopped")
}

// Events exposes the bounded event stream. Slow consumers lose events rather
// than stalling the pipeline.
func (s *PipelineService) Events() <-chan domain.Event {
	return s.events
}

// Submit records raw text as a conversation unit and queues its first stage.
// The input is persisted immutably before any processing happens.
func (s *PipelineService) Submit(ctx context.Context, text string, source domain.Source) (uuid.UUID, error) {
	if strings.TrimSpace(text) == "" {
		return uuid.Nil, errors.New("empty input")
	}
	if source != domain.SourceSpeech && source != domain.SourceText {
		return uuid.Nil, fmt.Errorf("unknown source %q", source)
	}

	session, err := s.sessions.CurrentForSubmit(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	unit := &domain.ConversationUnit{
		SessionID: session.ID,
		RawText:   text,
		Source:    source,
	}
	if err := s.units.Create(ctx, unit); err != nil {
		return uuid.Nil, fmt.Errorf("create unit: %w", err)
	}

	if err := s.enqueue(ctx, unit.ID, domain.StepPreprocess, DefaultTaskPriority); err != nil {
		return uuid.Nil, err
	}
	return unit.ID, nil
}

func (s *PipelineService) enqueue(ctx context.Context, unitID uuid.UUID, step domain.Step, priority int) error {
	task := &domain.Task{
		UnitID:      unitID,
		Step:        step,
		Status:      domain.TaskPending,
		Priority:    priority,
		MaxAttempts: s.maxAttempts,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return fmt.Errorf("create %s task: %w", step, err)
	}
	s.queue.push(task)
	return nil
}

func (s *PipelineService) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.queue.notify:
			for {
				task := s.queue.pop()
				if task == nil {
					break
				}
				s.runTask(context.Background(), task)
				select {
				case <-s.stopCh:
					return
				default:
				}
			}
		}
	}
}

// runTask executes one stage with backoff retries, then either advances the
// unit to the next stage or marks the task failed.
func (s *PipelineService) runTask(ctx context.Context, task *domain.Task) {
	task.Status = domain.TaskProcessing
	if err := s.tasks.Update(ctx, task); err != nil {
		s.logger.Error("failed to mark task processing", zap.Error(err))
	}

	counters, err := backoff.Retry(ctx, func() (map[string]int, error) {
		task.Attempts++
		c, stepErr := s.runStep(ctx, task)
		if stepErr != nil {
			s.logger.Warn("pipeline step attempt failed",
				zap.String("step", string(task.Step)),
				zap.String("unit_id", task.UnitID.String()),
				zap.Int("attempt", task.Attempts),
				zap.Error(stepErr))
		}
		return c, stepErr
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(task.MaxAttempts)),
	)

	now := time.Now()
	if err != nil {
		task.Status = domain.TaskFailed
		task.LastError = err.Error()
		if updateErr := s.tasks.Update(ctx, task); updateErr != nil {
			s.logger.Error("failed to persist failed task", zap.Error(updateErr))
		}
		s.emit(domain.Event{
			Type: domain.EventStepFailed, UnitID: task.UnitID,
			Step: task.Step, Error: err.Error(), At: now,
		})
		s.logger.Error("pipeline step failed permanently",
			zap.String("step", string(task.Step)),
			zap.String("unit_id", task.UnitID.String()),
			zap.Int("attempts", task.Attempts),
			zap.Error(err))
		return
	}

	task.Status = domain.TaskCompleted
	task.LastError = ""
	task.CompletedAt = &now
	task.Checkpoint = checkpointFromCounters(counters)
	if err := s.tasks.Update(ctx, task); err != nil {
		s.logger.Error("failed to persist completed task", zap.Error(err))
	}
	s.emit(domain.Event{
		Type: domain.EventStepCompleted, UnitID: task.UnitID,
		Step: task.Step, Counters: counters, At: now,
	})

	if next, ok := nextStep(task.Step); ok {
		if err := s.enqueue(ctx, task.UnitID, next, task.Priority); err != nil {
			s.logger.Error("failed to enqueue next stage",
				zap.String("step", string(next)), zap.Error(err))
		}
		return
	}

	if err := s.units.MarkProcessed(ctx, task.UnitID); err != nil {
		s.logger.Error("failed to mark unit processed", zap.Error(err))
	}
	s.emit(domain.Event{Type: domain.EventUnitCompleted, UnitID: task.UnitID, At: now})
}

func nextStep(step domain.Step) (domain.Step, bool) {
	steps := domain.Steps()
	for i, st := range steps {
		if st == step && i+1 < len(steps) {
			return steps[i+1], true
		}
	}
	return "", false
}

func checkpointFromCounters(counters map[string]int) map[string]any {
	if len(counters) == 0 {
		return nil
	}
	cp := make(map[string]any, len(counters))
	for k, v := range counters {
		cp[k] = v
	}
	return cp
}

func (s *PipelineService) runStep(ctx context.Context, task *domain.Task) (map[string]int, error) {
	unit, err := s.units.GetByID(ctx, task.UnitID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, backoff.Permanent(err)
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}

	switch task.Step {
	case domain.StepPreprocess:
		return s.preprocess(ctx, unit)
	case domain.StepExtract:
		return s.extract(ctx, unit)
	case domain.StepResolve:
		return s.resolve(ctx, unit)
	case domain.StepDerive:
		return s.derive(ctx, unit)
	}
	return nil, backoff.Permanent(fmt.Errorf("unknown step %q", task.Step))
}

// preprocess applies learned corrections and whitespace normalization to the
// raw text. Raw text itself is never touched.
func (s *PipelineService) preprocess(ctx context.Context, unit *domain.ConversationUnit) (map[string]int, error) {
	corrected, err := s.vocab.ApplyCorrections(ctx, unit.RawText)
	if err != nil {
		return nil, err
	}
	sanitized := strings.Join(strings.Fields(corrected), " ")

	if err := s.units.UpdateSanitized(ctx, unit.ID, sanitized); err != nil {
		return nil, fmt.Errorf("update sanitized text: %w", err)
	}
	return map[string]int{"chars": len(sanitized)}, nil
}

// extract runs the extractor registry over the sanitized text and persists
// propositions, stances, mentions, relations and learned corrections.
func (s *PipelineService) extract(ctx context.Context, unit *domain.ConversationUnit) (map[string]int, error) {
	result, err := s.registry.RunAll(ctx, &extract.Input{UnitID: unit.ID, Text: unit.SanitizedText})
	if err != nil {
		return nil, err
	}

	for _, c := range result.Corrections {
		if _, err := s.vocab.LearnCorrection(ctx, c.WrongText, c.CorrectText); err != nil {
			s.logger.Warn("failed to learn correction", zap.Error(err))
		}
	}

	var created []domain.Proposition
	for _, ep := range result.Propositions {
		p := &domain.Proposition{
			UnitID:  unit.ID,
			Content: ep.Content,
			Type:    ep.Type,
			Subject: ep.Subject,
		}
		st := ep.Stance
		if err := s.props.Create(ctx, p, &st); err != nil {
			return nil, fmt.Errorf("create proposition: %w", err)
		}
		created = append(created, *p)
	}

	mentions := dedupeMentions(result)
	for _, m := range mentions {
		em := &domain.EntityMention{
			UnitID:        unit.ID,
			Text:          m.Text,
			MentionType:   m.MentionType,
			SuggestedType: m.SuggestedType,
		}
		if err := s.entities.CreateMention(ctx, em); err != nil {
			return nil, fmt.Errorf("create mention: %w", err)
		}
	}

	relations := detectRelations(created)
	for i := range relations {
		if err := s.props.CreateRelation(ctx, &relations[i]); err != nil {
			return nil, fmt.Errorf("create relation: %w", err)
		}
	}

	s.stashMu.Lock()
	s.stash[unit.ID] = result
	s.stashMu.Unlock()

	return map[string]int{
		"spans":        len(result.Spans),
		"propositions": len(created),
		"mentions":     len(mentions),
		"relations":    len(relations),
		"corrections":  len(result.Corrections),
	}, nil
}

// dedupeMentions merges capability mentions with pattern-found name spans,
// case-insensitively by text.
func dedupeMentions(result *extract.Result) []domain.ExtractedMention {
	seen := map[string]bool{}
	var out []domain.ExtractedMention
	for _, m := range result.Mentions {
		key := strings.ToLower(m.Text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	for _, span := range result.Spans {
		if span.Label != "name" {
			continue
		}
		key := strings.ToLower(span.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, domain.ExtractedMention{Text: span.Text, MentionType: domain.MentionNamed})
	}
	return out
}

var (
	contrastMarkers = []string{"but ", "however", "although", "though", "instead"}
	causalMarkers   = []string{"because", "since ", "so that", "therefore"}
)

// detectRelations links adjacent propositions of one unit when the later one
// opens with a contrast or causal marker.
func detectRelations(props []domain.Proposition) []domain.Relation {
	var out []domain.Relation
	for i := 1; i < len(props); i++ {
		content := strings.ToLower(props[i].Content)
		category := ""
		for _, marker := range contrastMarkers {
			if strings.Contains(content, marker) {
				category = "contrast"
				break
			}
		}
		if category == "" {
			for _, marker := range causalMarkers {
				if strings.Contains(content, marker) {
					category = "causal"
					break
				}
			}
		}
		if category == "" {
			continue
		}
		out = append(out, domain.Relation{
			PropositionAID: props[i-1].ID,
			PropositionBID: props[i].ID,
			Category:       category,
			Strength:       0.5,
		})
	}
	return out
}

// resolve links each named or nominal mention of the unit to an entity,
// minting one when no confident match exists. Pronominal mentions stay
// unresolved; ambiguity is not an error. Corrections learned since earlier
// units were processed are reconciled first, so past resolutions follow a
// later "I meant X not Y".
func (s *PipelineService) resolve(ctx context.Context, unit *domain.ConversationUnit) (map[string]int, error) {
	renamed, err := s.vocab.ReconcileEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile entities: %w", err)
	}
	reresolved, err := s.reresolveMentions(ctx)
	if err != nil {
		return nil, err
	}

	mentions, err := s.entities.ListMentionsByUnit(ctx, unit.ID)
	if err != nil {
		return nil, fmt.Errorf("list mentions: %w", err)
	}

	resolved, minted := 0, 0
	for i := range mentions {
		m := &mentions[i]
		if m.ResolvedEntityID != nil || m.MentionType == domain.MentionPronominal {
			continue
		}

		// The mention may predate a correction learned this very unit.
		name, err := s.vocab.ApplyCorrections(ctx, m.Text)
		if err != nil {
			return nil, err
		}
		if suggestion, err := s.vocab.SuggestCanonicalization(ctx, name); err == nil &&
			suggestion != nil && suggestion.Confidence >= 0.8 {
			name = suggestion.CorrectSpelling
		}

		entityType := m.SuggestedType
		if entityType == "" {
			entityType = "unknown"
		}

		entity, err := s.entities.GetEntityByName(ctx, name, entityType)
		switch {
		case err == nil:
			if err := s.entities.IncrementMentionCount(ctx, entity.ID); err != nil {
				return nil, fmt.Errorf("increment mention count: %w", err)
			}
			resolved++
		case errors.Is(err, store.ErrNotFound):
			entity = &domain.Entity{CanonicalName: name, EntityType: entityType, MentionCount: 1}
			if err := s.entities.CreateEntity(ctx, entity); err != nil {
				return nil, fmt.Errorf("create entity: %w", err)
			}
			minted++
		default:
			return nil, fmt.Errorf("lookup entity: %w", err)
		}

		if err := s.entities.ResolveMention(ctx, m.ID, entity.ID); err != nil {
			return nil, fmt.Errorf("resolve mention: %w", err)
		}
	}

	return map[string]int{
		"mentions":         len(mentions),
		"resolved":         resolved,
		"entities_minted":  minted,
		"entities_renamed": renamed,
		"reresolved":       reresolved,
	}, nil
}

// reresolveMentions retries mentions earlier units left unresolved, applying
// corrections learned since. It only links to existing entities; nothing is
// minted for text that still matches nothing.
func (s *PipelineService) reresolveMentions(ctx context.Context) (int, error) {
	unresolved, err := s.entities.ListUnresolvedMentions(ctx, domain.Page{Limit: 200})
	if err != nil {
		return 0, fmt.Errorf("list unresolved mentions: %w", err)
	}

	n := 0
	for i := range unresolved {
		m := &unresolved[i]
		if m.MentionType == domain.MentionPronominal {
			continue
		}

		name, err := s.vocab.ApplyCorrections(ctx, m.Text)
		if err != nil {
			return n, err
		}
		if suggestion, err := s.vocab.SuggestCanonicalization(ctx, name); err == nil &&
			suggestion != nil && suggestion.Confidence >= 0.8 {
			name = suggestion.CorrectSpelling
		}
		entityType := m.SuggestedType
		if entityType == "" {
			entityType = "unknown"
		}

		entity, err := s.entities.GetEntityByName(ctx, name, entityType)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("lookup entity: %w", err)
		}
		if err := s.entities.IncrementMentionCount(ctx, entity.ID); err != nil {
			return n, fmt.Errorf("increment mention count: %w", err)
		}
		if err := s.entities.ResolveMention(ctx, m.ID, entity.ID); err != nil {
			return n, fmt.Errorf("resolve mention: %w", err)
		}
		n++
	}
	return n, nil
}

// derive turns the unit's propositions into claims, reinforcing existing
// claims on heavy overlap, then routes new claims through chains, goals and
// the observers.
func (s *PipelineService) derive(ctx context.Context, unit *domain.ConversationUnit) (map[string]int, error) {
	props, err := s.props.ListByUnit(ctx, unit.ID)
	if err != nil {
		return nil, fmt.Errorf("list propositions: %w", err)
	}

	// The stash entry outlives failed attempts so a retried derive still sees
	// the extraction hints; it is dropped only once the stage succeeds.
	s.stashMu.Lock()
	stashed := s.stash[unit.ID]
	s.stashMu.Unlock()
	episodicHint := hasTemporalSpan(stashed)

	var newClaims []domain.Claim
	reinforced := 0
	goalsDerived := 0

	for i := range props {
		prop := &props[i]
		stance, err := s.props.GetStance(ctx, prop.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get stance: %w", err)
		}
		if stance.Epistemic.Certainty < minDeriveCertainty && prop.Type != domain.PropositionQuestion {
			continue
		}

		if existing := s.findReinforceTarget(ctx, prop); existing != uuid.Nil {
			if _, err := s.memory.Reinforce(ctx, existing); err != nil {
				return nil, fmt.Errorf("reinforce claim: %w", err)
			}
			reinforced++
			continue
		}

		claim := buildClaim(prop, stance, episodicHint)
		if err := s.claims.Create(ctx, claim); err != nil {
			return nil, fmt.Errorf("create claim: %w", err)
		}
		newClaims = append(newClaims, *claim)

		if _, err := s.chains.AssignClaim(ctx, claim); err != nil {
			return nil, fmt.Errorf("assign claim to chain: %w", err)
		}
		goal, err := s.goals.DeriveFromClaim(ctx, claim, stance.Volitional)
		if err != nil {
			return nil, fmt.Errorf("derive goal: %w", err)
		}
		if goal != nil {
			goalsDerived++
		}
	}

	if len(newClaims) > 0 {
		s.dispatcher.Dispatch(ctx, &DeriveEvent{UnitID: unit.ID, Claims: newClaims, At: time.Now()})
	}

	s.stashMu.Lock()
	delete(s.stash, unit.ID)
	s.stashMu.Unlock()

	return map[string]int{
		"propositions": len(props),
		"claims":       len(newClaims),
		"reinforced":   reinforced,
		"goals":        goalsDerived,
	}, nil
}

// findReinforceTarget returns an existing active claim this proposition
// restates, or uuid.Nil.
func (s *PipelineService) findReinforceTarget(ctx context.Context, prop *domain.Proposition) uuid.UUID {
	if prop.Subject == "" {
		return uuid.Nil
	}
	existing, err := s.claims.ListBySubject(ctx, prop.Subject, domain.ClaimActive)
	if err != nil {
		return uuid.Nil
	}
	propTokens := tokenize(prop.Content)
	for i := range existing {
		if jaccard(propTokens, tokenize(existing[i].Statement)) >= reinforceOverlap {
			return existing[i].ID
		}
	}
	return uuid.Nil
}

func hasTemporalSpan(result *extract.Result) bool {
	if result == nil {
		return false
	}
	for _, span := range result.Spans {
		if span.Label == "temporal" {
			return true
		}
	}
	return false
}

var eternalMarkers = []string{"always", "never", "every ", "since childhood", "allergic"}

func buildClaim(prop *domain.Proposition, stance *domain.Stance, episodicHint bool) *domain.Claim {
	claimType := mapClaimType(prop, stance)

	temporality := domain.TemporalityDurable
	switch {
	case episodicHint || prop.Type == domain.PropositionObservation:
		temporality = domain.TemporalityEpisodic
	case prop.Type == domain.PropositionFact && containsAny(prop.Content, eternalMarkers):
		temporality = domain.TemporalityEternal
	}

	valence := stance.Affective.Valence
	if stance.Volitional.Type != domain.VolitionalNone && stance.Volitional.Valence != 0 {
		valence = stance.Volitional.Valence
	}

	stakes := stance.Volitional.Strength
	if stance.Deontic.Strength > stakes {
		stakes = stance.Deontic.Strength
	}

	return &domain.Claim{
		Statement:          prop.Content,
		ClaimType:          claimType,
		Subject:            prop.Subject,
		Stakes:             clamp01(stakes),
		Temporality:        temporality,
		SourceType:         domain.SourceStated,
		State:              domain.ClaimActive,
		CurrentConfidence:  clamp01(stance.Epistemic.Certainty),
		EmotionalValence:   valence,
		EmotionalIntensity: clamp01(stance.Affective.Arousal),
		MemoryTier:         domain.TierWorking,
	}
}

func mapClaimType(prop *domain.Proposition, stance *domain.Stance) domain.ClaimType {
	if stance.Affective.Valence < -0.3 && stance.Affective.Arousal >= 0.5 {
		return domain.ClaimConcern
	}
	switch prop.Type {
	case domain.PropositionPreference:
		return domain.ClaimPreference
	case domain.PropositionIntention:
		return domain.ClaimIntention
	case domain.PropositionQuestion:
		return domain.ClaimQuestion
	case domain.PropositionObservation:
		return domain.ClaimBelief
	default:
		return domain.ClaimFact
	}
}

func containsAny(text string, markers []string) bool {
	lower := strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// QueueStatus snapshots the task table plus currently queued work.
func (s *PipelineService) QueueStatus(ctx context.Context) (*domain.QueueStatus, error) {
	counts, err := s.tasks.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	recent, err := s.tasks.ListByStatus(ctx, domain.TaskFailed, domain.Page{Limit: 20})
	if err != nil {
		return nil, fmt.Errorf("list failed tasks: %w", err)
	}
	return &domain.QueueStatus{
		Pending:    counts[domain.TaskPending],
		Processing: counts[domain.TaskProcessing],
		Completed:  counts[domain.TaskCompleted],
		Failed:     counts[domain.TaskFailed],
		Tasks:      recent,
	}, nil
}

func (s *PipelineService) emit(ev domain.Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Debug("event dropped, buffer full", zap.String("type", string(ev.Type)))
	}
}

// taskQueue is a mutex-guarded priority FIFO: lower Priority value runs
// first; equal priorities keep submission order.
type taskQueue struct {
	mu     sync.Mutex
	items  []*domain.Task
	seq    int
	orders map[*domain.Task]int
	notify chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		notify: make(chan struct{}, 1),
		orders: map[*domain.Task]int{},
	}
}

func (q *taskQueue) push(t *domain.Task) {
	q.mu.Lock()
	q.seq++
	q.orders[t] = q.seq
	q.items = append(q.items, t)
	sort.SliceStable(q.items, func(i, j int) bool {
		if q.items[i].Priority != q.items[j].Priority {
			return q.items[i].Priority < q.items[j].Priority
		}
		return q.orders[q.items[i]] < q.orders[q.items[j]]
	})
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *taskQueue) pop() *domain.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	t := q.items[0]
	q.items = q.items[1:]
	delete(q.orders, t)
	return t
}
