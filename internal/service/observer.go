package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noemahq/noema/internal/domain"
	"github.com/noemahq/noema/internal/store"
)

// DeriveEvent carries the claims a finished derive stage produced for one
// conversation unit.
type DeriveEvent struct {
	UnitID uuid.UUID
	Claims []domain.Claim
	At     time.Time
}

// Observer reacts to derive events. Observer failures are logged and counted
// but never fail the pipeline stage.
type Observer interface {
	Name() string
	HandleEvent(ctx context.Context, ev *DeriveEvent) error
}

// ObserverStats is the per-observer run accounting exposed by the dispatcher.
type ObserverStats struct {
	Name        string        `json:"name"`
	Enabled     bool          `json:"enabled"`
	Runs        int64         `json:"runs"`
	Errors      int64         `json:"errors"`
	TotalTime   time.Duration `json:"-"`
	AvgDuration time.Duration `json:"avg_duration"`
	LastRun     time.Time     `json:"last_run"`
}

type observerEntry struct {
	observer Observer
	enabled  bool
	stats    ObserverStats
}

// ObserverDispatcher fans derive events out to registered observers in
// registration order. Disable is one-way: a disabled observer stays disabled
// until the dispatcher is rebuilt.
type ObserverDispatcher struct {
	mu        sync.Mutex
	observers []*observerEntry
	logger    *zap.Logger
}

func NewObserverDispatcher(logger *zap.Logger) *ObserverDispatcher {
	return &ObserverDispatcher{logger: logger}
}

func (d *ObserverDispatcher) Register(o Observer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.observers {
		if e.observer.Name() == o.Name() {
			return fmt.Errorf("observer %q already registered", o.Name())
		}
	}
	d.observers = append(d.observers, &observerEntry{
		observer: o,
		enabled:  true,
		stats:    ObserverStats{Name: o.Name(), Enabled: true},
	})
	return nil
}

// Disable permanently stops an observer for the lifetime of this dispatcher.
func (d *ObserverDispatcher) Disable(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.observers {
		if e.observer.Name() == name {
			e.enabled = false
			e.stats.Enabled = false
			d.logger.Info("observer disabled", zap.String("observer", name))
			return nil
		}
	}
	return fmt.Errorf("observer %q not registered", name)
}

// Dispatch runs every enabled observer against the event, sequentially and
// in registration order.
func (d *ObserverDispatcher) Dispatch(ctx context.Context, ev *DeriveEvent) {
	d.mu.Lock()
	entries := make([]*observerEntry, len(d.observers))
	copy(entries, d.observers)
	d.mu.Unlock()

	for _, e := range entries {
		d.mu.Lock()
		enabled := e.enabled
		d.mu.Unlock()
		if !enabled {
			continue
		}

		start := time.Now()
		err := e.observer.HandleEvent(ctx, ev)
		elapsed := time.Since(start)

		d.mu.Lock()
		e.stats.Runs++
		e.stats.TotalTime += elapsed
		e.stats.AvgDuration = e.stats.TotalTime / time.Duration(e.stats.Runs)
		e.stats.LastRun = start
		if err != nil {
			e.stats.Errors++
		}
		d.mu.Unlock()

		if err != nil {
			d.logger.Warn("observer failed",
				zap.String("observer", e.observer.Name()),
				zap.String("unit_id", ev.UnitID.String()),
				zap.Error(err))
		}
	}
}

// Stats returns a snapshot of every observer's counters.
func (d *ObserverDispatcher) Stats() []ObserverStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ObserverStats, 0, len(d.observers))
	for _, e := range d.observers {
		out = append(out, e.stats)
	}
	return out
}

// ContradictionPolicy tunes when two claims count as contradictory.
type ContradictionPolicy struct {
	// MinSubjectOverlap is the Jaccard floor on subject tokens before two
	// claims are even compared.
	MinSubjectOverlap float64
	// UseCapabilityCheck consults the extraction capability when the lexical
	// heuristics are inconclusive.
	UseCapabilityCheck bool
}

func DefaultContradictionPolicy() ContradictionPolicy {
	return ContradictionPolicy{MinSubjectOverlap: 0.5}
}

// ContradictionObserver compares each newly derived claim against active
// claims on the same subject and records contradictions. Detected
// contradictions are never auto-resolved.
type ContradictionObserver struct {
	claims         domain.ClaimStore
	contradictions domain.ContradictionStore
	client         domain.ExtractionClient
	policy         ContradictionPolicy
	logger         *zap.Logger
}

func NewContradictionObserver(
	claims domain.ClaimStore,
	contradictions domain.ContradictionStore,
	client domain.ExtractionClient,
	policy ContradictionPolicy,
	logger *zap.Logger,
) *ContradictionObserver {
	return &ContradictionObserver{
		claims:         claims,
		contradictions: contradictions,
		client:         client,
		policy:         policy,
		logger:         logger,
	}
}

func (o *ContradictionObserver) Name() string { return "contradiction_observer" }

func (o *ContradictionObserver) HandleEvent(ctx context.Context, ev *DeriveEvent) error {
	for i := range ev.Claims {
		if err := o.checkClaim(ctx, &ev.Claims[i]); err != nil {
			return err
		}
	}
	return nil
}

func (o *ContradictionObserver) checkClaim(ctx context.Context, claim *domain.Claim) error {
	if claim.Subject == "" {
		return nil
	}
	candidates, err := o.claims.ListBySubject(ctx, claim.Subject, domain.ClaimActive)
	if err != nil {
		return fmt.Errorf("list claims by subject: %w", err)
	}

	subjectTokens := tokenize(claim.Subject)
	for i := range candidates {
		other := &candidates[i]
		if other.ID == claim.ID {
			continue
		}
		if jaccard(subjectTokens, tokenize(other.Subject)) < o.policy.MinSubjectOverlap {
			continue
		}

		kind, found := o.compare(ctx, claim, other)
		if !found {
			continue
		}

		exists, err := o.contradictions.ExistsForPair(ctx, claim.ID, other.ID)
		if err != nil {
			return fmt.Errorf("check contradiction pair: %w", err)
		}
		if exists {
			continue
		}

		c := &domain.Contradiction{
			ClaimAID:          claim.ID,
			ClaimBID:          other.ID,
			ContradictionType: kind,
		}
		if err := o.contradictions.Create(ctx, c); err != nil {
			return fmt.Errorf("create contradiction: %w", err)
		}
		o.logger.Info("contradiction detected",
			zap.String("type", string(kind)),
			zap.String("claim_a", claim.ID.String()),
			zap.String("claim_b", other.ID.String()))
	}
	return nil
}

// compare classifies the pair, or reports no contradiction.
func (o *ContradictionObserver) compare(ctx context.Context, a, b *domain.Claim) (domain.ContradictionType, bool) {
	if volitionalClaim(a) && volitionalClaim(b) &&
		a.EmotionalValence*b.EmotionalValence < 0 {
		return domain.ContradictionVolitional, true
	}

	if factualClaim(a) && factualClaim(b) && negationIncompatible(a.Statement, b.Statement) {
		return domain.ContradictionFactual, true
	}

	if o.policy.UseCapabilityCheck && o.client != nil && factualClaim(a) && factualClaim(b) {
		contradicts, err := o.client.CheckContradiction(ctx, a.Statement, b.Statement)
		if err != nil {
			o.logger.Warn("capability contradiction check failed", zap.Error(err))
			return "", false
		}
		if contradicts {
			return domain.ContradictionFactual, true
		}
	}
	return "", false
}

func volitionalClaim(c *domain.Claim) bool {
	return c.ClaimType == domain.ClaimPreference || c.ClaimType == domain.ClaimIntention
}

func factualClaim(c *domain.Claim) bool {
	return c.ClaimType == domain.ClaimFact || c.ClaimType == domain.ClaimBelief
}

var negationWords = map[string]bool{
	"not": true, "never": true, "no": true, "dont": true, "don't": true,
	"doesnt": true, "doesn't": true, "isnt": true, "isn't": true,
	"wont": true, "won't": true, "cant": true, "can't": true,
	"stopped": true, "quit": true,
}

// negationIncompatible reports whether two statements say near-identical
// things with opposite polarity: high token overlap once negation words are
// stripped, but only one side negated.
func negationIncompatible(a, b string) bool {
	aNeg, aTokens := splitNegation(a)
	bNeg, bTokens := splitNegation(b)
	if aNeg == bNeg {
		return false
	}
	return jaccard(aTokens, bTokens) >= 0.6
}

func splitNegation(statement string) (bool, map[string]bool) {
	neg := false
	tokens := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(statement)) {
		word = strings.Trim(word, ".,!?;:\"'")
		if negationWords[word] {
			neg = true
			continue
		}
		for token := range tokenize(word) {
			tokens[token] = true
		}
	}
	return neg, tokens
}

const (
	// patternFrequencyFloor is how many active same-type same-subject claims
	// must exist before a recurrence pattern is recorded.
	patternFrequencyFloor = 3
)

// PatternObserver records recurring claimType+subject combinations as
// Pattern rows, incrementing occurrence counts on repeats.
type PatternObserver struct {
	claims   domain.ClaimStore
	patterns domain.PatternStore
	logger   *zap.Logger
}

func NewPatternObserver(claims domain.ClaimStore, patterns domain.PatternStore, logger *zap.Logger) *PatternObserver {
	return &PatternObserver{claims: claims, patterns: patterns, logger: logger}
}

func (o *PatternObserver) Name() string { return "pattern_observer" }

func (o *PatternObserver) HandleEvent(ctx context.Context, ev *DeriveEvent) error {
	for i := range ev.Claims {
		if err := o.checkClaim(ctx, &ev.Claims[i]); err != nil {
			return err
		}
	}
	return nil
}

func (o *PatternObserver) checkClaim(ctx context.Context, claim *domain.Claim) error {
	if claim.Subject == "" {
		return nil
	}

	peers, err := o.claims.ListBySubject(ctx, claim.Subject, domain.ClaimActive)
	if err != nil {
		return fmt.Errorf("list claims by subject: %w", err)
	}
	count := 0
	for i := range peers {
		if peers[i].ClaimType == claim.ClaimType {
			count++
		}
	}
	if count < patternFrequencyFloor {
		return nil
	}

	patternType := "recurring_" + string(claim.ClaimType)
	description := fmt.Sprintf("%s about %s", claim.ClaimType, claim.Subject)
	confidence := clamp01(float64(count) / 10)

	existing, err := o.patterns.GetBySignature(ctx, patternType, description)
	if err == nil {
		return o.patterns.IncrementOccurrence(ctx, existing.ID, confidence, time.Now())
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup pattern: %w", err)
	}

	p := &domain.Pattern{
		PatternType:     patternType,
		Description:     description,
		OccurrenceCount: count,
		Confidence:      confidence,
	}
	if err := o.patterns.Create(ctx, p); err != nil {
		return fmt.Errorf("create pattern: %w", err)
	}
	o.logger.Info("pattern detected",
		zap.String("pattern_type", patternType),
		zap.String("subject", claim.Subject),
		zap.Int("occurrences", count))
	return nil
}
