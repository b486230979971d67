package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noemahq/noema/internal/domain"
	"github.com/noemahq/noema/internal/llm"
)

type recordingObserver struct {
	name   string
	events int
	err    error
}

func (o *recordingObserver) Name() string { return o.name }
func (o *recordingObserver) HandleEvent(context.Context, *DeriveEvent) error {
	o.events++
	return o.err
}

func TestDispatcherDispatchAndStats(t *testing.T) {
	d := NewObserverDispatcher(zap.NewNop())
	ok := &recordingObserver{name: "ok"}
	failing := &recordingObserver{name: "failing", err: errors.New("boom")}
	if err := d.Register(ok); err != nil {
		t.Fatal(err)
	}
	if err := d.Register(failing); err != nil {
		t.Fatal(err)
	}

	d.Dispatch(context.Background(), &DeriveEvent{UnitID: uuid.New(), At: time.Now()})
	d.Dispatch(context.Background(), &DeriveEvent{UnitID: uuid.New(), At: time.Now()})

	if ok.events != 2 || failing.events != 2 {
		t.Errorf("events = %d/%d, want 2/2", ok.events, failing.events)
	}
	for _, st := range d.Stats() {
		if st.Runs != 2 {
			t.Errorf("observer %s runs = %d, want 2", st.Name, st.Runs)
		}
		if st.Name == "failing" && st.Errors != 2 {
			t.Errorf("failing observer errors = %d, want 2", st.Errors)
		}
	}
}

func TestDispatcherDisableIsOneWay(t *testing.T) {
	d := NewObserverDispatcher(zap.NewNop())
	o := &recordingObserver{name: "watcher"}
	if err := d.Register(o); err != nil {
		t.Fatal(err)
	}

	if err := d.Disable("watcher"); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	d.Dispatch(context.Background(), &DeriveEvent{UnitID: uuid.New(), At: time.Now()})
	if o.events != 0 {
		t.Errorf("disabled observer ran %d times", o.events)
	}

	if err := d.Disable("missing"); err == nil {
		t.Error("expected error disabling unknown observer")
	}
}

func TestDispatcherRejectsDuplicateNames(t *testing.T) {
	d := NewObserverDispatcher(zap.NewNop())
	if err := d.Register(&recordingObserver{name: "dup"}); err != nil {
		t.Fatal(err)
	}
	if err := d.Register(&recordingObserver{name: "dup"}); err == nil {
		t.Error("expected duplicate registration error")
	}
}

func activeClaim(statement, subject string, claimType domain.ClaimType, valence float64) *domain.Claim {
	return &domain.Claim{
		ID:                uuid.New(),
		Statement:         statement,
		ClaimType:         claimType,
		Subject:           subject,
		State:             domain.ClaimActive,
		CurrentConfidence: 0.8,
		EmotionalValence:  valence,
		MemoryTier:        domain.TierWorking,
		CreatedAt:         time.Now(),
	}
}

func TestContradictionObserverVolitional(t *testing.T) {
	claims := newMockClaimStore()
	contradictions := newMockContradictionStore()
	obs := NewContradictionObserver(claims, contradictions, nil, DefaultContradictionPolicy(), zap.NewNop())

	existing := activeClaim("trying to eat vegetarian", "diet", domain.ClaimIntention, 0.8)
	claims.set(existing)
	incoming := activeClaim("had a steak burger and loved it", "diet", domain.ClaimPreference, -0.6)
	claims.set(incoming)

	err := obs.HandleEvent(context.Background(), &DeriveEvent{
		UnitID: uuid.New(), Claims: []domain.Claim{*incoming}, At: time.Now(),
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	rows, _ := contradictions.List(context.Background(), false, domain.Page{})
	if len(rows) != 1 {
		t.Fatalf("contradictions = %d, want 1", len(rows))
	}
	if rows[0].ContradictionType != domain.ContradictionVolitional {
		t.Errorf("type = %s, want volitional", rows[0].ContradictionType)
	}
	if rows[0].Resolved {
		t.Error("new contradiction must not be auto-resolved")
	}
}

func TestContradictionObserverFactualNegation(t *testing.T) {
	claims := newMockClaimStore()
	contradictions := newMockContradictionStore()
	obs := NewContradictionObserver(claims, contradictions, nil, DefaultContradictionPolicy(), zap.NewNop())

	existing := activeClaim("drinks coffee every morning", "coffee", domain.ClaimFact, 0)
	claims.set(existing)
	incoming := activeClaim("never drinks coffee in the morning", "coffee", domain.ClaimFact, 0)
	claims.set(incoming)

	err := obs.HandleEvent(context.Background(), &DeriveEvent{
		UnitID: uuid.New(), Claims: []domain.Claim{*incoming}, At: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	rows, _ := contradictions.List(context.Background(), false, domain.Page{})
	if len(rows) != 1 {
		t.Fatalf("contradictions = %d, want 1", len(rows))
	}
	if rows[0].ContradictionType != domain.ContradictionFactual {
		t.Errorf("type = %s, want factual", rows[0].ContradictionType)
	}
}

func TestContradictionObserverSkipsSelfAndDuplicates(t *testing.T) {
	claims := newMockClaimStore()
	contradictions := newMockContradictionStore()
	obs := NewContradictionObserver(claims, contradictions, nil, DefaultContradictionPolicy(), zap.NewNop())

	a := activeClaim("trying to eat vegetarian", "diet", domain.ClaimIntention, 0.8)
	b := activeClaim("had a steak burger and loved it", "diet", domain.ClaimPreference, -0.6)
	claims.set(a)
	claims.set(b)

	ev := &DeriveEvent{UnitID: uuid.New(), Claims: []domain.Claim{*b}, At: time.Now()}
	if err := obs.HandleEvent(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	// Dispatch again, and also from the other claim's perspective: the pair
	// must stay unique regardless of order.
	if err := obs.HandleEvent(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	evA := &DeriveEvent{UnitID: uuid.New(), Claims: []domain.Claim{*a}, At: time.Now()}
	if err := obs.HandleEvent(context.Background(), evA); err != nil {
		t.Fatal(err)
	}

	rows, _ := contradictions.List(context.Background(), false, domain.Page{})
	if len(rows) != 1 {
		t.Errorf("contradictions = %d, want exactly 1 for the pair", len(rows))
	}
	for _, r := range rows {
		if r.ClaimAID == r.ClaimBID {
			t.Error("claim contradicts itself")
		}
	}
}

func TestContradictionObserverCapabilityFallback(t *testing.T) {
	claims := newMockClaimStore()
	contradictions := newMockContradictionStore()
	client := &llm.MockClient{CheckContradictionResponse: true}
	policy := DefaultContradictionPolicy()
	policy.UseCapabilityCheck = true
	obs := NewContradictionObserver(claims, contradictions, client, policy, zap.NewNop())

	// Lexically dissimilar facts, no negation: only the capability catches it.
	existing := activeClaim("is vegetarian", "diet", domain.ClaimFact, 0)
	claims.set(existing)
	incoming := activeClaim("ordered the beef special", "diet", domain.ClaimFact, 0)
	claims.set(incoming)

	err := obs.HandleEvent(context.Background(), &DeriveEvent{
		UnitID: uuid.New(), Claims: []domain.Claim{*incoming}, At: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	rows, _ := contradictions.List(context.Background(), false, domain.Page{})
	if len(rows) != 1 {
		t.Fatalf("contradictions = %d, want 1 via capability check", len(rows))
	}
	if len(client.CheckContradictionCalls) == 0 {
		t.Error("capability check was never invoked")
	}
}

func TestPatternObserverFrequencyFloor(t *testing.T) {
	claims := newMockClaimStore()
	patterns := newMockPatternStore()
	obs := NewPatternObserver(claims, patterns, zap.NewNop())
	ctx := context.Background()

	// Two concerns about work: under the floor, no pattern.
	for i := 0; i < 2; i++ {
		c := activeClaim("worried about workload", "workload", domain.ClaimConcern, -0.5)
		claims.set(c)
		if err := obs.HandleEvent(ctx, &DeriveEvent{UnitID: uuid.New(), Claims: []domain.Claim{*c}, At: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}
	rows, _ := patterns.List(ctx, domain.Page{})
	if len(rows) != 0 {
		t.Fatalf("patterns = %d below floor, want 0", len(rows))
	}

	// Third concern crosses the floor.
	c := activeClaim("workload is getting worse", "workload", domain.ClaimConcern, -0.5)
	claims.set(c)
	if err := obs.HandleEvent(ctx, &DeriveEvent{UnitID: uuid.New(), Claims: []domain.Claim{*c}, At: time.Now()}); err != nil {
		t.Fatal(err)
	}
	rows, _ = patterns.List(ctx, domain.Page{})
	if len(rows) != 1 {
		t.Fatalf("patterns = %d, want 1 at floor", len(rows))
	}
	first := rows[0]

	// A fourth increments instead of duplicating.
	c = activeClaim("still anxious about workload", "workload", domain.ClaimConcern, -0.5)
	claims.set(c)
	if err := obs.HandleEvent(ctx, &DeriveEvent{UnitID: uuid.New(), Claims: []domain.Claim{*c}, At: time.Now()}); err != nil {
		t.Fatal(err)
	}
	rows, _ = patterns.List(ctx, domain.Page{})
	if len(rows) != 1 {
		t.Fatalf("patterns = %d after repeat, want still 1", len(rows))
	}
	if rows[0].OccurrenceCount <= first.OccurrenceCount {
		t.Errorf("occurrence count did not grow: %d -> %d", first.OccurrenceCount, rows[0].OccurrenceCount)
	}
}

type patternStoreLookupFails struct {
	*mockPatternStore
	err error
}

func (s *patternStoreLookupFails) GetBySignature(context.Context, string, string) (*domain.Pattern, error) {
	return nil, s.err
}

func TestPatternObserverPropagatesLookupError(t *testing.T) {
	claims := newMockClaimStore()
	patterns := &patternStoreLookupFails{
		mockPatternStore: newMockPatternStore(),
		err:              errors.New("store unavailable"),
	}
	obs := NewPatternObserver(claims, patterns, zap.NewNop())
	ctx := context.Background()

	var last *domain.Claim
	for i := 0; i < patternFrequencyFloor; i++ {
		last = activeClaim("worried about workload", "workload", domain.ClaimConcern, -0.5)
		claims.set(last)
	}

	// A transient lookup failure must surface, not masquerade as not-found
	// and mint a fresh pattern row.
	err := obs.HandleEvent(ctx, &DeriveEvent{UnitID: uuid.New(), Claims: []domain.Claim{*last}, At: time.Now()})
	if err == nil {
		t.Fatal("expected lookup error to propagate")
	}
	rows, _ := patterns.List(ctx, domain.Page{})
	if len(rows) != 0 {
		t.Errorf("patterns = %d, want 0 when the lookup failed", len(rows))
	}
}

func TestNegationIncompatible(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"drinks coffee every morning", "never drinks coffee in the morning", true},
		{"drinks coffee every morning", "drinks coffee every morning", false},
		{"never drinks coffee", "never drinks tea", false},
		{"likes hiking", "likes swimming", false},
	}
	for _, tt := range tests {
		if got := negationIncompatible(tt.a, tt.b); got != tt.want {
			t.Errorf("negationIncompatible(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
