// Package extract holds the pluggable extraction programs run by the
// pipeline's extract stage. Extractors are registered at startup from a static
// table; their active flag and run statistics live in the record store.
package extract

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noemahq/noema/internal/domain"
)

type Kind string

const (
	// KindPattern extractors are deterministic regex/lexicon matchers.
	KindPattern Kind = "pattern"
	// KindCapability extractors invoke the external text-generation capability.
	KindCapability Kind = "capability"
)

// Span is a labeled region of the sanitized text found by a pattern extractor.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// CorrectionPair is a wrong->correct replacement learned from the text itself.
type CorrectionPair struct {
	WrongText   string `json:"wrong_text"`
	CorrectText string `json:"correct_text"`
}

// Input is the unit of text handed to every extractor.
type Input struct {
	UnitID uuid.UUID
	Text   string
}

// Result aggregates everything one extractor produced. Fields an extractor
// does not populate stay empty.
type Result struct {
	Spans        []Span
	Propositions []domain.ExtractedProposition
	Mentions     []domain.ExtractedMention
	Corrections  []CorrectionPair
}

func (r *Result) merge(other *Result) {
	if other == nil {
		return
	}
	r.Spans = append(r.Spans, other.Spans...)
	r.Propositions = append(r.Propositions, other.Propositions...)
	r.Mentions = append(r.Mentions, other.Mentions...)
	r.Corrections = append(r.Corrections, other.Corrections...)
}

// Extractor is one independently toggleable extraction program.
type Extractor interface {
	Name() string
	Kind() Kind
	// TokenBudget is the capability-token allowance for one run; zero for
	// pattern extractors.
	TokenBudget() int
	Run(ctx context.Context, in *Input) (*Result, error)
}

// Registry holds the registered extractors and consults the record store for
// their active flags. A disabled extractor is skipped; its absence never
// blocks downstream stages.
type Registry struct {
	extractors []Extractor
	states     domain.ExtractorStateStore
	logger     *zap.Logger
}

func NewRegistry(states domain.ExtractorStateStore, logger *zap.Logger) *Registry {
	return &Registry{states: states, logger: logger}
}

// Register adds an extractor and seeds its persisted state as active if the
// store has never seen it.
func (r *Registry) Register(ctx context.Context, e Extractor) error {
	for _, existing := range r.extractors {
		if existing.Name() == e.Name() {
			return fmt.Errorf("extractor %q already registered", e.Name())
		}
	}
	if _, err := r.states.Get(ctx, e.Name()); err != nil {
		if err := r.states.Upsert(ctx, &domain.ExtractorState{Name: e.Name(), Active: true}); err != nil {
			return fmt.Errorf("seed extractor state %q: %w", e.Name(), err)
		}
	}
	r.extractors = append(r.extractors, e)
	return nil
}

// SetActive toggles one extractor's persisted active flag.
func (r *Registry) SetActive(ctx context.Context, name string, active bool) error {
	for _, e := range r.extractors {
		if e.Name() == name {
			return r.states.Upsert(ctx, &domain.ExtractorState{Name: name, Active: active})
		}
	}
	return fmt.Errorf("extractor %q: %w", name, errUnknownExtractor)
}

var errUnknownExtractor = fmt.Errorf("unknown extractor")

// States returns the persisted state of every registered extractor.
func (r *Registry) States(ctx context.Context) ([]domain.ExtractorState, error) {
	return r.states.List(ctx)
}

// RunAll runs all active extractors against the input, pattern extractors
// before capability extractors, and returns the merged result. A failing
// extractor contributes nothing but does not fail the stage.
func (r *Registry) RunAll(ctx context.Context, in *Input) (*Result, error) {
	merged := &Result{}
	for _, kind := range []Kind{KindPattern, KindCapability} {
		for _, e := range r.extractors {
			if e.Kind() != kind {
				continue
			}
			state, err := r.states.Get(ctx, e.Name())
			if err == nil && !state.Active {
				continue
			}

			result, runErr := e.Run(ctx, in)
			if err := r.states.RecordRun(ctx, e.Name(), runErr == nil); err != nil {
				r.logger.Warn("failed to record extractor run",
					zap.String("extractor", e.Name()), zap.Error(err))
			}
			if runErr != nil {
				r.logger.Warn("extractor failed",
					zap.String("extractor", e.Name()),
					zap.String("unit_id", in.UnitID.String()),
					zap.Error(runErr))
				continue
			}
			merged.merge(result)
		}
	}
	return merged, nil
}
