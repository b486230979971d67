package extract

import (
	"context"
	"fmt"

	"github.com/noemahq/noema/internal/domain"
)

// CapabilityExtractor invokes the external text-generation capability to
// produce propositions, stances and entity mentions.
type CapabilityExtractor struct {
	client domain.ExtractionClient
	budget int
}

func NewCapabilityExtractor(client domain.ExtractionClient, tokenBudget int) *CapabilityExtractor {
	if tokenBudget <= 0 {
		tokenBudget = 2048
	}
	return &CapabilityExtractor{client: client, budget: tokenBudget}
}

func (e *CapabilityExtractor) Name() string     { return "knowledge_capability" }
func (e *CapabilityExtractor) Kind() Kind       { return KindCapability }
func (e *CapabilityExtractor) TokenBudget() int { return e.budget }

func (e *CapabilityExtractor) Run(ctx context.Context, in *Input) (*Result, error) {
	extracted, err := e.client.ExtractKnowledge(ctx, in.Text)
	if err != nil {
		return nil, fmt.Errorf("capability extraction: %w", err)
	}
	return &Result{
		Propositions: extracted.Propositions,
		Mentions:     extracted.Mentions,
	}, nil
}
