package llm

import (
	"context"

	"github.com/noemahq/noema/internal/domain"
)

// MockClient is a configurable extraction client for testing.
// Set the response fields to control what each method returns.
type MockClient struct {
	ExtractResponse            *domain.ExtractionResult
	ExtractError               error
	CheckContradictionResponse bool
	CheckContradictionError    error

	// Call tracking for assertions
	ExtractCalls            []string
	CheckContradictionCalls []struct{ A, B string }
}

func NewMockClient() *MockClient {
	return &MockClient{
		ExtractResponse: &domain.ExtractionResult{},
	}
}

func (c *MockClient) ExtractKnowledge(ctx context.Context, text string) (*domain.ExtractionResult, error) {
	c.ExtractCalls = append(c.ExtractCalls, text)
	if c.ExtractError != nil {
		return nil, c.ExtractError
	}
	return c.ExtractResponse, nil
}

func (c *MockClient) CheckContradiction(ctx context.Context, statementA, statementB string) (bool, error) {
	c.CheckContradictionCalls = append(c.CheckContradictionCalls, struct{ A, B string }{statementA, statementB})
	if c.CheckContradictionError != nil {
		return false, c.CheckContradictionError
	}
	return c.CheckContradictionResponse, nil
}

// Reset clears all recorded calls and resets responses to defaults.
func (c *MockClient) Reset() {
	c.ExtractResponse = &domain.ExtractionResult{}
	c.ExtractError = nil
	c.CheckContradictionResponse = false
	c.CheckContradictionError = nil
	c.ExtractCalls = nil
	c.CheckContradictionCalls = nil
}
