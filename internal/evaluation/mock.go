package evaluation

import "context"

// MockEvaluator returns canned feedback without calling the provider.
// Selected by evaluation.dry_run in config, same idea as a provider
// dry-run mode: local development should not need an API key.
type MockEvaluator struct{}

func NewMockEvaluator() *MockEvaluator { return &MockEvaluator{} }

func (m *MockEvaluator) Evaluate(_ context.Context, input Input) (*Result, error) {
	score := 7
	if len(input.Description) > 50 {
		score++
	}
	if len(input.FileContent) > 100 {
		score++
	}
	if score > 10 {
		score = 10
	}
	return &Result{
		Score: score,
		Strengths: []string{
			"Clear and concise problem statement",
			"Well-structured code organization",
			"Proper error handling implemented",
		},
		Improvements: []string{
			"Consider adding more comprehensive unit tests",
			"Documentation could be expanded with more examples",
			"Add input validation for edge cases",
		},
	}, nil
}
