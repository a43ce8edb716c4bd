package brain

import (
	"context"
	"strings"
)

// MockAdapter answers deterministically without any backend. Used when no
// backend is configured and by tests.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{}
}

func (m *MockAdapter) Complete(_ context.Context, prompt string) (string, error) {
	question := prompt
	if idx := strings.LastIndex(prompt, "Question: "); idx >= 0 {
		question = prompt[idx+len("Question: "):]
	}
	return "(mock) I would look that up for you: " + strings.TrimSpace(question), nil
}
