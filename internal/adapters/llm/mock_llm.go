package llm

import (
	"context"
	"fmt"

	"github.com/PabloGalante/assistant-chat/internal/domain"
)

// MockLLM answers deterministically without any network access.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	reply := fmt.Sprintf("You said %q. How can I help you with that?", req.Message)
	if n := len(req.Attachments); n > 0 {
		reply += fmt.Sprintf(" I can see %d uploaded file(s).", n)
	}
	return reply, nil
}
