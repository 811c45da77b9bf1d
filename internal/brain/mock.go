package brain

import (
	"context"
	"strings"
)

// MockAdapter fabricates a deterministic reply; used when no vendor key is
// configured and by tests.
type MockAdapter struct {
	// Deltas overrides the streamed fragments when non-empty.
	Deltas []string
}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) StreamReply(_ context.Context, req Request, onDelta DeltaHandler) (Reply, error) {
	deltas := a.Deltas
	if len(deltas) == 0 {
		last := ""
		for i := len(req.History) - 1; i >= 0; i-- {
			if req.History[i].Role == RoleUser {
				last = req.History[i].Text
				break
			}
		}
		deltas = []string{"You said: ", last}
	}
	var full strings.Builder
	for _, d := range deltas {
		full.WriteString(d)
		if err := onDelta(d); err != nil {
			return Reply{}, err
		}
	}
	return Reply{Text: full.String()}, nil
}

func (a *MockAdapter) ProbeToolCall(context.Context, Request) (*ToolCall, error) {
	return nil, nil
}
