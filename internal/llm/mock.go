package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient replays scripted completions for tests.
type MockClient struct {
	mu        sync.Mutex
	Responses []*CompletionResponse
	Err       error
	Requests  []CompletionRequest
	calls     int
}

// NewMockClient scripts the given responses in order. When the script runs
// out, the last response repeats.
func NewMockClient(responses ...*CompletionResponse) *MockClient {
	return &MockClient{Responses: responses}
}

func (m *MockClient) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return nil, fmt.Errorf("mock client has no scripted responses")
	}

	idx := m.calls
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.calls++
	return m.Responses[idx], nil
}

func (m *MockClient) Model() string {
	return "mock-model"
}

// CallCount reports how many completions were requested.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
