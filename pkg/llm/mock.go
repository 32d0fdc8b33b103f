package llm

import "context"

// MockProvider is a scripted provider for testing. Responses are consumed
// in order; the last one repeats once the script runs out.
type MockProvider struct {
	Responses   []*Response
	Err         error
	LastRequest *Request
	Calls       int
}

// Complete implements Provider
func (m *MockProvider) Complete(ctx context.Context, request Request) (*Response, error) {
	m.Calls++
	m.LastRequest = &request

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return &Response{}, nil
	}
	idx := m.Calls - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

// Name implements Provider
func (m *MockProvider) Name() string {
	return "mock"
}
