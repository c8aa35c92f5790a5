// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"prima-facie-go/pkg/llm"
)

// MockClient returns Responses in sequence and records every request.
// Err takes precedence over Responses. Once Responses are exhausted an empty
// response is returned.
type MockClient struct {
	mu        sync.Mutex
	Responses []*llm.Response
	Err       error
	// Block makes Complete wait for ctx cancellation before returning.
	Block    bool
	requests []llm.Request
	index    int
}

// Complete implements llm.Client.
func (m *MockClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	req.Messages = append([]llm.Message(nil), req.Messages...)
	req.Tools = append([]llm.ToolDefinition(nil), req.Tools...)
	m.requests = append(m.requests, req)
	block := m.Block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.index < len(m.Responses) {
		resp := m.Responses[m.index]
		m.index++
		return resp, nil
	}
	return &llm.Response{}, nil
}

// Requests returns a copy of the recorded requests.
func (m *MockClient) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.requests...)
}

// CallCount returns the number of Complete calls.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockClient) LastRequest() llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return llm.Request{}
	}
	return m.requests[len(m.requests)-1]
}

// Text is a convenience response with only content and usage.
func Text(content string, in, out int) *llm.Response {
	return &llm.Response{
		Content:      content,
		Usage:        llm.Usage{InputTokens: in, OutputTokens: out},
		FinishReason: "stop",
	}
}

// Calls is a convenience response requesting tool calls.
func Calls(in, out int, calls ...llm.ToolCall) *llm.Response {
	return &llm.Response{
		ToolCalls:    calls,
		Usage:        llm.Usage{InputTokens: in, OutputTokens: out},
		FinishReason: "tool_calls",
	}
}
