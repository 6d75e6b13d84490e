// Package testutil provides test doubles for the llm package.
package testutil

import (
	"context"
	"sync"

	"github.com/c360studio/ampdesign/llm"
)

// MockLLMClient is a thread-safe llm.Completer for tests.
//
// Responses are returned in order; once they run out an empty response is
// returned. Handler, when set, takes precedence over Responses and lets a
// test answer per request:
//
//	mock := &testutil.MockLLMClient{
//	    Handler: func(req llm.Request) (*llm.Response, error) {
//	        if req.Capability == "coding" {
//	            return &llm.Response{Content: "```spice\n...\n```"}, nil
//	        }
//	        return &llm.Response{Content: "ok"}, nil
//	    },
//	}
type MockLLMClient struct {
	mu            sync.Mutex
	Responses     []*llm.Response
	Err           error // returned for every call when set
	Handler       func(req llm.Request) (*llm.Response, error)
	requests      []llm.Request
	contexts      []context.Context
	responseIndex int
}

// Complete implements llm.Completer.
func (m *MockLLMClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	m.contexts = append(m.contexts, ctx)

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Handler != nil {
		return m.Handler(req)
	}
	if m.responseIndex < len(m.Responses) {
		resp := m.Responses[m.responseIndex]
		m.responseIndex++
		return resp, nil
	}
	return &llm.Response{Content: "", Model: "test-model"}, nil
}

// Requests returns a copy of every request received.
func (m *MockLLMClient) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.requests...)
}

// Contexts returns the contexts passed to Complete, in call order.
func (m *MockLLMClient) Contexts() []context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]context.Context(nil), m.contexts...)
}

// GetCallCount returns the number of times Complete was called.
func (m *MockLLMClient) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Reset clears recorded calls and rewinds Responses.
func (m *MockLLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.contexts = nil
	m.responseIndex = 0
}
