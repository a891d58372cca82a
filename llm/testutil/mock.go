// Package testutil provides test utilities for the llm package.
// It includes mock implementations for testing completion interactions.
package testutil

import (
	"context"
	"sync"

	"github.com/c360studio/semtag/llm"
)

// MockCompleter is a thread-safe mock completion client for testing.
// It records every prompt passed to Complete() and returns configured responses.
//
// Usage:
//
//	// Fixed responses in call order
//	mock := &MockCompleter{
//	    Responses: []string{"content: {sales} role: {fact}"},
//	}
//
//	// Responses chosen by prompt (for concurrent callers)
//	mock := &MockCompleter{
//	    Respond: func(prompt string) (string, error) {
//	        return "{a} {b}", nil
//	    },
//	}
//
//	// Error response
//	mock := &MockCompleter{
//	    Err: errors.New("connection failed"),
//	}
type MockCompleter struct {
	mu            sync.Mutex
	Responses     []string                            // Responses to return in sequence
	Respond       func(prompt string) (string, error) // Takes precedence over Responses
	Err           error                               // Error to return (takes precedence over everything)
	requests      []llm.Request
	responseIndex int
}

// Complete implements llm.Completer.
func (m *MockCompleter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.Err != nil {
		return nil, m.Err
	}

	if m.Respond != nil {
		text, err := m.Respond(req.Prompt)
		if err != nil {
			return nil, err
		}
		return &llm.Response{Text: text, Model: "test-model"}, nil
	}

	if m.responseIndex < len(m.Responses) {
		text := m.Responses[m.responseIndex]
		m.responseIndex++
		return &llm.Response{Text: text, Model: "test-model"}, nil
	}

	// Default response if no responses configured
	return &llm.Response{Text: "", Model: "test-model"}, nil
}

// GetCallCount returns the number of times Complete() was called.
func (m *MockCompleter) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// GetRequests returns a copy of every request received, in call order.
func (m *MockCompleter) GetRequests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// GetPrompts returns the prompts received, in call order.
func (m *MockCompleter) GetPrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.requests))
	for i, r := range m.requests {
		out[i] = r.Prompt
	}
	return out
}

// Reset clears recorded requests and rewinds Responses.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.responseIndex = 0
}
