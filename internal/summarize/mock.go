package summarize

import (
	"context"
	"sync"
)

// MockGenerator records requests and replays canned responses.
type MockGenerator struct {
	mu       sync.Mutex
	Response string
	Err      error
	Requests []Request
}

func NewMockGenerator(response string) *MockGenerator {
	return &MockGenerator{Response: response}
}

func (g *MockGenerator) Name() string { return "mock" }

func (g *MockGenerator) Generate(_ context.Context, req Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Requests = append(g.Requests, req)
	if g.Err != nil {
		return "", g.Err
	}
	return g.Response, nil
}

func (g *MockGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Requests)
}
