package summarize

import "context"

// Request describes a single text-generation call.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Generator is a pluggable text-generation backend.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}
