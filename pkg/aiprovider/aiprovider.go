// Package aiprovider defines the narrow collaborator interface the Agent
// Driver calls for Internal participants' turns. The concrete provider
// (e.g. an Anthropic or OpenAI backend) lives outside this exercise's
// scope; only the interface boundary and a deterministic stub for tests
// live here.
package aiprovider

import "context"

// Request is the single call an internal agent turn makes against the
// configured provider.
type Request struct {
	Model       string
	SystemPrompt string
	UserContent string
	Temperature float64
	MaxTokens   int
}

// Provider generates one completion for a turn. A failing call is caught
// by the Agent Driver, which degrades to a pass — Provider implementations
// should return a plain error rather than panicking.
type Provider interface {
	GenerateText(ctx context.Context, req Request) (string, error)
}

// Stub is a deterministic Provider for tests and for local development
// without network credentials. It always returns Response, or Err if set.
type Stub struct {
	Response string
	Err      error
	Calls    []Request
}

// NewStub creates a Stub that always returns response.
func NewStub(response string) *Stub {
	return &Stub{Response: response}
}

func (s *Stub) GenerateText(_ context.Context, req Request) (string, error) {
	s.Calls = append(s.Calls, req)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Response, nil
}
