package llm

import "context"

// MockGenerator returns a canned response for tests and offline use. When
// Respond is set it is called with the prompts instead.
type MockGenerator struct {
	Response string
	Respond  func(system, user string, temperature float64) (string, error)
}

// NewMockGenerator returns a generator that always answers with response.
func NewMockGenerator(response string) *MockGenerator {
	return &MockGenerator{Response: response}
}

// Generate returns the canned response or delegates to Respond.
func (g *MockGenerator) Generate(ctx context.Context, system, user string, temperature float64) (string, error) {
	if g.Respond != nil {
		return g.Respond(system, user, temperature)
	}
	return g.Response, nil
}

// Close is a no-op for MockGenerator.
func (g *MockGenerator) Close() error {
	return nil
}
