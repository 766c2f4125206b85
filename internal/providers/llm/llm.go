package llm

import "context"

// Provider is the boundary to the external model. Generate returns the
// raw completion text for a system/user prompt pair; callers own
// parsing and validation of whatever comes back.
type Provider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Close() error
}
