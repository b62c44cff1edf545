package interfaces

import (
	"context"

	"github.com/tobybranson/contexo/internal/models"
)

// CompletionService generates conversational completions from an LLM.
type CompletionService interface {
	// Stream generates a completion for the conversation and invokes onDelta
	// for every token delta in generation order. The concatenation of all
	// deltas equals the full answer text. Returns the first error encountered;
	// deltas already delivered are not retracted.
	Stream(ctx context.Context, messages []models.Message, onDelta func(delta string) error) error

	// Check if the service is reachable
	HealthCheck(ctx context.Context) error

	Close() error
}
