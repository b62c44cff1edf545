package interfaces

import (
	"context"

	"github.com/tobybranson/contexo/internal/models"
)

// ChatRequest is a retrieval-grounded chat call.
type ChatRequest struct {
	Messages         []models.Message `json:"messages"`
	Query            string           `json:"query" validate:"required"`
	UseOnlyMyContext bool             `json:"useOnlyMyContext"`
	UserID           string           `json:"userId"`
	Language         string           `json:"language"`
}

// ChatService answers a query grounded on retrieved context, streaming the
// generated answer token by token.
type ChatService interface {
	// Ask embeds the query, retrieves the context set, emits exactly one
	// context event, then streams content deltas. The channel is unbuffered
	// and always closed after a terminal condition (stream end or one error
	// event).
	Ask(ctx context.Context, req *ChatRequest) <-chan models.ChatEvent

	// Check if the responder's upstream services are reachable
	HealthCheck(ctx context.Context) error
}
