package interfaces

import (
	"context"

	"github.com/tobybranson/contexo/internal/models"
)

// IngestRequest describes one ingestion call: either a page URL or raw text
// contributed by a user.
type IngestRequest struct {
	Text     string `json:"text" validate:"required"`
	IsURL    bool   `json:"isUrl"`
	UserName string `json:"userName" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
}

// IngestService chunks, embeds and stores a source, reporting fractional
// progress over an ordered stream.
type IngestService interface {
	// Ingest runs the ingestion pipeline. The returned channel is unbuffered:
	// the producer suspends until the consumer accepts each event, delivers a
	// terminal event (100 or error) on every exit path, then closes the
	// channel. Work stops once ctx is cancelled.
	Ingest(ctx context.Context, req *IngestRequest) <-chan models.ProgressEvent
}
