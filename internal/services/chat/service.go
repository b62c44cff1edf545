package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/tobybranson/contexo/internal/common"
	"github.com/tobybranson/contexo/internal/interfaces"
	"github.com/tobybranson/contexo/internal/models"
)

// Service is the retrieval-augmented responder: it embeds the user query,
// retrieves the top matches from the vector store, emits the context set,
// then streams a grounded completion token by token.
type Service struct {
	embedder       interfaces.EmbeddingService
	store          interfaces.VectorStore
	completer      interfaces.CompletionService
	matchThreshold float64
	matchCount     int
	logger         arbor.ILogger
}

// NewService creates the chat service.
func NewService(embedder interfaces.EmbeddingService, store interfaces.VectorStore, completer interfaces.CompletionService, cfg *common.ChatConfig, logger arbor.ILogger) *Service {
	threshold := 0.78
	count := 5
	if cfg != nil {
		if cfg.MatchThreshold > 0 {
			threshold = cfg.MatchThreshold
		}
		if cfg.MatchCount > 0 {
			count = cfg.MatchCount
		}
	}

	return &Service{
		embedder:       embedder,
		store:          store,
		completer:      completer,
		matchThreshold: threshold,
		matchCount:     count,
		logger:         logger,
	}
}

// Ask answers a query over an ordered, backpressured event stream. Exactly
// one context event precedes any content; any failure produces a single error
// event and ends the stream without retracting content already emitted.
func (s *Service) Ask(ctx context.Context, req *interfaces.ChatRequest) <-chan models.ChatEvent {
	events := make(chan models.ChatEvent)

	go func() {
		defer close(events)

		send := func(ev models.ChatEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		start := time.Now()
		if err := s.run(ctx, req, send); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error().
				Err(err).
				Str("user_id", req.UserID).
				Msg("Chat request failed")
			send(models.ChatEvent{Error: err.Error()})
			return
		}

		s.logger.Debug().
			Str("user_id", req.UserID).
			Dur("duration", time.Since(start)).
			Msg("Chat response complete")
	}()

	return events
}

func (s *Service) run(ctx context.Context, req *interfaces.ChatRequest, send func(models.ChatEvent) bool) error {
	embedding, err := s.embedder.GenerateQueryEmbedding(ctx, req.Query)
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}

	owner := ""
	if req.UseOnlyMyContext {
		owner = req.UserID
	}

	matches, err := s.store.Match(ctx, embedding, s.matchThreshold, s.matchCount, owner)
	if err != nil {
		return fmt.Errorf("failed to retrieve context: %w", err)
	}

	s.logger.Debug().
		Int("matches", len(matches)).
		Str("user_id", req.UserID).
		Msg("Retrieved context set")

	// The context set goes out before any generated text so the caller can
	// render what grounded the answer independent of the answer stream.
	if !send(models.ChatEvent{Type: models.ChatEventContext, Documents: matches}) {
		return ctx.Err()
	}

	messages := buildMessages(req, matches)

	err = s.completer.Stream(ctx, messages, func(delta string) error {
		if !send(models.ChatEvent{Type: models.ChatEventContent, Content: delta}) {
			return context.Canceled
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to generate response: %w", err)
	}

	return nil
}

// HealthCheck verifies the completion service is reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.completer.HealthCheck(ctx)
}
