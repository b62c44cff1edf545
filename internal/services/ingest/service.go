package ingest

import (
	"context"
	"fmt"
	"iter"
	"math"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/tobybranson/contexo/internal/common"
	"github.com/tobybranson/contexo/internal/interfaces"
	"github.com/tobybranson/contexo/internal/models"
	"github.com/tobybranson/contexo/internal/services/generator"
)

// minContentWords is the smallest chunk worth persisting. Shorter chunks are
// insertion noise (stray headings, list bullets) and are skipped.
const minContentWords = 2

// Service orchestrates ingestion: it clears stale records for re-ingested
// URLs, counts documents in a first generation pass, then embeds and stores
// each document in a second pass while reporting fractional progress.
type Service struct {
	embedder interfaces.EmbeddingService
	store    interfaces.VectorStore
	fetcher  generator.Fetcher
	opts     generator.Options
	logger   arbor.ILogger
}

// NewService creates the ingestion orchestrator.
func NewService(embedder interfaces.EmbeddingService, store interfaces.VectorStore, fetcher generator.Fetcher, cfg *common.IngestConfig, logger arbor.ILogger) *Service {
	opts := generator.DefaultOptions()
	if cfg != nil {
		if cfg.MaxChunkSize > 0 {
			opts.MaxChunkSize = cfg.MaxChunkSize
		}
		if cfg.ChunkOverlap >= 0 {
			opts.ChunkOverlap = cfg.ChunkOverlap
		}
		if cfg.TextBufferSize > 0 {
			opts.BufferSize = cfg.TextBufferSize
		}
	}

	return &Service{
		embedder: embedder,
		store:    store,
		fetcher:  fetcher,
		opts:     opts,
		logger:   logger,
	}
}

// Ingest runs the pipeline and streams progress. The returned channel is
// unbuffered so the producer suspends until the consumer accepts each event;
// a terminal event (100 or error) is always delivered before the channel
// closes, and work stops once ctx is cancelled.
func (s *Service) Ingest(ctx context.Context, req *interfaces.IngestRequest) <-chan models.ProgressEvent {
	events := make(chan models.ProgressEvent)

	go func() {
		defer close(events)

		send := func(ev models.ProgressEvent) bool {
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
				// Caller went away; nobody is listening for a terminal event.
				return
			}
			s.logger.Error().
				Err(err).
				Str("source", req.Text).
				Str("user_id", req.UserID).
				Msg("Ingestion failed")
			send(models.ProgressError(err.Error()))
			return
		}

		s.logger.Info().
			Str("user_id", req.UserID).
			Dur("duration", time.Since(start)).
			Msg("Ingestion complete")
		send(models.ProgressAt(100))
	}()

	return events
}

func (s *Service) run(ctx context.Context, req *interfaces.IngestRequest, send func(models.ProgressEvent) bool) error {
	// Re-ingesting a URL replaces the previous record set for the same
	// (source, owner) pair. Text ingestion appends; every call adds records.
	if req.IsURL {
		if err := s.store.DeleteBySource(ctx, req.Text, req.UserID); err != nil {
			return fmt.Errorf("failed to delete existing documents for %s: %w", req.Text, err)
		}
	}

	// First pass: count documents so the progress denominator is exact before
	// the first embedding call. Recomputing the generation is the price.
	total := 0
	for _, err := range s.documents(ctx, req) {
		if err != nil {
			return err
		}
		total++
	}

	if total == 0 {
		return nil
	}

	// Second pass: embed and store.
	processed := 0
	for doc, err := range s.documents(ctx, req) {
		if err != nil {
			return err
		}

		if err := s.storeDocument(ctx, doc, req.UserID); err != nil {
			// One bad chunk must not abort the run.
			s.logger.Warn().
				Err(err).
				Str("source", doc.Metadata.Source).
				Str("user_id", req.UserID).
				Msg("Skipping document")
		}

		processed++
		pct := int(math.Round(float64(processed) / float64(total) * 100))
		if !send(models.ProgressAt(pct)) {
			return ctx.Err()
		}
	}

	return nil
}

// documents instantiates a fresh generation pass over the request's input.
// Each call returns an independent single-pass sequence; the two-pass design
// in run depends on that.
func (s *Service) documents(ctx context.Context, req *interfaces.IngestRequest) iter.Seq2[models.Document, error] {
	if req.IsURL {
		return generator.FromURL(ctx, s.fetcher, req.Text, s.opts)
	}

	seq := generator.FromText(req.Text, req.UserName, s.opts)
	return func(yield func(models.Document, error) bool) {
		for doc := range seq {
			if !yield(doc, nil) {
				return
			}
		}
	}
}

func (s *Service) storeDocument(ctx context.Context, doc models.Document, owner string) error {
	if len(strings.Fields(doc.Content)) < minContentWords {
		s.logger.Debug().
			Str("content", doc.Content).
			Msg("Skipping chunk below minimum word count")
		return nil
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("failed to embed document: %w", err)
	}

	record := &models.StoredRecord{
		ID:        common.NewRecordID(),
		Content:   doc.Content,
		Embedding: embedding,
		Metadata: models.Metadata{
			Source: doc.Metadata.Source,
			By:     owner,
		},
	}

	if err := s.store.Insert(ctx, record); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	return nil
}
