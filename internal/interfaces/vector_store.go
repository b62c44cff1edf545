package interfaces

import (
	"context"

	"github.com/tobybranson/contexo/internal/models"
)

// VectorStore persists embedded documents and answers ranked nearest-neighbor
// queries. Implementations are thin clients over an external similarity
// search service; rows are inserted and bulk-deleted, never updated in place.
type VectorStore interface {
	// Insert persists one embedded document.
	Insert(ctx context.Context, record *models.StoredRecord) error

	// DeleteBySource removes every record whose metadata matches both the
	// source and the owner exactly. Used before re-ingesting a URL.
	DeleteBySource(ctx context.Context, source, owner string) error

	// Match returns records ranked by descending similarity, filtered to
	// similarity > threshold, capped at count. When owner is non-empty the
	// result is restricted to records contributed by that owner.
	Match(ctx context.Context, embedding []float32, threshold float64, count int, owner string) ([]models.MatchResult, error)
}
