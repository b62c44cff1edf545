// Package pgvector persists embedded document records in a Postgres table
// fronted by PostgREST, with similarity search delegated to a pgvector
// match function on the database side.
package pgvector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/tobybranson/contexo/internal/common"
	"github.com/tobybranson/contexo/internal/interfaces"
	"github.com/tobybranson/contexo/internal/models"
)

const (
	defaultTable   = "documents"
	defaultMatchFn = "match_documents"
)

// Store is a PostgREST-backed vector store.
type Store struct {
	client  *http.Client
	baseURL string
	apiKey  string
	table   string
	matchFn string
	logger  arbor.ILogger
}

var _ interfaces.VectorStore = (*Store)(nil)

// insertRow is the PostgREST insert payload for a document record.
type insertRow struct {
	ID        string          `json:"id"`
	Content   string          `json:"content"`
	Embedding []float32       `json:"embedding"`
	Metadata  models.Metadata `json:"metadata"`
}

// matchParams is the RPC payload for the similarity match function. UserID is
// a pointer so an unscoped search serializes as JSON null, which the function
// treats as "match across all owners".
type matchParams struct {
	QueryEmbedding []float32 `json:"query_embedding"`
	MatchThreshold float64   `json:"match_threshold"`
	MatchCount     int       `json:"match_count"`
	UserID         *string   `json:"user_id"`
}

// matchRow is one row returned by the match function.
type matchRow struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Similarity float64        `json:"similarity"`
	Metadata   map[string]any `json:"metadata"`
}

// NewStore creates a vector store client from configuration.
func NewStore(cfg *common.VectorStoreConfig, logger arbor.ILogger) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("vector store URL is required (set CONTEXO_VECTOR_STORE_URL or vector_store.url in config)")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vector store API key is required (set CONTEXO_VECTOR_STORE_API_KEY or vector_store.api_key in config)")
	}

	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	matchFn := cfg.MatchFn
	if matchFn == "" {
		matchFn = defaultMatchFn
	}

	timeout := 30 * time.Second
	if cfg.Timeout != "" {
		parsed, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout duration '%s': %w", cfg.Timeout, err)
		}
		timeout = parsed
	}

	logger.Debug().
		Str("table", table).
		Str("match_fn", matchFn).
		Dur("timeout", timeout).
		Msg("Vector store initialized")

	return &Store{
		client:  &http.Client{Timeout: timeout},
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		table:   table,
		matchFn: matchFn,
		logger:  logger,
	}, nil
}

// Insert stores one embedded record.
func (s *Store) Insert(ctx context.Context, record *models.StoredRecord) error {
	payload, err := json.Marshal(insertRow{
		ID:        record.ID,
		Content:   record.Content,
		Embedding: record.Embedding,
		Metadata:  record.Metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, s.table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build insert request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("insert request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("insert failed: %s", readAPIError(resp))
	}

	s.logger.Debug().
		Str("id", record.ID).
		Str("source", record.Metadata.Source).
		Msg("Inserted record")

	return nil
}

// DeleteBySource removes every record whose metadata matches the given
// source and owner pair.
func (s *Store) DeleteBySource(ctx context.Context, source, owner string) error {
	query := url.Values{}
	query.Set("metadata->>source", "eq."+source)
	query.Set("metadata->>by", "eq."+owner)

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", s.baseURL, s.table, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("delete failed: %s", readAPIError(resp))
	}

	s.logger.Debug().
		Str("source", source).
		Str("owner", owner).
		Msg("Deleted records for source")

	return nil
}

// Match runs similarity search over stored records. Results come back from
// the database function ordered by descending similarity; owner == "" means
// search across all owners.
func (s *Store) Match(ctx context.Context, embedding []float32, threshold float64, count int, owner string) ([]models.MatchResult, error) {
	params := matchParams{
		QueryEmbedding: embedding,
		MatchThreshold: threshold,
		MatchCount:     count,
	}
	if owner != "" {
		params.UserID = &owner
	}

	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match params: %w", err)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/rpc/%s", s.baseURL, s.matchFn)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build match request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("match request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("match failed: %s", readAPIError(resp))
	}

	var rows []matchRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode match response: %w", err)
	}

	results := make([]models.MatchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, models.MatchResult{
			ID:         row.ID,
			Content:    row.Content,
			Similarity: row.Similarity,
			Metadata:   row.Metadata,
		})
	}

	return results, nil
}

func (s *Store) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
}

func readAPIError(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		return resp.Status
	}
	return fmt.Sprintf("%s: %s", resp.Status, bytes.TrimSpace(body))
}
