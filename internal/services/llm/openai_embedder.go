package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/tobybranson/contexo/internal/common"
)

// OpenAIEmbedder implements the EmbeddingService interface against the
// OpenAI embeddings API (or any compatible endpoint).
type OpenAIEmbedder struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	model     string
	dimension int
	logger    arbor.ILogger
}

// embeddingRequest is the OpenAI API request format.
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingResponse is the OpenAI API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIEmbedder creates an embedding client from configuration.
func NewOpenAIEmbedder(cfg *common.OpenAIConfig, logger arbor.ILogger) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required for the embedding service (set OPENAI_API_KEY or openai.api_key in config)")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.EmbedModel
	if model == "" {
		model = "text-embedding-3-small"
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = 1536
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
		Str("model", model).
		Int("dimension", dimension).
		Dur("timeout", timeout).
		Msg("OpenAI embedding service initialized")

	return &OpenAIEmbedder{
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		model:     model,
		dimension: dimension,
		logger:    logger,
	}, nil
}

// GenerateEmbedding creates a vector embedding for text.
func (e *OpenAIEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	payload, err := json.Marshal(embeddingRequest{
		Model: e.model,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}

	if parsed.Error != nil {
		return nil, fmt.Errorf("embedding API error (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %s", resp.Status)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding API returned no vector")
	}

	e.logger.Debug().
		Int("embedding_dim", len(parsed.Data[0].Embedding)).
		Int("text_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Generated embedding")

	return parsed.Data[0].Embedding, nil
}

// GenerateQueryEmbedding generates an embedding for a search query. Queries
// use the same model and handling as documents.
func (e *OpenAIEmbedder) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return e.GenerateEmbedding(ctx, query)
}

// ModelName returns the embedding model name.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Dimension returns the embedding dimension.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}
