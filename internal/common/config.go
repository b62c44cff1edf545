package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Logging     LoggingConfig    `toml:"logging"`
	OpenAI      OpenAIConfig     `toml:"openai"`
	Claude      ClaudeConfig     `toml:"claude"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Ingest      IngestConfig     `toml:"ingest"`
	Chat        ChatConfig       `toml:"chat"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// OpenAIConfig configures the embedding client.
type OpenAIConfig struct {
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	EmbedModel string `toml:"embed_model"`
	Dimension  int    `toml:"dimension"`
	Timeout    string `toml:"timeout"` // duration string, e.g. "30s"
}

// ClaudeConfig configures the completion client.
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
	Timeout     string  `toml:"timeout"`
}

// VectorStoreConfig configures the similarity search service client
// (Supabase/PostgREST-compatible).
type VectorStoreConfig struct {
	URL     string `toml:"url"`
	APIKey  string `toml:"api_key"`
	Table   string `toml:"table"`
	MatchFn string `toml:"match_fn"`
	Timeout string `toml:"timeout"`
}

// IngestConfig tunes the chunking and fetch pipeline.
type IngestConfig struct {
	MaxChunkSize   int     `toml:"max_chunk_size"`  // chunker flush threshold in bytes
	ChunkOverlap   int     `toml:"chunk_overlap"`   // continuity window reclaimed between chunks
	TextBufferSize int     `toml:"text_buffer_size"` // line accumulation limit for raw text
	FetchRetries   int     `toml:"fetch_retries"`   // total fetch attempts
	FetchRetryDelay string `toml:"fetch_retry_delay"` // fixed delay between attempts
	FetchRateLimit float64 `toml:"fetch_rate_limit"` // outbound requests per second
}

// ChatConfig tunes retrieval for the chat path.
type ChatConfig struct {
	MatchThreshold float64 `toml:"match_threshold"` // minimum cosine similarity
	MatchCount     int     `toml:"match_count"`     // result cap
}

// DefaultConfig returns the configuration defaults applied before any file
// or environment override.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		OpenAI: OpenAIConfig{
			BaseURL:    "https://api.openai.com/v1",
			EmbedModel: "text-embedding-3-small",
			Dimension:  1536,
			Timeout:    "30s",
		},
		Claude: ClaudeConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 2048,
			Timeout:   "120s",
		},
		VectorStore: VectorStoreConfig{
			Table:   "documents",
			MatchFn: "match_documents",
			Timeout: "30s",
		},
		Ingest: IngestConfig{
			MaxChunkSize:    1000,
			ChunkOverlap:    250,
			TextBufferSize:  2000,
			FetchRetries:    3,
			FetchRetryDelay: "1s",
			FetchRateLimit:  5,
		},
		Chat: ChatConfig{
			MatchThreshold: 0.78,
			MatchCount:     5,
		},
	}
}

// LoadFromFiles loads configuration in layers: defaults, then each file in
// order (later files override earlier ones), then environment variables.
func LoadFromFiles(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyFlagOverrides applies command-line flag values. Flags have the highest
// priority.
func ApplyFlagOverrides(cfg *Config, port int, host string) {
	if port != 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}
}

// applyEnvOverrides maps CONTEXO_* environment variables onto the config.
// Environment values override file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CONTEXO_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CONTEXO_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("CONTEXO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Claude.APIKey = v
	}
	if v := os.Getenv("CONTEXO_VECTOR_STORE_URL"); v != "" {
		cfg.VectorStore.URL = v
	}
	if v := os.Getenv("CONTEXO_VECTOR_STORE_API_KEY"); v != "" {
		cfg.VectorStore.APIKey = v
	}
}

// Validate checks cross-field constraints that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Ingest.MaxChunkSize <= 0 {
		return fmt.Errorf("ingest.max_chunk_size must be positive, got %d", c.Ingest.MaxChunkSize)
	}
	if c.Ingest.FetchRetries <= 0 {
		return fmt.Errorf("ingest.fetch_retries must be positive, got %d", c.Ingest.FetchRetries)
	}
	if _, err := time.ParseDuration(c.Ingest.FetchRetryDelay); err != nil {
		return fmt.Errorf("invalid ingest.fetch_retry_delay %q: %w", c.Ingest.FetchRetryDelay, err)
	}
	if c.Chat.MatchThreshold < 0 || c.Chat.MatchThreshold > 1 {
		return fmt.Errorf("chat.match_threshold must be in [0,1], got %f", c.Chat.MatchThreshold)
	}
	if c.Chat.MatchCount <= 0 {
		return fmt.Errorf("chat.match_count must be positive, got %d", c.Chat.MatchCount)
	}
	return nil
}
