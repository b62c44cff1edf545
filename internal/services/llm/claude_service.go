package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/tobybranson/contexo/internal/common"
	"github.com/tobybranson/contexo/internal/models"
)

// ClaudeService implements the CompletionService interface using the
// Anthropic Claude API.
type ClaudeService struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    anthropic.Client
	timeout   time.Duration
	maxTokens int
}

// convertMessages converts []models.Message to Claude MessageParam format.
// System messages are extracted separately for use with the System parameter;
// user/assistant messages keep their chronological ordering. Unknown roles
// default to user.
func convertMessages(messages []models.Message) ([]anthropic.MessageParam, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		switch msg.Role {
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		default:
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	return claudeMessages, systemText, nil
}

// NewClaudeService creates a new Claude completion service instance.
func NewClaudeService(cfg *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for the completion service (set ANTHROPIC_API_KEY or claude.api_key in config)")
	}

	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}

	timeout := 60 * time.Second
	if cfg.Timeout != "" {
		parsed, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout duration '%s': %w", cfg.Timeout, err)
		}
		timeout = parsed
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	service := &ClaudeService{
		config:    cfg,
		logger:    logger,
		client:    client,
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", cfg.Model).
		Dur("timeout", timeout).
		Float32("temperature", cfg.Temperature).
		Int("max_tokens", maxTokens).
		Msg("Claude completion service initialized successfully")

	return service, nil
}

// Stream generates a completion and invokes onDelta for every text delta in
// generation order. The messages slice should contain the full conversation
// context in chronological order, including system prompts, user messages,
// and previous assistant responses.
func (s *ClaudeService) Stream(ctx context.Context, messages []models.Message, onDelta func(delta string) error) error {
	params, err := s.buildParams(messages)
	if err != nil {
		return err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("message_count", len(messages)).
		Msg("Starting Claude streaming completion")

	stream := s.client.Messages.NewStreaming(timeoutCtx, params)
	defer stream.Close()

	deltaCount := 0
	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text == "" {
					continue
				}
				deltaCount++
				if err := onDelta(delta.Text); err != nil {
					return err
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Claude streaming completion failed")
		return fmt.Errorf("streaming completion failed: %w", err)
	}

	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("delta_count", deltaCount).
		Dur("duration", time.Since(startTime)).
		Msg("Claude streaming completion completed successfully")

	return nil
}

// HealthCheck verifies the Claude service is operational and can handle
// requests. This includes a lightweight connectivity probe.
func (s *ClaudeService) HealthCheck(ctx context.Context) error {
	s.logger.Debug().Msg("Running Claude completion service health check")

	healthCheckCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	params, err := s.buildParams([]models.Message{
		{Role: "user", Content: "ping"},
	})
	if err != nil {
		return err
	}
	params.MaxTokens = 16

	resp, err := s.client.Messages.New(healthCheckCtx, params)
	if err != nil {
		return fmt.Errorf("Claude health check failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(response.String()) == "" {
		return fmt.Errorf("Claude probe returned empty response")
	}

	s.logger.Debug().
		Str("model", s.config.Model).
		Msg("Claude completion service health check passed")

	return nil
}

// Close releases resources and performs cleanup operations.
func (s *ClaudeService) Close() error {
	s.logger.Debug().Msg("Closing Claude completion service")
	// Claude client doesn't require explicit cleanup
	return nil
}

func (s *ClaudeService) buildParams(messages []models.Message) (anthropic.MessageNewParams, error) {
	claudeMessages, systemText, err := convertMessages(messages)
	if err != nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("failed to convert messages to Claude format: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages:  claudeMessages,
	}

	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}

	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	return params, nil
}
