package chat

import (
	"strings"

	"github.com/tobybranson/contexo/internal/interfaces"
	"github.com/tobybranson/contexo/internal/models"
)

// buildMessages assembles the completion request: one system instruction
// carrying the retrieved context, the prior conversation turns verbatim, then
// the current query as the final user message.
func buildMessages(req *interfaces.ChatRequest, matches []models.MatchResult) []models.Message {
	messages := make([]models.Message, 0, len(req.Messages)+2)
	messages = append(messages, models.Message{
		Role:    "system",
		Content: buildSystemPrompt(matches, req.Language),
	})
	messages = append(messages, req.Messages...)
	messages = append(messages, models.Message{
		Role:    "user",
		Content: req.Query,
	})
	return messages
}

func buildSystemPrompt(matches []models.MatchResult, language string) string {
	var sb strings.Builder

	sb.WriteString("You are a helpful assistant answering questions for a user.\n")

	if len(matches) > 0 {
		sb.WriteString("Use the following context to answer. When the context does not cover the question, answer from your general knowledge instead.\n\nContext:\n")
		contents := make([]string, 0, len(matches))
		for _, m := range matches {
			contents = append(contents, m.Content)
		}
		sb.WriteString(strings.Join(contents, "\n\n"))
		sb.WriteString("\n")
	} else {
		sb.WriteString("No stored context matched this question; answer from your general knowledge.\n")
	}

	if language == "" {
		language = "English"
	}
	sb.WriteString("\nAlways respond in ")
	sb.WriteString(language)
	sb.WriteString(", translating if needed.")

	return sb.String()
}
