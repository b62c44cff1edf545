package models

import "encoding/json"

// ProgressEvent is one newline-delimited JSON line on an ingestion stream.
// Either Percentage or Error is set, never both.
type ProgressEvent struct {
	Percentage *int   `json:"percentage,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ProgressAt builds a progress event for the given percentage.
func ProgressAt(pct int) ProgressEvent {
	return ProgressEvent{Percentage: &pct}
}

// ProgressError builds a terminal error event.
func ProgressError(msg string) ProgressEvent {
	return ProgressEvent{Error: msg}
}

// Chat event types emitted on the chat stream.
const (
	ChatEventContext = "context"
	ChatEventContent = "content"
)

// ChatEvent is one newline-delimited JSON line on a chat stream. A context
// event carries the ranked match set, a content event carries one token
// delta, and an error event ends the stream.
type ChatEvent struct {
	Type      string        `json:"type,omitempty"`
	Documents []MatchResult `json:"documents,omitempty"`
	Content   string        `json:"content,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// MarshalJSON keeps the context event's documents array present even when
// empty, so callers can always render what grounded the answer.
func (e ChatEvent) MarshalJSON() ([]byte, error) {
	if e.Type == ChatEventContext {
		docs := e.Documents
		if docs == nil {
			docs = []MatchResult{}
		}
		return json.Marshal(struct {
			Type      string        `json:"type"`
			Documents []MatchResult `json:"documents"`
		}{e.Type, docs})
	}
	if e.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{e.Error})
	}
	return json.Marshal(struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}{e.Type, e.Content})
}
