package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobybranson/contexo/internal/interfaces"
	"github.com/tobybranson/contexo/internal/models"
)

// mockChatService implements interfaces.ChatService for testing
type mockChatService struct {
	events    []models.ChatEvent
	healthErr error
	lastReq   *interfaces.ChatRequest
}

func (m *mockChatService) Ask(ctx context.Context, req *interfaces.ChatRequest) <-chan models.ChatEvent {
	m.lastReq = req
	ch := make(chan models.ChatEvent)
	go func() {
		defer close(ch)
		for _, ev := range m.events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (m *mockChatService) HealthCheck(ctx context.Context) error {
	return m.healthErr
}

func postChat(handler *ChatHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ChatHandler(rec, req)
	return rec
}

func TestChatHandlerRejectsNonPost(t *testing.T) {
	handler := NewChatHandler(&mockChatService{})
	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()

	handler.ChatHandler(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestChatHandlerRejectsMissingQuery(t *testing.T) {
	handler := NewChatHandler(&mockChatService{})
	rec := postChat(handler, `{"userId":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHandlerStreamsContextThenContent(t *testing.T) {
	svc := &mockChatService{events: []models.ChatEvent{
		{Type: models.ChatEventContext, Documents: []models.MatchResult{
			{ID: "a", Content: "grounding", Similarity: 0.9},
		}},
		{Type: models.ChatEventContent, Content: "Hello"},
		{Type: models.ChatEventContent, Content: " there"},
	}}
	handler := NewChatHandler(svc)

	rec := postChat(handler, `{"query":"greeting?","userId":"u1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "context", first["type"])
	docs, ok := first["documents"].([]any)
	require.True(t, ok)
	assert.Len(t, docs, 1)

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "content", second["type"])
	assert.Equal(t, "Hello", second["content"])
}

func TestChatHandlerContextEventKeepsEmptyDocuments(t *testing.T) {
	svc := &mockChatService{events: []models.ChatEvent{
		{Type: models.ChatEventContext},
		{Type: models.ChatEventContent, Content: "Answer."},
	}}
	handler := NewChatHandler(svc)

	rec := postChat(handler, `{"query":"anything"}`)

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))

	docs, present := first["documents"]
	require.True(t, present, "documents key must survive an empty context set")
	assert.Equal(t, []any{}, docs)
}

func TestChatHandlerStreamsErrorEvent(t *testing.T) {
	svc := &mockChatService{events: []models.ChatEvent{
		{Type: models.ChatEventContext},
		{Error: "completion failed"},
	}}
	handler := NewChatHandler(svc)

	rec := postChat(handler, `{"query":"q"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)

	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &last))
	assert.Equal(t, "completion failed", last["error"])
	_, hasType := last["type"]
	assert.False(t, hasType)
}

func TestChatHealthHandler(t *testing.T) {
	handler := NewChatHandler(&mockChatService{})
	req := httptest.NewRequest(http.MethodGet, "/api/chat/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthHandler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatHealthHandlerUnavailable(t *testing.T) {
	handler := NewChatHandler(&mockChatService{healthErr: errors.New("model unreachable")})
	req := httptest.NewRequest(http.MethodGet, "/api/chat/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthHandler(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "model unreachable")
}
