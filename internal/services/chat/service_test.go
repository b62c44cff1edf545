package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobybranson/contexo/internal/common"
	"github.com/tobybranson/contexo/internal/interfaces"
	"github.com/tobybranson/contexo/internal/models"
)

// mockEmbedder implements interfaces.EmbeddingService for testing
type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []float32{0.5, 0.5}, nil
}

func (m *mockEmbedder) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return m.GenerateEmbedding(ctx, query)
}

func (m *mockEmbedder) ModelName() string { return "mock-embed" }
func (m *mockEmbedder) Dimension() int    { return 2 }

// mockStore implements interfaces.VectorStore for testing
type mockStore struct {
	matches   []models.MatchResult
	matchErr  error
	lastOwner string
}

func (m *mockStore) Insert(ctx context.Context, record *models.StoredRecord) error { return nil }

func (m *mockStore) DeleteBySource(ctx context.Context, source, owner string) error { return nil }

func (m *mockStore) Match(ctx context.Context, embedding []float32, threshold float64, count int, owner string) ([]models.MatchResult, error) {
	m.lastOwner = owner
	if m.matchErr != nil {
		return nil, m.matchErr
	}
	return m.matches, nil
}

// mockCompleter implements interfaces.CompletionService for testing
type mockCompleter struct {
	deltas       []string
	streamErr    error
	healthErr    error
	lastMessages []models.Message
}

func (m *mockCompleter) Stream(ctx context.Context, messages []models.Message, onDelta func(string) error) error {
	m.lastMessages = messages
	if m.streamErr != nil {
		return m.streamErr
	}
	for _, d := range m.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockCompleter) HealthCheck(ctx context.Context) error { return m.healthErr }
func (m *mockCompleter) Close() error                          { return nil }

func newTestService(store *mockStore, completer *mockCompleter) *Service {
	return NewService(&mockEmbedder{}, store, completer, nil, common.GetLogger())
}

func drain(ch <-chan models.ChatEvent) []models.ChatEvent {
	var events []models.ChatEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func rankedMatches() []models.MatchResult {
	return []models.MatchResult{
		{ID: "a", Content: "Most relevant.", Similarity: 0.91},
		{ID: "b", Content: "Quite relevant.", Similarity: 0.85},
		{ID: "c", Content: "Barely above threshold.", Similarity: 0.79},
	}
}

func TestAskEmitsContextBeforeContent(t *testing.T) {
	store := &mockStore{matches: rankedMatches()}
	completer := &mockCompleter{deltas: []string{"Hello", " world"}}
	svc := newTestService(store, completer)

	events := drain(svc.Ask(context.Background(), &interfaces.ChatRequest{Query: "greeting?"}))

	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, models.ChatEventContext, events[0].Type)
	require.Len(t, events[0].Documents, 3)
	assert.Equal(t, 0.91, events[0].Documents[0].Similarity)

	var answer strings.Builder
	for _, ev := range events[1:] {
		assert.Equal(t, models.ChatEventContent, ev.Type)
		answer.WriteString(ev.Content)
	}
	assert.Equal(t, "Hello world", answer.String())
}

func TestAskEmptyContextStillEmitsContextEvent(t *testing.T) {
	store := &mockStore{}
	completer := &mockCompleter{deltas: []string{"Answer."}}
	svc := newTestService(store, completer)

	events := drain(svc.Ask(context.Background(), &interfaces.ChatRequest{Query: "anything?"}))

	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, models.ChatEventContext, events[0].Type)
	assert.Empty(t, events[0].Documents)
}

func TestAskOwnerScoping(t *testing.T) {
	store := &mockStore{}
	svc := newTestService(store, &mockCompleter{deltas: []string{"ok"}})

	drain(svc.Ask(context.Background(), &interfaces.ChatRequest{
		Query:            "mine only",
		UserID:           "user-7",
		UseOnlyMyContext: true,
	}))
	assert.Equal(t, "user-7", store.lastOwner)

	drain(svc.Ask(context.Background(), &interfaces.ChatRequest{
		Query:  "everything",
		UserID: "user-7",
	}))
	assert.Equal(t, "", store.lastOwner)
}

func TestAskMessagesCarryHistoryAndQuery(t *testing.T) {
	completer := &mockCompleter{deltas: []string{"ok"}}
	svc := newTestService(&mockStore{matches: rankedMatches()}, completer)

	history := []models.Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}
	drain(svc.Ask(context.Background(), &interfaces.ChatRequest{
		Query:    "follow-up?",
		Messages: history,
	}))

	msgs := completer.lastMessages
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Most relevant.")
	assert.Equal(t, history[0], msgs[1])
	assert.Equal(t, history[1], msgs[2])
	assert.Equal(t, models.Message{Role: "user", Content: "follow-up?"}, msgs[3])
}

func TestAskLanguageInstruction(t *testing.T) {
	completer := &mockCompleter{deltas: []string{"ok"}}
	svc := newTestService(&mockStore{}, completer)

	drain(svc.Ask(context.Background(), &interfaces.ChatRequest{
		Query:    "hola?",
		Language: "Spanish",
	}))

	require.NotEmpty(t, completer.lastMessages)
	assert.Contains(t, completer.lastMessages[0].Content, "Always respond in Spanish")
}

func TestAskEmbedFailureIsSingleErrorEvent(t *testing.T) {
	svc := NewService(&mockEmbedder{err: errors.New("embed down")}, &mockStore{}, &mockCompleter{}, nil, common.GetLogger())

	events := drain(svc.Ask(context.Background(), &interfaces.ChatRequest{Query: "q"}))

	require.Len(t, events, 1)
	assert.Contains(t, events[0].Error, "embed down")
}

func TestAskMatchFailureIsErrorEvent(t *testing.T) {
	store := &mockStore{matchErr: errors.New("store unavailable")}
	svc := newTestService(store, &mockCompleter{})

	events := drain(svc.Ask(context.Background(), &interfaces.ChatRequest{Query: "q"}))

	require.Len(t, events, 1)
	assert.Contains(t, events[0].Error, "store unavailable")
}

func TestAskStreamFailureAfterContext(t *testing.T) {
	store := &mockStore{matches: rankedMatches()}
	completer := &mockCompleter{streamErr: errors.New("model overloaded")}
	svc := newTestService(store, completer)

	events := drain(svc.Ask(context.Background(), &interfaces.ChatRequest{Query: "q"}))

	require.Len(t, events, 2)
	assert.Equal(t, models.ChatEventContext, events[0].Type)
	assert.Contains(t, events[1].Error, "model overloaded")
}

func TestHealthCheckDelegatesToCompleter(t *testing.T) {
	healthErr := errors.New("unreachable")
	svc := newTestService(&mockStore{}, &mockCompleter{healthErr: healthErr})
	assert.ErrorIs(t, svc.HealthCheck(context.Background()), healthErr)

	svc = newTestService(&mockStore{}, &mockCompleter{})
	assert.NoError(t, svc.HealthCheck(context.Background()))
}
