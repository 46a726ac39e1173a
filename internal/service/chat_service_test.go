package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cinequery/cinequery/internal/domain"
	"github.com/cinequery/cinequery/internal/repository"
)

// fakeRouter is a scripted QueryRouter that records invocations.
type fakeRouter struct {
	merged         domain.MergedResult
	classification domain.ClassificationResult
	err            error
	calls          int
	lastHistoryLen int
}

func (f *fakeRouter) Handle(ctx context.Context, query domain.Query, history *domain.ConversationState) (domain.MergedResult, domain.ClassificationResult, error) {
	f.calls++
	if history != nil {
		f.lastHistoryLen = history.Len()
	}
	return f.merged, f.classification, f.err
}

// fakeComposer echoes a fixed answer.
type fakeComposer struct {
	answer domain.Answer
	calls  int
}

func (f *fakeComposer) Compose(ctx context.Context, query domain.Query, merged domain.MergedResult, history *domain.ConversationState) domain.Answer {
	f.calls++
	return f.answer
}

func newTestRepo(t *testing.T) *repository.SessionRepository {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewSessionRepository(db)
}

func newTestChatService(t *testing.T, router *fakeRouter, composer *fakeComposer) *ChatService {
	return NewChatService(newTestRepo(t), router, composer, 5, zap.NewNop())
}

func TestChatCreatesSessionAndPersistsTurn(t *testing.T) {
	router := &fakeRouter{
		merged:         domain.MergedResult{Items: structuredItems("Alien Center"), SourcesUsed: []domain.Backend{domain.BackendStructured}},
		classification: domain.ClassificationResult{Route: domain.RouteStructured, Confidence: 0.9},
	}
	composer := &fakeComposer{answer: domain.Answer{Text: "Alien Center tops the list."}}
	svc := newTestChatService(t, router, composer)

	resp, err := svc.Chat(context.Background(), &domain.ChatRequest{Message: "most rented sci-fi?"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "Alien Center tops the list.", resp.Answer)
	assert.Equal(t, domain.RouteStructured, resp.Route)
	assert.False(t, resp.Degraded)
	assert.Len(t, resp.Items, 1)

	messages, err := svc.GetHistory(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "most rented sci-fi?", messages[0].Content)
	assert.Equal(t, domain.RouteStructured, messages[0].Route)
	assert.Equal(t, "assistant", messages[1].Role)
	assert.Equal(t, "Alien Center tops the list.", messages[1].Content)
}

func TestChatReusesSessionAndBuildsHistory(t *testing.T) {
	router := &fakeRouter{
		merged:         domain.MergedResult{Items: structuredItems("Alien Center")},
		classification: domain.ClassificationResult{Route: domain.RouteStructured},
	}
	composer := &fakeComposer{answer: domain.Answer{Text: "answer"}}
	svc := newTestChatService(t, router, composer)

	first, err := svc.Chat(context.Background(), &domain.ChatRequest{Message: "first question"})
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), &domain.ChatRequest{SessionID: first.SessionID, Message: "second question"})
	require.NoError(t, err)

	assert.Equal(t, 2, router.calls)
	assert.Equal(t, 1, router.lastHistoryLen, "second turn sees the first in history")
}

func TestChatRejectsBlankMessage(t *testing.T) {
	router := &fakeRouter{}
	svc := newTestChatService(t, router, &fakeComposer{})

	_, err := svc.Chat(context.Background(), &domain.ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
	assert.Zero(t, router.calls)
}

func TestChatUnknownSession(t *testing.T) {
	svc := newTestChatService(t, &fakeRouter{}, &fakeComposer{})

	_, err := svc.Chat(context.Background(), &domain.ChatRequest{SessionID: "no-such-session", Message: "hello"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChatHistoryShortcutSkipsBackends(t *testing.T) {
	router := &fakeRouter{
		merged:         domain.MergedResult{Items: structuredItems("Alien Center")},
		classification: domain.ClassificationResult{Route: domain.RouteStructured},
	}
	composer := &fakeComposer{answer: domain.Answer{Text: "Alien Center leads."}}
	svc := newTestChatService(t, router, composer)

	first, err := svc.Chat(context.Background(), &domain.ChatRequest{Message: "most rented sci-fi?"})
	require.NoError(t, err)
	require.Equal(t, 1, router.calls)

	recap, err := svc.Chat(context.Background(), &domain.ChatRequest{SessionID: first.SessionID, Message: "What did we talk about?"})
	require.NoError(t, err)

	assert.Equal(t, 1, router.calls, "history recap must not invoke the router")
	assert.Equal(t, 1, composer.calls, "history recap must not invoke the composer")
	assert.Contains(t, recap.Answer, "most rented sci-fi?")
	assert.Contains(t, recap.Answer, "Alien Center leads.")
}

func TestChatHistoryShortcutOnEmptySession(t *testing.T) {
	svc := newTestChatService(t, &fakeRouter{}, &fakeComposer{})

	resp, err := svc.Chat(context.Background(), &domain.ChatRequest{Message: "what did I ask before?"})
	require.NoError(t, err)
	assert.Contains(t, resp.Answer, "haven't had any previous conversation")
}

func TestChatStateSurvivesRestart(t *testing.T) {
	repo := newTestRepo(t)
	router := &fakeRouter{
		merged:         domain.MergedResult{Items: structuredItems("Alien Center")},
		classification: domain.ClassificationResult{Route: domain.RouteStructured},
	}
	composer := &fakeComposer{answer: domain.Answer{Text: "the answer"}}

	svc := NewChatService(repo, router, composer, 5, zap.NewNop())
	first, err := svc.Chat(context.Background(), &domain.ChatRequest{Message: "remember this"})
	require.NoError(t, err)

	// A fresh service over the same store rebuilds the window from
	// persisted messages.
	restarted := NewChatService(repo, router, composer, 5, zap.NewNop())
	recap, err := restarted.Chat(context.Background(), &domain.ChatRequest{SessionID: first.SessionID, Message: "what did we talk about?"})
	require.NoError(t, err)
	assert.Contains(t, recap.Answer, "remember this")
}

func TestChatPropagatesDegradation(t *testing.T) {
	router := &fakeRouter{
		merged:         domain.MergedResult{Items: semanticItems("Primer"), SourcesUsed: []domain.Backend{domain.BackendSemantic}, Degraded: true},
		classification: domain.ClassificationResult{Route: domain.RouteBoth},
	}
	composer := &fakeComposer{answer: domain.Answer{Text: "partial answer"}}
	svc := newTestChatService(t, router, composer)

	resp, err := svc.Chat(context.Background(), &domain.ChatRequest{Message: "rentals and plots"})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Equal(t, "partial answer", resp.Answer)
}
