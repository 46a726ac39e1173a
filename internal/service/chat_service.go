package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cinequery/cinequery/internal/domain"
	"github.com/cinequery/cinequery/internal/repository"
)

// QueryRouter is the handle-side of the pipeline. Implemented by Orchestrator.
type QueryRouter interface {
	Handle(ctx context.Context, query domain.Query, history *domain.ConversationState) (domain.MergedResult, domain.ClassificationResult, error)
}

// AnswerComposer is the compose-side of the pipeline. Implemented by Composer.
type AnswerComposer interface {
	Compose(ctx context.Context, query domain.Query, merged domain.MergedResult, history *domain.ConversationState) domain.Answer
}

// historyCues short-circuits "what did we talk about" style questions to the
// conversation state, skipping both backends.
var historyCues = []string{"what did i ask", "what did we talk about", "previous conversation"}

// ChatService owns sessions and their conversation state and runs the
// handle-then-compose pipeline per user turn. One logical task per query;
// state is mutated only after the composer returns, by that same task.
type ChatService struct {
	sessions *repository.SessionRepository
	router   QueryRouter
	composer AnswerComposer
	window   int
	logger   *zap.Logger

	mu     sync.Mutex
	states map[string]*domain.ConversationState
}

// NewChatService creates a new chat service.
func NewChatService(
	sessions *repository.SessionRepository,
	router QueryRouter,
	composer AnswerComposer,
	window int,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		sessions: sessions,
		router:   router,
		composer: composer,
		window:   window,
		logger:   logger,
		states:   make(map[string]*domain.ConversationState),
	}
}

// Chat handles one user turn: resolve the session, route the query, compose
// the answer, persist both messages, then update conversation state.
func (s *ChatService) Chat(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, domain.ErrInvalidQuery
	}

	session, err := s.resolveSession(req.SessionID)
	if err != nil {
		return nil, err
	}

	state, err := s.state(session.ID)
	if err != nil {
		return nil, err
	}

	// History recap is answered from state alone, like the original
	// assistant: no backend is invoked and nothing is persisted.
	if containsAny(strings.ToLower(message), historyCues) {
		return &domain.ChatResponse{
			SessionID: session.ID,
			Answer:    recap(state),
		}, nil
	}

	query := domain.Query{
		Text:      message,
		TurnID:    state.Len() + 1,
		Timestamp: time.Now(),
	}

	merged, classification, err := s.router.Handle(ctx, query, state)
	if err != nil {
		return nil, err
	}

	answer := s.composer.Compose(ctx, query, merged, state)

	userMsg := &domain.Message{
		SessionID: session.ID,
		Role:      "user",
		Content:   message,
		Route:     classification.Route,
	}
	if err := s.sessions.CreateMessage(userMsg); err != nil {
		return nil, err
	}
	assistantMsg := &domain.Message{
		SessionID: session.ID,
		Role:      "assistant",
		Content:   answer.Text,
		Route:     classification.Route,
	}
	if err := s.sessions.CreateMessage(assistantMsg); err != nil {
		return nil, err
	}
	if err := s.sessions.Touch(session.ID); err != nil {
		return nil, err
	}

	state.Append(domain.Turn{Query: query, Answer: answer.Text})

	return &domain.ChatResponse{
		SessionID: session.ID,
		Answer:    answer.Text,
		Route:     classification.Route,
		Degraded:  merged.Degraded,
		Items:     merged.Items,
	}, nil
}

// CreateSession creates a new empty session.
func (s *ChatService) CreateSession(ctx context.Context) (*domain.Session, error) {
	session := &domain.Session{}
	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetHistory returns all persisted messages for a session.
func (s *ChatService) GetHistory(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}
	return s.sessions.GetMessages(sessionID)
}

func (s *ChatService) resolveSession(id string) (*domain.Session, error) {
	if id == "" {
		session := &domain.Session{}
		if err := s.sessions.Create(session); err != nil {
			return nil, err
		}
		return session, nil
	}

	session, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}
	return session, nil
}

// state returns the session's conversation window, rebuilding it from the
// most recent persisted turns after a restart.
func (s *ChatService) state(sessionID string) (*domain.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.states[sessionID]; ok {
		return state, nil
	}

	state := domain.NewConversationState(s.window)
	messages, err := s.sessions.RecentMessages(sessionID, s.window*2)
	if err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(messages); i++ {
		if messages[i].Role != "user" || messages[i+1].Role != "assistant" {
			continue
		}
		state.Append(domain.Turn{
			Query:  domain.Query{Text: messages[i].Content, Timestamp: messages[i].CreatedAt},
			Answer: messages[i+1].Content,
		})
		i++
	}

	s.states[sessionID] = state
	return state, nil
}

func recap(state *domain.ConversationState) string {
	turns := state.Recent(3)
	if len(turns) == 0 {
		return "We haven't had any previous conversation yet in this session."
	}

	var sb strings.Builder
	sb.WriteString("Here's our recent conversation:\n")
	for _, turn := range turns {
		sb.WriteString("You asked: " + turn.Query.Text + "\n")
		sb.WriteString("I answered: " + turn.Answer + "\n")
	}
	return strings.TrimSpace(sb.String())
}
