// Package chat orchestrates one question-answering turn: persona lookup,
// strategy retrieval, reranking, grounded composition, and history
// persistence. It is the layer shared by the HTTP server and the `mentor ask`
// command.
package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mentorhq/mentor-go/internal/compose"
	"github.com/mentorhq/mentor-go/internal/logging"
	"github.com/mentorhq/mentor-go/internal/persona"
	"github.com/mentorhq/mentor-go/internal/rag"
	"github.com/mentorhq/mentor-go/internal/retrieval"
	"github.com/mentorhq/mentor-go/internal/store"
)

// historyWindow is how many prior messages are loaded per turn.
const historyWindow = 6

// Config holds the Service dependencies.
type Config struct {
	// Retriever fetches candidate documents. Required.
	Retriever rag.Retriever
	// ChatModel serves reformulation, reranking, and composition. Required.
	ChatModel retrieval.Generator
	// History persists conversation turns. Optional; when nil the service
	// is stateless across turns.
	History store.ConversationStore
	// MaxContextTokens bounds the composed prompt; zero selects the default.
	MaxContextTokens int
}

// Service answers persona questions.
type Service struct {
	retriever rag.Retriever
	llm       retrieval.Generator
	reranker  *retrieval.Reranker
	composer  *compose.Composer
	history   store.ConversationStore
}

// New constructs a Service from the provided Config.
func New(cfg *Config) (*Service, error) {
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("chat: Retriever must not be nil")
	}
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("chat: ChatModel must not be nil")
	}
	reranker, err := retrieval.NewReranker(cfg.ChatModel)
	if err != nil {
		return nil, err
	}
	composer, err := compose.New(&compose.Config{
		ChatModel:        cfg.ChatModel,
		MaxContextTokens: cfg.MaxContextTokens,
	})
	if err != nil {
		return nil, err
	}
	return &Service{
		retriever: cfg.Retriever,
		llm:       cfg.ChatModel,
		reranker:  reranker,
		composer:  composer,
		history:   cfg.History,
	}, nil
}

// Respond answers one query as the named persona. An empty personaName
// selects the default persona; an unknown name is an error. Retrieval and
// model failures surface as an ERROR-state answer plus a non-nil error.
func (s *Service) Respond(ctx context.Context, personaName, sessionID, query string) (compose.Answer, error) {
	p, err := persona.Get(personaName)
	if err != nil {
		return compose.Answer{State: compose.StateError}, err
	}

	strat, err := retrieval.New(p, s.retriever, s.llm)
	if err != nil {
		return compose.Answer{State: compose.StateError}, err
	}

	secondary, primary, err := strat.Retrieve(ctx, query)
	if err != nil {
		return compose.Answer{State: compose.StateError}, fmt.Errorf("chat: retrieval failed: %w", err)
	}

	reranked, err := s.reranker.Rerank(ctx, query, secondary, primary)
	if err != nil {
		return compose.Answer{State: compose.StateError}, fmt.Errorf("chat: rerank failed: %w", err)
	}

	history := s.loadHistory(ctx, p, sessionID)

	answer, err := s.composer.Respond(ctx, p, query, reranked, history)
	if err != nil {
		return answer, err
	}

	s.persistTurn(ctx, p, sessionID, query, answer.Text)
	return answer, nil
}

// sessionKey scopes history to the (session, persona) pair so switching
// personas within one session does not leak another persona's voice.
func sessionKey(p persona.Persona, sessionID string) string {
	return sessionID + ":" + p.Name
}

func (s *Service) loadHistory(ctx context.Context, p persona.Persona, sessionID string) []store.Message {
	if s.history == nil || sessionID == "" {
		return nil
	}
	history, err := s.history.Recent(ctx, sessionKey(p, sessionID), historyWindow)
	if err != nil {
		logging.FromContext(ctx).Warn("chat: failed to load history",
			slog.String("session", sessionID),
			slog.String("error", err.Error()))
		return nil
	}
	return history
}

// persistTurn records the user query and the persona's reply. Persistence
// failures are logged, never returned.
func (s *Service) persistTurn(ctx context.Context, p persona.Persona, sessionID, query, reply string) {
	if s.history == nil || sessionID == "" {
		return
	}
	log := logging.FromContext(ctx)
	key := sessionKey(p, sessionID)
	if err := s.history.Append(ctx, key, store.RoleUser, query); err != nil {
		log.Warn("chat: failed to persist user turn", slog.String("error", err.Error()))
	}
	if err := s.history.Append(ctx, key, store.RoleAssistant, reply); err != nil {
		log.Warn("chat: failed to persist assistant turn", slog.String("error", err.Error()))
	}
}
