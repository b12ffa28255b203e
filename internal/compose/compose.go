// Package compose turns reranked retrieval results into a grounded persona
// answer. It owns the provenance decision: whether the answer leaned on the
// knowledge base, fell back to general knowledge, or failed outright.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mentorhq/mentor-go/internal/budget"
	"github.com/mentorhq/mentor-go/internal/logging"
	"github.com/mentorhq/mentor-go/internal/persona"
	"github.com/mentorhq/mentor-go/internal/rag"
	"github.com/mentorhq/mentor-go/internal/store"
)

// ProvenanceState records how an answer was produced.
type ProvenanceState string

const (
	// StateFound means the answer is grounded in retrieved documents.
	StateFound ProvenanceState = "FOUND"
	// StateNotFound means no relevant documents survived reranking and the
	// persona answered from general knowledge.
	StateNotFound ProvenanceState = "NOT_FOUND"
	// StateError means the composing model call failed.
	StateError ProvenanceState = "ERROR"
)

// Answer is the composed response for one query.
type Answer struct {
	// Text is the persona's reply, empty when State is StateError.
	Text string
	// State records the answer's provenance.
	State ProvenanceState
	// Sources is the human-readable attribution line, empty unless State
	// is StateFound.
	Sources string
}

// historyTurns is how many trailing history messages are injected before
// token-budget trimming.
const historyTurns = 6

const groundedInstruction = `다음 지식 베이스(Context)를 바탕으로 답변하세요:
---
%s
---
지식 베이스 내용을 당신의 사상과 연결하여 해석하세요.`

const fallbackInstruction = `관련 문헌을 찾지 못했습니다. 당신의 평소 통찰력에 의존해 답변하세요.`

// Generator is the narrow slice of the eino chat model interface needed to
// compose a reply.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Composer produces persona answers from reranked documents.
type Composer struct {
	llm              Generator
	maxContextTokens int
}

// Config configures a Composer.
type Config struct {
	// ChatModel produces the reply. Required.
	ChatModel Generator
	// MaxContextTokens is the estimated token budget for the full input.
	// History is trimmed oldest-first to fit. Defaults to
	// budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int
}

// New constructs a Composer from the provided Config.
func New(cfg *Config) (*Composer, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("compose: ChatModel must not be nil")
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}
	return &Composer{llm: cfg.ChatModel, maxContextTokens: maxCtx}, nil
}

// Respond composes an answer for the query. When reranked is non-empty the
// persona is instructed to ground its reply in the documents and the Answer
// carries StateFound plus a source attribution; otherwise the persona falls
// back to general knowledge with StateNotFound. A model failure yields
// StateError and a non-nil error.
func (c *Composer) Respond(ctx context.Context, p persona.Persona, query string, reranked []rag.Document, history []store.Message) (Answer, error) {
	log := logging.FromContext(ctx)

	state := StateNotFound
	instruction := fallbackInstruction
	sources := ""
	if len(reranked) > 0 {
		state = StateFound
		instruction = fmt.Sprintf(groundedInstruction, joinContents(reranked))
		sources = p.FormatSources(reranked)
	}

	messages := c.buildMessages(ctx, p, query, instruction, history)

	msg, err := c.llm.Generate(ctx, messages)
	if err != nil {
		log.Error("compose: model call failed",
			slog.String("persona", p.Name),
			slog.String("error", err.Error()))
		return Answer{State: StateError}, fmt.Errorf("compose: generate failed: %w", err)
	}

	log.Debug("compose: answer produced",
		slog.String("persona", p.Name),
		slog.String("state", string(state)),
		slog.Int("context_docs", len(reranked)))

	return Answer{
		Text:    strings.TrimSpace(msg.Content),
		State:   state,
		Sources: sources,
	}, nil
}

// buildMessages assembles [system, ...history, user]. History keeps the
// trailing historyTurns messages, then is trimmed oldest-first to fit the
// token budget alongside the fixed messages.
func (c *Composer) buildMessages(ctx context.Context, p persona.Persona, query, instruction string, history []store.Message) []*schema.Message {
	system := schema.SystemMessage(p.SystemPrompt + "\n\n" + instruction)

	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	historyMsgs := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case store.RoleUser:
			historyMsgs = append(historyMsgs, schema.UserMessage(m.Content))
		case store.RoleAssistant:
			historyMsgs = append(historyMsgs, schema.AssistantMessage(m.Content, nil))
		}
	}

	fixed := []*schema.Message{system, schema.UserMessage(query)}
	before := len(historyMsgs)
	historyMsgs = budget.TrimHistory(fixed, historyMsgs, c.maxContextTokens)
	if dropped := before - len(historyMsgs); dropped > 0 {
		logging.FromContext(ctx).Warn("budget: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(historyMsgs)))
	}

	result := make([]*schema.Message, 0, 2+len(historyMsgs))
	result = append(result, system)
	result = append(result, historyMsgs...)
	result = append(result, schema.UserMessage(query))
	return result
}

func joinContents(docs []rag.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n")
}
