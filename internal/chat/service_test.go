package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mentorhq/mentor-go/internal/compose"
	"github.com/mentorhq/mentor-go/internal/rag"
	"github.com/mentorhq/mentor-go/internal/store"
)

// scriptedModel answers reformulation, rerank, and compose prompts by
// matching prompt markers, recording every prompt it sees.
type scriptedModel struct {
	prompts []string
	reply   func(prompt string) (string, error)
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	prompt := input[len(input)-1].Content
	m.prompts = append(m.prompts, prompt)
	text, err := m.reply(prompt)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(text, nil), nil
}

type fixedRetriever struct {
	docs []rag.Document
	err  error
}

func (f *fixedRetriever) Retrieve(_ context.Context, _, _ string, _ int) ([]rag.Document, error) {
	return f.docs, f.err
}

// defaultReply routes: rerank prompts pick document 1, everything else gets
// a canned answer (used for reformulation and composition alike).
func defaultReply(prompt string) (string, error) {
	if strings.Contains(prompt, "후보 문서") {
		return "1", nil
	}
	return "답변입니다", nil
}

func TestService_RespondFound(t *testing.T) {
	t.Parallel()

	llm := &scriptedModel{reply: defaultReply}
	retriever := &fixedRetriever{docs: []rag.Document{{
		Content:  "믿음은 들음에서 난다",
		Metadata: map[string]string{"title": "믿음의 길"},
	}}}
	svc, err := New(&Config{Retriever: retriever, ChatModel: llm})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ans, err := svc.Respond(context.Background(), "pastor-yujin", "sess-1", "믿음이란?")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if ans.State != compose.StateFound {
		t.Errorf("state = %s, want FOUND", ans.State)
	}
	if ans.Text != "답변입니다" {
		t.Errorf("text = %q", ans.Text)
	}
	if !strings.Contains(ans.Sources, "믿음의 길") {
		t.Errorf("sources = %q, want the document title", ans.Sources)
	}
}

func TestService_RespondNotFound(t *testing.T) {
	t.Parallel()

	llm := &scriptedModel{reply: defaultReply}
	svc, _ := New(&Config{Retriever: &fixedRetriever{}, ChatModel: llm})

	ans, err := svc.Respond(context.Background(), "bubryune", "sess-1", "질문")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if ans.State != compose.StateNotFound {
		t.Errorf("state = %s, want NOT_FOUND", ans.State)
	}
	if ans.Sources != "" {
		t.Errorf("sources should be empty, got %q", ans.Sources)
	}
}

func TestService_UnknownPersona(t *testing.T) {
	t.Parallel()

	llm := &scriptedModel{reply: defaultReply}
	svc, _ := New(&Config{Retriever: &fixedRetriever{}, ChatModel: llm})

	ans, err := svc.Respond(context.Background(), "no-such-persona", "sess-1", "질문")
	if err == nil {
		t.Fatal("expected error for unknown persona")
	}
	if ans.State != compose.StateError {
		t.Errorf("state = %s, want ERROR", ans.State)
	}
}

func TestService_RetrievalFailureIsError(t *testing.T) {
	t.Parallel()

	llm := &scriptedModel{reply: defaultReply}
	svc, _ := New(&Config{
		Retriever: &fixedRetriever{err: errors.New("store down")},
		ChatModel: llm,
	})

	ans, err := svc.Respond(context.Background(), "bubryune", "sess-1", "질문")
	if err == nil {
		t.Fatal("expected error when retrieval fails")
	}
	if ans.State != compose.StateError {
		t.Errorf("state = %s, want ERROR", ans.State)
	}
}

func TestService_PersistsTurnsPerPersona(t *testing.T) {
	t.Parallel()

	history, err := store.Open(t.TempDir() + "/history.db")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer history.Close()

	llm := &scriptedModel{reply: defaultReply}
	svc, _ := New(&Config{Retriever: &fixedRetriever{}, ChatModel: llm, History: history})

	if _, err := svc.Respond(context.Background(), "bubryune", "sess-1", "첫 질문"); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	msgs, err := history.Recent(context.Background(), "sess-1:bubryune", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != store.RoleUser || msgs[0].Content != "첫 질문" {
		t.Errorf("unexpected user turn: %+v", msgs[0])
	}
	if msgs[1].Role != store.RoleAssistant {
		t.Errorf("unexpected assistant turn: %+v", msgs[1])
	}

	// Another persona in the same session keeps its own thread.
	other, err := history.Recent(context.Background(), "sess-1:nietzsche", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("persona threads should be isolated, got %d messages", len(other))
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	llm := &scriptedModel{reply: defaultReply}
	if _, err := New(&Config{ChatModel: llm}); err == nil {
		t.Error("expected error for nil retriever")
	}
	if _, err := New(&Config{Retriever: &fixedRetriever{}}); err == nil {
		t.Error("expected error for nil chat model")
	}
}
