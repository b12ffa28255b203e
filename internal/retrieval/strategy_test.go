package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mentorhq/mentor-go/internal/persona"
	"github.com/mentorhq/mentor-go/internal/rag"
)

// fakeGenerator replays canned replies and records the prompts it saw.
type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	for _, msg := range input {
		f.prompts = append(f.prompts, msg.Content)
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

// fakeRetriever returns per-query canned documents and records queries.
type fakeRetriever struct {
	docs    map[string][]rag.Document
	err     error
	queries []string
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, query string, _ int) ([]rag.Document, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[query], nil
}

func doc(content string) rag.Document {
	return rag.Document{ID: content, Content: content, Source: "src"}
}

func testPersona(variant persona.StrategyVariant) persona.Persona {
	return persona.Persona{
		Name:       "test",
		Collection: "test_works",
		Strategy:   variant,
		TopK:       3,
	}
}

func TestPlainStrategy_SingleSearch(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{docs: map[string][]rag.Document{
		"믿음이란": {doc("믿음은 들음에서 난다")},
	}}
	strat, err := New(testPersona(persona.StrategyPlain), retriever, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	secondary, primary, err := strat.Retrieve(context.Background(), "믿음이란")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if secondary != nil {
		t.Errorf("expected nil secondary, got %d docs", len(secondary))
	}
	if len(primary) != 1 || primary[0].Content != "믿음은 들음에서 난다" {
		t.Errorf("unexpected primary: %+v", primary)
	}
	if len(retriever.queries) != 1 {
		t.Errorf("expected exactly one search, got %v", retriever.queries)
	}
}

func TestReformulateStrategy_RunsBothSearches(t *testing.T) {
	t.Parallel()

	llm := &fakeGenerator{reply: "시련 속에서 믿음을 지키는 상황"}
	retriever := &fakeRetriever{docs: map[string][]rag.Document{
		"믿음이 흔들려요":            {doc("primary hit")},
		"시련 속에서 믿음을 지키는 상황": {doc("secondary hit")},
	}}
	strat, err := New(testPersona(persona.StrategySearchSentence), retriever, llm)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	secondary, primary, err := strat.Retrieve(context.Background(), "믿음이 흔들려요")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(secondary) != 1 || secondary[0].Content != "secondary hit" {
		t.Errorf("unexpected secondary: %+v", secondary)
	}
	if len(primary) != 1 || primary[0].Content != "primary hit" {
		t.Errorf("unexpected primary: %+v", primary)
	}
	if len(llm.prompts) != 1 || !strings.Contains(llm.prompts[0], "믿음이 흔들려요") {
		t.Errorf("reformulation prompt missing user query: %v", llm.prompts)
	}
}

func TestReformulateStrategy_EmptyRewriteSkipsSecondary(t *testing.T) {
	t.Parallel()

	llm := &fakeGenerator{reply: "   \n"}
	retriever := &fakeRetriever{docs: map[string][]rag.Document{
		"질문": {doc("primary hit")},
	}}
	strat, err := New(testPersona(persona.StrategySearchSentence), retriever, llm)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	secondary, primary, err := strat.Retrieve(context.Background(), "질문")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if secondary != nil {
		t.Errorf("expected nil secondary, got %+v", secondary)
	}
	if len(primary) != 1 {
		t.Errorf("unexpected primary: %+v", primary)
	}
	if len(retriever.queries) != 1 || retriever.queries[0] != "질문" {
		t.Errorf("expected single raw-query search, got %v", retriever.queries)
	}
}

func TestReformulateStrategy_LLMFailureDegradesToPrimary(t *testing.T) {
	t.Parallel()

	llm := &fakeGenerator{err: errors.New("model unavailable")}
	retriever := &fakeRetriever{docs: map[string][]rag.Document{
		"질문": {doc("primary hit")},
	}}
	strat, err := New(testPersona(persona.StrategyTranslate), retriever, llm)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	secondary, primary, err := strat.Retrieve(context.Background(), "질문")
	if err != nil {
		t.Fatalf("Retrieve should not fail on reformulation error: %v", err)
	}
	if secondary != nil {
		t.Errorf("expected nil secondary, got %+v", secondary)
	}
	if len(primary) != 1 {
		t.Errorf("unexpected primary: %+v", primary)
	}
}

func TestStrategy_PrimarySearchFailureIsFatal(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{err: errors.New("store down")}
	strat, err := New(testPersona(persona.StrategyPlain), retriever, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, _, err := strat.Retrieve(context.Background(), "질문"); err == nil {
		t.Fatal("expected error when the primary search fails")
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(testPersona(persona.StrategyPlain), nil, nil); err == nil {
		t.Error("expected error for nil retriever")
	}
	if _, err := New(testPersona(persona.StrategySearchSentence), &fakeRetriever{}, nil); err == nil {
		t.Error("expected error for reformulating strategy without a model")
	}
	if _, err := New(testPersona("unknown"), &fakeRetriever{}, nil); err == nil {
		t.Error("expected error for unknown strategy variant")
	}
}
