// Package retrieval implements the persona retrieval strategies and the
// LLM reranker. A strategy turns one user query into one or two similarity
// searches; the reranker asks a small model which candidates actually help.
//
// Query reformulation is advisory: a failed or empty reformulation degrades
// to the primary search alone, never to a request failure.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mentorhq/mentor-go/internal/logging"
	"github.com/mentorhq/mentor-go/internal/persona"
	"github.com/mentorhq/mentor-go/internal/rag"
)

// Generator is the narrow slice of the eino chat model interface used for
// single-shot calls (reformulation, reranking).
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Strategy runs persona-specific retrieval for one query. The secondary
// slice holds documents found via a derived query (reformulation or
// translation); the primary slice holds documents found with the raw query.
// Implementations are stateless across calls.
type Strategy interface {
	Retrieve(ctx context.Context, query string) (secondary, primary []rag.Document, err error)
}

// searchSentencePrompt asks for a single retrieval-friendly sentence that
// carries the question's themes and situation.
const searchSentencePrompt = `너는 말씀을 벡터 데이터베이스에서 검색하기 위한 "의미 기반 검색 문장"을 만드는 역할이다.

아래 사용자 질문을 읽고, 핵심 주제와 상황이 잘 드러나도록 검색에 적합한 한 문장으로 바꿔라.

규칙:
- 반드시 한 문장으로 작성할 것
- 구절을 직접 인용하지 말 것
- 해설이나 설교체 표현을 쓰지 말 것
- 추상적 요약이 아닌 의미와 상황을 담을 것
- 결과만 출력할 것 (따옴표, 번호, 설명 없이)

사용자 질문:
%s`

// translatePrompt asks for an English rendering of the question, for
// corpora stored in English.
const translatePrompt = `영문으로 번역하고 번역한 문장만 출력해줘
질문: %s`

// New constructs the Strategy for the given persona.
func New(p persona.Persona, retriever rag.Retriever, llm Generator) (Strategy, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retrieval: retriever must not be nil")
	}
	switch p.Strategy {
	case persona.StrategyPlain:
		return &plainStrategy{retriever: retriever, collection: p.Collection, topK: p.TopK}, nil
	case persona.StrategySearchSentence:
		if llm == nil {
			return nil, fmt.Errorf("retrieval: %s strategy requires a chat model", p.Strategy)
		}
		return &reformulateStrategy{
			retriever:  retriever,
			llm:        llm,
			collection: p.Collection,
			topK:       p.TopK,
			prompt:     searchSentencePrompt,
		}, nil
	case persona.StrategyTranslate:
		if llm == nil {
			return nil, fmt.Errorf("retrieval: %s strategy requires a chat model", p.Strategy)
		}
		return &reformulateStrategy{
			retriever:  retriever,
			llm:        llm,
			collection: p.Collection,
			topK:       p.TopK,
			prompt:     translatePrompt,
		}, nil
	default:
		return nil, fmt.Errorf("retrieval: unknown strategy variant %q", p.Strategy)
	}
}

// plainStrategy runs a single search with the raw user query.
type plainStrategy struct {
	retriever  rag.Retriever
	collection string
	topK       int
}

func (s *plainStrategy) Retrieve(ctx context.Context, query string) ([]rag.Document, []rag.Document, error) {
	primary, err := s.retriever.Retrieve(ctx, s.collection, query, s.topK)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieval: search failed: %w", err)
	}
	return nil, primary, nil
}

// reformulateStrategy derives a secondary query with one LLM call, searches
// with it, then always searches with the raw query as well. The derived
// search is best-effort: LLM failure or an empty rewrite only costs the
// secondary results.
type reformulateStrategy struct {
	retriever  rag.Retriever
	llm        Generator
	collection string
	topK       int
	prompt     string
}

func (s *reformulateStrategy) Retrieve(ctx context.Context, query string) ([]rag.Document, []rag.Document, error) {
	log := logging.FromContext(ctx)

	var secondary []rag.Document
	if derived := s.reformulate(ctx, query); derived != "" {
		docs, err := s.retriever.Retrieve(ctx, s.collection, derived, s.topK)
		if err != nil {
			log.Warn("retrieval: secondary search failed, continuing with primary",
				slog.String("error", err.Error()))
		} else {
			secondary = docs
		}
	}

	primary, err := s.retriever.Retrieve(ctx, s.collection, query, s.topK)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieval: search failed: %w", err)
	}
	return secondary, primary, nil
}

// reformulate returns the derived query, or "" when the rewrite failed or
// came back empty.
func (s *reformulateStrategy) reformulate(ctx context.Context, query string) string {
	log := logging.FromContext(ctx)

	msg, err := s.llm.Generate(ctx, []*schema.Message{
		schema.UserMessage(fmt.Sprintf(s.prompt, query)),
	})
	if err != nil {
		log.Warn("retrieval: query reformulation failed, skipping secondary search",
			slog.String("error", err.Error()))
		return ""
	}
	derived := strings.TrimSpace(msg.Content)
	if derived == "" {
		log.Debug("retrieval: empty reformulation, skipping secondary search")
		return ""
	}
	log.Debug("retrieval: reformulated query", slog.String("derived", derived))
	return derived
}
