package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/mentorhq/mentor-go/internal/logging"
	"github.com/mentorhq/mentor-go/internal/rag"
)

// rerankSnippetLen bounds how much of each candidate the reranking model
// sees. Measured in runes so Korean text is not cut mid-character.
const rerankSnippetLen = 500

// rerankFallbackCount is how many candidates survive when the model gives
// no usable selection.
const rerankFallbackCount = 2

const rerankPrompt = `당신은 데이터 전문가입니다. 사용자 질문에 실제로 답이 되는 문서만 고르세요.

사용자 질문: %s

후보 문서:
%s

응답 형식: 관련 있는 문서의 번호만 쉼표로 구분해 출력하세요 (예: 1, 3). 관련 문서가 없으면 'None'이라고 답하세요.`

// Reranker filters merged retrieval candidates down to the ones a model
// judges relevant to the query.
type Reranker struct {
	llm Generator
}

// NewReranker returns a Reranker backed by the given chat model.
func NewReranker(llm Generator) (*Reranker, error) {
	if llm == nil {
		return nil, fmt.Errorf("retrieval: reranker requires a chat model")
	}
	return &Reranker{llm: llm}, nil
}

// Rerank merges the secondary and primary candidates, drops exact-content
// duplicates keeping the first occurrence, and asks the model to pick the
// relevant ones. When the model answers "None", fails, or returns nothing
// parseable, the first two candidates in similarity order are kept instead;
// model trouble never fails the request.
func (r *Reranker) Rerank(ctx context.Context, query string, secondary, primary []rag.Document) ([]rag.Document, error) {
	log := logging.FromContext(ctx)

	candidates := dedupeByContent(secondary, primary)
	if len(candidates) == 0 {
		return []rag.Document{}, nil
	}

	msg, err := r.llm.Generate(ctx, []*schema.Message{
		schema.UserMessage(fmt.Sprintf(rerankPrompt, query, numberedListing(candidates))),
	})
	if err != nil {
		log.Warn("retrieval: rerank call failed, keeping top candidates",
			slog.String("error", err.Error()))
		return topN(candidates, rerankFallbackCount), nil
	}

	indices := parseSelection(msg.Content, len(candidates))
	if len(indices) == 0 {
		return topN(candidates, rerankFallbackCount), nil
	}

	selected := make([]rag.Document, 0, len(indices))
	for _, i := range indices {
		selected = append(selected, candidates[i])
	}
	return selected, nil
}

// dedupeByContent merges the two slices, secondary first, keeping only the
// first document for each distinct content string.
func dedupeByContent(secondary, primary []rag.Document) []rag.Document {
	seen := make(map[string]bool, len(secondary)+len(primary))
	merged := make([]rag.Document, 0, len(secondary)+len(primary))
	for _, doc := range append(append([]rag.Document{}, secondary...), primary...) {
		if seen[doc.Content] {
			continue
		}
		seen[doc.Content] = true
		merged = append(merged, doc)
	}
	return merged
}

// numberedListing renders the candidates as a 1-based numbered list,
// truncating each body to rerankSnippetLen runes.
func numberedListing(docs []rag.Document) string {
	var b strings.Builder
	for i, doc := range docs {
		snippet := doc.Content
		if runes := []rune(snippet); len(runes) > rerankSnippetLen {
			snippet = string(runes[:rerankSnippetLen]) + "..."
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, snippet)
	}
	return b.String()
}

// parseSelection extracts zero-based candidate indices from the model's
// reply, preserving the model's order. Out-of-range indices are dropped
// silently; "None", empty, or any non-integer token yields no indices.
func parseSelection(reply string, n int) []int {
	reply = strings.TrimSpace(reply)
	if reply == "" || strings.Contains(strings.ToLower(reply), "none") {
		return nil
	}
	var indices []int
	for _, part := range strings.Split(reply, ",") {
		num, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil
		}
		if num < 1 || num > n {
			continue
		}
		indices = append(indices, num-1)
	}
	return indices
}

func topN(docs []rag.Document, n int) []rag.Document {
	if len(docs) < n {
		n = len(docs)
	}
	return docs[:n]
}
