// Package persona defines the answering personas: who speaks, which
// collection their corpus lives in, how their retrieval runs, and how their
// citations are labelled. The registry is fixed at compile time; config
// selects which persona answers.
package persona

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mentorhq/mentor-go/internal/rag"
)

// StrategyVariant selects how a persona's retrieval derives its queries.
type StrategyVariant string

const (
	// StrategyPlain runs a single similarity search on the raw user query.
	StrategyPlain StrategyVariant = "plain"

	// StrategySearchSentence asks the LLM to rewrite the question into one
	// search sentence, then searches with both the raw query and the
	// rewrite.
	StrategySearchSentence StrategyVariant = "search-sentence"

	// StrategyTranslate asks the LLM to translate the question to English
	// before searching, for corpora stored in English.
	StrategyTranslate StrategyVariant = "translate"
)

// Persona describes one answering voice.
type Persona struct {
	// Name is the stable identifier used in config, CLI flags and the API.
	Name string

	// DisplayName is the human-readable name used in citations.
	DisplayName string

	// SystemPrompt sets the persona's voice and register.
	SystemPrompt string

	// Collection is the vector store collection holding this persona's corpus.
	Collection string

	// AttributionKey is the metadata key used for citation labels
	// (title, chapter_title, full_ref, ...).
	AttributionKey string

	// CitationVerb names what is being cited ("설교", "저서", "법문").
	CitationVerb string

	// Strategy selects the retrieval variant.
	Strategy StrategyVariant

	// TopK is the similarity search depth per query.
	TopK int
}

// FormatSources builds the citation line for a set of retrieved documents:
// the attribution values, deduplicated in first-seen order, prefixed with
// the persona's display name and citation verb.
func (p Persona) FormatSources(docs []rag.Document) string {
	if len(docs) == 0 {
		return ""
	}
	seen := make(map[string]bool)
	var labels []string
	for _, d := range docs {
		label := d.Metadata[p.AttributionKey]
		if label == "" {
			label = "출처 미상"
		}
		if seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return fmt.Sprintf("%s %s 인용: %s", p.DisplayName, p.CitationVerb, strings.Join(labels, ", "))
}

// registry holds the built-in personas, keyed by Name.
var registry = map[string]Persona{
	"pastor-yujin": {
		Name:           "pastor-yujin",
		DisplayName:    "김유진 목사",
		SystemPrompt:   "당신은 온화하고 지혜로운 목사입니다. 공감과 설교체로 답하십시오.",
		Collection:     "yujin_works",
		AttributionKey: "title",
		CitationVerb:   "설교",
		Strategy:       StrategySearchSentence,
		TopK:           3,
	},
	"pastor-woonsung": {
		Name:           "pastor-woonsung",
		DisplayName:    "정운성 목사",
		SystemPrompt:   "당신은 직설적이지만 따뜻한 목사입니다. 현실적인 권면을 해주십시오.",
		Collection:     "woonsung_works",
		AttributionKey: "title",
		CitationVerb:   "설교",
		Strategy:       StrategySearchSentence,
		TopK:           3,
	},
	"nietzsche": {
		Name:           "nietzsche",
		DisplayName:    "니체",
		SystemPrompt:   "당신은 철학자 니체입니다. 논리적이고 사색적인 어조로, 인용한 저서의 사상과 연결하여 답하십시오.",
		Collection:     "nietzsche_works",
		AttributionKey: "chapter_title",
		CitationVerb:   "저서",
		Strategy:       StrategyTranslate,
		TopK:           4,
	},
	"bubryune": {
		Name:           "bubryune",
		DisplayName:    "법륜스님",
		SystemPrompt:   "당신은 법륜스님입니다. 즉문즉설의 어조로, 담백하고 실천적인 답을 주십시오.",
		Collection:     "bubryune_works",
		AttributionKey: "title",
		CitationVerb:   "법문",
		Strategy:       StrategyPlain,
		TopK:           4,
	},
}

// DefaultName is the persona used when none is configured.
const DefaultName = "pastor-yujin"

// ErrUnknown is returned by Get for names not in the registry.
var ErrUnknown = errors.New("unknown persona")

// Get returns the persona with the given name.
func Get(name string) (Persona, error) {
	if name == "" {
		name = DefaultName
	}
	p, ok := registry[name]
	if !ok {
		return Persona{}, fmt.Errorf("persona: %w %q, valid values: %s",
			ErrUnknown, name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Names returns the registered persona names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
