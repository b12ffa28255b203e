package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/mentorhq/mentor-go/internal/logging"
)

// Metadata keys specific to the reference-text adapter.
const (
	// MetaBookAbbr is the abbreviated book name (e.g. "창").
	MetaBookAbbr = "book_abbr"
	// MetaChapter is the chapter number as a decimal string.
	MetaChapter = "chapter"
	// MetaVerse is the verse number as a decimal string.
	MetaVerse = "verse"
)

// refKeyPattern matches reference keys of the form "<book><chapter>:<verse>"
// with a Hangul book abbreviation, e.g. "창1:1".
var refKeyPattern = regexp.MustCompile(`^([\p{Hangul}]+)(\d+):(\d+)$`)

// FromBibleJSON parses a JSON object keyed by verse reference and returns
// one Document per matching entry plus the list of keys that did not match
// the reference pattern. Dropped keys are returned (and logged) rather than
// silently discarded so corpus gaps are visible to the operator.
//
// Documents are emitted in sorted key order for reproducible ingestion.
func FromBibleJSON(ctx context.Context, data []byte) ([]Document, []string, error) {
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, fmt.Errorf("extract: parse reference json: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var docs []Document
	var dropped []string
	for _, key := range keys {
		m := refKeyPattern.FindStringSubmatch(key)
		if m == nil {
			dropped = append(dropped, key)
			continue
		}
		docs = append(docs, Document{
			Text: fmt.Sprintf("[%s] %s", key, strings.TrimSpace(entries[key])),
			Metadata: map[string]string{
				MetaSource:    key,
				MetaBookAbbr:  m[1],
				MetaChapter:   m[2],
				MetaVerse:     m[3],
				MetaReference: key,
			},
		})
	}

	if len(dropped) > 0 {
		logging.FromContext(ctx).Warn("extract: reference keys did not match pattern",
			slog.Int("dropped", len(dropped)),
			slog.String("first", dropped[0]),
		)
	}
	return docs, dropped, nil
}
