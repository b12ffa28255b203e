// Package chunker splits extracted documents into overlapping chunks sized
// for embedding. Splitting is recursive: paragraph breaks first, then line
// breaks, then spaces, falling back to a hard character cut, so chunk
// boundaries land on the largest natural break that fits.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/mentorhq/mentor-go/internal/extract"
)

// Defaults applied when Split is called with non-positive values.
const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 1500

	// DefaultChunkOverlap is the character overlap between adjacent chunks
	// of the same document.
	DefaultChunkOverlap = 200
)

// separators is the split hierarchy, coarsest first. The empty string is
// the hard-cut fallback for text with no natural breaks.
var separators = []string{"\n\n", "\n", " ", ""}

// Split breaks text into chunks of at most maxSize characters, with up to
// overlap characters shared between adjacent chunks. Lengths are measured
// in runes so multi-byte scripts are not over-split. Chunks are trimmed;
// empty chunks are dropped.
func Split(text string, maxSize, overlap int) []string {
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		overlap = maxSize / 10
	}
	return splitRecursive(text, separators, maxSize, overlap)
}

// SplitDocuments splits each document's text and returns one document per
// chunk, each carrying a copy of the source document's metadata.
func SplitDocuments(docs []extract.Document, maxSize, overlap int) []extract.Document {
	var out []extract.Document
	for _, doc := range docs {
		for _, chunk := range Split(doc.Text, maxSize, overlap) {
			md := make(map[string]string, len(doc.Metadata))
			for k, v := range doc.Metadata {
				md[k] = v
			}
			out = append(out, extract.Document{Text: chunk, Metadata: md})
		}
	}
	return out
}

func splitRecursive(text string, seps []string, maxSize, overlap int) []string {
	if text == "" {
		return nil
	}

	// First separator present in the text wins; the rest stay available for
	// oversized pieces.
	sep := ""
	var remaining []string
	for i, s := range seps {
		if s == "" {
			break
		}
		if strings.Contains(text, s) {
			sep = s
			remaining = seps[i+1:]
			break
		}
	}

	if sep == "" {
		return hardSplit(text, maxSize, overlap)
	}

	var pieces []string
	for _, p := range strings.Split(text, sep) {
		if p != "" {
			pieces = append(pieces, p)
		}
	}

	var chunks []string
	var fitting []string
	flush := func() {
		if len(fitting) > 0 {
			chunks = append(chunks, mergePieces(fitting, sep, maxSize, overlap)...)
			fitting = nil
		}
	}
	for _, p := range pieces {
		if utf8.RuneCountInString(p) < maxSize {
			fitting = append(fitting, p)
			continue
		}
		flush()
		if len(remaining) == 0 {
			chunks = append(chunks, hardSplit(p, maxSize, overlap)...)
		} else {
			chunks = append(chunks, splitRecursive(p, remaining, maxSize, overlap)...)
		}
	}
	flush()
	return chunks
}

// mergePieces greedily packs pieces into chunks of at most maxSize
// characters, rejoining with sep. When a chunk is emitted, trailing pieces
// totalling at most overlap characters carry into the next chunk.
func mergePieces(pieces []string, sep string, maxSize, overlap int) []string {
	sepLen := utf8.RuneCountInString(sep)

	var chunks []string
	var current []string
	total := 0

	emit := func() {
		joined := strings.TrimSpace(strings.Join(current, sep))
		if joined != "" {
			chunks = append(chunks, joined)
		}
	}

	for _, p := range pieces {
		plen := utf8.RuneCountInString(p)
		added := plen
		if len(current) > 0 {
			added += sepLen
		}
		if total+added > maxSize && len(current) > 0 {
			emit()
			// Drop leading pieces until the carried tail fits the overlap
			// budget and leaves room for the incoming piece.
			for len(current) > 0 &&
				(total > overlap || (total+added > maxSize && total > 0)) {
				drop := utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
			}
		}
		current = append(current, p)
		total += plen
		if len(current) > 1 {
			total += sepLen
		}
	}
	emit()
	return chunks
}

// hardSplit cuts text every maxSize runes with the configured overlap; the
// last resort when no separator fits.
func hardSplit(text string, maxSize, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := maxSize - overlap
	if step <= 0 {
		step = maxSize
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + maxSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
