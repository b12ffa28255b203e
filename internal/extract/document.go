// Package extract converts heterogeneous source material — compressed binary
// word-processor files, PDFs, reference-text JSON, chaptered corpora, and
// plain transcripts — into normalized Documents ready for chunking and
// indexing. Each format has its own adapter; all adapters share the policy
// that a malformed file is skipped with a log line, never aborting the run.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Metadata keys shared across adapters. Format-specific adapters add their
// own keys (chapter, verse, full_ref, ...).
const (
	// MetaSource is the origin file name or record key. Always present.
	MetaSource = "source"
	// MetaTitle is the human-readable document title.
	MetaTitle = "title"
	// MetaAuthor is the corpus author label used for attribution.
	MetaAuthor = "author"
	// MetaCategory classifies the corpus (sermon, philosophy, ...).
	MetaCategory = "category"
	// MetaReference is the canonical reference string (e.g. "창1:1").
	MetaReference = "reference"
)

// Document is one normalized text unit plus metadata, produced from a single
// source file or record. Documents are immutable once produced; the chunker
// consumes them and chunks inherit the metadata unchanged.
type Document struct {
	// Text is the normalized document text.
	Text string

	// Metadata holds string key-value pairs. MetaSource is always set.
	Metadata map[string]string
}

// Format identifies a source document format.
type Format string

const (
	// FormatHWP is the compressed binary word-processor format.
	FormatHWP Format = "hwp"
	// FormatPDF is a page-based PDF sermon.
	FormatPDF Format = "pdf"
	// FormatBibleJSON is reference-text JSON keyed "<book><chapter>:<verse>".
	FormatBibleJSON Format = "bible-json"
	// FormatChaptered is plain text with CHAPTER/section markers.
	FormatChaptered Format = "chaptered"
	// FormatTranscript is a directory of plain-text transcripts.
	FormatTranscript Format = "transcript"
)

// Options tunes format adapters. Zero values select the defaults.
type Options struct {
	// Author is stored as MetaAuthor on every produced Document.
	Author string

	// Category is stored as MetaCategory (default "sermon" for hwp/pdf).
	Category string

	// MinContentLen is the minimum extracted text length below which a file
	// is skipped as noise. Defaults to 50.
	MinContentLen int

	// StartMarker begins the core span for page-based extraction.
	// Defaults to "서론".
	StartMarker string

	// EndMarkers end the core span; the earliest one found after StartMarker
	// wins. Defaults to ["축도", "기도"].
	EndMarkers []string
}

// withDefaults returns a copy of o with zero values replaced by defaults.
func (o Options) withDefaults() Options {
	if o.MinContentLen == 0 {
		o.MinContentLen = 50
	}
	if o.StartMarker == "" {
		o.StartMarker = "서론"
	}
	if len(o.EndMarkers) == 0 {
		o.EndMarkers = []string{"축도", "기도"}
	}
	return o
}

// FromPath dispatches to the adapter for the given format. Directory formats
// (hwp, pdf, transcript) expect path to be a directory; file formats
// (bible-json, chaptered) expect a single file.
func FromPath(ctx context.Context, format Format, path string, opts Options) ([]Document, error) {
	switch format {
	case FormatHWP:
		return FromHWPDir(ctx, path, opts)
	case FormatPDF:
		return FromPDFDir(ctx, path, opts)
	case FormatBibleJSON:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("extract: read %s: %w", path, err)
		}
		docs, _, err := FromBibleJSON(ctx, data)
		return docs, err
	case FormatChaptered:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("extract: read %s: %w", path, err)
		}
		return FromChapteredText(ctx, filepath.Base(path), string(data))
	case FormatTranscript:
		return FromTranscriptDir(ctx, path, opts)
	default:
		return nil, fmt.Errorf("extract: unknown format %q", format)
	}
}

// listFiles returns the files in dir with the given extension, sorted by
// name so ingestion order is reproducible.
func listFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("extract: read dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// stem returns the base name of path without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
