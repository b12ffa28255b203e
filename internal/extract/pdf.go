package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/mentorhq/mentor-go/internal/logging"
)

// FromPDFDir extracts sermon bodies from every *.pdf file in dir. The title
// is the first non-blank line of the first page; the body is the window
// from the start marker to the earliest end marker found after it. Files
// with no start marker, or no end marker after the start, are skipped with
// a warning rather than failing the batch.
func FromPDFDir(ctx context.Context, dir string, opts Options) ([]Document, error) {
	opts = opts.withDefaults()
	log := logging.FromContext(ctx)

	paths, err := listFiles(dir, ".pdf")
	if err != nil {
		return nil, err
	}

	var docs []Document
	for _, path := range paths {
		title, text, err := pdfText(path)
		if err != nil {
			log.Warn("extract: unreadable pdf, skipping",
				slog.String("path", path), slog.String("error", err.Error()))
			continue
		}

		body, ok := markerWindow(text, opts.StartMarker, opts.EndMarkers)
		if !ok {
			log.Warn("extract: sermon markers not found, skipping",
				slog.String("path", path))
			continue
		}

		category := opts.Category
		if category == "" {
			category = "sermon"
		}
		docs = append(docs, Document{
			Text: body,
			Metadata: map[string]string{
				MetaSource:   filepath.Base(path),
				MetaTitle:    title,
				MetaAuthor:   opts.Author,
				MetaCategory: category,
			},
		})
		log.Info("extract: loaded pdf sermon",
			slog.String("title", title), slog.Int("chars", len(body)))
	}
	return docs, nil
}

// pdfText returns the title (first non-blank line of page 1) and the
// concatenated plain text of all pages.
func pdfText(path string) (title, text string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("extract: open pdf: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", "", fmt.Errorf("extract: read pdf page %d: %w", i, err)
		}
		if i == 1 {
			title = firstLine(content)
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return title, sb.String(), nil
}

// markerWindow slices text from the start marker to the earliest end marker
// occurring after it. End markers before the start marker do not count,
// which keeps order-of-service boilerplate ahead of the body from ending
// the window early. Both markers must be present for a usable body.
func markerWindow(text, start string, ends []string) (string, bool) {
	startIdx := strings.Index(text, start)
	if startIdx < 0 {
		return "", false
	}

	endIdx := -1
	for _, marker := range ends {
		idx := strings.Index(text[startIdx:], marker)
		if idx < 0 {
			continue
		}
		if endIdx < 0 || startIdx+idx < endIdx {
			endIdx = startIdx + idx
		}
	}
	if endIdx < 0 {
		return "", false
	}
	return strings.TrimSpace(text[startIdx:endIdx]), true
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
