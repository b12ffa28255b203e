package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mentorhq/mentor-go/internal/logging"
)

// FromTranscriptDir loads every *.txt file in dir as one Document. The
// title is the file stem; the source label uses the 3-digit episode prefix
// in the filename when present (e.g. "012_abc.txt" becomes "즉문즉설012강").
func FromTranscriptDir(ctx context.Context, dir string, opts Options) ([]Document, error) {
	opts = opts.withDefaults()
	log := logging.FromContext(ctx)

	paths, err := listFiles(dir, ".txt")
	if err != nil {
		return nil, err
	}

	var docs []Document
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			log.Warn("extract: unreadable transcript, skipping",
				slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		text := strings.TrimSpace(string(content))
		if text == "" {
			log.Warn("extract: empty transcript, skipping", slog.String("path", path))
			continue
		}

		category := opts.Category
		if category == "" {
			category = "talk"
		}
		docs = append(docs, Document{
			Text: text,
			Metadata: map[string]string{
				MetaSource:   transcriptSource(filepath.Base(path)),
				MetaTitle:    stem(path),
				MetaAuthor:   opts.Author,
				MetaCategory: category,
			},
		})
	}
	return docs, nil
}

// transcriptSource derives a display label from the filename. Transcript
// dumps are named "<NNN>_<id>.txt"; the numeric prefix is the episode
// number.
func transcriptSource(name string) string {
	if len(name) >= 3 && isDigits(name[:3]) {
		return fmt.Sprintf("즉문즉설%s강", name[:3])
	}
	return name
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
