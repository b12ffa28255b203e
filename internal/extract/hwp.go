package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mentorhq/mentor-go/internal/hwp"
	"github.com/mentorhq/mentor-go/internal/logging"
)

// summaryStream is the summary-information stream every valid document of
// this format carries. Its absence marks the file as some other OLE payload.
const summaryStream = "\x05HwpSummaryInformation"

// fileHeaderStream holds format flags; byte 36 bit 0 signals that body
// sections are deflate-compressed.
const fileHeaderStream = "FileHeader"

// errNotHWP marks a container that opened as an OLE file but lacks the
// required word-processor streams.
var errNotHWP = errors.New("extract: missing FileHeader or summary stream")

// FromHWPDir extracts one Document per readable .hwp file under dir.
// Per-file failures and files below the minimum content length are logged
// and skipped; the run continues.
func FromHWPDir(ctx context.Context, dir string, opts Options) ([]Document, error) {
	opts = opts.withDefaults()
	log := logging.FromContext(ctx)

	files, err := listFiles(dir, ".hwp")
	if err != nil {
		return nil, err
	}

	var docs []Document
	for _, path := range files {
		text, err := hwpText(ctx, path)
		if err != nil {
			log.Warn("extract: skipping unreadable file",
				slog.String("path", path), slog.Any("error", err))
			continue
		}

		text = strings.TrimSpace(text)
		if len(text) < opts.MinContentLen {
			log.Info("extract: skipping short document",
				slog.String("path", path), slog.Int("chars", len(text)))
			continue
		}

		title := stem(path)
		category := opts.Category
		if category == "" {
			category = "sermon"
		}
		docs = append(docs, Document{
			Text: text,
			Metadata: map[string]string{
				MetaSource:   filepath.Base(path),
				MetaTitle:    title,
				MetaAuthor:   opts.Author,
				MetaCategory: category,
			},
		})
		log.Info("extract: loaded document",
			slog.String("title", title), slog.Int("chars", len(text)))
	}
	return docs, nil
}

// hwpText opens one file, validates the required streams, and concatenates
// the decoded body sections in ascending numeric order. A section that fails
// to decode is skipped; the file's remaining sections are still attempted.
func hwpText(ctx context.Context, path string) (string, error) {
	log := logging.FromContext(ctx)

	buf, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("extract: read %s: %w", path, err)
	}

	c, err := hwp.Open(buf)
	if err != nil {
		return "", err
	}
	if !c.HasStream(fileHeaderStream) || !c.HasStream(summaryStream) {
		return "", errNotHWP
	}

	header, err := c.ReadStream(fileHeaderStream)
	if err != nil {
		return "", fmt.Errorf("extract: file header: %w", err)
	}
	if len(header) < 37 {
		return "", fmt.Errorf("extract: file header too short (%d bytes)", len(header))
	}
	compressed := header[36]&1 == 1

	sections := bodySections(c.Streams())

	var sb strings.Builder
	for _, name := range sections {
		raw, err := c.ReadStream(name)
		if err != nil {
			log.Warn("extract: skipping unreadable section",
				slog.String("path", path), slog.String("section", name), slog.Any("error", err))
			continue
		}
		text, err := hwp.DecodeText(raw, compressed)
		if err != nil {
			log.Warn("extract: skipping undecodable section",
				slog.String("path", path), slog.String("section", name), slog.Any("error", err))
			continue
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// bodySections filters stream paths down to "BodyText/SectionN" entries,
// ordered by ascending section number. Numeric ordering (not lexicographic)
// matters once a document has more than ten sections.
func bodySections(streams []string) []string {
	type numbered struct {
		name string
		n    int
	}
	var secs []numbered
	for _, name := range streams {
		if n := hwp.SectionNumber(name); n >= 0 {
			secs = append(secs, numbered{name, n})
		}
	}
	sort.Slice(secs, func(i, j int) bool { return secs[i].n < secs[j].n })

	out := make([]string, len(secs))
	for i, s := range secs {
		out[i] = s.name
	}
	return out
}
