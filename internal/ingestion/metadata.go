package ingestion

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mentorhq/mentor-go/internal/extract"
)

// InferFormat inspects a source path and returns the best-effort extraction
// format. The CLI --format flag takes precedence over inferred values — this
// is the fallback when the user doesn't specify one.
//
// Rules:
//
//	*.hwp            → hwp
//	*.json           → bible
//	*.pdf            → pdf
//	*.txt            → transcript, or chaptered when the text carries
//	                   roman-numeral CHAPTER headers
//	directory        → format of the first recognised file inside
func InferFormat(path string) extract.Format {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	if info.IsDir() {
		return inferDirFormat(path)
	}
	return inferFileFormat(path)
}

func inferFileFormat(path string) extract.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hwp":
		return extract.FormatHWP
	case ".json":
		return extract.FormatBibleJSON
	case ".pdf":
		return extract.FormatPDF
	case ".txt":
		if hasChapterHeaders(path) {
			return extract.FormatChaptered
		}
		return extract.FormatTranscript
	default:
		return ""
	}
}

func inferDirFormat(dir string) extract.Format {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if f := inferFileFormat(filepath.Join(dir, entry.Name())); f != "" {
			return f
		}
	}
	return ""
}

// chapterSniffLimit bounds how much of a text file is read when probing for
// chapter headers.
const chapterSniffLimit = 64 * 1024

func hasChapterHeaders(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, chapterSniffLimit)
	n, _ := f.Read(buf)
	return extract.HasChapterHeaders(string(buf[:n]))
}
