package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Metadata keys specific to the chaptered-corpus adapter.
const (
	// MetaChapterNum is the roman-numeral chapter number (e.g. "I").
	MetaChapterNum = "chapter_num"
	// MetaChapterTitle is the chapter title following the numeral.
	MetaChapterTitle = "chapter_title"
	// MetaSectionNum is the numbered-section number, or "Intro" for text
	// preceding the first numbered section of a chapter.
	MetaSectionNum = "section_num"
	// MetaFullRef is a human-readable reference combining chapter header
	// and section, e.g. "CHAPTER I. TITLE - §3".
	MetaFullRef = "full_ref"
)

// introSection marks chapter text that appears before the first numbered
// section.
const introSection = "Intro"

var (
	chapterPattern = regexp.MustCompile(`(?m)(CHAPTER\s+[IVXLCDM]+\.\s+.*)`)
	headerPattern  = regexp.MustCompile(`CHAPTER\s+([IVXLCDM]+)\.\s+(.*)`)
	sectionPattern = regexp.MustCompile(`(?m)^(\d+)\.\s+`)
)

// HasChapterHeaders reports whether text contains at least one chapter
// header of the form "CHAPTER <roman>. <title>". Used for format sniffing.
func HasChapterHeaders(text string) bool {
	return chapterPattern.MatchString(text)
}

// FromChapteredText splits a plain-text corpus on chapter headers of the
// form "CHAPTER <roman>. <title>", then splits each chapter on numbered
// sections ("1. ...", "2. ..."). Text before the first numbered section of
// a chapter becomes an "Intro" pseudo-section; text before the first
// chapter header is ignored. Each Document carries chapter number, title,
// section number and a combined reference string.
func FromChapteredText(ctx context.Context, source string, text string) ([]Document, error) {
	parts := splitKeep(chapterPattern, text)
	if len(parts) < 2 {
		return nil, fmt.Errorf("extract: %s: no chapter headers found", source)
	}

	var docs []Document
	// parts[0] is front matter before the first header; headers and bodies
	// then alternate.
	for i := 1; i < len(parts); i += 2 {
		header := strings.TrimSpace(parts[i])
		body := ""
		if i+1 < len(parts) {
			body = parts[i+1]
		}

		num, title := header, header
		if m := headerPattern.FindStringSubmatch(header); m != nil {
			num, title = m[1], m[2]
		}

		sections := splitKeep(sectionPattern, body)
		if intro := strings.TrimSpace(sections[0]); intro != "" {
			docs = append(docs, chapterDoc(source, header, num, title, introSection, intro))
		}
		for j := 1; j+1 < len(sections); j += 2 {
			secNum := sections[j]
			secText := strings.TrimSpace(sections[j+1])
			docs = append(docs, chapterDoc(source, header, num, title, secNum,
				fmt.Sprintf("%s. %s", secNum, secText)))
		}
	}
	return docs, nil
}

func chapterDoc(source, header, num, title, section, text string) Document {
	ref := fmt.Sprintf("%s - §%s", header, section)
	if section == introSection {
		ref = fmt.Sprintf("%s - %s", header, section)
	}
	return Document{
		Text: text,
		Metadata: map[string]string{
			MetaSource:       source,
			MetaChapterNum:   num,
			MetaChapterTitle: title,
			MetaSectionNum:   section,
			MetaFullRef:      ref,
		},
	}
}

// splitKeep splits s around matches of re, keeping the first capture group
// of each match in the result, like Python's re.split with a capturing
// pattern. The returned slice alternates non-match text and captures,
// starting with the text before the first match.
func splitKeep(re *regexp.Regexp, s string) []string {
	var out []string
	last := 0
	for _, m := range re.FindAllStringSubmatchIndex(s, -1) {
		out = append(out, s[last:m[0]], s[m[2]:m[3]])
		last = m[1]
	}
	out = append(out, s[last:])
	return out
}
