package extract

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mentorhq/mentor-go/internal/hwp/hwptest"
)

func TestFromHWPDir_ExtractsDocuments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := hwptest.BuildDocument([][]string{
		{"첫 번째 문단의 본문 내용입니다", "두 번째 문단의 본문 내용입니다"},
		{"다음 구역의 본문 내용입니다"},
	}, true)
	writeFile(t, filepath.Join(dir, "설교_믿음.hwp"), string(doc))

	docs, err := FromHWPDir(context.Background(), dir, Options{Author: "정운성 목사"})
	if err != nil {
		t.Fatalf("FromHWPDir: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}

	got := docs[0]
	if !strings.Contains(got.Text, "첫 번째 문단의 본문 내용입니다") {
		t.Errorf("text missing first paragraph: %q", got.Text)
	}
	if !strings.Contains(got.Text, "다음 구역의 본문 내용입니다") {
		t.Errorf("text missing second section: %q", got.Text)
	}
	if got.Metadata[MetaTitle] != "설교_믿음" {
		t.Errorf("title = %q, want %q", got.Metadata[MetaTitle], "설교_믿음")
	}
	if got.Metadata[MetaSource] != "설교_믿음.hwp" {
		t.Errorf("source = %q", got.Metadata[MetaSource])
	}
	if got.Metadata[MetaAuthor] != "정운성 목사" || got.Metadata[MetaCategory] != "sermon" {
		t.Errorf("author/category = %q/%q", got.Metadata[MetaAuthor], got.Metadata[MetaCategory])
	}
}

func TestFromHWPDir_SkipsShortAndBrokenFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// Too short to keep.
	writeFile(t, filepath.Join(dir, "short.hwp"),
		string(hwptest.BuildDocument([][]string{{"짧음"}}, false)))
	// Not a container at all.
	writeFile(t, filepath.Join(dir, "broken.hwp"), "not an ole file")
	// Good file.
	writeFile(t, filepath.Join(dir, "good.hwp"),
		string(hwptest.BuildDocument([][]string{
			{"충분히 긴 본문 내용이 들어 있는 문단입니다 계속 이어집니다"},
		}, true)))

	docs, err := FromHWPDir(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("FromHWPDir: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	if docs[0].Metadata[MetaSource] != "good.hwp" {
		t.Errorf("source = %q, want good.hwp", docs[0].Metadata[MetaSource])
	}
}

func TestFromPath_UnknownFormat(t *testing.T) {
	t.Parallel()

	if _, err := FromPath(context.Background(), Format("docx"), "x", Options{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
