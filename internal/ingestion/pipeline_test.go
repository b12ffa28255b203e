package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mentorhq/mentor-go/internal/extract"
	"github.com/mentorhq/mentor-go/internal/rag"
)

// stubEmbedder returns a fixed-dimension vector per text, or an error after
// failAfter successful calls.
type stubEmbedder struct {
	calls     int
	failAfter int
	err       error
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil && s.calls > s.failAfter {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1, 0}
	}
	return out, nil
}

func writeTranscripts(t *testing.T, contents map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range contents {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestPipeline_IngestsTranscripts(t *testing.T) {
	t.Parallel()

	dir := writeTranscripts(t, map[string]string{
		"001_첫법문.txt": "마음을 비우는 법에 대한 이야기입니다.",
		"002_둘째.txt":   "집착을 내려놓는 연습에 대한 이야기입니다.",
	})

	store := rag.NewMemoryStore()
	p, err := NewPipeline(&stubEmbedder{}, store, &Config{
		Extract: extract.Options{Author: "법륜 스님", Category: "법문"},
	})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	var progress []string
	res, err := p.Ingest(context.Background(), "bubryune_works", dir, extract.FormatTranscript, func(msg string) {
		progress = append(progress, msg)
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if res.Documents != 2 || res.Chunks != 2 || res.Failed != 0 {
		t.Errorf("result = %+v, want 2 documents, 2 chunks, 0 failed", res)
	}
	if store.Count("bubryune_works") != 2 {
		t.Errorf("store count = %d, want 2", store.Count("bubryune_works"))
	}
	if len(progress) == 0 {
		t.Error("expected progress callbacks")
	}

	docs, err := store.Search(context.Background(), "bubryune_works", []float32{1, 1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, doc := range docs {
		if doc.Metadata[extract.MetaAuthor] != "법륜 스님" {
			t.Errorf("chunk missing author metadata: %+v", doc.Metadata)
		}
		if doc.Metadata["chunk_index"] != "0" {
			t.Errorf("chunk_index = %q, want 0", doc.Metadata["chunk_index"])
		}
	}
}

func TestPipeline_ReingestOverwrites(t *testing.T) {
	t.Parallel()

	dir := writeTranscripts(t, map[string]string{
		"001_법문.txt": "같은 내용을 두 번 적재합니다.",
	})

	store := rag.NewMemoryStore()
	p, _ := NewPipeline(&stubEmbedder{}, store, nil)

	for i := 0; i < 2; i++ {
		if _, err := p.Ingest(context.Background(), "works", dir, extract.FormatTranscript, nil); err != nil {
			t.Fatalf("Ingest run %d: %v", i, err)
		}
	}
	if store.Count("works") != 1 {
		t.Errorf("store count = %d after re-ingest, want 1", store.Count("works"))
	}
}

func TestPipeline_EmbedFailureSkipsDocument(t *testing.T) {
	t.Parallel()

	dir := writeTranscripts(t, map[string]string{
		"001_성공.txt": "첫 번째 문서입니다.",
		"002_실패.txt": "두 번째 문서입니다.",
	})

	embedder := &stubEmbedder{failAfter: 1, err: errors.New("embedding service down")}
	store := rag.NewMemoryStore()
	p, _ := NewPipeline(embedder, store, nil)

	res, err := p.Ingest(context.Background(), "works", dir, extract.FormatTranscript, nil)
	if err != nil {
		t.Fatalf("Ingest should continue past per-document failures: %v", err)
	}
	if res.Failed != 1 {
		t.Errorf("failed = %d, want 1", res.Failed)
	}
	if store.Count("works") != 1 {
		t.Errorf("store count = %d, want 1", store.Count("works"))
	}
}

func TestPipeline_ExtractFailureIsFatal(t *testing.T) {
	t.Parallel()

	p, _ := NewPipeline(&stubEmbedder{}, rag.NewMemoryStore(), nil)
	_, err := p.Ingest(context.Background(), "works", "/nonexistent", extract.FormatTranscript, nil)
	if err == nil {
		t.Fatal("expected error for unreadable source path")
	}
	if !strings.Contains(err.Error(), "extract failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewPipeline_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewPipeline(nil, rag.NewMemoryStore(), nil); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewPipeline(&stubEmbedder{}, nil, nil); err == nil {
		t.Error("expected error for nil store")
	}
}
