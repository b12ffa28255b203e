package extract

import (
	"context"
	"testing"
)

func TestFromChapteredText_SplitsSections(t *testing.T) {
	t.Parallel()

	text := "CHAPTER I. TITLE\n1. First.\n2. Second."
	docs, err := FromChapteredText(context.Background(), "corpus.txt", text)
	if err != nil {
		t.Fatalf("FromChapteredText: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}

	if docs[0].Text != "1. First." {
		t.Errorf("section 1 text = %q, want %q", docs[0].Text, "1. First.")
	}
	if docs[1].Text != "2. Second." {
		t.Errorf("section 2 text = %q, want %q", docs[1].Text, "2. Second.")
	}
	for i, wantRef := range []string{"CHAPTER I. TITLE - §1", "CHAPTER I. TITLE - §2"} {
		md := docs[i].Metadata
		if md[MetaFullRef] != wantRef {
			t.Errorf("section %d full_ref = %q, want %q", i+1, md[MetaFullRef], wantRef)
		}
		if md[MetaChapterNum] != "I" || md[MetaChapterTitle] != "TITLE" {
			t.Errorf("section %d chapter metadata = %q/%q, want I/TITLE",
				i+1, md[MetaChapterNum], md[MetaChapterTitle])
		}
	}
}

func TestFromChapteredText_IntroPseudoSection(t *testing.T) {
	t.Parallel()

	text := "CHAPTER II. MORALS\nOpening remarks.\n1. Aphorism one."
	docs, err := FromChapteredText(context.Background(), "corpus.txt", text)
	if err != nil {
		t.Fatalf("FromChapteredText: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}

	intro := docs[0]
	if intro.Text != "Opening remarks." {
		t.Errorf("intro text = %q", intro.Text)
	}
	if intro.Metadata[MetaSectionNum] != "Intro" {
		t.Errorf("intro section_num = %q, want Intro", intro.Metadata[MetaSectionNum])
	}
	if intro.Metadata[MetaFullRef] != "CHAPTER II. MORALS - Intro" {
		t.Errorf("intro full_ref = %q", intro.Metadata[MetaFullRef])
	}
}

func TestFromChapteredText_MultipleChapters(t *testing.T) {
	t.Parallel()

	text := "Front matter ignored.\n" +
		"CHAPTER I. FIRST\n1. One.\n" +
		"CHAPTER II. SECOND\n1. Uno.\n2. Dos."
	docs, err := FromChapteredText(context.Background(), "corpus.txt", text)
	if err != nil {
		t.Fatalf("FromChapteredText: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d documents, want 3", len(docs))
	}
	if docs[0].Metadata[MetaChapterNum] != "I" {
		t.Errorf("doc 0 chapter = %q, want I", docs[0].Metadata[MetaChapterNum])
	}
	if docs[2].Metadata[MetaChapterNum] != "II" || docs[2].Metadata[MetaSectionNum] != "2" {
		t.Errorf("doc 2 chapter/section = %q/%q, want II/2",
			docs[2].Metadata[MetaChapterNum], docs[2].Metadata[MetaSectionNum])
	}
}

func TestFromChapteredText_NoHeaders(t *testing.T) {
	t.Parallel()

	if _, err := FromChapteredText(context.Background(), "plain.txt", "just prose"); err == nil {
		t.Fatal("expected error for text without chapter headers")
	}
}
