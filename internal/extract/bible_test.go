package extract

import (
	"context"
	"reflect"
	"testing"
)

func TestFromBibleJSON_EmitsReferenceDocuments(t *testing.T) {
	t.Parallel()

	data := []byte(`{"창1:1": " 태초에 ", "창1:2": "땅이"}`)
	docs, dropped, err := FromBibleJSON(context.Background(), data)
	if err != nil {
		t.Fatalf("FromBibleJSON: %v", err)
	}
	if len(dropped) != 0 {
		t.Fatalf("dropped = %v, want none", dropped)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}

	first := docs[0]
	if first.Text != "[창1:1] 태초에" {
		t.Errorf("text = %q, want %q", first.Text, "[창1:1] 태초에")
	}
	want := map[string]string{
		MetaSource:    "창1:1",
		MetaBookAbbr:  "창",
		MetaChapter:   "1",
		MetaVerse:     "1",
		MetaReference: "창1:1",
	}
	if !reflect.DeepEqual(first.Metadata, want) {
		t.Errorf("metadata = %v, want %v", first.Metadata, want)
	}
}

func TestFromBibleJSON_SurfacesNonMatchingKeys(t *testing.T) {
	t.Parallel()

	data := []byte(`{"창1:1": "태초에", "intro": "머리말", "출1": "애굽"}`)
	docs, dropped, err := FromBibleJSON(context.Background(), data)
	if err != nil {
		t.Fatalf("FromBibleJSON: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	if !reflect.DeepEqual(dropped, []string{"intro", "출1"}) {
		t.Errorf("dropped = %v, want [intro 출1]", dropped)
	}
}

func TestFromBibleJSON_BadJSON(t *testing.T) {
	t.Parallel()

	if _, _, err := FromBibleJSON(context.Background(), []byte("{")); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestFromBibleJSON_SortedOutput(t *testing.T) {
	t.Parallel()

	data := []byte(`{"요3:16": "b", "창1:1": "a"}`)
	docs, _, err := FromBibleJSON(context.Background(), data)
	if err != nil {
		t.Fatalf("FromBibleJSON: %v", err)
	}
	if docs[0].Metadata[MetaReference] != "요3:16" || docs[1].Metadata[MetaReference] != "창1:1" {
		t.Errorf("documents not in sorted key order: %q, %q",
			docs[0].Metadata[MetaReference], docs[1].Metadata[MetaReference])
	}
}
