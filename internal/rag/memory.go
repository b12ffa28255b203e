package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-memory VectorStore using brute-force cosine
// similarity. It backs local mode and tests; it is not meant for large
// corpora.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]memoryPoint
}

type memoryPoint struct {
	doc    Document
	vector []float32
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]memoryPoint)}
}

// Upsert stores documents and their embeddings in the named collection,
// replacing any existing points with the same IDs.
func (s *MemoryStore) Upsert(_ context.Context, collection string, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("rag: %d documents but %d embeddings", len(docs), len(embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	points := s.collections[collection]
	if points == nil {
		points = make(map[string]memoryPoint)
		s.collections[collection] = points
	}
	for i, doc := range docs {
		vec := make([]float32, len(embeddings[i]))
		copy(vec, embeddings[i])
		points[doc.ID] = memoryPoint{doc: doc, vector: vec}
	}
	return nil
}

// Search returns the topK documents closest to the query embedding by
// cosine similarity. A missing collection or a topK larger than the
// collection yields fewer (possibly zero) results, never an error.
func (s *MemoryStore) Search(_ context.Context, collection string, queryEmbedding []float32, topK int) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.collections[collection]
	scored := make([]Document, 0, len(points))
	for _, p := range points {
		doc := p.doc
		doc.Score = cosineSimilarity(queryEmbedding, p.vector)
		scored = append(scored, doc)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

// Delete removes the given IDs from the named collection. Unknown IDs are
// ignored.
func (s *MemoryStore) Delete(_ context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	points := s.collections[collection]
	for _, id := range ids {
		delete(points, id)
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// Count reports the number of points in the named collection.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func cosineSimilarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

