// Package rag defines the interfaces for retrieval-augmented generation
// components: vector storage, document retrieval, and embedding.
// Concrete implementations (Qdrant, in-memory) satisfy these interfaces so
// the retrieval and composition layers never depend on a specific backend.
//
// Each persona's corpus lives in its own collection; every store operation
// takes the collection name explicitly.
package rag

import (
	"context"
)

// Document represents a unit of retrieved or stored knowledge.
type Document struct {
	// ID is the unique identifier for this document chunk.
	ID string

	// Content is the raw text content of the chunk.
	Content string

	// Source is the origin file name or record key of the chunk.
	Source string

	// Metadata holds arbitrary key-value pairs (title, author, full_ref, ...).
	Metadata map[string]string

	// Score is the similarity score assigned during retrieval (0.0–1.0).
	// Zero value means the score was not computed.
	Score float32
}

// VectorStore is the interface for persisting and searching document
// embeddings across named collections.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates a batch of documents with their pre-computed
	// embeddings in the named collection, creating it if needed. The
	// embeddings slice must be parallel to docs — embeddings[i] is the
	// vector for docs[i].
	Upsert(ctx context.Context, collection string, docs []Document, embeddings [][]float32) error

	// Search performs a semantic similarity search in the named collection
	// and returns the top-k most relevant documents for the query embedding.
	// Fewer than topK documents are returned when the collection is smaller.
	Search(ctx context.Context, collection string, queryEmbedding []float32, topK int) ([]Document, error)

	// Delete removes documents by their IDs from the named collection.
	Delete(ctx context.Context, collection string, ids []string) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the high-level interface used by the response layer to fetch
// relevant context for a query from one persona's collection.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns the top-k most relevant documents for the query.
	Retrieve(ctx context.Context, collection, query string, topK int) ([]Document, error)
}
