// Package ingestion implements the document ingestion pipeline.
// It extracts documents from source files, chunks the content, embeds each
// chunk, and upserts the results into a persona's vector collection.
// This pipeline is invoked by the `mentor ingest` CLI command.
package ingestion

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/mentorhq/mentor-go/internal/chunker"
	"github.com/mentorhq/mentor-go/internal/extract"
	"github.com/mentorhq/mentor-go/internal/logging"
	"github.com/mentorhq/mentor-go/internal/rag"
)

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of runes per document chunk.
	// Defaults to chunker.DefaultChunkSize if zero.
	ChunkSize int

	// ChunkOverlap is the number of runes to overlap between consecutive
	// chunks. Defaults to chunker.DefaultChunkOverlap if zero.
	ChunkOverlap int

	// EmbedBatchSize is the maximum number of chunks sent to the embedder
	// in one call. Defaults to 64 if zero.
	EmbedBatchSize int

	// EmbedRateLimit caps embedding calls per second, protecting hosted
	// embedding APIs from burst traffic. Zero disables throttling.
	EmbedRateLimit rate.Limit

	// Extract controls source parsing (author, category, markers).
	Extract extract.Options
}

// Pipeline orchestrates the extract → chunk → embed → upsert flow for a
// persona's source material.
type Pipeline struct {
	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded chunks.
	store rag.VectorStore

	// cfg holds the resolved pipeline configuration.
	cfg *Config

	// limiter throttles embedding calls; nil when throttling is disabled.
	limiter *rate.Limiter
}

// Result summarises one ingestion run.
type Result struct {
	// Documents is the number of source documents extracted.
	Documents int
	// Chunks is the number of chunks upserted into the store.
	Chunks int
	// Failed is the number of source documents that could not be
	// embedded or stored.
	Failed int
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = chunker.DefaultChunkOverlap
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 64
	}

	var limiter *rate.Limiter
	if cfg.EmbedRateLimit > 0 {
		limiter = rate.NewLimiter(cfg.EmbedRateLimit, 1)
	}

	return &Pipeline{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		limiter:  limiter,
	}, nil
}

// Ingest extracts documents from path, chunks them, embeds each chunk, and
// upserts the results into the given collection. A document that fails to
// embed or store is counted in Result.Failed and skipped; the run continues.
// Progress is reported via the optional progress callback.
func (p *Pipeline) Ingest(ctx context.Context, collection, path string, format extract.Format, progress func(msg string)) (*Result, error) {
	if progress == nil {
		progress = func(string) {}
	}
	log := logging.FromContext(ctx)

	docs, err := extract.FromPath(ctx, format, path, p.cfg.Extract)
	if err != nil {
		return nil, fmt.Errorf("ingestion: extract failed for %s: %w", path, err)
	}
	progress(fmt.Sprintf("extracted %d documents from %s", len(docs), path))

	result := &Result{Documents: len(docs)}
	for _, doc := range docs {
		chunks := chunker.Split(doc.Text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
		if len(chunks) == 0 {
			continue
		}

		if err := p.ingestDocument(ctx, collection, doc, chunks); err != nil {
			result.Failed++
			log.Warn("ingestion: document skipped",
				slog.String("source", doc.Metadata[extract.MetaSource]),
				slog.String("error", err.Error()))
			continue
		}
		result.Chunks += len(chunks)
		progress(fmt.Sprintf("ingested %d chunks from %s", len(chunks), doc.Metadata[extract.MetaSource]))
	}

	log.Info("ingestion: run complete",
		slog.String("collection", collection),
		slog.Int("documents", result.Documents),
		slog.Int("chunks", result.Chunks),
		slog.Int("failed", result.Failed))
	return result, nil
}

// ingestDocument embeds and upserts one extracted document's chunks in
// batches of cfg.EmbedBatchSize.
func (p *Pipeline) ingestDocument(ctx context.Context, collection string, doc extract.Document, chunks []string) error {
	source := doc.Metadata[extract.MetaSource]

	for start := 0; start < len(chunks); start += p.cfg.EmbedBatchSize {
		end := start + p.cfg.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit wait: %w", err)
			}
		}

		embeddings, err := p.embedder.Embed(ctx, batch)
		if err != nil {
			return fmt.Errorf("embedding failed: %w", err)
		}

		points := make([]rag.Document, 0, len(batch))
		for i, chunk := range batch {
			meta := make(map[string]string, len(doc.Metadata)+1)
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			meta["chunk_index"] = strconv.Itoa(start + i)
			points = append(points, rag.Document{
				ID:       chunkID(source, start+i),
				Content:  chunk,
				Source:   source,
				Metadata: meta,
			})
		}

		if err := p.store.Upsert(ctx, collection, points, embeddings); err != nil {
			return fmt.Errorf("upsert failed: %w", err)
		}
	}
	return nil
}

// chunkID generates a deterministic ID for a document chunk based on its
// source name and chunk index, formatted as a UUID so vector stores that
// require UUID point IDs accept it. Re-ingesting the same material
// overwrites rather than duplicates.
func chunkID(source string, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", source, index)))
	return fmt.Sprintf("%x-%x-%x-%x-%x", h[0:4], h[4:6], h[6:8], h[8:10], h[10:16])
}
