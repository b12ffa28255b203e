package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mentorhq/mentor-go/internal/embedder"
	"github.com/mentorhq/mentor-go/internal/extract"
	"github.com/mentorhq/mentor-go/internal/ingestion"
	"github.com/mentorhq/mentor-go/internal/logging"
	"github.com/mentorhq/mentor-go/internal/persona"
)

// NewIngestCmd constructs the `mentor ingest` command, which extracts and
// indexes source material into a persona's vector collection.
func NewIngestCmd() *cobra.Command {
	var personaName string
	var path string
	var formatFlag string
	var author string
	var category string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest source material into a persona's vector collection",
		Long: fmt.Sprintf(`Extract, chunk, embed, and index source material for a persona.

Supported formats: hwp, pdf, bible-json, chaptered, transcript.
When --format is omitted the format is inferred from the file extension and,
for plain text, the file's structure. Explicit flags override inference.

Available personas: %s

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  MODEL_PROVIDER       Embedding backend: ollama, openai, azure (default: ollama)
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  mentor ingest --persona pastor-woonsung --path ./sermons
  mentor ingest --persona nietzsche --path ./beyond_good_and_evil.txt --format chaptered
  mentor ingest --persona pastor-yujin --path ./bible.json --format bible-json`,
			strings.Join(persona.Names(), ", ")),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if path == "" {
				return fmt.Errorf("ingest: --path is required")
			}

			p, err := persona.Get(personaName)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			format := extract.Format(formatFlag)
			if format == "" {
				format = ingestion.InferFormat(path)
				if format == "" {
					return fmt.Errorf("ingest: could not infer format for %s, pass --format", path)
				}
				log.Info("format inferred", slog.String("format", string(format)))
			}

			if err := embedder.ValidateForRAG(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}

			store, err := buildQdrantStore(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = store.Close() }()

			pipeline, err := ingestion.NewPipeline(emb, store, &ingestion.Config{
				ChunkSize:    getEnvInt("MENTOR_CHUNK_SIZE", 0),
				ChunkOverlap: getEnvInt("MENTOR_CHUNK_OVERLAP", 0),
				Extract: extract.Options{
					Author:   author,
					Category: category,
				},
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			log.Info("starting ingestion",
				slog.String("persona", p.Name),
				slog.String("collection", p.Collection),
				slog.String("path", path),
				slog.String("format", string(format)))

			result, err := pipeline.Ingest(ctx, p.Collection, path, format, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("ingest: pipeline failed: %w", err)
			}

			log.Info("ingestion complete",
				slog.Int("documents", result.Documents),
				slog.Int("chunks", result.Chunks),
				slog.Int("failed", result.Failed))
			return nil
		},
	}

	cmd.Flags().StringVarP(&personaName, "persona", "P", "", "Persona whose collection receives the material (default: "+persona.DefaultName+")")
	cmd.Flags().StringVar(&path, "path", "", "Source file or directory to ingest")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Source format (hwp, pdf, bible-json, chaptered, transcript)")
	cmd.Flags().StringVar(&author, "author", "", "Author label stored on every document")
	cmd.Flags().StringVar(&category, "category", "", "Category label stored on every document")

	return cmd
}
