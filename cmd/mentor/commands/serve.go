package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/mentorhq/mentor-go/internal/chat"
	"github.com/mentorhq/mentor-go/internal/logging"
	"github.com/mentorhq/mentor-go/internal/provider"
	"github.com/mentorhq/mentor-go/internal/server"
	"github.com/mentorhq/mentor-go/internal/store"
	"github.com/mentorhq/mentor-go/internal/tracing"
)

// NewServeCmd constructs the `mentor serve` command, which starts the HTTP
// server exposing the persona question-answering API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mentor HTTP server",
		Long: `Start the mentor HTTP server on localhost.

The server exposes POST /api/chat for persona questions, GET /api/health and
GET /api/ready for probes, and GET /metrics for Prometheus scraping.

Examples:
  mentor serve
  mentor serve --port 9090
  MODEL_PROVIDER=openai mentor serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", getEnvOrDefault("MODEL_PROVIDER", "ollama")))

			// Open conversation history store. MENTOR_HISTORY_DB overrides the
			// default path (~/.mentor/history.db). Set to "disabled" to disable.
			var historyStore store.ConversationStore
			dbPath := os.Getenv("MENTOR_HISTORY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = store.DefaultDBPath()
					if err != nil {
						log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					hs, hsErr := store.Open(dbPath)
					if hsErr != nil {
						log.Warn("history: failed to open store, disabling", slog.Any("error", hsErr))
					} else {
						historyStore = hs
						defer func() { _ = hs.Close() }()
						log.Info("history: store opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("history: disabled via MENTOR_HISTORY_DB=disabled")
			}

			retriever, qdrantStore, closeStore, err := buildRetriever(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer closeStore()

			svc, err := chat.New(&chat.Config{
				Retriever: retriever,
				ChatModel: chatModel,
				History:   historyStore,
			})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			pingers := []server.Pinger{
				server.NewLLMPinger(chatModel, getEnvOrDefault("MODEL_PROVIDER", "ollama")),
				server.NewQdrantPinger(qdrantStore.Client()),
			}

			srv, err := server.New(svc, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("MENTOR_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
