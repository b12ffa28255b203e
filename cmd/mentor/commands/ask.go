package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mentorhq/mentor-go/internal/chat"
	"github.com/mentorhq/mentor-go/internal/compose"
	"github.com/mentorhq/mentor-go/internal/logging"
	"github.com/mentorhq/mentor-go/internal/persona"
	"github.com/mentorhq/mentor-go/internal/provider"
)

// NewAskCmd constructs the `mentor ask` command, which sends a single
// question to a persona and prints the grounded answer to stdout.
func NewAskCmd() *cobra.Command {
	var personaName string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a persona a question",
		Long: fmt.Sprintf(`Ask a question and receive an answer in the persona's voice, grounded in
that persona's indexed corpus when relevant material is found.

Available personas: %s

Examples:
  mentor ask "믿음이 흔들릴 때 어떻게 해야 하나요?"
  mentor ask --persona nietzsche "what is the value of suffering?"
  mentor ask --persona bubryune "화가 날 때 어떻게 하나요?"`, strings.Join(persona.Names(), ", ")),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			retriever, _, closeStore, err := buildRetriever(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer closeStore()

			svc, err := chat.New(&chat.Config{
				Retriever: retriever,
				ChatModel: chatModel,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			answer, err := svc.Respond(ctx, personaName, "", strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(answer.Text)
			if answer.State == compose.StateFound && answer.Sources != "" {
				fmt.Println()
				fmt.Println(answer.Sources)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&personaName, "persona", "P", "", "Persona to answer as (default: "+persona.DefaultName+")")

	return cmd
}
