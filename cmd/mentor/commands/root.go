// Package commands defines all Cobra CLI commands for the mentor binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/mentorhq/mentor-go/internal/audit"
	"github.com/mentorhq/mentor-go/internal/config"
	"github.com/mentorhq/mentor-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mentor",
		Short: "Ask questions of personas grounded in their own writings",
		Long: `Mentor answers questions in the voice of configured personas, grounding
each answer in that persona's indexed corpus (sermons, books, transcripts).

Source material is ingested with 'mentor ingest', questions are asked with
'mentor ask' or through the HTTP API started by 'mentor serve'. Every answer
reports its provenance: FOUND when grounded in the corpus, NOT_FOUND when the
persona fell back to general knowledge.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.mentor/config.yaml).
See 'mentor --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.mentor/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewServeCmd(),
		NewIngestCmd(),
		NewVersionCmd(),
	)

	return root
}
