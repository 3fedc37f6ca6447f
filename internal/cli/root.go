package cli

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		adminPort  string
	)

	cmd := &cobra.Command{
		Use:          "quiz-service",
		Short:        "Timed classroom quiz: exam protocol, result board, chat and UDP notifications",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetFlags(log.LstdFlags | log.Lmicroseconds)
		},
	}

	// An empty port defers to server.port in the config file.
	cmd.PersistentFlags().StringVar(&adminPort, "port", os.Getenv("PORT"), "admin HTTP port (overrides server.port)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envOr("CONFIG_PATH", "config/config.yaml"), "path to YAML config")

	cmd.AddCommand(
		NewStartCmd(&configPath, &adminPort),
		NewMigrateCmd(&configPath),
		NewTriggerCmd(&configPath),
	)
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
