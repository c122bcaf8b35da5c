package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/custingest/internal/config"
	"github.com/JonMunkholm/custingest/internal/logging"
)

// cliState is filled by the root command before any subcommand runs.
type cliState struct {
	envFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	st := &cliState{}
	cmd := &cobra.Command{
		Use:           "custingest",
		Short:         "Bulk customer CSV ingestion",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Overload(st.envFile); err != nil && cmd.Flags().Changed("env-file") {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// stdout is reserved for command output.
			slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))
			st.cfg = cfg
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&st.envFile, "env-file", ".env", "Environment file to load (optional)")

	cmd.AddCommand(newServeCmd(st))
	cmd.AddCommand(newImportCmd(st))
	return cmd
}
