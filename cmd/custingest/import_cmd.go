package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/custingest/internal/application"
	"github.com/JonMunkholm/custingest/internal/core"
)

type importOutput struct {
	File       string             `json:"file"`
	DurationMS int64              `json:"duration_ms"`
	Summary    core.UploadSummary `json:"summary"`
	Error      string             `json:"error,omitempty"`
	Code       string             `json:"code,omitempty"`
}

func newImportCmd(st *cliState) *cobra.Command {
	var (
		file      string
		userID    string
		batchSize int
		workers   int
		policy    string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a local CSV file of customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *st.cfg
			if cmd.Flags().Changed("batch-size") {
				cfg.Upload.BatchSize = batchSize
			}
			if cmd.Flags().Changed("workers") {
				cfg.Upload.Workers = workers
			}
			if cmd.Flags().Changed("policy") {
				cfg.Upload.InsertPolicy = policy
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open %s: %w", file, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := application.Open(ctx, &cfg)
			if err != nil {
				f.Close()
				return err
			}
			defer app.Close()

			start := time.Now()
			summary, ingestErr := app.Coordinator.Ingest(ctx, f, userID)

			out := importOutput{
				File:       file,
				DurationMS: time.Since(start).Milliseconds(),
				Summary:    summary,
			}
			if ingestErr != nil {
				out.Error = core.FormatUserError(ingestErr)
				out.Code = core.MapError(ingestErr).Code
			}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			return ingestErr
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV file to import (required)")
	cmd.Flags().StringVar(&userID, "user", "", "Administrator user id the import runs as (required)")
	cmd.Flags().IntVar(&batchSize, "batch-size", core.DefaultBatchSize, "Rows per batch")
	cmd.Flags().IntVar(&workers, "workers", 1, "Concurrent batch workers")
	cmd.Flags().StringVar(&policy, "policy", string(core.PolicyBatch), "Insert failure policy (batch or per-row)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
