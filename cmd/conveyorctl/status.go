package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ledgerworks/conveyor/pipeline"
)

var statusCommand = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show run progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var statusWatch bool

func init() {
	statusCommand.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Poll until the run settles")
	rootCmd.AddCommand(statusCommand)
}

func runStatus(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}

	client := newAPIClient()
	path := fmt.Sprintf("/runs/%s/status", id)

	var progress pipeline.Progress
	if err := client.get(cmd.Context(), path, &progress); err != nil {
		return err
	}

	if !statusWatch {
		return printJSON(progress)
	}

	for {
		fmt.Printf("%-10s %-10s chunks=%d failed=%d review=%v\n",
			progress.Status, progress.Stage,
			progress.ChunkCount, progress.FailedChunks, progress.NeedsReview,
		)
		if progress.Status.Terminal() {
			return printJSON(progress)
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(2 * time.Second):
		}

		if err := client.get(cmd.Context(), path, &progress); err != nil {
			return err
		}
	}
}
