package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ledgerworks/conveyor/internal/runs"
)

var retryCommand = &cobra.Command{
	Use:   "retry <run-id>",
	Short: "Reopen a failed run for a fresh attempt",
	Args:  cobra.ExactArgs(1),
	RunE:  runRetry,
}

func init() {
	rootCmd.AddCommand(retryCommand)
}

func runRetry(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}

	path := fmt.Sprintf("/runs/%s/retry", id)
	var run runs.Run
	if err := newAPIClient().post(cmd.Context(), path, nil, &run); err != nil {
		return err
	}
	return printJSON(run)
}
