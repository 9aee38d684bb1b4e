package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var cancelCommand = &cobra.Command{
	Use:   "cancel <run-id>",
	Short: "Cancel a run before it settles",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCommand)
}

func runCancel(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}

	path := fmt.Sprintf("/runs/%s/cancel", id)
	var response map[string]string
	if err := newAPIClient().post(cmd.Context(), path, nil, &response); err != nil {
		return err
	}
	return printJSON(response)
}
