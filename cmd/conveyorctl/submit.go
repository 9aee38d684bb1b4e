package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ledgerworks/conveyor/internal/runs"
)

var submitCommand = &cobra.Command{
	Use:   "submit <document-id>",
	Short: "Submit a document for pipeline processing",
	Long:  "Submits a document to the extraction pipeline. Resubmitting a document resolves to its existing run.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCommand)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	documentID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", args[0], err)
	}

	var run runs.Run
	request := runs.SubmitRequest{DocumentID: documentID}
	if err := newAPIClient().post(cmd.Context(), "/runs", request, &run); err != nil {
		return err
	}
	return printJSON(run)
}
