package main

import (
	"github.com/spf13/cobra"

	"github.com/ledgerworks/conveyor/internal/documents"
)

var uploadCommand = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a document, deduplicating by content hash",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCommand)
}

func runUpload(cmd *cobra.Command, args []string) error {
	var resolution documents.Resolution
	if err := newAPIClient().upload(cmd.Context(), "/documents/upload", args[0], &resolution); err != nil {
		return err
	}
	return printJSON(resolution)
}
