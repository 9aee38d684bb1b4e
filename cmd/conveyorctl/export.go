package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ledgerworks/conveyor/internal/runs"
)

var exportCommand = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Download the rendered workbook for a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var exportOutput string

func init() {
	exportCommand.Flags().StringVarP(&exportOutput, "output", "o", "",
		"Destination file (defaults to the server-assigned workbook name)")
	rootCmd.AddCommand(exportCommand)
}

func runExport(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}

	dest := exportOutput
	if dest == "" {
		dest = runs.ExportFileName(id)
	}

	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer file.Close()

	path := fmt.Sprintf("/runs/%s/export", id)
	if err := newAPIClient().download(cmd.Context(), path, file); err != nil {
		os.Remove(dest)
		return err
	}

	fmt.Printf("workbook written to %s\n", dest)
	return nil
}
