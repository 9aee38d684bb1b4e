package main

import (
	"github.com/spf13/cobra"

	"github.com/ledgerworks/conveyor/internal/runs"
)

var statsCommand = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate run counts by status and stage",
	RunE:  runStatsCmd,
}

func init() {
	rootCmd.AddCommand(statsCommand)
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var stats runs.Stats
	if err := newAPIClient().get(cmd.Context(), "/runs/stats", &stats); err != nil {
		return err
	}
	return printJSON(stats)
}
