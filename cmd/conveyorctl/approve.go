package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ledgerworks/conveyor/pipeline"
)

var approveCommand = &cobra.Command{
	Use:   "approve <run-id>",
	Short: "Approve a suspended run",
	Long:  "Approves a run waiting on review, optionally patching header fields before export.",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprove,
}

var (
	approveBy      string
	approveNote    string
	approvePatches []string
)

func init() {
	approveCommand.Flags().StringVar(&approveBy, "by", "", "Reviewer identity (required)")
	approveCommand.Flags().StringVar(&approveNote, "note", "", "Reviewer note")
	approveCommand.Flags().StringArrayVar(&approvePatches, "patch", nil,
		"Header field override as field=value (repeatable)")
	approveCommand.MarkFlagRequired("by")
	rootCmd.AddCommand(approveCommand)
}

func runApprove(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}

	decision := pipeline.ReviewDecision{
		ApprovedBy: approveBy,
		Note:       approveNote,
	}

	for _, patch := range approvePatches {
		field, value, ok := strings.Cut(patch, "=")
		if !ok || field == "" {
			return fmt.Errorf("invalid patch %q: expected field=value", patch)
		}
		if decision.HeaderPatch == nil {
			decision.HeaderPatch = make(map[string]string)
		}
		decision.HeaderPatch[field] = value
	}

	path := fmt.Sprintf("/runs/%s/approve", id)
	var response map[string]string
	if err := newAPIClient().post(cmd.Context(), path, decision, &response); err != nil {
		return err
	}
	return printJSON(response)
}
