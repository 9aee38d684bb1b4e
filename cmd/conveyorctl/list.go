package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/ledgerworks/conveyor/internal/runs"
	"github.com/ledgerworks/conveyor/pkg/pagination"
)

var listCommand = &cobra.Command{
	Use:   "list",
	Short: "List pipeline runs",
	RunE:  runList,
}

var (
	listStatus   string
	listStage    string
	listDocument string
	listPage     int
	listPageSize int
)

func init() {
	listCommand.Flags().StringVar(&listStatus, "status", "", "Filter by run status")
	listCommand.Flags().StringVar(&listStage, "stage", "", "Filter by current stage")
	listCommand.Flags().StringVar(&listDocument, "document", "", "Filter by source document id")
	listCommand.Flags().IntVar(&listPage, "page", 0, "Page number")
	listCommand.Flags().IntVar(&listPageSize, "page-size", 0, "Page size")
	rootCmd.AddCommand(listCommand)
}

func runList(cmd *cobra.Command, _ []string) error {
	query := url.Values{}
	if listStatus != "" {
		query.Set("status", listStatus)
	}
	if listStage != "" {
		query.Set("stage", listStage)
	}
	if listDocument != "" {
		query.Set("documentId", listDocument)
	}
	if listPage > 0 {
		query.Set("page", fmt.Sprint(listPage))
	}
	if listPageSize > 0 {
		query.Set("pageSize", fmt.Sprint(listPageSize))
	}

	path := "/runs"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var result pagination.PageResult[runs.Run]
	if err := newAPIClient().get(cmd.Context(), path, &result); err != nil {
		return err
	}
	return printJSON(result)
}
