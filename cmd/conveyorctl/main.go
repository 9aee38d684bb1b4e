// Package main provides the conveyor command line client.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "conveyorctl",
	Short: "Conveyor pipeline client",
	Long:  "conveyorctl drives the conveyor API: upload documents, submit pipeline runs, watch their progress, and fetch extraction results.",
}

var apiAddr string

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "addr", "",
		"API base address (defaults to CONVEYOR_ADDR or http://localhost:8080/api)")
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
