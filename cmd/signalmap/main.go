// Package main provides the entry point for the signalmap server and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "signalmap",
	Short: "Archive archaeology and macro signal series",
	Long: `signalmap reconstructs social media follower history from Wayback Machine
captures and serves macroeconomic signal series (Brent crude, USD/Toman,
PPP-adjusted oil prices) over a REST API and CLI.`,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
