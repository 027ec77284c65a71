package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ozayn/signalmap/internal/db"
	"github.com/ozayn/signalmap/internal/jobs"
	"github.com/ozayn/signalmap/internal/observability"
	"github.com/ozayn/signalmap/internal/wayback"
)

var (
	lookupFromYear     int
	lookupToYear       int
	lookupMaxSnapshots int
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <platform> <handle>",
	Short: "Resolve a profile's archived follower history",
	Long: `Query the Wayback Machine for captures of a social media profile and
extract follower counts from the archived pages. Results are cached in the
database when DATABASE_URL is set.

Example:
  signalmap lookup instagram nasa --from-year 2015 --to-year 2020`,
	Args: cobra.ExactArgs(2),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().IntVar(&lookupFromYear, "from-year", 0, "Earliest capture year")
	lookupCmd.Flags().IntVar(&lookupToYear, "to-year", 0, "Latest capture year")
	lookupCmd.Flags().IntVar(&lookupMaxSnapshots, "max-snapshots", jobs.DefaultMaxSnapshots, "Snapshot sample size")
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	platform, handle := args[0], args[1]
	profile, ok := wayback.ProfileFor(platform)
	if !ok {
		return fmt.Errorf("unsupported platform: %s (supported: %v)", platform, wayback.Platforms())
	}

	ctx := cmd.Context()

	var store jobs.Store
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		database, err := db.Connect(ctx, databaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		store = database
	}

	result, err := jobs.Lookup(ctx, store, wayback.NewClient(), wayback.NewFetcher(), profile, handle, jobs.LookupOptions{
		FromYear:     lookupFromYear,
		ToYear:       lookupToYear,
		MaxSnapshots: lookupMaxSnapshots,
	})
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintLookupResult(result)
	fmt.Println(result.Notes)
	return nil
}
