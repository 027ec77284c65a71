package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/ozayn/signalmap/internal/db"
	"github.com/ozayn/signalmap/internal/observability"
	"github.com/ozayn/signalmap/internal/signals"
)

var (
	signalsStart string
	signalsEnd   string
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Fetch macro signal series",
}

var brentCmd = &cobra.Command{
	Use:   "brent",
	Short: "Brent crude daily prices (FRED)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printSeries(cmd.Context(), func(ctx context.Context, svc *signals.Service) (*signals.Series, error) {
			return svc.Brent(ctx, signalsStart, signalsEnd)
		})
	},
}

var usdTomanCmd = &cobra.Command{
	Use:   "usd-toman",
	Short: "USD to Iranian Toman, official history plus open-market spot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printSeries(cmd.Context(), func(ctx context.Context, svc *signals.Service) (*signals.Series, error) {
			return svc.USDToman(ctx, signalsStart, signalsEnd)
		})
	},
}

var oilPPPCmd = &cobra.Command{
	Use:   "oil-ppp <country>",
	Short: "Annual Brent prices in PPP-adjusted local currency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printSeries(cmd.Context(), func(ctx context.Context, svc *signals.Service) (*signals.Series, error) {
			return svc.OilPPP(ctx, args[0], signalsStart, signalsEnd)
		})
	},
}

func init() {
	signalsCmd.PersistentFlags().StringVar(&signalsStart, "start", "", "Earliest date (YYYY-MM-DD or YYYY)")
	signalsCmd.PersistentFlags().StringVar(&signalsEnd, "end", "", "Latest date (YYYY-MM-DD or YYYY)")
	signalsCmd.AddCommand(brentCmd, usdTomanCmd, oilPPPCmd)
	rootCmd.AddCommand(signalsCmd)
}

// printSeries fetches one series, using the database as a persistent cache
// when DATABASE_URL is set.
func printSeries(ctx context.Context, fetch func(context.Context, *signals.Service) (*signals.Series, error)) error {
	var store signals.Store
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		database, err := db.Connect(ctx, databaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		store = database
	}

	series, err := fetch(ctx, signals.NewService(store))
	if err != nil {
		return err
	}
	observability.NewPrinter(os.Stdout).PrintSeries(series)
	return nil
}
