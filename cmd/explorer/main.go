package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pathways-lab/scenario-explorer/internal/logger"
)

var (
	configPath string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "explorer",
	Short: "Scenario explorer - chart tables over energy-model result archives",
	Long: `Scenario explorer loads the result archives of one or more model runs,
merges them into a single result set and arranges chart-ready tables from it.

Use "serve" to run the HTTP query API, or the one-shot commands to inspect
results, render a single chart, export every chart or compute net-zero years.`,
	// Don't show usage when there's an error
	SilenceUsage: true,
	// Don't show errors (we'll handle them ourselves)
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal; anything else is worth stopping for.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		slog.SetDefault(logger.New(verbose))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "explorer.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, arrangeCmd, variablesCmd, exportCmd, netzeroCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
