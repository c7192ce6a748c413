package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "orderpulse",
	Short: "OrderPulse - customer/order cleaning pipeline and KPI engine",
	Long: `OrderPulse cleans uploaded customer and order files into a deduplicated
canonical dataset, loads that dataset into a relational store, and answers
business KPIs from either the store or the canonical files.

Run it as a server to expose the upload, cleaning, loading and KPI endpoints,
or use the CLI commands to drive each step directly.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml, ./deploy/config.yaml, ...)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
