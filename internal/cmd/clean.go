package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean the staged uploads into the canonical files",
	Long: `Read the staged customers and orders uploads, normalize and deduplicate
them, and merge the result into the canonical files. Unlike the /clean
endpoint, failures are reported with their cause.`,
	RunE: cleanStaged,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func cleanStaged(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	fmt.Printf("🧹 Cleaning uploads from %s...\n", a.cfg.Data.UploadDir)
	res, err := a.runner().Clean()
	if err != nil {
		return fmt.Errorf("cleaning failed: %w", err)
	}

	fmt.Printf("   👥 customers: %d read, %d invalid, %d duplicate -> %d canonical\n",
		res.Customers.Input, res.Customers.Invalid, res.Customers.Duplicates, res.CustomerTotal)
	fmt.Printf("   📦 orders: %d read, %d invalid, %d duplicate -> %d canonical\n",
		res.Orders.Input, res.Orders.Invalid, res.Orders.Duplicates, res.OrderTotal)
	fmt.Printf("✅ Canonical files written to %s\n", a.store.Dir())
	return nil
}
