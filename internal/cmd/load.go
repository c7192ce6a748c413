package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Upsert the canonical files into the database",
	RunE:  loadCanonical,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func loadCanonical(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	db, err := a.openDB()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	fmt.Println("🔄 Loading canonical files into the database...")
	summary, err := a.loader(db).Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("✅ Loaded %d customers and %d order lines (%d without a matching customer)\n",
		summary.Customers, summary.Orders, summary.Unmatched)
	return nil
}
