package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matthieukhl/orderpulse/internal/database"
)

var dropFirst bool

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the customers and orders tables",
	Long: `Creates the customers and orders tables if they do not exist. This is
the remedy named by schema errors from the loader and the KPI endpoints.`,
	RunE: initDB,
}

func init() {
	rootCmd.AddCommand(initDBCmd)

	initDBCmd.Flags().BoolVar(&dropFirst, "drop-first", false, "Drop existing tables before creating")
}

func initDB(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	fmt.Printf("🔧 Setting up %s database...\n", a.cfg.Store.Driver)
	db, err := database.NewConnection(cmd.Context(), &a.cfg.Store)
	if err != nil {
		return err
	}
	defer db.Close()

	if dropFirst {
		fmt.Println("🗑️  Dropping existing tables...")
		if err := db.DropSchema(cmd.Context()); err != nil {
			return err
		}
	}

	fmt.Println("📋 Creating schema...")
	if err := db.SetupSchema(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("✅ Database setup complete!")
	return nil
}
