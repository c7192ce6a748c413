package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matthieukhl/orderpulse/internal/kpi"
	"github.com/matthieukhl/orderpulse/internal/server"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the OrderPulse server",
	Long: `Start the OrderPulse server which provides:
- upload endpoints for the customers and orders files
- triggers for the cleaning pipeline and the database loader
- KPI endpoints backed by the database or the canonical files`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	fmt.Println("🚀 OrderPulse Starting...")

	a, err := newApp()
	if err != nil {
		return err
	}

	db, err := a.openDB()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if a.cfg.Server.InitSchema {
		fmt.Println("📋 Creating tables...")
		if err := db.SetupSchema(cmd.Context()); err != nil {
			return fmt.Errorf("failed to set up schema: %w", err)
		}
	}

	srv := server.NewServer(server.Deps{
		DB:      db,
		Runner:  a.runner(),
		Loader:  a.loader(db),
		SQL:     kpi.NewSQLEngine(db, a.opts),
		Memory:  kpi.NewMemoryEngine(a.store, a.opts),
		Log:     a.log,
		Origins: a.cfg.Server.AllowedOrigins,
	})

	fmt.Printf("🌐 Starting server on %s...\n", a.cfg.Server.Addr)
	if err := srv.Start(a.cfg.Server.Addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
