package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matthieukhl/orderpulse/internal/kpi"
)

var (
	kpiSource   string
	kpiLimit    int
	kpiTimezone string
)

var kpiNames = []string{"repeat-customers", "monthly-order-trends", "regional-revenue", "top-customers"}

var kpiCmd = &cobra.Command{
	Use:       "kpi <name>",
	Short:     "Compute a KPI and print it as JSON",
	Long:      `Compute one of repeat-customers, monthly-order-trends, regional-revenue or top-customers from the database (--source db) or from the canonical files (--source memory).`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: kpiNames,
	RunE:      runKPI,
}

func init() {
	rootCmd.AddCommand(kpiCmd)

	kpiCmd.Flags().StringVar(&kpiSource, "source", "db", "Where to compute from: db or memory")
	kpiCmd.Flags().IntVar(&kpiLimit, "limit", 0, "top-customers: number of customers (default kpi.top_limit)")
	kpiCmd.Flags().StringVar(&kpiTimezone, "tz", "", "top-customers: timezone for the trailing window (default kpi.timezone)")
}

func runKPI(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("limit") && kpiLimit < 1 {
		return fmt.Errorf("--limit must be at least 1")
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	var engine kpi.Engine
	switch kpiSource {
	case "db":
		db, err := a.openDB()
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		engine = kpi.NewSQLEngine(db, a.opts)
	case "memory":
		engine = kpi.NewMemoryEngine(a.store, a.opts)
	default:
		return fmt.Errorf("unknown --source %q (want db or memory)", kpiSource)
	}

	rows, err := computeKPI(cmd.Context(), engine, args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func computeKPI(ctx context.Context, engine kpi.Engine, name string) (any, error) {
	switch name {
	case "repeat-customers":
		return engine.RepeatCustomers(ctx)
	case "monthly-order-trends":
		return engine.MonthlyOrderTrends(ctx)
	case "regional-revenue":
		return engine.RegionalRevenue(ctx)
	case "top-customers":
		return engine.TopCustomers(ctx, kpi.TopCustomersParams{Limit: kpiLimit, Timezone: kpiTimezone})
	default:
		return nil, fmt.Errorf("unknown kpi %q", name)
	}
}
