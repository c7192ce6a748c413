package kpi

import (
	"context"

	"github.com/matthieukhl/orderpulse/internal/canonical"
	"github.com/matthieukhl/orderpulse/internal/models"
	"github.com/matthieukhl/orderpulse/internal/rollup"
)

// MemoryEngine recomputes KPIs from the canonical files on every call.
type MemoryEngine struct {
	store *canonical.Store
	opts  Options
}

func NewMemoryEngine(store *canonical.Store, opts Options) *MemoryEngine {
	return &MemoryEngine{store: store, opts: opts.withDefaults()}
}

// rolled reads both canonical files and rolls the orders up.
func (e *MemoryEngine) rolled() ([]models.RolledUpOrder, *rollup.CustomerIndex, error) {
	snap, err := e.store.Snapshot(e.opts.Location)
	if err != nil {
		return nil, nil, err
	}
	idx := rollup.NewCustomerIndex(snap.Customers)
	return rollup.RollupIndexed(snap.Orders, idx), idx, nil
}

func (e *MemoryEngine) RepeatCustomers(ctx context.Context) ([]models.RepeatCustomer, error) {
	orders, idx, err := e.rolled()
	if err != nil {
		return nil, err
	}

	// rolled-up rows are unique per (order, customer), so a row count is a
	// distinct order count
	counts := map[string]int64{}
	for _, o := range orders {
		if o.HasCustomer {
			counts[o.CustomerID]++
		}
	}

	out := []models.RepeatCustomer{}
	for id, n := range counts {
		if n <= 1 {
			continue
		}
		c, _ := idx.ByID(id)
		out = append(out, models.RepeatCustomer{
			CustomerID:   c.CustomerID,
			CustomerName: c.CustomerName,
			MobileNumber: c.MobileNumber,
			Region:       c.Region,
			OrderCount:   n,
		})
	}

	sortRepeatCustomers(out)
	return out, nil
}

func (e *MemoryEngine) MonthlyOrderTrends(ctx context.Context) ([]models.MonthlyTrend, error) {
	orders, _, err := e.rolled()
	if err != nil {
		return nil, err
	}

	byMonth := map[string]map[string]struct{}{}
	for _, o := range orders {
		month := o.OrderDateTime.In(e.opts.Location).Format("2006-01")
		if byMonth[month] == nil {
			byMonth[month] = map[string]struct{}{}
		}
		byMonth[month][o.OrderID] = struct{}{}
	}

	out := make([]models.MonthlyTrend, 0, len(byMonth))
	for month, ids := range byMonth {
		out = append(out, models.MonthlyTrend{Month: month, OrdersCount: int64(len(ids))})
	}

	sortMonthlyTrends(out)
	return out, nil
}

func (e *MemoryEngine) RegionalRevenue(ctx context.Context) ([]models.RegionRevenue, error) {
	orders, _, err := e.rolled()
	if err != nil {
		return nil, err
	}

	revenue := map[string]float64{}
	for _, o := range orders {
		if o.HasCustomer {
			revenue[o.Region] += o.OrderTotal
		}
	}

	out := make([]models.RegionRevenue, 0, len(revenue))
	for region, total := range revenue {
		out = append(out, models.RegionRevenue{Region: region, Revenue: money(total)})
	}

	sortRegionalRevenue(out)
	return out, nil
}

func (e *MemoryEngine) TopCustomers(ctx context.Context, params TopCustomersParams) ([]models.TopCustomer, error) {
	limit, loc, err := e.opts.resolve(params)
	if err != nil {
		return nil, err
	}
	orders, idx, err := e.rolled()
	if err != nil {
		return nil, err
	}

	bound := e.opts.windowBound(loc)
	spend := map[string]float64{}
	for _, o := range orders {
		if o.HasCustomer && o.OrderDateTime.In(e.opts.Location).Format(models.TimestampLayout) >= bound {
			spend[o.CustomerID] += o.OrderTotal
		}
	}

	out := make([]models.TopCustomer, 0, len(spend))
	for id, total := range spend {
		c, _ := idx.ByID(id)
		out = append(out, models.TopCustomer{
			CustomerID:   c.CustomerID,
			CustomerName: c.CustomerName,
			MobileNumber: c.MobileNumber,
			Region:       c.Region,
			TotalSpend:   money(total),
		})
	}

	sortTopCustomers(out)
	return truncate(out, limit), nil
}
