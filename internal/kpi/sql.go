package kpi

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/matthieukhl/orderpulse/internal/database"
	"github.com/matthieukhl/orderpulse/internal/models"
	"github.com/matthieukhl/orderpulse/internal/rollup"
)

// SQLEngine answers KPIs from the relational store.
type SQLEngine struct {
	db   *database.DB
	opts Options
}

func NewSQLEngine(db *database.DB, opts Options) *SQLEngine {
	return &SQLEngine{db: db, opts: opts.withDefaults()}
}

// ready checks the store answers and carries both tables.
func (e *SQLEngine) ready(ctx context.Context) error {
	if err := e.db.HealthCheck(ctx); err != nil {
		return err
	}
	return e.db.RequireTables(ctx, database.RequiredTables...)
}

func (e *SQLEngine) query(ctx context.Context, name, query string, args ...any) (*sql.Rows, error) {
	rows, err := e.db.QueryContext(ctx, e.db.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	return rows, nil
}

const customerColumns = `c.customer_id,
    COALESCE(c.customer_name, ''),
    COALESCE(c.mobile_number, ''),
    COALESCE(c.region, '')`

const customerGroupBy = `c.customer_id, c.customer_name, c.mobile_number, c.region`

func (e *SQLEngine) RepeatCustomers(ctx context.Context) ([]models.RepeatCustomer, error) {
	if err := e.ready(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + customerColumns + `,
    COUNT(DISTINCT u.order_id) AS order_count
  FROM (` + rollup.Subquery + `) u
  JOIN customers c ON c.customer_id = u.customer_id
  GROUP BY ` + customerGroupBy + `
  HAVING COUNT(DISTINCT u.order_id) > 1
  ORDER BY order_count DESC, ` + e.db.Dialect.Bytewise("c.customer_id")

	rows, err := e.query(ctx, "repeat customers", query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.RepeatCustomer{}
	for rows.Next() {
		var r models.RepeatCustomer
		if err := rows.Scan(&r.CustomerID, &r.CustomerName, &r.MobileNumber, &r.Region, &r.OrderCount); err != nil {
			return nil, fmt.Errorf("scan repeat customer: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortRepeatCustomers(out)
	return out, nil
}

func (e *SQLEngine) MonthlyOrderTrends(ctx context.Context) ([]models.MonthlyTrend, error) {
	if err := e.ready(ctx); err != nil {
		return nil, err
	}

	month := e.db.Dialect.MonthExpr("u.order_date_time")
	query := `SELECT ` + month + ` AS month,
    COUNT(DISTINCT u.order_id) AS orders_count
  FROM (` + rollup.Subquery + `) u
  WHERE u.order_date_time IS NOT NULL
  GROUP BY ` + month + `
  ORDER BY month`

	rows, err := e.query(ctx, "monthly order trends", query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.MonthlyTrend{}
	for rows.Next() {
		var r models.MonthlyTrend
		if err := rows.Scan(&r.Month, &r.OrdersCount); err != nil {
			return nil, fmt.Errorf("scan monthly trend: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortMonthlyTrends(out)
	return out, nil
}

func (e *SQLEngine) RegionalRevenue(ctx context.Context) ([]models.RegionRevenue, error) {
	if err := e.ready(ctx); err != nil {
		return nil, err
	}

	region := `COALESCE(c.region, '')`
	query := `SELECT ` + region + ` AS region,
    SUM(u.order_total) AS revenue
  FROM (` + rollup.Subquery + `) u
  JOIN customers c ON c.customer_id = u.customer_id
  GROUP BY ` + region + `
  ORDER BY revenue DESC, ` + e.db.Dialect.Bytewise(region)

	rows, err := e.query(ctx, "regional revenue", query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.RegionRevenue{}
	for rows.Next() {
		var r models.RegionRevenue
		if err := rows.Scan(&r.Region, &r.Revenue); err != nil {
			return nil, fmt.Errorf("scan regional revenue: %w", err)
		}
		r.Revenue = money(r.Revenue)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortRegionalRevenue(out)
	return out, nil
}

// TopCustomers ranks customers by spend over the trailing window. The limit
// is applied after rounding so ties break the same way as the memory engine.
func (e *SQLEngine) TopCustomers(ctx context.Context, params TopCustomersParams) ([]models.TopCustomer, error) {
	limit, loc, err := e.opts.resolve(params)
	if err != nil {
		return nil, err
	}
	if err := e.ready(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + customerColumns + `,
    SUM(u.order_total) AS total_spend
  FROM (` + rollup.Subquery + `) u
  JOIN customers c ON c.customer_id = u.customer_id
  WHERE u.order_date_time >= ?
  GROUP BY ` + customerGroupBy + `
  ORDER BY total_spend DESC, ` + e.db.Dialect.Bytewise("c.customer_id")

	rows, err := e.query(ctx, "top customers", query, e.opts.windowBound(loc))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.TopCustomer{}
	for rows.Next() {
		var r models.TopCustomer
		if err := rows.Scan(&r.CustomerID, &r.CustomerName, &r.MobileNumber, &r.Region, &r.TotalSpend); err != nil {
			return nil, fmt.Errorf("scan top customer: %w", err)
		}
		r.TotalSpend = money(r.TotalSpend)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortTopCustomers(out)
	return truncate(out, limit), nil
}
