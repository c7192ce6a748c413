// Package ingest loads the canonical files into the relational store.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/matthieukhl/orderpulse/internal/canonical"
	"github.com/matthieukhl/orderpulse/internal/database"
	"github.com/matthieukhl/orderpulse/internal/dataset"
	"github.com/matthieukhl/orderpulse/internal/models"
)

// LoadSummary reports what one load wrote.
type LoadSummary struct {
	Customers int `json:"customers"`
	Orders    int `json:"orders"`
	Unmatched int `json:"unmatched_orders"`
}

type Loader struct {
	db    *database.DB
	store *canonical.Store
	loc   *time.Location
	log   *slog.Logger
}

// NewLoader wires a loader. loc is the zone canonical timestamps are written in.
func NewLoader(db *database.DB, store *canonical.Store, loc *time.Location, log *slog.Logger) *Loader {
	return &Loader{db: db, store: store, loc: loc, log: log}
}

// Run loads the store's canonical customers and orders files. Errors are
// returned as-is so the caller can map their kind to a response.
func (l *Loader) Run(ctx context.Context) (LoadSummary, error) {
	l.log.Info("running db loader", "dir", l.store.Dir())
	summary, err := l.Load(ctx, l.store.CustomersPath(), l.store.OrdersPath())
	if err != nil {
		l.log.Error("db loader failed", "error", err)
		return summary, err
	}
	l.log.Info("db loading completed",
		"customers", summary.Customers, "orders", summary.Orders, "unmatched_orders", summary.Unmatched)
	return summary, nil
}

// Load upserts customers then orders in a single transaction. Each
// precondition is checked before any write and fails with its own error kind.
func (l *Loader) Load(ctx context.Context, customersPath, ordersPath string) (LoadSummary, error) {
	var summary LoadSummary

	if err := l.store.CheckDir(); err != nil {
		return summary, err
	}
	if err := l.db.HealthCheck(ctx); err != nil {
		return summary, err
	}
	if err := l.db.RequireTables(ctx, database.RequiredTables...); err != nil {
		return summary, err
	}

	customerTable, err := l.store.ReadTable(customersPath)
	if err != nil {
		return summary, err
	}
	orderTable, err := l.store.ReadTable(ordersPath)
	if err != nil {
		return summary, err
	}
	customers := dataset.DecodeCustomers(customerTable)
	lines, err := dataset.DecodeOrders(orderTable, l.loc)
	if err != nil {
		return summary, fmt.Errorf("%s: %w", ordersPath, err)
	}

	err = l.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := l.upsertCustomers(ctx, tx, customers); err != nil {
			return err
		}
		summary.Customers = len(customers)

		byMobile, err := l.customerIDsByMobile(ctx, tx)
		if err != nil {
			return err
		}

		unmatched, err := l.upsertOrders(ctx, tx, lines, byMobile)
		if err != nil {
			return err
		}
		summary.Orders = len(lines)
		summary.Unmatched = unmatched
		return nil
	})
	if err != nil {
		return LoadSummary{}, err
	}
	return summary, nil
}

func (l *Loader) upsertCustomers(ctx context.Context, tx *sql.Tx, customers []models.Customer) error {
	stmt, err := tx.PrepareContext(ctx, l.db.Dialect.Rebind(l.db.Dialect.UpsertCustomerSQL()))
	if err != nil {
		return fmt.Errorf("prepare customer upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range customers {
		if _, err := stmt.ExecContext(ctx, c.CustomerID, c.CustomerName, c.MobileNumber, c.Region); err != nil {
			return fmt.Errorf("upsert customer %s: %w", c.CustomerID, err)
		}
	}
	return nil
}

// customerIDsByMobile reads the persisted customers after the upsert. Rows
// come in customer_id order so a shared number resolves to the greatest id,
// as rollup.CustomerIndex does.
func (l *Loader) customerIDsByMobile(ctx context.Context, tx *sql.Tx) (map[string]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT customer_id, COALESCE(mobile_number, '') FROM customers ORDER BY `+
		l.db.Dialect.Bytewise("customer_id"))
	if err != nil {
		return nil, fmt.Errorf("read customers: %w", err)
	}
	defer rows.Close()

	byMobile := map[string]string{}
	for rows.Next() {
		var id, mobile string
		if err := rows.Scan(&id, &mobile); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		byMobile[mobile] = id
	}
	return byMobile, rows.Err()
}

func (l *Loader) upsertOrders(ctx context.Context, tx *sql.Tx, lines []models.OrderLine, byMobile map[string]string) (int, error) {
	stmt, err := tx.PrepareContext(ctx, l.db.Dialect.Rebind(l.db.Dialect.UpsertOrderSQL()))
	if err != nil {
		return 0, fmt.Errorf("prepare order upsert: %w", err)
	}
	defer stmt.Close()

	unmatched := 0
	for _, o := range lines {
		var customerID sql.NullString
		if id, ok := byMobile[o.MobileNumber]; ok {
			customerID = sql.NullString{String: id, Valid: true}
		} else {
			unmatched++
		}

		_, err := stmt.ExecContext(ctx,
			o.OrderID,
			o.MobileNumber,
			o.OrderDateTime.In(l.loc).Format(models.TimestampLayout),
			o.SKUID,
			o.SKUCount,
			o.TotalAmount,
			customerID,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert order %s/%s: %w", o.OrderID, o.SKUID, err)
		}
	}
	return unmatched, nil
}
