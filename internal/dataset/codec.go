package dataset

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/matthieukhl/orderpulse/internal/models"
)

var (
	CustomerColumns = []string{"customer_id", "customer_name", "mobile_number", "region"}
	OrderColumns    = []string{"order_id", "mobile_number", "order_date_time", "sku_id", "sku_count", "total_amount"}
)

func EncodeCustomer(c models.Customer) []string {
	return []string{c.CustomerID, c.CustomerName, c.MobileNumber, c.Region}
}

// EncodeOrder renders o with its timestamp as wall-clock time in loc.
func EncodeOrder(o models.OrderLine, loc *time.Location) []string {
	return []string{
		o.OrderID,
		o.MobileNumber,
		o.OrderDateTime.In(loc).Format(models.TimestampLayout),
		o.SKUID,
		formatNullInt(o.SKUCount),
		formatNullFloat(o.TotalAmount),
	}
}

func CustomersTable(customers []models.Customer) *Table {
	t := NewTable(CustomerColumns)
	for _, c := range customers {
		t.Append(EncodeCustomer(c))
	}
	return t
}

func OrdersTable(lines []models.OrderLine, loc *time.Location) *Table {
	t := NewTable(OrderColumns)
	for _, o := range lines {
		t.Append(EncodeOrder(o, loc))
	}
	return t
}

// DecodeCustomers reads canonical customer rows.
func DecodeCustomers(t *Table) []models.Customer {
	out := make([]models.Customer, 0, t.Len())
	for _, row := range t.Rows {
		out = append(out, models.Customer{
			CustomerID:   t.Get(row, "customer_id"),
			CustomerName: t.Get(row, "customer_name"),
			MobileNumber: t.Get(row, "mobile_number"),
			Region:       t.Get(row, "region"),
		})
	}
	return out
}

// DecodeOrders reads canonical order rows whose timestamps are wall-clock
// times in loc.
func DecodeOrders(t *Table, loc *time.Location) ([]models.OrderLine, error) {
	out := make([]models.OrderLine, 0, t.Len())
	for i, row := range t.Rows {
		ts, err := time.ParseInLocation(models.TimestampLayout, t.Get(row, "order_date_time"), loc)
		if err != nil {
			return nil, fmt.Errorf("row %d: order_date_time: %w", i+1, err)
		}
		count, err := parseNullInt(t.Get(row, "sku_count"))
		if err != nil {
			return nil, fmt.Errorf("row %d: sku_count: %w", i+1, err)
		}
		total, err := parseNullFloat(t.Get(row, "total_amount"))
		if err != nil {
			return nil, fmt.Errorf("row %d: total_amount: %w", i+1, err)
		}
		out = append(out, models.OrderLine{
			OrderID:       t.Get(row, "order_id"),
			MobileNumber:  t.Get(row, "mobile_number"),
			OrderDateTime: ts,
			SKUID:         t.Get(row, "sku_id"),
			SKUCount:      count,
			TotalAmount:   total,
		})
	}
	return out, nil
}

func formatNullInt(v sql.NullInt64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.Int64, 10)
}

func formatNullFloat(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}

func parseNullInt(s string) (sql.NullInt64, error) {
	if s == "" {
		return sql.NullInt64{}, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: n, Valid: true}, nil
}

func parseNullFloat(s string) (sql.NullFloat64, error) {
	if s == "" {
		return sql.NullFloat64{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}, err
	}
	return sql.NullFloat64{Float64: f, Valid: true}, nil
}
