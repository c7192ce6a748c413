// Package normalize cleans one raw uploaded table into canonical rows.
//
// Two failure policies apply: a required column missing from the header
// fails the whole batch with a schema error, while a row with an empty
// required field or an unparsable timestamp is dropped silently.
package normalize

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/matthieukhl/orderpulse/internal/dataset"
	"github.com/matthieukhl/orderpulse/internal/errs"
	"github.com/matthieukhl/orderpulse/internal/models"
)

var (
	RequiredCustomerColumns = []string{"customer_id", "mobile_number"}
	RequiredOrderColumns    = []string{"order_id", "mobile_number", "order_date_time"}
)

// Layouts without a zone are read as wall-clock time in the batch location.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
}

// OrderBatch is a cleaned order batch. HasSKU reports whether the upload
// carried an sku_id column, which decides the dedupe key downstream.
type OrderBatch struct {
	Lines  []models.OrderLine
	HasSKU bool
}

// Stats counts what a clean call discarded.
type Stats struct {
	Input      int
	Invalid    int
	Duplicates int
}

// NormalizeMobile strips every non-digit character.
func NormalizeMobile(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// TitleCase trims s and title-cases each word.
func TitleCase(s string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(s))
}

// CleanCustomers validates and normalizes a raw customers table.
func CleanCustomers(t *dataset.Table) ([]models.Customer, Stats, error) {
	stats := Stats{Input: t.Len()}
	if missing := t.MissingColumns(RequiredCustomerColumns...); len(missing) > 0 {
		return nil, stats, errs.Schema("fix the customers file header", "customers file missing columns: %v", missing)
	}

	var out []models.Customer
	seen := map[string]bool{}
	for _, row := range t.Rows {
		c := models.Customer{
			CustomerID:   t.Get(row, "customer_id"),
			MobileNumber: NormalizeMobile(t.Get(row, "mobile_number")),
			CustomerName: TitleCase(t.Get(row, "customer_name")),
			Region:       TitleCase(t.Get(row, "region")),
		}
		if c.CustomerID == "" || c.MobileNumber == "" {
			stats.Invalid++
			continue
		}
		key := rowKey(dataset.EncodeCustomer(c))
		if seen[key] {
			stats.Duplicates++
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out, stats, nil
}

// CleanOrders validates and normalizes a raw orders table. Timestamps without
// an offset are interpreted in loc.
func CleanOrders(t *dataset.Table, loc *time.Location) (OrderBatch, Stats, error) {
	stats := Stats{Input: t.Len()}
	if missing := t.MissingColumns(RequiredOrderColumns...); len(missing) > 0 {
		return OrderBatch{}, stats, errs.Schema("fix the orders file structure", "orders file missing columns: %v", missing)
	}
	if loc == nil {
		return OrderBatch{}, stats, errs.Transform(nil, "no location for order timestamps")
	}

	batch := OrderBatch{HasSKU: t.HasColumn("sku_id")}
	seen := map[string]bool{}
	for _, row := range t.Rows {
		o := models.OrderLine{
			OrderID:      t.Get(row, "order_id"),
			MobileNumber: NormalizeMobile(t.Get(row, "mobile_number")),
			SKUID:        t.Get(row, "sku_id"),
			SKUCount:     parseCount(t.Get(row, "sku_count")),
			TotalAmount:  parseAmount(t.Get(row, "total_amount")),
		}
		ts, ok := ParseTimestamp(t.Get(row, "order_date_time"), loc)
		if o.OrderID == "" || o.MobileNumber == "" || !ok {
			stats.Invalid++
			continue
		}
		o.OrderDateTime = ts

		key := rowKey(dataset.EncodeOrder(o, loc))
		if seen[key] {
			stats.Duplicates++
			continue
		}
		seen[key] = true
		batch.Lines = append(batch.Lines, o)
	}
	return batch, stats, nil
}

// ParseTimestamp tries each known layout and returns the instant truncated to
// the second, expressed in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		ts, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return ts.In(loc).Truncate(time.Second), true
		}
	}
	return time.Time{}, false
}

func parseAmount(s string) sql.NullFloat64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

// parseCount accepts integers and whole floats such as "3.0".
func parseCount(s string) sql.NullInt64 {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return sql.NullInt64{Int64: n, Valid: true}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(f), Valid: true}
}

func rowKey(cells []string) string {
	return fmt.Sprintf("%q", cells)
}
