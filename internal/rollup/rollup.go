// Package rollup collapses SKU-level order lines into one row per
// (order_id, customer_id). The same definition exists twice: Rollup for the
// in-memory path and Subquery for the SQL path. Change both together.
//
// Because total_amount repeats on every line of an order, the order total is
// the max over its lines, never the sum.
package rollup

import (
	"sort"

	"github.com/matthieukhl/orderpulse/internal/models"
)

// Subquery is the SQL form of Rollup over the orders table. customer_id is
// resolved at load time by the same mobile lookup CustomerIndex performs.
const Subquery = `SELECT
    o.order_id,
    o.customer_id,
    COALESCE(MAX(o.total_amount), 0) AS order_total,
    MAX(o.order_date_time) AS order_date_time
  FROM orders o
  GROUP BY o.order_id, o.customer_id`

// CustomerIndex resolves a normalized mobile number to its customer.
type CustomerIndex struct {
	byMobile map[string]models.Customer
	byID     map[string]models.Customer
}

// NewCustomerIndex indexes customers by mobile number. When several customers
// share a number the one with the greatest customer_id wins, matching the
// loader, which walks customers in customer_id order.
func NewCustomerIndex(customers []models.Customer) *CustomerIndex {
	sorted := append([]models.Customer(nil), customers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CustomerID < sorted[j].CustomerID
	})

	idx := &CustomerIndex{
		byMobile: make(map[string]models.Customer, len(sorted)),
		byID:     make(map[string]models.Customer, len(sorted)),
	}
	for _, c := range sorted {
		idx.byMobile[c.MobileNumber] = c
		idx.byID[c.CustomerID] = c
	}
	return idx
}

func (idx *CustomerIndex) ByMobile(mobile string) (models.Customer, bool) {
	c, ok := idx.byMobile[mobile]
	return c, ok
}

func (idx *CustomerIndex) ByID(id string) (models.Customer, bool) {
	c, ok := idx.byID[id]
	return c, ok
}

type groupKey struct {
	orderID     string
	customerID  string
	hasCustomer bool
}

// Rollup left-joins lines to customers by mobile number and groups by
// (order_id, customer_id). Groups come out in first-seen order, and region is
// taken from the first line of each group. Missing totals are ignored; a
// group with none totals 0.
func Rollup(lines []models.OrderLine, customers []models.Customer) []models.RolledUpOrder {
	return RollupIndexed(lines, NewCustomerIndex(customers))
}

func RollupIndexed(lines []models.OrderLine, idx *CustomerIndex) []models.RolledUpOrder {
	var (
		out      []models.RolledUpOrder
		hasTotal []bool
		where    = map[groupKey]int{}
	)

	for _, line := range lines {
		c, matched := idx.ByMobile(line.MobileNumber)
		key := groupKey{orderID: line.OrderID, customerID: c.CustomerID, hasCustomer: matched}

		i, ok := where[key]
		if !ok {
			i = len(out)
			where[key] = i
			out = append(out, models.RolledUpOrder{
				OrderID:     line.OrderID,
				CustomerID:  c.CustomerID,
				HasCustomer: matched,
				Region:      c.Region,
			})
			hasTotal = append(hasTotal, false)
		}

		g := &out[i]
		if line.TotalAmount.Valid && (!hasTotal[i] || line.TotalAmount.Float64 > g.OrderTotal) {
			g.OrderTotal = line.TotalAmount.Float64
			hasTotal[i] = true
		}
		if line.OrderDateTime.After(g.OrderDateTime) {
			g.OrderDateTime = line.OrderDateTime
		}
	}
	return out
}
