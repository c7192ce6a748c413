package models

import (
	"database/sql"
	"time"
)

// TimestampLayout is how order timestamps are written to canonical files and
// bound to the relational store: wall-clock time in the designated zone.
const TimestampLayout = "2006-01-02 15:04:05"

type Customer struct {
	CustomerID   string `json:"customer_id" db:"customer_id"`
	CustomerName string `json:"customer_name" db:"customer_name"`
	MobileNumber string `json:"mobile_number" db:"mobile_number"` // digits only
	Region       string `json:"region" db:"region"`
}

// OrderLine is one SKU row of an order. TotalAmount is the order total and
// repeats on every line of the same order.
type OrderLine struct {
	OrderID       string          `json:"order_id" db:"order_id"`
	MobileNumber  string          `json:"mobile_number" db:"mobile_number"`
	OrderDateTime time.Time       `json:"order_date_time" db:"order_date_time"`
	SKUID         string          `json:"sku_id" db:"sku_id"`
	SKUCount      sql.NullInt64   `json:"sku_count" db:"sku_count"`
	TotalAmount   sql.NullFloat64 `json:"total_amount" db:"total_amount"`
}

// RolledUpOrder is one row per (order_id, customer_id). It is derived on
// every read and never persisted.
type RolledUpOrder struct {
	OrderID       string
	CustomerID    string
	HasCustomer   bool
	Region        string
	OrderTotal    float64
	OrderDateTime time.Time
}
