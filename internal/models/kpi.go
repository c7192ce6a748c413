package models

type RepeatCustomer struct {
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	MobileNumber string `json:"mobile_number"`
	Region       string `json:"region"`
	OrderCount   int64  `json:"order_count"`
}

type MonthlyTrend struct {
	Month       string `json:"month"` // YYYY-MM
	OrdersCount int64  `json:"orders_count"`
}

type RegionRevenue struct {
	Region string `json:"region"`
	// Revenue is the sum of order totals, rounded to cents.
	Revenue float64 `json:"revenue"`
}

type TopCustomer struct {
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	MobileNumber string `json:"mobile_number"`
	Region       string `json:"region"`
	// TotalSpend is the sum of order totals in the window, rounded to cents.
	TotalSpend float64 `json:"total_spend"`
}
