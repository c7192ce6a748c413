// Package kpi computes the four business KPIs over rolled-up orders. Two
// engines answer the same questions: one queries the relational store, the
// other recomputes from the canonical files. Filtering, rounding and ordering
// rules live here so both engines apply them identically.
package kpi

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/matthieukhl/orderpulse/internal/config"
	"github.com/matthieukhl/orderpulse/internal/errs"
	"github.com/matthieukhl/orderpulse/internal/models"
)

type Engine interface {
	RepeatCustomers(ctx context.Context) ([]models.RepeatCustomer, error)
	MonthlyOrderTrends(ctx context.Context) ([]models.MonthlyTrend, error)
	RegionalRevenue(ctx context.Context) ([]models.RegionRevenue, error)
	TopCustomers(ctx context.Context, params TopCustomersParams) ([]models.TopCustomer, error)
}

// TopCustomersParams are caller-supplied. Zero values take the engine defaults.
type TopCustomersParams struct {
	Limit    int    `form:"limit" json:"limit" binding:"omitempty,min=1"`
	Timezone string `form:"tz" json:"tz"`
}

// Options configure an engine.
type Options struct {
	// Location is the zone order timestamps are stored in and the default
	// zone "now" is taken in.
	Location   *time.Location
	TopLimit   int
	WindowDays int
	Now        func() time.Time
}

// OptionsFromConfig builds engine options from the kpi config section.
func OptionsFromConfig(cfg config.KPIConfig) (Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Options{}, err
	}
	return Options{Location: loc, TopLimit: cfg.TopLimit, WindowDays: cfg.WindowDays}, nil
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.TopLimit < 1 {
		o.TopLimit = 10
	}
	if o.WindowDays < 1 {
		o.WindowDays = 30
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// resolve validates params and fills in defaults.
func (o Options) resolve(params TopCustomersParams) (limit int, loc *time.Location, err error) {
	if params.Limit < 0 {
		return 0, nil, errs.Validation("limit must be a positive integer, got %d", params.Limit)
	}
	limit = params.Limit
	if limit == 0 {
		limit = o.TopLimit
	}

	loc = o.Location
	if params.Timezone != "" {
		loc, err = time.LoadLocation(params.Timezone)
		if err != nil {
			return 0, nil, errs.Validation("unknown timezone %q", params.Timezone)
		}
	}
	return limit, loc, nil
}

// WindowStart is the inclusive lower bound of the trailing window: now in loc,
// minus days calendar days, truncated to the second.
func WindowStart(now time.Time, loc *time.Location, days int) time.Time {
	return now.In(loc).AddDate(0, 0, -days).Truncate(time.Second)
}

// windowBound renders the trailing-window start as stored wall-clock text in
// the storage zone. Both engines compare against this string, so a cutoff
// inside a repeated DST hour lands on the same rows either way.
func (o Options) windowBound(loc *time.Location) string {
	return WindowStart(o.Now(), loc, o.WindowDays).In(o.Location).Format(models.TimestampLayout)
}

// money rounds to cents so float summation order cannot split the two engines.
func money(v float64) float64 {
	return math.Round(v*100) / 100
}

func sortRepeatCustomers(rows []models.RepeatCustomer) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].OrderCount != rows[j].OrderCount {
			return rows[i].OrderCount > rows[j].OrderCount
		}
		return rows[i].CustomerID < rows[j].CustomerID
	})
}

func sortMonthlyTrends(rows []models.MonthlyTrend) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Month < rows[j].Month
	})
}

func sortRegionalRevenue(rows []models.RegionRevenue) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Revenue != rows[j].Revenue {
			return rows[i].Revenue > rows[j].Revenue
		}
		return rows[i].Region < rows[j].Region
	})
}

func sortTopCustomers(rows []models.TopCustomer) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalSpend != rows[j].TotalSpend {
			return rows[i].TotalSpend > rows[j].TotalSpend
		}
		return rows[i].CustomerID < rows[j].CustomerID
	})
}

func truncate[T any](rows []T, limit int) []T {
	if len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
