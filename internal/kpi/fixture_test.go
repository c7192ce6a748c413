package kpi

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/matthieukhl/orderpulse/internal/canonical"
	"github.com/matthieukhl/orderpulse/internal/database"
	"github.com/matthieukhl/orderpulse/internal/database/dbtest"
	"github.com/matthieukhl/orderpulse/internal/dataset"
	"github.com/matthieukhl/orderpulse/internal/ingest"
	"github.com/matthieukhl/orderpulse/internal/logging"
)

var (
	ist = time.FixedZone("IST", 5*3600+1800)
	now = time.Date(2025, 6, 15, 12, 0, 0, 0, ist)
)

// C0 and C4 share a number; C4 owns it. O5 matches no customer.
// O7 sits 30 days and 1 second before now, O8 29 days before.
var (
	fixtureCustomers = [][]string{
		{"C1", "Asha Rao", "911111111111", "North"},
		{"C2", "Ravi Kumar", "912222222222", "South"},
		{"C3", "Meera Iyer", "913333333333", "North"},
		{"C0", "Old Account", "914444444444", "West"},
		{"C4", "Dev Shah", "914444444444", "East"},
	}
	fixtureOrders = [][]string{
		{"O1", "911111111111", "2025-06-10 10:00:00", "S1", "1", "300"},
		{"O1", "911111111111", "2025-06-10 10:00:00", "S2", "2", "300"},
		{"O2", "911111111111", "2025-04-02 09:00:00", "S1", "1", "120"},
		{"O3", "912222222222", "2025-06-01 08:00:00", "S1", "1", "200.5"},
		{"O4", "913333333333", "2025-05-20 18:30:00", "S1", "1", ""},
		{"O4", "913333333333", "2025-05-20 18:30:00", "S2", "1", "50"},
		{"O5", "919999999999", "2025-06-05 09:00:00", "S1", "1", "999"},
		{"O6", "914444444444", "2025-05-10 12:00:00", "S1", "3", "75"},
		{"O7", "912222222222", "2025-05-16 11:59:59", "S1", "1", "10"},
		{"O8", "913333333333", "2025-05-17 12:00:00", "S1", "", "5"},
	}
)

func testOptions() Options {
	return Options{
		Location:   ist,
		TopLimit:   10,
		WindowDays: 30,
		Now:        func() time.Time { return now },
	}
}

func fixtureStore(t *testing.T) *canonical.Store {
	t.Helper()
	store := canonical.NewStore(afero.NewMemMapFs(), "/data/cleaned")
	require.NoError(t, store.EnsureDir())

	customers := dataset.NewTable(dataset.CustomerColumns)
	for _, r := range fixtureCustomers {
		customers.Append(r)
	}
	_, err := store.MergeAndPersist(customers, store.CustomersPath(), canonical.CustomerKeys)
	require.NoError(t, err)

	orders := dataset.NewTable(dataset.OrderColumns)
	for _, r := range fixtureOrders {
		orders.Append(r)
	}
	_, err = store.MergeAndPersist(orders, store.OrdersPath(), canonical.OrderKeys)
	require.NoError(t, err)
	return store
}

// loadedFixture returns the fixture store and a sqlite store loaded from it.
func loadedFixture(t *testing.T) (*canonical.Store, *database.DB) {
	t.Helper()
	store := fixtureStore(t)
	db := dbtest.NewWithSchema(t)
	_, err := ingest.NewLoader(db, store, ist, logging.Discard()).Run(context.Background())
	require.NoError(t, err)
	return store, db
}
