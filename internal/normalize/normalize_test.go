package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthieukhl/orderpulse/internal/dataset"
	"github.com/matthieukhl/orderpulse/internal/errs"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func table(columns []string, rows ...[]string) *dataset.Table {
	t := dataset.NewTable(columns)
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func TestNormalizeMobile(t *testing.T) {
	assert.Equal(t, "919876543210", NormalizeMobile("+91 98765-43210"))
	assert.Equal(t, NormalizeMobile("(91) 9876.543.210"), NormalizeMobile("+91-98765 43210"))
	assert.Equal(t, "", NormalizeMobile("n/a"))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "North East", TitleCase("  nORTH east "))
	assert.Equal(t, "", TitleCase("   "))
}

func TestCleanCustomersDropsInvalidRowsAndDuplicates(t *testing.T) {
	raw := table([]string{"customer_id", "customer_name", "mobile_number", "region"},
		[]string{"C1", " asha rao ", "+91 98765-43210", "north"},
		[]string{"C1", "Asha Rao", "919876543210", "North"}, // same after cleaning
		[]string{"", "nobody", "12345", "south"},
		[]string{"C2", "ravi", "", "west"},
		[]string{"C3", "meera", "98765 11111", " east "},
	)

	got, stats, err := CleanCustomers(raw)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "C1", got[0].CustomerID)
	assert.Equal(t, "Asha Rao", got[0].CustomerName)
	assert.Equal(t, "919876543210", got[0].MobileNumber)
	assert.Equal(t, "North", got[0].Region)
	assert.Equal(t, "East", got[1].Region)
	assert.Equal(t, Stats{Input: 5, Invalid: 2, Duplicates: 1}, stats)
}

func TestCleanCustomersMissingColumnIsSchemaError(t *testing.T) {
	raw := table([]string{"customer_id", "customer_name"}, []string{"C1", "x"})

	_, _, err := CleanCustomers(raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrSchema))
	assert.Contains(t, err.Error(), "mobile_number")
}

func TestCleanCustomersToleratesOptionalColumnsAbsent(t *testing.T) {
	raw := table([]string{"mobile_number", "customer_id"}, []string{"99999", "C9"})

	got, _, err := CleanCustomers(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].Region)
}

func TestCleanOrders(t *testing.T) {
	raw := table([]string{"order_id", "mobile_number", "order_date_time", "sku_id", "sku_count", "total_amount"},
		[]string{"O1", "+91 98765-43210", "2025-03-01 10:15:00", "S1", "2", "300"},
		[]string{"O1", "919876543210", "2025-03-01T10:15:00", "S1", "2", "300"}, // duplicate
		[]string{"O1", "919876543210", "2025-03-01 10:15:00", "S2", "abc", "oops"},
		[]string{"O2", "919876543210", "not a date", "S1", "1", "10"},
		[]string{"O3", "", "2025-03-02", "S1", "1", "10"},
		[]string{"O4", "1111", "2025-03-02T08:00:00Z", "S1", "3.0", "99.5"},
	)

	batch, stats, err := CleanOrders(raw, ist)
	require.NoError(t, err)

	assert.True(t, batch.HasSKU)
	require.Len(t, batch.Lines, 3)
	assert.Equal(t, Stats{Input: 6, Invalid: 2, Duplicates: 1}, stats)

	first := batch.Lines[0]
	assert.Equal(t, "919876543210", first.MobileNumber)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 15, 0, 0, ist).Unix(), first.OrderDateTime.Unix())

	// unparsable numerics are kept as missing, not dropped
	second := batch.Lines[1]
	assert.Equal(t, "S2", second.SKUID)
	assert.False(t, second.SKUCount.Valid)
	assert.False(t, second.TotalAmount.Valid)

	// an explicit offset is converted into the batch zone
	last := batch.Lines[2]
	assert.Equal(t, "2025-03-02 13:30:00", last.OrderDateTime.Format("2006-01-02 15:04:05"))
	assert.Equal(t, int64(3), last.SKUCount.Int64)
	assert.Equal(t, 99.5, last.TotalAmount.Float64)
}

func TestCleanOrdersWithoutSKUColumn(t *testing.T) {
	raw := table([]string{"order_id", "mobile_number", "order_date_time", "total_amount"},
		[]string{"O1", "123", "2025-01-01", "5"},
	)

	batch, _, err := CleanOrders(raw, ist)
	require.NoError(t, err)
	assert.False(t, batch.HasSKU)
	require.Len(t, batch.Lines, 1)
	assert.Equal(t, "", batch.Lines[0].SKUID)
}

func TestCleanOrdersMissingColumnIsSchemaError(t *testing.T) {
	raw := table([]string{"order_id", "mobile_number"}, []string{"O1", "1"})

	_, _, err := CleanOrders(raw, ist)
	assert.True(t, errors.Is(err, errs.ErrSchema))
}

func TestParseTimestampLayouts(t *testing.T) {
	for _, s := range []string{"2025-03-01", "2025/03/01 10:00", "2025-03-01T10:00:00+05:30", "2025-03-01 10:00:00.250"} {
		_, ok := ParseTimestamp(s, ist)
		assert.True(t, ok, s)
	}
	_, ok := ParseTimestamp("yesterday", ist)
	assert.False(t, ok)
}
