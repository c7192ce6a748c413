package canonical

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthieukhl/orderpulse/internal/dataset"
	"github.com/matthieukhl/orderpulse/internal/errs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(afero.NewMemMapFs(), "/data/cleaned")
	require.NoError(t, s.EnsureDir())
	return s
}

func customers(rows ...[]string) *dataset.Table {
	t := dataset.NewTable(dataset.CustomerColumns)
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func TestMergeAndPersistCreatesFile(t *testing.T) {
	s := newTestStore(t)

	n, err := s.MergeAndPersist(customers([]string{"C1", "Asha", "1", "North"}), s.CustomersPath(), CustomerKeys)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.ReadTable(s.CustomersPath())
	require.NoError(t, err)
	assert.Equal(t, dataset.CustomerColumns, got.Columns)
}

func TestMergeAndPersistIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	batch := customers(
		[]string{"C1", "Asha", "1", "North"},
		[]string{"C2", "Ravi", "2", "South"},
	)

	first, err := s.MergeAndPersist(batch, s.CustomersPath(), CustomerKeys)
	require.NoError(t, err)
	second, err := s.MergeAndPersist(batch, s.CustomersPath(), CustomerKeys)
	require.NoError(t, err)

	assert.Equal(t, 2, first)
	assert.Equal(t, first, second)
}

func TestMergeAndPersistLatestVersionWins(t *testing.T) {
	s := newTestStore(t)

	_, err := s.MergeAndPersist(customers(
		[]string{"C1", "Asha", "1", "North"},
		[]string{"C2", "Ravi", "2", "South"},
	), s.CustomersPath(), CustomerKeys)
	require.NoError(t, err)

	n, err := s.MergeAndPersist(customers([]string{"C1", "Asha", "1", "West"}), s.CustomersPath(), CustomerKeys)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.ReadTable(s.CustomersPath())
	require.NoError(t, err)
	decoded := dataset.DecodeCustomers(got)
	require.Len(t, decoded, 2)
	assert.Equal(t, "C2", decoded[0].CustomerID)
	assert.Equal(t, "C1", decoded[1].CustomerID)
	assert.Equal(t, "West", decoded[1].Region)
}

func TestMergeAndPersistCompositeKey(t *testing.T) {
	s := newTestStore(t)
	loc := time.UTC
	orders := func(rows ...[]string) *dataset.Table {
		tbl := dataset.NewTable(dataset.OrderColumns)
		for _, r := range rows {
			tbl.Append(r)
		}
		return tbl
	}

	_, err := s.MergeAndPersist(orders(
		[]string{"O1", "1", "2025-01-01 10:00:00", "S1", "1", "300"},
		[]string{"O1", "1", "2025-01-01 10:00:00", "S2", "1", "300"},
	), s.OrdersPath(), OrderKeys)
	require.NoError(t, err)

	n, err := s.MergeAndPersist(orders(
		[]string{"O1", "1", "2025-01-01 10:00:00", "S2", "4", "300"},
		[]string{"O2", "1", "2025-01-02 10:00:00", "S1", "1", "50"},
	), s.OrdersPath(), OrderKeys)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	tbl, err := s.ReadTable(s.OrdersPath())
	require.NoError(t, err)
	lines, err := dataset.DecodeOrders(tbl, loc)
	require.NoError(t, err)
	assert.Equal(t, int64(4), lines[1].SKUCount.Int64)
}

func TestMergeAndPersistUnionsHeaders(t *testing.T) {
	s := newTestStore(t)
	path := s.Dir() + "/extra.csv"

	old := dataset.NewTable([]string{"customer_id", "region"})
	old.Append([]string{"C1", "North"})
	_, err := s.MergeAndPersist(old, path, CustomerKeys)
	require.NoError(t, err)

	next := dataset.NewTable([]string{"customer_id", "tier"})
	next.Append([]string{"C2", "gold"})
	n, err := s.MergeAndPersist(next, path, CustomerKeys)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"customer_id", "region", "tier"}, got.Columns)
	assert.Equal(t, []string{"C1", "North", ""}, got.Rows[0])
	assert.Equal(t, []string{"C2", "", "gold"}, got.Rows[1])
}

func TestMergeAndPersistMissingKeyColumn(t *testing.T) {
	s := newTestStore(t)
	tbl := dataset.NewTable([]string{"name"})
	tbl.Append([]string{"x"})

	_, err := s.MergeAndPersist(tbl, s.CustomersPath(), CustomerKeys)
	assert.True(t, errors.Is(err, errs.ErrSchema))
}

func TestSnapshotMissingFiles(t *testing.T) {
	s := NewStore(afero.NewMemMapFs(), "/nowhere")
	_, err := s.Snapshot(time.UTC)
	assert.True(t, errors.Is(err, errs.ErrDataNotFound))

	s = newTestStore(t)
	_, err = s.MergeAndPersist(customers([]string{"C1", "A", "1", "N"}), s.CustomersPath(), CustomerKeys)
	require.NoError(t, err)
	_, err = s.Snapshot(time.UTC)
	assert.True(t, errors.Is(err, errs.ErrDataNotFound))
}
