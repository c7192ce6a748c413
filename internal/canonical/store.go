// Package canonical keeps the deduplicated snapshot of each entity as a CSV
// file. Files are read and rewritten wholesale on every merge.
//
// There is no locking: callers must serialize clean and load runs against the
// same directory (a single pipeline runner does this).
package canonical

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/matthieukhl/orderpulse/internal/dataset"
	"github.com/matthieukhl/orderpulse/internal/errs"
	"github.com/matthieukhl/orderpulse/internal/models"
)

const (
	CustomersFile = "customers_cleaned.csv"
	OrdersFile    = "orders_cleaned.csv"
)

const runCleanRemedy = "run the cleaning pipeline first"

var (
	CustomerKeys   = []string{"customer_id"}
	OrderKeys      = []string{"order_id", "sku_id"}
	OrderKeysNoSKU = []string{"order_id"}
)

type Store struct {
	fs  afero.Fs
	dir string
}

func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

func (s *Store) Fs() afero.Fs          { return s.fs }
func (s *Store) Dir() string           { return s.dir }
func (s *Store) CustomersPath() string { return filepath.Join(s.dir, CustomersFile) }
func (s *Store) OrdersPath() string    { return filepath.Join(s.dir, OrdersFile) }

// EnsureDir creates the canonical directory if needed.
func (s *Store) EnsureDir() error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create canonical dir: %w", err)
	}
	return nil
}

// CheckDir fails with a data-not-found error when the directory is absent.
func (s *Store) CheckDir() error {
	info, err := s.fs.Stat(s.dir)
	if err != nil || !info.IsDir() {
		return errs.DataNotFound(runCleanRemedy, "cleaned directory not found: %s", s.dir)
	}
	return nil
}

// ReadTable reads a canonical file, failing with a data-not-found error when
// it does not exist.
func (s *Store) ReadTable(path string) (*dataset.Table, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.DataNotFound(runCleanRemedy, "no cleaned file at %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := dataset.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// MergeAndPersist merges batch into the canonical file at path, keeping the
// last row seen for each key tuple, so the incoming version wins. The file is
// replaced with the complete merged snapshot. It returns the merged row count.
func (s *Store) MergeAndPersist(batch *dataset.Table, path string, keys []string) (int, error) {
	exists, err := afero.Exists(s.fs, path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}

	merged := batch
	if exists {
		prior, err := s.ReadTable(path)
		if err != nil {
			return 0, err
		}
		merged = concat(prior, batch)
	}

	if missing := merged.MissingColumns(keys...); len(missing) > 0 {
		return 0, errs.Schema("", "cannot dedupe %s: key columns %v absent", filepath.Base(path), missing)
	}
	merged = dedupeLast(merged, keys)

	if err := s.write(path, merged); err != nil {
		return 0, err
	}
	return merged.Len(), nil
}

// write replaces path through a temp file and rename.
func (s *Store) write(path string, t *dataset.Table) error {
	tmp, err := afero.TempFile(s.fs, filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()

	if err := dataset.WriteCSV(tmp, t); err != nil {
		tmp.Close()
		s.fs.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(name)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := s.fs.Rename(name, path); err != nil {
		s.fs.Remove(name)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Snapshot is the typed content of both canonical files.
type Snapshot struct {
	Customers []models.Customer
	Orders    []models.OrderLine
}

// Snapshot loads both canonical files. Order timestamps are read as
// wall-clock times in loc.
func (s *Store) Snapshot(loc *time.Location) (*Snapshot, error) {
	if err := s.CheckDir(); err != nil {
		return nil, err
	}
	customers, err := s.ReadTable(s.CustomersPath())
	if err != nil {
		return nil, err
	}
	orders, err := s.ReadTable(s.OrdersPath())
	if err != nil {
		return nil, err
	}
	lines, err := dataset.DecodeOrders(orders, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.OrdersPath(), err)
	}
	return &Snapshot{Customers: dataset.DecodeCustomers(customers), Orders: lines}, nil
}

// concat lays prior and next out under the union of their headers: prior's
// columns first, then any columns only next carries.
func concat(prior, next *dataset.Table) *dataset.Table {
	columns := append([]string(nil), prior.Columns...)
	for _, c := range next.Columns {
		if !prior.HasColumn(c) {
			columns = append(columns, c)
		}
	}
	out := dataset.NewTable(columns)
	out.Rows = append(prior.Project(columns), next.Project(columns)...)
	return out
}

// dedupeLast keeps, for each key tuple, only its last occurrence, at the
// position of that occurrence.
func dedupeLast(t *dataset.Table, keys []string) *dataset.Table {
	idx := make([]int, len(keys))
	for i, k := range keys {
		idx[i] = t.Index(k)
	}
	keyOf := func(row []string) string {
		parts := make([]string, len(idx))
		for i, p := range idx {
			parts[i] = row[p]
		}
		return fmt.Sprintf("%q", parts)
	}

	last := make(map[string]int, t.Len())
	for i, row := range t.Rows {
		last[keyOf(row)] = i
	}

	out := dataset.NewTable(t.Columns)
	for i, row := range t.Rows {
		if last[keyOf(row)] == i {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}
