// Package pipeline runs the cleaning job: staged uploads in, canonical files
// out. It is triggered in the background and reports only success or failure.
package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/matthieukhl/orderpulse/internal/canonical"
	"github.com/matthieukhl/orderpulse/internal/dataset"
	"github.com/matthieukhl/orderpulse/internal/errs"
	"github.com/matthieukhl/orderpulse/internal/normalize"
)

// Entity names a staged upload.
type Entity string

const (
	Customers Entity = "customers"
	Orders    Entity = "orders"
)

// stagedExts lists the accepted upload formats per entity, in lookup order.
var stagedExts = map[Entity][]string{
	Customers: {".csv", ".xlsx"},
	Orders:    {".xml", ".csv"},
}

// Result reports one cleaning run.
type Result struct {
	Customers     normalize.Stats `json:"customers"`
	Orders        normalize.Stats `json:"orders"`
	CustomerTotal int             `json:"customer_total"`
	OrderTotal    int             `json:"order_total"`
}

type Runner struct {
	fs        afero.Fs
	uploadDir string
	store     *canonical.Store
	loc       *time.Location
	log       *slog.Logger

	// serializes runs against the canonical files
	mu sync.Mutex
}

func NewRunner(fs afero.Fs, uploadDir string, store *canonical.Store, loc *time.Location, log *slog.Logger) *Runner {
	return &Runner{fs: fs, uploadDir: uploadDir, store: store, loc: loc, log: log}
}

// Accepts reports whether ext is a staging format for e.
func Accepts(e Entity, ext string) bool {
	for _, x := range stagedExts[e] {
		if strings.EqualFold(x, ext) {
			return true
		}
	}
	return false
}

// Stage saves an upload verbatim as <entity><ext> in the upload directory and
// removes any staged file of the same entity in another format.
func (r *Runner) Stage(e Entity, ext string, src io.Reader) (string, error) {
	ext = strings.ToLower(ext)
	if !Accepts(e, ext) {
		return "", errs.Validation("unsupported %s file type %q (want one of %v)", e, ext, stagedExts[e])
	}
	if err := r.fs.MkdirAll(r.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(r.uploadDir, string(e)+ext)
	f, err := r.fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	for _, other := range stagedExts[e] {
		if other == ext {
			continue
		}
		if err := r.fs.Remove(filepath.Join(r.uploadDir, string(e)+other)); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("remove stale upload: %w", err)
		}
	}
	return path, nil
}

// StagedFile finds the staged upload for e.
func (r *Runner) StagedFile(e Entity) (string, error) {
	for _, ext := range stagedExts[e] {
		path := filepath.Join(r.uploadDir, string(e)+ext)
		if ok, err := afero.Exists(r.fs, path); err != nil {
			return "", err
		} else if ok {
			return path, nil
		}
	}
	return "", errs.DataNotFound(fmt.Sprintf("upload the %s file first", e),
		"no staged %s file in %s", e, r.uploadDir)
}

// Clean cleans both staged uploads and merges them into the canonical files.
// Both batches are cleaned before either file is written.
func (r *Runner) Clean() (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res Result

	customersPath, err := r.StagedFile(Customers)
	if err != nil {
		return res, err
	}
	ordersPath, err := r.StagedFile(Orders)
	if err != nil {
		return res, err
	}

	rawCustomers, err := dataset.ReadFile(r.fs, customersPath)
	if err != nil {
		return res, errs.Transform(err, "read staged customers")
	}
	rawOrders, err := dataset.ReadFile(r.fs, ordersPath)
	if err != nil {
		return res, errs.Transform(err, "read staged orders")
	}

	customers, customerStats, err := normalize.CleanCustomers(rawCustomers)
	if err != nil {
		return res, err
	}
	orders, orderStats, err := normalize.CleanOrders(rawOrders, r.loc)
	if err != nil {
		return res, err
	}
	res.Customers, res.Orders = customerStats, orderStats

	if err := r.store.EnsureDir(); err != nil {
		return res, err
	}

	res.CustomerTotal, err = r.store.MergeAndPersist(
		dataset.CustomersTable(customers), r.store.CustomersPath(), canonical.CustomerKeys)
	if err != nil {
		return res, err
	}

	keys := canonical.OrderKeysNoSKU
	if orders.HasSKU {
		keys = canonical.OrderKeys
	}
	res.OrderTotal, err = r.store.MergeAndPersist(
		dataset.OrdersTable(orders.Lines, r.loc), r.store.OrdersPath(), keys)
	if err != nil {
		return res, err
	}
	return res, nil
}

// Run is the fire-and-forget entry point. Every failure, including a panic,
// ends in one error log line and a false return.
func (r *Runner) Run() (ok bool) {
	log := r.log.With("run_id", uuid.NewString())
	start := time.Now()
	log.Info("cleaning pipeline started", "upload_dir", r.uploadDir)

	defer func() {
		if p := recover(); p != nil {
			log.Error("cleaning pipeline failed", "error", errs.Transform(fmt.Errorf("panic: %v", p), "clean batch"))
			ok = false
		}
	}()

	res, err := r.Clean()
	if err != nil {
		log.Error("cleaning pipeline failed", "error", err, "kind", kindName(err))
		return false
	}

	log.Info("cleaning pipeline completed",
		"customers_in", res.Customers.Input,
		"customers_dropped", res.Customers.Invalid+res.Customers.Duplicates,
		"orders_in", res.Orders.Input,
		"orders_dropped", res.Orders.Invalid+res.Orders.Duplicates,
		"customer_total", res.CustomerTotal,
		"order_total", res.OrderTotal,
		"duration", time.Since(start))
	return true
}

func kindName(err error) string {
	if kind := errs.KindOf(err); kind != nil {
		return kind.Error()
	}
	return "unknown"
}
