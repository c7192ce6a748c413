package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/matthieukhl/orderpulse/internal/canonical"
	"github.com/matthieukhl/orderpulse/internal/config"
	"github.com/matthieukhl/orderpulse/internal/database"
	"github.com/matthieukhl/orderpulse/internal/ingest"
	"github.com/matthieukhl/orderpulse/internal/kpi"
	"github.com/matthieukhl/orderpulse/internal/logging"
	"github.com/matthieukhl/orderpulse/internal/pipeline"
)

// app holds what every command builds from the config.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	loc   *time.Location
	opts  kpi.Options
	fs    afero.Fs
	store *canonical.Store
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	opts, err := kpi.OptionsFromConfig(cfg.KPI)
	if err != nil {
		return nil, err
	}

	fs := afero.NewOsFs()
	return &app{
		cfg:   cfg,
		log:   logging.New(cfg.Log),
		loc:   opts.Location,
		opts:  opts,
		fs:    fs,
		store: canonical.NewStore(fs, cfg.Data.CleanedDir),
	}, nil
}

// openDB returns a handle without pinging, so an unreachable store surfaces
// later as a classified connectivity error.
func (a *app) openDB() (*database.DB, error) {
	return database.Open(&a.cfg.Store)
}

func (a *app) runner() *pipeline.Runner {
	return pipeline.NewRunner(a.fs, a.cfg.Data.UploadDir, a.store, a.loc, a.log)
}

func (a *app) loader(db *database.DB) *ingest.Loader {
	return ingest.NewLoader(db, a.store, a.loc, a.log)
}
