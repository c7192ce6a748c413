package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/matthieukhl/orderpulse/internal/config"
	"github.com/matthieukhl/orderpulse/internal/errs"
)

type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open prepares a handle without touching the network, so callers can
// report an unreachable store as a distinct error later.
func Open(cfg *config.StoreConfig) (*DB, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

// NewConnection opens the store and verifies it answers.
func NewConnection(ctx context.Context, cfg *config.StoreConfig) (*DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	if err := db.HealthCheck(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// HealthCheck pings the store, classifying failure as a connectivity error.
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return errs.Connectivity(err, "check the store configuration and ensure the database is running")
	}
	return nil
}

// WithTx runs fn inside one transaction. Any error or panic from fn rolls
// everything back.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
