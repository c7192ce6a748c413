package database

import (
	"context"
	"fmt"

	"github.com/matthieukhl/orderpulse/internal/errs"
)

// RequiredTables must exist before loading or querying KPIs.
var RequiredTables = []string{"customers", "orders"}

const initSchemaRemedy = "run 'orderpulse init-db' to create tables"

// SetupSchema creates the customers and orders tables if they are absent.
func (db *DB) SetupSchema(ctx context.Context) error {
	for _, stmt := range db.Dialect.SchemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// DropSchema removes both tables, orders first for the foreign key.
func (db *DB) DropSchema(ctx context.Context) error {
	for _, stmt := range db.Dialect.DropStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	return nil
}

// RequireTables fails with a schema error naming every absent table.
func (db *DB) RequireTables(ctx context.Context, tables ...string) error {
	query := db.Dialect.Rebind(db.Dialect.TableExistsSQL())

	var missing []string
	for _, table := range tables {
		var n int
		if err := db.QueryRowContext(ctx, query, table).Scan(&n); err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if n == 0 {
			missing = append(missing, table)
		}
	}

	if len(missing) > 0 {
		return errs.Schema(initSchemaRemedy, "database tables not found: %v", missing)
	}
	return nil
}
