package database

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the SQL that differs between the supported stores. Queries
// are written with ? placeholders and passed through Rebind.
type Dialect interface {
	Name() string
	DriverName() string
	Rebind(query string) string
	// MonthExpr formats a timestamp column as YYYY-MM.
	MonthExpr(column string) string
	// Bytewise makes a text column sort by byte order, like Go string comparison.
	Bytewise(column string) string
	UpsertCustomerSQL() string
	UpsertOrderSQL() string
	// TableExistsSQL takes the table name and yields a count.
	TableExistsSQL() string
	SchemaStatements() []string
	DropStatements() []string
}

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "mysql":
		return mysqlDialect{}, nil
	case "sqlite":
		return sqliteDialect{}, nil
	case "postgres":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

const (
	insertCustomer = `INSERT INTO customers (customer_id, customer_name, mobile_number, region)
VALUES (?, ?, ?, ?)`
	insertOrder = `INSERT INTO orders (order_id, mobile_number, order_date_time, sku_id, sku_count, total_amount, customer_id)
VALUES (?, ?, ?, ?, ?, ?, ?)`
)

var dropStatements = []string{
	"DROP TABLE IF EXISTS orders",
	"DROP TABLE IF EXISTS customers",
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string               { return "mysql" }
func (mysqlDialect) DriverName() string         { return "mysql" }
func (mysqlDialect) Rebind(query string) string { return query }

func (mysqlDialect) MonthExpr(column string) string {
	return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-%%m')", column)
}

func (mysqlDialect) Bytewise(column string) string {
	return fmt.Sprintf("CAST(%s AS BINARY)", column)
}

func (mysqlDialect) UpsertCustomerSQL() string {
	return insertCustomer + `
ON DUPLICATE KEY UPDATE
    customer_name = VALUES(customer_name),
    mobile_number = VALUES(mobile_number),
    region = VALUES(region)`
}

func (mysqlDialect) UpsertOrderSQL() string {
	return insertOrder + `
ON DUPLICATE KEY UPDATE
    mobile_number = VALUES(mobile_number),
    order_date_time = VALUES(order_date_time),
    sku_count = VALUES(sku_count),
    total_amount = VALUES(total_amount),
    customer_id = VALUES(customer_id)`
}

func (mysqlDialect) TableExistsSQL() string {
	return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
}

func (mysqlDialect) SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS customers (
		    customer_id VARCHAR(50) PRIMARY KEY,
		    customer_name VARCHAR(255),
		    mobile_number VARCHAR(20),
		    region VARCHAR(100),
		    INDEX idx_customers_mobile (mobile_number)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS orders (
		    order_id VARCHAR(50) NOT NULL,
		    mobile_number VARCHAR(20),
		    order_date_time DATETIME,
		    sku_id VARCHAR(50) NOT NULL DEFAULT '',
		    sku_count INT NULL,
		    total_amount DOUBLE NULL,
		    customer_id VARCHAR(50) NULL,
		    UNIQUE KEY uix_order_sku (order_id, sku_id),
		    INDEX idx_orders_mobile (mobile_number),
		    INDEX idx_orders_customer (customer_id),
		    FOREIGN KEY (customer_id) REFERENCES customers(customer_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
}

func (mysqlDialect) DropStatements() []string { return dropStatements }

// sqlite and postgres share the ON CONFLICT upsert form.
const (
	conflictCustomer = `
ON CONFLICT (customer_id) DO UPDATE SET
    customer_name = excluded.customer_name,
    mobile_number = excluded.mobile_number,
    region = excluded.region`
	conflictOrder = `
ON CONFLICT (order_id, sku_id) DO UPDATE SET
    mobile_number = excluded.mobile_number,
    order_date_time = excluded.order_date_time,
    sku_count = excluded.sku_count,
    total_amount = excluded.total_amount,
    customer_id = excluded.customer_id`
)

type sqliteDialect struct{}

func (sqliteDialect) Name() string               { return "sqlite" }
func (sqliteDialect) DriverName() string         { return "sqlite" }
func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) MonthExpr(column string) string {
	return fmt.Sprintf("strftime('%%Y-%%m', %s)", column)
}

// sqlite's default collation is already BINARY.
func (sqliteDialect) Bytewise(column string) string { return column }

func (sqliteDialect) UpsertCustomerSQL() string { return insertCustomer + conflictCustomer }
func (sqliteDialect) UpsertOrderSQL() string    { return insertOrder + conflictOrder }

func (sqliteDialect) TableExistsSQL() string {
	return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
}

func (sqliteDialect) SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS customers (
		    customer_id TEXT PRIMARY KEY,
		    customer_name TEXT,
		    mobile_number TEXT,
		    region TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_mobile ON customers (mobile_number)`,
		`CREATE TABLE IF NOT EXISTS orders (
		    order_id TEXT NOT NULL,
		    mobile_number TEXT,
		    order_date_time TEXT,
		    sku_id TEXT NOT NULL DEFAULT '',
		    sku_count INTEGER,
		    total_amount REAL,
		    customer_id TEXT REFERENCES customers (customer_id),
		    UNIQUE (order_id, sku_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_mobile ON orders (mobile_number)`,
	}
}

func (sqliteDialect) DropStatements() []string { return dropStatements }

type postgresDialect struct{}

func (postgresDialect) Name() string       { return "postgres" }
func (postgresDialect) DriverName() string { return "pgx" }

// Rebind rewrites ? placeholders as $1, $2, ...
func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (postgresDialect) MonthExpr(column string) string {
	return fmt.Sprintf("to_char(%s, 'YYYY-MM')", column)
}

func (postgresDialect) Bytewise(column string) string {
	return fmt.Sprintf(`%s COLLATE "C"`, column)
}

func (postgresDialect) UpsertCustomerSQL() string { return insertCustomer + conflictCustomer }
func (postgresDialect) UpsertOrderSQL() string    { return insertOrder + conflictOrder }

func (postgresDialect) TableExistsSQL() string {
	return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?"
}

func (postgresDialect) SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS customers (
		    customer_id VARCHAR(50) PRIMARY KEY,
		    customer_name VARCHAR(255),
		    mobile_number VARCHAR(20),
		    region VARCHAR(100)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_mobile ON customers (mobile_number)`,
		`CREATE TABLE IF NOT EXISTS orders (
		    order_id VARCHAR(50) NOT NULL,
		    mobile_number VARCHAR(20),
		    order_date_time TIMESTAMP,
		    sku_id VARCHAR(50) NOT NULL DEFAULT '',
		    sku_count INTEGER,
		    total_amount DOUBLE PRECISION,
		    customer_id VARCHAR(50) REFERENCES customers (customer_id),
		    CONSTRAINT uix_order_sku UNIQUE (order_id, sku_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_mobile ON orders (mobile_number)`,
	}
}

func (postgresDialect) DropStatements() []string { return dropStatements }
