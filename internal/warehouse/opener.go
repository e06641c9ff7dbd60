package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq" // PostgreSQL / Redshift driver
	"github.com/snowflakedb/gosnowflake"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ignite/audience-sizer/internal/config"
	"github.com/ignite/audience-sizer/internal/pkg/logger"
)

// DB is the slice of *sql.DB the services use.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	Close() error
}

// Opener opens a database handle for the duration of one request.
// Callers must Close the returned handle.
type Opener interface {
	Open(ctx context.Context) (DB, error)
	Dialect() Dialect
}

// DSNOpener opens single-connection handles from a DSN. Nothing is pooled
// across calls: each Open dials, and Close hangs up.
type DSNOpener struct {
	dialect Dialect
	dsn     string
	attach  map[string]string
}

// New builds an opener for the configured warehouse.
func New(cfg config.WarehouseConfig) (*DSNOpener, error) {
	d, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := BuildDSN(cfg)
	if err != nil {
		return nil, err
	}
	o := &DSNOpener{dialect: d, dsn: dsn}
	if cfg.Driver == config.DriverSQLite {
		o.attach = cfg.Attach
	}
	logger.Info("warehouse: configured", "driver", d.Name(), "attached_schemas", len(o.attach))
	return o, nil
}

// Dialect returns the opener's SQL dialect.
func (o *DSNOpener) Dialect() Dialect { return o.dialect }

// Open dials the database and verifies the connection.
func (o *DSNOpener) Open(ctx context.Context) (DB, error) {
	db, err := sql.Open(o.dialect.DriverName(), o.dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", o.dialect.Name(), err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", o.dialect.Name(), err)
	}

	// ATTACH is per connection; with one connection it sticks for the handle's life.
	schemas := make([]string, 0, len(o.attach))
	for s := range o.attach {
		schemas = append(schemas, s)
	}
	sort.Strings(schemas)
	for _, schema := range schemas {
		if err := ValidateIdentifier(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("attach %q: %w", schema, err)
		}
		stmt := "ATTACH DATABASE ? AS " + o.dialect.QuoteIdentifier(schema)
		if _, err := db.ExecContext(ctx, stmt, o.attach[schema]); err != nil {
			db.Close()
			return nil, fmt.Errorf("attach %q: %w", schema, err)
		}
	}
	return db, nil
}

// BuildDSN renders the driver-specific connection string. A configured URL wins.
func BuildDSN(cfg config.WarehouseConfig) (string, error) {
	if cfg.URL != "" {
		return cfg.URL, nil
	}
	timeout := cfg.ConnectTimeout()

	switch cfg.Driver {
	case config.DriverPostgres, config.DriverRedshift:
		parts := []string{
			kv("host", cfg.Host),
			kv("port", strconv.Itoa(cfg.Port)),
			kv("dbname", cfg.Database),
			kv("user", cfg.User),
			kv("password", cfg.Password),
			kv("sslmode", cfg.SSLMode),
		}
		if timeout > 0 {
			parts = append(parts, kv("connect_timeout", strconv.Itoa(int(timeout.Seconds()))))
		}
		return strings.Join(parts, " "), nil

	case config.DriverSnowflake:
		return gosnowflake.DSN(&gosnowflake.Config{
			Account:      cfg.Account,
			User:         cfg.User,
			Password:     cfg.Password,
			Database:     cfg.Database,
			Schema:       cfg.DefaultSchema,
			Warehouse:    cfg.SnowflakeWarehouse,
			Role:         cfg.Role,
			LoginTimeout: timeout,
		})

	case config.DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.Database
		mc.Timeout = timeout
		return mc.FormatDSN(), nil

	case config.DriverSQLite:
		if cfg.Path == "" {
			return ":memory:", nil
		}
		return cfg.Path, nil

	default:
		return "", fmt.Errorf("warehouse: unsupported driver %q", cfg.Driver)
	}
}

// kv renders a lib/pq key=value pair, quoting values that need it.
func kv(key, value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return key + "=" + value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return key + "='" + escaped + "'"
}
