// Package warehouse knows how to talk to the databases that hold audience
// tables: which database/sql driver to use, how to quote identifiers, which
// placeholder style to bind with, and how to list a schema's columns.
package warehouse

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/ignite/audience-sizer/internal/config"
)

// ErrInvalidIdentifier is returned for identifiers that cannot be quoted safely.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// Dialect captures the per-database SQL differences the service cares about.
type Dialect interface {
	// Name is the config name of the dialect ("postgres", "snowflake", ...).
	Name() string
	// DriverName is the database/sql driver to open.
	DriverName() string
	// QuoteIdentifier quotes a single identifier (no dots are interpreted).
	QuoteIdentifier(name string) string
	// Placeholder returns the bind marker for the n-th (1-based) parameter.
	Placeholder(n int) string
	// CatalogQuery returns the query listing (table, column, type) for a schema.
	CatalogQuery(schema string) (string, []interface{}, error)
}

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverPostgres:
		return postgresDialect{name: config.DriverPostgres}, nil
	case config.DriverRedshift:
		return postgresDialect{name: config.DriverRedshift}, nil
	case config.DriverSnowflake:
		return snowflakeDialect{}, nil
	case config.DriverMySQL:
		return mysqlDialect{}, nil
	case config.DriverSQLite:
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("warehouse: unsupported driver %q", driver)
	}
}

// QualifiedName quotes schema and table and joins them with a dot.
func QualifiedName(d Dialect, schema, table string) (string, error) {
	if err := ValidateIdentifier(schema); err != nil {
		return "", fmt.Errorf("schema: %w", err)
	}
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("table: %w", err)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table), nil
}

// ValidateIdentifier rejects identifiers that are empty or contain NUL bytes.
// Everything else is representable once quoted.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: contains NUL byte", ErrInvalidIdentifier)
	}
	return nil
}

// informationSchemaColumns is the ANSI catalog query shared by every dialect
// that exposes information_schema.
func informationSchemaColumns(schema string) sq.SelectBuilder {
	return sq.Select("table_name", "column_name", "data_type").
		From("information_schema.columns").
		Where(sq.Eq{"table_schema": schema}).
		OrderBy("table_name", "ordinal_position")
}

// postgresDialect covers PostgreSQL and Amazon Redshift, both reached
// through lib/pq.
type postgresDialect struct{ name string }

func (d postgresDialect) Name() string           { return d.name }
func (postgresDialect) DriverName() string       { return "postgres" }
func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (postgresDialect) CatalogQuery(schema string) (string, []interface{}, error) {
	return informationSchemaColumns(schema).PlaceholderFormat(sq.Dollar).ToSql()
}

type snowflakeDialect struct{}

func (snowflakeDialect) Name() string           { return config.DriverSnowflake }
func (snowflakeDialect) DriverName() string     { return "snowflake" }
func (snowflakeDialect) Placeholder(int) string { return "?" }

// Quoted Snowflake identifiers are case-sensitive; names are used exactly
// as the catalog reports them.
func (snowflakeDialect) QuoteIdentifier(name string) string {
	return quoteWith(name, '"')
}

func (snowflakeDialect) CatalogQuery(schema string) (string, []interface{}, error) {
	return informationSchemaColumns(schema).PlaceholderFormat(sq.Question).ToSql()
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string           { return config.DriverMySQL }
func (mysqlDialect) DriverName() string     { return "mysql" }
func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) QuoteIdentifier(name string) string {
	return quoteWith(name, '`')
}

func (mysqlDialect) CatalogQuery(schema string) (string, []interface{}, error) {
	return informationSchemaColumns(schema).PlaceholderFormat(sq.Question).ToSql()
}

// sqliteDialect treats each ATTACHed database as a schema.
type sqliteDialect struct{}

func (sqliteDialect) Name() string           { return config.DriverSQLite }
func (sqliteDialect) DriverName() string     { return "sqlite" }
func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) QuoteIdentifier(name string) string {
	return quoteWith(name, '"')
}

func (sqliteDialect) CatalogQuery(schema string) (string, []interface{}, error) {
	return sq.Select("t.name", "p.name", "p.type").
		From("pragma_table_list AS t").
		Join("pragma_table_info(t.name, t.schema) AS p").
		Where(sq.Eq{"t.schema": schema}).
		Where(sq.Eq{"t.type": "table"}).
		Where(sq.NotLike{"t.name": "sqlite_%"}).
		OrderBy("t.name", "p.cid").
		PlaceholderFormat(sq.Question).
		ToSql()
}

// quoteWith wraps name in q, doubling any embedded q.
func quoteWith(name string, q rune) string {
	s := string(q)
	return s + strings.ReplaceAll(name, s, s+s) + s
}
