// Package catalog lists the tables and columns of a warehouse schema.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/audience-sizer/internal/pkg/logger"
	"github.com/ignite/audience-sizer/internal/warehouse"
)

// ColumnDescriptor is one column of one table in a schema.
type ColumnDescriptor struct {
	Table  string `json:"table_name"`
	Column string `json:"column_name"`
	Type   string `json:"data_type"`
}

// CatalogError reports a failure to read a schema's metadata.
type CatalogError struct {
	Schema string
	Err    error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("fetch schema %q: %v", e.Schema, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// Fetcher is what handlers depend on.
type Fetcher interface {
	Fetch(ctx context.Context, schema string) ([]ColumnDescriptor, error)
}

// Accessor reads catalog metadata through a warehouse opener.
type Accessor struct {
	opener warehouse.Opener
}

// NewAccessor creates an Accessor.
func NewAccessor(opener warehouse.Opener) *Accessor {
	return &Accessor{opener: opener}
}

// Fetch returns every column of every table in schema, ordered by table then
// column position. A schema with no tables yields an empty, non-nil slice.
func (a *Accessor) Fetch(ctx context.Context, schema string) ([]ColumnDescriptor, error) {
	start := time.Now()

	query, args, err := a.opener.Dialect().CatalogQuery(schema)
	if err != nil {
		return nil, &CatalogError{Schema: schema, Err: fmt.Errorf("build query: %w", err)}
	}

	db, err := a.opener.Open(ctx)
	if err != nil {
		return nil, &CatalogError{Schema: schema, Err: err}
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &CatalogError{Schema: schema, Err: err}
	}
	defer rows.Close()

	cols := make([]ColumnDescriptor, 0)
	for rows.Next() {
		var c ColumnDescriptor
		if err := rows.Scan(&c.Table, &c.Column, &c.Type); err != nil {
			return nil, &CatalogError{Schema: schema, Err: fmt.Errorf("scan: %w", err)}
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &CatalogError{Schema: schema, Err: err}
	}

	logger.Debug("catalog: fetched", "schema", schema, "columns", len(cols), "duration", time.Since(start))
	return cols, nil
}

// Columns returns the set of column names across all tables.
func Columns(cols []ColumnDescriptor) map[string]struct{} {
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[c.Column] = struct{}{}
	}
	return set
}

// Tables returns the set of table names.
func Tables(cols []ColumnDescriptor) map[string]struct{} {
	set := make(map[string]struct{})
	for _, c := range cols {
		set[c.Table] = struct{}{}
	}
	return set
}
