package segmentation

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/audience-sizer/internal/pkg/logger"
	"github.com/ignite/audience-sizer/internal/warehouse"
)

// Counter compiles and runs count queries against tables in one schema.
type Counter struct {
	opener warehouse.Opener
	schema string
}

// NewCounter creates a Counter that qualifies tables with schema.
func NewCounter(opener warehouse.Opener, schema string) *Counter {
	return &Counter{opener: opener, schema: schema}
}

// Schema is the schema tables are qualified with.
func (c *Counter) Schema() string { return c.schema }

// Count returns the number of rows in table matching filters. The
// connection is opened for this call only.
func (c *Counter) Count(ctx context.Context, table string, filters FilterSet) (int64, error) {
	startTime := time.Now()

	q, err := Compile(c.opener.Dialect(), c.schema, table, filters)
	if err != nil {
		return 0, err
	}

	db, err := c.opener.Open(ctx)
	if err != nil {
		return 0, &QueryExecutionError{Table: table, Err: err}
	}
	defer db.Close()

	var n int64
	if err := db.QueryRowContext(ctx, q.SQL, q.Args...).Scan(&n); err != nil {
		return 0, &QueryExecutionError{Table: table, Err: fmt.Errorf("query: %w", err)}
	}

	logger.Info("segmentation: counted",
		"schema", c.schema,
		"table", table,
		"filters", filters.Len(),
		"query_hash", HashQuery(q),
		"audience_size", n,
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
	return n, nil
}
