package segmentation

import (
	"context"

	"github.com/ignite/audience-sizer/internal/catalog"
)

// Engine sizes audiences: it validates a segment against the canonical
// catalog and counts matching rows.
type Engine struct {
	catalog         catalog.Fetcher
	counter         *Counter
	canonicalSchema string
	strictTables    bool
}

// EngineConfig holds the Engine's settings.
type EngineConfig struct {
	// CanonicalSchema is the schema filter columns are checked against,
	// whatever table the segment targets.
	CanonicalSchema string
	// StrictTables also rejects tables missing from the schema the counter
	// queries.
	StrictTables bool
}

// NewEngine creates a new segmentation engine
func NewEngine(fetcher catalog.Fetcher, counter *Counter, cfg EngineConfig) *Engine {
	return &Engine{
		catalog:         fetcher,
		counter:         counter,
		canonicalSchema: cfg.CanonicalSchema,
		strictTables:    cfg.StrictTables,
	}
}

// AudienceSize validates seg and returns its row count. Range bounds are
// checked first, then columns against the canonical catalog. With strict
// tables the table must exist in the counter's schema; that catalog is
// reused when it is the canonical one. No count query runs unless every
// check passes.
func (e *Engine) AudienceSize(ctx context.Context, seg SegmentResult) (int64, error) {
	if err := CheckRanges(seg.Filters); err != nil {
		return 0, err
	}

	cols, err := e.catalog.Fetch(ctx, e.canonicalSchema)
	if err != nil {
		return 0, err
	}
	if err := CheckColumns(seg.Filters, catalog.Columns(cols)); err != nil {
		return 0, err
	}
	if e.strictTables {
		if schema := e.counter.Schema(); schema != e.canonicalSchema {
			if cols, err = e.catalog.Fetch(ctx, schema); err != nil {
				return 0, err
			}
		}
		if err := CheckTable(seg.TableName, catalog.Tables(cols)); err != nil {
			return 0, err
		}
	}

	return e.counter.Count(ctx, seg.TableName, seg.Filters)
}
