// Package app wires the services shared by the HTTP server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/ignite/audience-sizer/internal/catalog"
	"github.com/ignite/audience-sizer/internal/config"
	"github.com/ignite/audience-sizer/internal/extraction"
	"github.com/ignite/audience-sizer/internal/llm"
	"github.com/ignite/audience-sizer/internal/segmentation"
	"github.com/ignite/audience-sizer/internal/warehouse"
)

// App holds the long-lived collaborators. The LLM client and warehouse
// opener are built once here and shared by every request.
type App struct {
	Opener    warehouse.Opener
	Catalog   *catalog.Accessor
	Engine    *segmentation.Engine
	Extractor *extraction.Extractor
}

// New builds the warehouse side only. Extraction needs WithLLM.
func New(cfg *config.Config) (*App, error) {
	opener, err := warehouse.New(cfg.Warehouse)
	if err != nil {
		return nil, fmt.Errorf("warehouse: %w", err)
	}

	acc := catalog.NewAccessor(opener)
	engine := segmentation.NewEngine(acc,
		segmentation.NewCounter(opener, cfg.Warehouse.DefaultSchema),
		segmentation.EngineConfig{
			CanonicalSchema: cfg.Segmentation.CanonicalSchema,
			StrictTables:    cfg.Segmentation.StrictTables(),
		},
	)

	return &App{Opener: opener, Catalog: acc, Engine: engine}, nil
}

// WithLLM constructs the configured language model client and the extractor.
func (a *App) WithLLM(ctx context.Context, cfg config.LLMConfig) error {
	completer, err := llm.New(ctx, cfg)
	if err != nil {
		return err
	}
	ex, err := extraction.New(a.Catalog, completer)
	if err != nil {
		return err
	}
	a.Extractor = ex
	return nil
}
