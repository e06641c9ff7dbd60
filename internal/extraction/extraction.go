// Package extraction asks the language model to describe a target audience
// as a table plus filters, given the columns a schema offers.
package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/osteele/liquid"

	"github.com/ignite/audience-sizer/internal/catalog"
	"github.com/ignite/audience-sizer/internal/llm"
	"github.com/ignite/audience-sizer/internal/pkg/logger"
	"github.com/ignite/audience-sizer/internal/segmentation"
)

const promptTemplate = `You are a marketing assistant. Extract a structured target audience
from this business description. You must respond with only valid JSON.
Do not add commentary. Do not add explanation.
User business category: {{ category }}
Business description: {{ description }}

Available dataset fields:
{% for f in fields %}{{ f.table_name }}.{{ f.column_name }} ({{ f.data_type }})
{% endfor %}
Output JSON with:
- table_name
- filters (dict of column:value or column:[min,max])
`

// Request is one extraction job.
type Request struct {
	BusinessDescription string
	BusinessCategory    string
	SchemaName          string
}

// MalformedOutputError means the model answered with something that is not
// a valid segment.
type MalformedOutputError struct {
	Output string
	Err    error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed LLM output: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// Extractor turns business descriptions into segments.
type Extractor struct {
	catalog catalog.Fetcher
	llm     llm.Completer
	prompt  *liquid.Template
}

// New creates an Extractor. The prompt template is parsed once here.
func New(fetcher catalog.Fetcher, completer llm.Completer) (*Extractor, error) {
	engine := liquid.NewEngine()
	tpl, err := engine.ParseString(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &Extractor{catalog: fetcher, llm: completer, prompt: tpl}, nil
}

// Extract fetches the schema catalog, prompts the model and strictly parses
// its answer. Catalog and model errors are returned as-is; unparseable
// answers become *MalformedOutputError.
func (e *Extractor) Extract(ctx context.Context, req Request) (segmentation.SegmentResult, error) {
	id := uuid.New().String()
	startTime := time.Now()

	cols, err := e.catalog.Fetch(ctx, req.SchemaName)
	if err != nil {
		return segmentation.SegmentResult{}, err
	}

	prompt, err := e.RenderPrompt(req, cols)
	if err != nil {
		return segmentation.SegmentResult{}, err
	}

	logger.Info("extraction: prompting",
		"extraction_id", id, "schema", req.SchemaName, "category", req.BusinessCategory, "fields", len(cols))

	out, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		logger.Error("extraction: llm failed", "extraction_id", id, "error", err)
		return segmentation.SegmentResult{}, err
	}

	seg, err := segmentation.ParseSegmentResult([]byte(stripCodeFence(out)))
	if err != nil {
		logger.Warn("extraction: malformed output", "extraction_id", id, "error", err, "output_bytes", len(out))
		return segmentation.SegmentResult{}, &MalformedOutputError{Output: out, Err: err}
	}

	logger.Info("extraction: done",
		"extraction_id", id,
		"table", seg.TableName,
		"filters", seg.Filters.Len(),
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
	return seg, nil
}

// RenderPrompt fills the prompt template.
func (e *Extractor) RenderPrompt(req Request, cols []catalog.ColumnDescriptor) (string, error) {
	fields := make([]map[string]interface{}, len(cols))
	for i, c := range cols {
		fields[i] = map[string]interface{}{
			"table_name":  c.Table,
			"column_name": c.Column,
			"data_type":   c.Type,
		}
	}

	out, err := e.prompt.RenderString(map[string]interface{}{
		"category":    req.BusinessCategory,
		"description": req.BusinessDescription,
		"fields":      fields,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(s)
}
