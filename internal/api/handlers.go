package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ignite/audience-sizer/internal/catalog"
	"github.com/ignite/audience-sizer/internal/extraction"
	"github.com/ignite/audience-sizer/internal/pkg/httputil"
	"github.com/ignite/audience-sizer/internal/segmentation"
)

// Extractor turns a business description into a segment.
type Extractor interface {
	Extract(ctx context.Context, req extraction.Request) (segmentation.SegmentResult, error)
}

// Sizer counts the audience a segment describes.
type Sizer interface {
	AudienceSize(ctx context.Context, seg segmentation.SegmentResult) (int64, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	catalog   catalog.Fetcher
	extractor Extractor
	sizer     Sizer
}

// NewHandlers creates a new Handlers instance
func NewHandlers(fetcher catalog.Fetcher, extractor Extractor, sizer Sizer) *Handlers {
	return &Handlers{
		catalog:   fetcher,
		extractor: extractor,
		sizer:     sizer,
	}
}

// SchemaRequest is the body of POST /schema.
type SchemaRequest struct {
	SchemaName string `json:"schema_name"`
}

// SegmentRequest is the body of POST /segment_dynamic.
type SegmentRequest struct {
	BusinessDescription string `json:"business_description"`
	BusinessCategory    string `json:"business_category"`
	SchemaName          string `json:"schema_name"`
}

// AudienceSize is the body returned by POST /audience_dynamic.
type AudienceSize struct {
	AudienceSize int64 `json:"audience_size"`
}

// GetSchema returns every column of every table in the requested schema.
func (h *Handlers) GetSchema(w http.ResponseWriter, r *http.Request) {
	var req SchemaRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SchemaName) == "" {
		httputil.BadRequest(w, "schema_name is required")
		return
	}

	cols, err := h.catalog.Fetch(r.Context(), req.SchemaName)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if cols == nil {
		cols = []catalog.ColumnDescriptor{}
	}
	httputil.OK(w, cols)
}

// SegmentDynamic asks the language model for a segment matching the
// business description, using the schema's columns as context.
func (h *Handlers) SegmentDynamic(w http.ResponseWriter, r *http.Request) {
	var req SegmentRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	required := []struct{ field, value string }{
		{"business_description", req.BusinessDescription},
		{"business_category", req.BusinessCategory},
		{"schema_name", req.SchemaName},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			httputil.BadRequest(w, f.field+" is required")
			return
		}
	}

	seg, err := h.extractor.Extract(r.Context(), extraction.Request{
		BusinessDescription: req.BusinessDescription,
		BusinessCategory:    req.BusinessCategory,
		SchemaName:          req.SchemaName,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, seg)
}

// AudienceDynamic validates the filters and returns the matching row count.
func (h *Handlers) AudienceDynamic(w http.ResponseWriter, r *http.Request) {
	seg, err := segmentation.DecodeSegmentResult(httputil.LimitBody(w, r))
	if err != nil {
		var ve *segmentation.ValidationError
		if errors.As(err, &ve) {
			httputil.ErrorCode(w, http.StatusBadRequest, "invalid_filter", ve.Error())
			return
		}
		httputil.BadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	size, err := h.sizer.AudienceSize(r.Context(), seg)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, AudienceSize{AudienceSize: size})
}
