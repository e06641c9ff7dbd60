package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ignite/audience-sizer/internal/catalog"
	"github.com/ignite/audience-sizer/internal/extraction"
	"github.com/ignite/audience-sizer/internal/llm"
	"github.com/ignite/audience-sizer/internal/pkg/httputil"
	"github.com/ignite/audience-sizer/internal/pkg/logger"
	"github.com/ignite/audience-sizer/internal/segmentation"
)

// =============================================================================
// ERROR SANITIZER
// Internal errors (database details, hosts, credentials) never reach API
// consumers. 5xx responses carry a safe message; the full error is logged.
// =============================================================================

// respondError maps a service error to a status code and writes it.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *segmentation.ValidationError
		malformed  *extraction.MalformedOutputError
		upstream   *llm.UpstreamError
		catalogErr *catalog.CatalogError
		queryErr   *segmentation.QueryExecutionError
	)

	switch {
	// Malformed output wraps its parse error, which may be a ValidationError.
	case errors.As(err, &malformed):
		logger.Warn("api: malformed llm output", "path", r.URL.Path, "error", err)
		httputil.ErrorCode(w, http.StatusUnprocessableEntity, "malformed_llm_output",
			"LLM returned an invalid segment: "+malformed.Err.Error())

	case errors.As(err, &validation):
		httputil.ErrorCode(w, http.StatusBadRequest, "invalid_filter", validation.Error())

	case errors.As(err, &upstream):
		respondSafeError(w, r, http.StatusBadGateway, "llm_unavailable", err,
			"Failed to get a response from the LLM")

	case errors.As(err, &catalogErr):
		respondSafeError(w, r, http.StatusInternalServerError, "catalog_error", err,
			"Failed to fetch schema")

	case errors.As(err, &queryErr):
		respondSafeError(w, r, http.StatusInternalServerError, "query_error", err,
			"Failed to execute count query")

	default:
		respondSafeError(w, r, http.StatusInternalServerError, "internal", err,
			safeErrorMessage(http.StatusInternalServerError, err))
	}
}

// respondSafeError logs the internal error and sends publicMsg.
func respondSafeError(w http.ResponseWriter, r *http.Request, status int, code string, internalErr error, publicMsg string) {
	logger.Error("api: request failed",
		"path", r.URL.Path, "status", status, "public", publicMsg, "error", internalErr)
	httputil.ErrorCode(w, status, code, publicMsg)
}

// safeErrorMessage maps common internal error patterns to public-safe messages.
// For 400-level errors, the message is returned as-is (user input issues).
func safeErrorMessage(code int, internalErr error) string {
	if code < 500 {
		if internalErr != nil {
			return internalErr.Error()
		}
		return "Bad request"
	}

	if internalErr == nil {
		return "An internal error occurred"
	}

	errStr := strings.ToLower(internalErr.Error())

	switch {
	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp"):
		return "Service temporarily unavailable"

	case strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "context canceled"):
		return "Request timed out"

	case strings.Contains(errStr, "sql") ||
		strings.Contains(errStr, "pq:") ||
		strings.Contains(errStr, "query") ||
		strings.Contains(errStr, "database"):
		return "A database error occurred"

	default:
		return "An internal error occurred"
	}
}
