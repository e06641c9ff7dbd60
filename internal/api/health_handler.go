package api

import (
	"net/http"

	"github.com/ignite/audience-sizer/internal/pkg/httputil"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// HealthCheck reports liveness. It touches no dependency.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, HealthResponse{OK: true})
}
