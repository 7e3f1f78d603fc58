package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StatusProber reports NLU backend reachability.
type StatusProber interface {
	Status(ctx context.Context) bool
}

// HealthHandler serves the public liveness endpoint. The NLU probe only
// degrades the nlu_status flag — a dead backend never turns the health check
// itself into a failure, or the load balancer would take the relay out for
// someone else's outage.
type HealthHandler struct {
	nlu StatusProber
}

func NewHealthHandler(nlu StatusProber) *HealthHandler {
	return &HealthHandler{nlu: nlu}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	probeCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"nlu_status": h.nlu.Status(probeCtx),
	})
}
