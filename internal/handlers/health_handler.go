package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthPingTimeout = 2 * time.Second

type HealthHandler struct {
	pingStore      func(ctx context.Context) error
	directoryReady func() bool
}

// NewHealthHandler creates a health handler. pingStore checks the rate-limit store;
// directoryReady only feeds the informational "directory" field.
func NewHealthHandler(pingStore func(ctx context.Context) error, directoryReady func() bool) *HealthHandler {
	return &HealthHandler{
		pingStore:      pingStore,
		directoryReady: directoryReady,
	}
}

func (h *HealthHandler) Healthcheck(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	if err := h.pingStore(ctx); err != nil {
		attachError(c, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"reason": "rate limit store unreachable",
		})
		return
	}

	directory := "cold"
	if h.directoryReady() {
		directory = "ready"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"directory": directory,
	})
}
