package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const healthPingTimeout = 2 * time.Second

type HealthHandler struct {
	ping func(ctx context.Context) error
}

func NewHealthHandler(ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{ping: ping}
}

// Connection reports liveness and whether the database answers a ping.
func (h *HealthHandler) Connection(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	now := time.Now().UTC()
	if err := h.ping(ctx); err != nil {
		logrus.WithError(err).Warn("database ping failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success":   false,
			"message":   "database unavailable",
			"timestamp": now,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "connection ok",
		"timestamp": now,
	})
}
