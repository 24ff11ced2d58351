// Package api is the daemon's diagnostic surface. It exposes nothing of the
// reconciliation core beyond health, counters, and the current-view setter
// the UI shell calls on navigation.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	enginesync "github.com/vanhieuu/mattermost-mobile/internal/sync"
)

// Connection is what the status endpoint needs to know about the websocket.
type Connection interface {
	Connected() bool
}

type Handler struct {
	engine *enginesync.Engine
	conn   Connection
	views  *enginesync.ViewTracker
	health func(ctx context.Context) error
	logger *zap.Logger
}

func NewHandler(engine *enginesync.Engine, conn Connection, views *enginesync.ViewTracker, health func(ctx context.Context) error, logger *zap.Logger) *Handler {
	return &Handler{
		engine: engine,
		conn:   conn,
		views:  views,
		health: health,
		logger: logger,
	}
}

func (h *Handler) Register(r *gin.Engine, registry *prometheus.Registry) {
	r.GET("/v1/health", h.Health)
	r.GET("/v1/status", h.Status)
	r.PUT("/v1/view", h.SetView)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}

// Health handles GET /v1/health. Alive iff the local store answers.
func (h *Handler) Health(c *gin.Context) {
	if err := h.health(c.Request.Context()); err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status handles GET /v1/status.
func (h *Handler) Status(c *gin.Context) {
	status := h.engine.Status()
	c.JSON(http.StatusOK, gin.H{
		"connected":      h.conn.Connected(),
		"events_handled": status.EventsHandled,
		"last_event_at":  status.LastEventAt,
	})
}

type setViewRequest struct {
	ChannelID string `json:"channel_id"`
}

// SetView handles PUT /v1/view. The UI shell reports the channel the user
// is looking at. An empty channel id means no channel is open.
func (h *Handler) SetView(c *gin.Context) {
	var req setViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.views.Set(req.ChannelID)
	c.JSON(http.StatusOK, gin.H{"channel_id": req.ChannelID})
}
