// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gyanano/RSerialDebugAssistant/internal/config"
	"github.com/Gyanano/RSerialDebugAssistant/internal/serial"
	"github.com/Gyanano/RSerialDebugAssistant/internal/utils"
)

// HealthHandler reports service liveness and the serial connection state
type HealthHandler struct {
	cfg       *config.Config
	manager   *serial.Manager
	startedAt time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(cfg *config.Config, manager *serial.Manager) *HealthHandler {
	return &HealthHandler{cfg: cfg, manager: manager, startedAt: time.Now()}
}

// RegisterRoutes registers health routes on the root group
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/live", h.Live)
}

// Health reports overall service status
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} utils.APIResponse "Service healthy"
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	status := h.manager.Status()
	utils.SuccessResponse(c, http.StatusOK, "Service healthy", gin.H{
		"name":        h.cfg.App.Name,
		"version":     h.cfg.App.Version,
		"environment": h.cfg.App.Environment,
		"uptime":      time.Since(h.startedAt).String(),
		"serial": gin.H{
			"connected": status.IsConnected,
			"port_name": status.PortName,
		},
	})
}

// Ready reports readiness. The service has no external dependencies to wait
// on, so it is ready as soon as it serves requests.
func (h *HealthHandler) Ready(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Service ready", nil)
}

// Live reports liveness
func (h *HealthHandler) Live(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Service alive", nil)
}
