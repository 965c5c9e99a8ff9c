// internal/handler/update_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gyanano/RSerialDebugAssistant/internal/updater"
	"github.com/Gyanano/RSerialDebugAssistant/internal/utils"
)

// UpdateHandler exposes the release check and installer download
type UpdateHandler struct {
	updater  *updater.Updater
	eventBus *EventBus
	logger   *utils.ServiceLogger
}

// NewUpdateHandler creates a new update handler
func NewUpdateHandler(u *updater.Updater, eventBus *EventBus, logger *zap.Logger) *UpdateHandler {
	return &UpdateHandler{
		updater:  u,
		eventBus: eventBus,
		logger:   utils.NewServiceLogger(logger, "update-handler"),
	}
}

// RegisterRoutes registers update routes
func (h *UpdateHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/check", h.Check)
	router.POST("/download", h.Download)
	router.POST("/install", h.Install)
}

// Check queries GitHub for a newer release
// @Summary Check for updates
// @Description Query the project's GitHub releases and compare against the running version
// @Tags Update
// @Produce json
// @Success 200 {object} utils.APIResponse{data=updater.CheckResult} "Update check completed"
// @Failure 502 {object} utils.APIResponse "GitHub unreachable"
// @Router /update/check [get]
func (h *UpdateHandler) Check(c *gin.Context) {
	result, err := h.updater.Check(c.Request.Context())
	if err != nil {
		h.logger.Error("Update check failed", zap.Error(err))
		utils.ErrorResponse(c, http.StatusBadGateway, "Update check failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Update check completed", result)
}

// DownloadRequest is the body of POST /update/download
type DownloadRequest struct {
	DownloadURL string `json:"download_url" binding:"required"`
	AssetName   string `json:"asset_name" binding:"required"`
}

// Download fetches the installer, streaming progress over the event bus
// @Summary Download update
// @Description Download the installer asset; progress events are published to WebSocket subscribers
// @Tags Update
// @Accept json
// @Produce json
// @Param request body DownloadRequest true "Asset URL and file name"
// @Success 200 {object} utils.APIResponse "Update downloaded"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 502 {object} utils.APIResponse "Download failed"
// @Router /update/download [post]
func (h *UpdateHandler) Download(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	path, err := h.updater.Download(c.Request.Context(), req.DownloadURL, req.AssetName, func(p updater.Progress) {
		h.eventBus.Publish(EventUpdateProgress, p)
	})
	if err != nil {
		h.logger.Error("Update download failed", zap.Error(err))
		utils.ErrorResponse(c, http.StatusBadGateway, "Update download failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Update downloaded", gin.H{"installer_path": path})
}

// InstallRequest is the body of POST /update/install
type InstallRequest struct {
	InstallerPath string `json:"installer_path" binding:"required"`
}

// Install launches a previously downloaded installer
func (h *UpdateHandler) Install(c *gin.Context) {
	var req InstallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.updater.LaunchInstaller(req.InstallerPath); err != nil {
		h.logger.Error("Installer launch failed", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Installer launch failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Installer launched", nil)
}
