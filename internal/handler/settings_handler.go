// internal/handler/settings_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gyanano/RSerialDebugAssistant/internal/model"
	"github.com/Gyanano/RSerialDebugAssistant/internal/serial"
	"github.com/Gyanano/RSerialDebugAssistant/internal/utils"
)

// SettingsHandler exposes framing, display, and recording-location settings
type SettingsHandler struct {
	manager *serial.Manager
	logger  *utils.ServiceLogger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(manager *serial.Manager, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		manager: manager,
		logger:  utils.NewServiceLogger(logger, "settings-handler"),
	}
}

// RegisterRoutes registers settings routes
func (h *SettingsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/framing", h.GetFraming)
	router.PUT("/framing", h.SetFraming)
	router.GET("/display", h.GetDisplay)
	router.PUT("/display", h.SetDisplay)

	recording := router.Group("/recording")
	{
		recording.GET("/directory", h.GetRecordingDirectory)
		recording.PUT("/directory", h.SetRecordingDirectory)
		recording.PUT("/timezone", h.SetTimezone)
	}
}

// GetFraming returns the active frame segmentation settings
// @Summary Get framing settings
// @Tags Settings
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.FrameSegmentationConfig} "Framing settings retrieved"
// @Router /framing [get]
func (h *SettingsHandler) GetFraming(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Framing settings retrieved", h.manager.Segmentation())
}

// SetFraming replaces the frame segmentation settings. The idle timeout is
// clamped to its valid range; the applied configuration is returned.
// @Summary Update framing settings
// @Tags Settings
// @Accept json
// @Produce json
// @Param request body model.FrameSegmentationConfig true "Segmentation mode, idle timeout, and delimiter"
// @Success 200 {object} utils.APIResponse{data=model.FrameSegmentationConfig} "Framing settings updated"
// @Failure 400 {object} utils.APIResponse "Invalid configuration"
// @Router /framing [put]
func (h *SettingsHandler) SetFraming(c *gin.Context) {
	var cfg model.FrameSegmentationConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !cfg.Mode.Valid() {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid segmentation mode", nil)
		return
	}
	if err := cfg.Delimiter.Validate(); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid delimiter", err)
		return
	}

	applied := h.manager.SetSegmentation(cfg)
	h.logger.Info("Framing settings updated",
		zap.String("mode", string(applied.Mode)),
		zap.Uint64("timeout_ms", applied.TimeoutMs),
	)
	utils.SuccessResponse(c, http.StatusOK, "Framing settings updated", applied)
}

// GetDisplay returns the display formatting settings
// @Summary Get display settings
// @Tags Settings
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.DisplaySettings} "Display settings retrieved"
// @Router /display [get]
func (h *SettingsHandler) GetDisplay(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Display settings retrieved", h.manager.DisplaySettings())
}

// SetDisplay replaces the display formatting settings. Already buffered
// entries keep the rendering they were given on arrival.
// @Summary Update display settings
// @Tags Settings
// @Accept json
// @Produce json
// @Param request body model.DisplaySettings true "Display format, encoding, and special character options"
// @Success 200 {object} utils.APIResponse{data=model.DisplaySettings} "Display settings updated"
// @Failure 400 {object} utils.APIResponse "Invalid settings"
// @Router /display [put]
func (h *SettingsHandler) SetDisplay(c *gin.Context) {
	var settings model.DisplaySettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !settings.Format.Valid() {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid display format", nil)
		return
	}
	if !settings.Encoding.Valid() {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid text encoding", nil)
		return
	}

	h.manager.SetDisplaySettings(settings)
	utils.SuccessResponse(c, http.StatusOK, "Display settings updated", settings)
}

// GetRecordingDirectory returns the directory recording files are written to
func (h *SettingsHandler) GetRecordingDirectory(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Recording directory retrieved", gin.H{
		"directory": h.manager.LogDirectory(),
	})
}

// RecordingDirectoryRequest is the body of PUT /recording/directory
type RecordingDirectoryRequest struct {
	Directory string `json:"directory" binding:"required"`
}

// SetRecordingDirectory changes where new recording files are created.
// Recordings already in progress keep writing to their original files.
func (h *SettingsHandler) SetRecordingDirectory(c *gin.Context) {
	var req RecordingDirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.manager.SetLogDirectory(req.Directory)
	h.logger.Info("Recording directory updated", zap.String("directory", req.Directory))
	utils.SuccessResponse(c, http.StatusOK, "Recording directory updated", gin.H{"directory": req.Directory})
}

// TimezoneRequest is the body of PUT /recording/timezone
type TimezoneRequest struct {
	OffsetMinutes int `json:"offset_minutes"`
}

// SetTimezone sets the UTC offset applied to recorded and exported timestamps
func (h *SettingsHandler) SetTimezone(c *gin.Context) {
	var req TimezoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.OffsetMinutes < -12*60 || req.OffsetMinutes > 14*60 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Timezone offset out of range", nil)
		return
	}

	h.manager.SetTimezoneOffset(req.OffsetMinutes)
	utils.SuccessResponse(c, http.StatusOK, "Timezone updated", gin.H{"offset_minutes": req.OffsetMinutes})
}
