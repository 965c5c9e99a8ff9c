// internal/handler/recording_handler.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gyanano/RSerialDebugAssistant/internal/serial"
	"github.com/Gyanano/RSerialDebugAssistant/internal/utils"
)

// RecordingHandler controls the two independent recording channels
type RecordingHandler struct {
	manager *serial.Manager
	logger  *utils.ServiceLogger
}

// NewRecordingHandler creates a new recording handler
func NewRecordingHandler(manager *serial.Manager, logger *zap.Logger) *RecordingHandler {
	return &RecordingHandler{
		manager: manager,
		logger:  utils.NewServiceLogger(logger, "recording-handler"),
	}
}

// RegisterRoutes registers recording routes
func (h *RecordingHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/text", h.StartText)
	router.DELETE("/text", h.StopText)
	router.POST("/raw", h.StartRaw)
	router.DELETE("/raw", h.StopRaw)
	router.GET("/status", h.Status)
}

// StartText begins timestamped text recording of all traffic
// @Summary Start text recording
// @Description Open a timestamped text recording file for all sent and received traffic
// @Tags Recording
// @Produce json
// @Success 200 {object} utils.APIResponse "Text recording started"
// @Failure 409 {object} utils.APIResponse "Text recording already active"
// @Failure 500 {object} utils.APIResponse "Failed to open recording file"
// @Router /recording/text [post]
func (h *RecordingHandler) StartText(c *gin.Context) {
	path, err := h.manager.StartTextRecording()
	if err != nil {
		if errors.Is(err, serial.ErrTextRecordingActive) {
			utils.ErrorResponse(c, http.StatusConflict, "Text recording is already active", err)
			return
		}
		h.logger.Error("Failed to start text recording", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to start text recording", err)
		return
	}

	h.logger.Info("Text recording started", zap.String("path", path))
	utils.SuccessResponse(c, http.StatusOK, "Text recording started", gin.H{"file_path": path})
}

// StopText ends text recording. Safe to call when inactive.
// @Summary Stop text recording
// @Tags Recording
// @Produce json
// @Success 200 {object} utils.APIResponse "Text recording stopped"
// @Router /recording/text [delete]
func (h *RecordingHandler) StopText(c *gin.Context) {
	if err := h.manager.StopTextRecording(); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to stop text recording", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Text recording stopped", nil)
}

// StartRaw begins raw binary recording of all traffic
// @Summary Start raw recording
// @Description Open a raw binary recording file capturing every byte exactly as it crossed the wire
// @Tags Recording
// @Produce json
// @Success 200 {object} utils.APIResponse "Raw recording started"
// @Failure 409 {object} utils.APIResponse "Raw recording already active"
// @Failure 500 {object} utils.APIResponse "Failed to open recording file"
// @Router /recording/raw [post]
func (h *RecordingHandler) StartRaw(c *gin.Context) {
	path, err := h.manager.StartRawRecording()
	if err != nil {
		if errors.Is(err, serial.ErrRawRecordingActive) {
			utils.ErrorResponse(c, http.StatusConflict, "Raw recording is already active", err)
			return
		}
		h.logger.Error("Failed to start raw recording", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to start raw recording", err)
		return
	}

	h.logger.Info("Raw recording started", zap.String("path", path))
	utils.SuccessResponse(c, http.StatusOK, "Raw recording started", gin.H{"file_path": path})
}

// StopRaw ends raw recording. Safe to call when inactive.
// @Summary Stop raw recording
// @Tags Recording
// @Produce json
// @Success 200 {object} utils.APIResponse "Raw recording stopped"
// @Router /recording/raw [delete]
func (h *RecordingHandler) StopRaw(c *gin.Context) {
	if err := h.manager.StopRawRecording(); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to stop raw recording", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Raw recording stopped", nil)
}

// Status reports both recording channels
// @Summary Recording status
// @Tags Recording
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.RecordingStatus} "Recording status retrieved"
// @Router /recording/status [get]
func (h *RecordingHandler) Status(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Recording status retrieved", h.manager.RecordingStatus())
}
