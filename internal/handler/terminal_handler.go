// internal/handler/terminal_handler.go
package handler

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	textencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/Gyanano/RSerialDebugAssistant/internal/export"
	"github.com/Gyanano/RSerialDebugAssistant/internal/model"
	"github.com/Gyanano/RSerialDebugAssistant/internal/serial"
	"github.com/Gyanano/RSerialDebugAssistant/internal/utils"
)

// TerminalHandler exposes the connection lifecycle and log operations
type TerminalHandler struct {
	manager *serial.Manager
	logger  *utils.ServiceLogger
}

// NewTerminalHandler creates a new terminal handler
func NewTerminalHandler(manager *serial.Manager, logger *zap.Logger) *TerminalHandler {
	return &TerminalHandler{
		manager: manager,
		logger:  utils.NewServiceLogger(logger, "terminal-handler"),
	}
}

// RegisterRoutes registers connection and log routes
func (h *TerminalHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ports", h.ListPorts)

	connection := router.Group("/connection")
	{
		connection.POST("", h.Connect)
		connection.DELETE("", h.Disconnect)
		connection.GET("/status", h.Status)
	}

	router.POST("/send", h.Send)

	logs := router.Group("/logs")
	{
		logs.GET("", h.GetLogs)
		logs.DELETE("", h.ClearLogs)
		logs.POST("/export", h.ExportLogs)
		logs.GET("/limit", h.GetLogLimit)
		logs.PUT("/limit", h.SetLogLimit)
	}
}

// ListPorts enumerates available serial ports
// @Summary List serial ports
// @Description Enumerate the host's serial ports with USB metadata where available
// @Tags Connection
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]model.PortInfo} "Ports retrieved successfully"
// @Failure 500 {object} utils.APIResponse "Enumeration failed"
// @Router /ports [get]
func (h *TerminalHandler) ListPorts(c *gin.Context) {
	ports, err := serial.ListPorts(h.logger.Logger)
	if err != nil {
		h.logger.Error("Failed to list serial ports", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list serial ports", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Ports retrieved successfully", ports)
}

// ConnectRequest is the body of POST /connection
type ConnectRequest struct {
	PortName string             `json:"port_name" binding:"required"`
	Config   model.SerialConfig `json:"config" binding:"required"`
}

// Connect opens a connection to the requested port
// @Summary Connect to a serial port
// @Description Open the port with the given line parameters and start the reader loop. An existing connection is torn down first.
// @Tags Connection
// @Accept json
// @Produce json
// @Param request body ConnectRequest true "Port name and serial configuration"
// @Success 200 {object} utils.APIResponse "Connected successfully"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 500 {object} utils.APIResponse "Transport open failed"
// @Router /connection [post]
func (h *TerminalHandler) Connect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.manager.Connect(req.PortName, req.Config); err != nil {
		h.logger.Error("Failed to connect", zap.Error(err), zap.String("port", req.PortName))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to connect", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Connected successfully", gin.H{"port_name": req.PortName})
}

// Disconnect closes the current connection. Idempotent.
// @Summary Disconnect
// @Tags Connection
// @Produce json
// @Success 200 {object} utils.APIResponse "Disconnected"
// @Router /connection [delete]
func (h *TerminalHandler) Disconnect(c *gin.Context) {
	if err := h.manager.Disconnect(); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to disconnect", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Disconnected", nil)
}

// Status reports the connection snapshot
// @Summary Connection status
// @Tags Connection
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.ConnectionStatus} "Status retrieved"
// @Router /connection/status [get]
func (h *TerminalHandler) Status(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Status retrieved", h.manager.Status())
}

// SendRequest is the body of POST /send
type SendRequest struct {
	Data     string              `json:"data" binding:"required"`
	Format   model.DataFormat    `json:"format" binding:"required"`
	Encoding *model.TextEncoding `json:"encoding,omitempty"`
}

// Send transmits data over the open connection
// @Summary Send data
// @Description Send text (UTF-8 or GBK encoded) or a hex byte string over the open connection
// @Tags Connection
// @Accept json
// @Produce json
// @Param request body SendRequest true "Payload, format, and optional text encoding"
// @Success 200 {object} utils.APIResponse "Data sent"
// @Failure 400 {object} utils.APIResponse "Invalid payload"
// @Failure 409 {object} utils.APIResponse "Not connected"
// @Failure 500 {object} utils.APIResponse "Write failed"
// @Router /send [post]
func (h *TerminalHandler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	payload, err := encodeSendPayload(req)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid payload", err)
		return
	}

	if err := h.manager.Send(payload, req.Format); err != nil {
		if errors.Is(err, serial.ErrNotConnected) {
			utils.ErrorResponse(c, http.StatusConflict, "No port is currently open", err)
			return
		}
		h.logger.Error("Failed to send data", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to send data", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Data sent", gin.H{"bytes": len(payload)})
}

// encodeSendPayload converts the request payload into wire bytes. Hex input
// is stripped of spaces and newlines and must be even-length pure hex;
// nothing is transmitted on a validation failure. GBK encoding is lenient:
// unmappable characters are substituted rather than rejected.
func encodeSendPayload(req SendRequest) ([]byte, error) {
	switch req.Format {
	case model.DataFormatHex:
		cleaned := strings.NewReplacer(" ", "", "\n", "", "\r", "").Replace(req.Data)
		if len(cleaned)%2 != 0 {
			return nil, fmt.Errorf("hex string must have an even number of characters")
		}
		payload, err := hex.DecodeString(cleaned)
		if err != nil {
			return nil, fmt.Errorf("invalid hex characters: %w", err)
		}
		return payload, nil
	case model.DataFormatText:
		encoding := model.EncodingUTF8
		if req.Encoding != nil {
			encoding = *req.Encoding
		}
		if encoding == model.EncodingGBK {
			// The bare GBK encoder fails on the first unmappable rune with
			// no partial output; the wrapper substitutes instead, so the
			// device always receives GBK bytes.
			encoder := textencoding.ReplaceUnsupported(simplifiedchinese.GBK.NewEncoder())
			encoded, err := encoder.Bytes([]byte(req.Data))
			if err != nil {
				return nil, fmt.Errorf("failed to encode as GBK: %w", err)
			}
			return encoded, nil
		}
		return []byte(req.Data), nil
	default:
		return nil, fmt.Errorf("invalid data format: %q", req.Format)
	}
}

// GetLogs returns the buffered log entries in arrival order
// @Summary Get logs
// @Tags Logs
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]model.LogEntry} "Logs retrieved"
// @Router /logs [get]
func (h *TerminalHandler) GetLogs(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Logs retrieved", h.manager.Logs())
}

// ClearLogs drops all buffered entries
// @Summary Clear logs
// @Tags Logs
// @Produce json
// @Success 200 {object} utils.APIResponse "Logs cleared"
// @Router /logs [delete]
func (h *TerminalHandler) ClearLogs(c *gin.Context) {
	h.manager.ClearLogs()
	utils.SuccessResponse(c, http.StatusOK, "Logs cleared", nil)
}

// ExportRequest is the body of POST /logs/export
type ExportRequest struct {
	FilePath string             `json:"file_path" binding:"required"`
	Format   model.ExportFormat `json:"format" binding:"required"`
}

// ExportLogs writes the buffered entries to a file
// @Summary Export logs
// @Description Write the buffered log entries to a file as plain text, CSV, or JSON
// @Tags Logs
// @Accept json
// @Produce json
// @Param request body ExportRequest true "Target path and format"
// @Success 200 {object} utils.APIResponse "Logs exported"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 500 {object} utils.APIResponse "Export failed"
// @Router /logs/export [post]
func (h *TerminalHandler) ExportLogs(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entries := h.manager.Logs()
	if err := export.WriteFile(req.FilePath, entries, req.Format, h.manager.TimezoneOffset()); err != nil {
		h.logger.Error("Failed to export logs", zap.Error(err), zap.String("path", req.FilePath))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to export logs", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Logs exported", gin.H{
		"file_path": req.FilePath,
		"entries":   len(entries),
	})
}

// GetLogLimit returns the current log buffer bound
func (h *TerminalHandler) GetLogLimit(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Log limit retrieved", gin.H{"limit": h.manager.MaxLogEntries()})
}

// LogLimitRequest is the body of PUT /logs/limit
type LogLimitRequest struct {
	Limit int `json:"limit" binding:"required"`
}

// SetLogLimit updates the log buffer bound, clamped to [100,10000]
func (h *TerminalHandler) SetLogLimit(c *gin.Context) {
	var req LogLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	applied := h.manager.SetMaxLogEntries(req.Limit)
	utils.SuccessResponse(c, http.StatusOK, "Log limit updated", gin.H{"limit": applied})
}
