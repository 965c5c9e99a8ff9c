// internal/handler/session_handler.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gyanano/RSerialDebugAssistant/internal/model"
	"github.com/Gyanano/RSerialDebugAssistant/internal/session"
	"github.com/Gyanano/RSerialDebugAssistant/internal/utils"
)

// SessionHandler exposes named connection profiles
type SessionHandler struct {
	store  *session.Store
	logger *utils.ServiceLogger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(store *session.Store, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		store:  store,
		logger: utils.NewServiceLogger(logger, "session-handler"),
	}
}

// RegisterRoutes registers session routes
func (h *SessionHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("", h.List)
	router.POST("", h.Save)
	router.GET("/:name", h.Load)
	router.DELETE("/:name", h.Delete)
}

// List returns saved session names in sorted order
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]string} "Sessions retrieved"
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Sessions retrieved", h.store.List())
}

// SaveSessionRequest is the body of POST /sessions
type SaveSessionRequest struct {
	Name   string             `json:"name" binding:"required"`
	Config model.SerialConfig `json:"config" binding:"required"`
}

// Save stores a connection profile under a name, replacing any existing one
// @Summary Save a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body SaveSessionRequest true "Session name and serial configuration"
// @Success 200 {object} utils.APIResponse "Session saved"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Router /sessions [post]
func (h *SessionHandler) Save(c *gin.Context) {
	var req SaveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := req.Config.Validate(); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid serial configuration", err)
		return
	}

	h.store.Save(req.Name, req.Config)
	h.logger.Info("Session saved", zap.String("name", req.Name))
	utils.SuccessResponse(c, http.StatusOK, "Session saved", gin.H{"name": req.Name})
}

// Load returns the configuration stored under a name
// @Summary Load a session
// @Tags Sessions
// @Produce json
// @Param name path string true "Session name"
// @Success 200 {object} utils.APIResponse{data=model.SerialConfig} "Session retrieved"
// @Failure 404 {object} utils.APIResponse "Session not found"
// @Router /sessions/{name} [get]
func (h *SessionHandler) Load(c *gin.Context) {
	name := c.Param("name")
	cfg, err := h.store.Load(name)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Session not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load session", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Session retrieved", cfg)
}

// Delete removes the configuration stored under a name
// @Summary Delete a session
// @Tags Sessions
// @Produce json
// @Param name path string true "Session name"
// @Success 200 {object} utils.APIResponse "Session deleted"
// @Failure 404 {object} utils.APIResponse "Session not found"
// @Router /sessions/{name} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	name := c.Param("name")
	if err := h.store.Delete(name); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Session not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to delete session", err)
		return
	}

	h.logger.Info("Session deleted", zap.String("name", name))
	utils.SuccessResponse(c, http.StatusOK, "Session deleted", nil)
}
