// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/Gyanano/RSerialDebugAssistant/internal/config"
	"github.com/Gyanano/RSerialDebugAssistant/internal/handler"
	"github.com/Gyanano/RSerialDebugAssistant/internal/middleware"
	"github.com/Gyanano/RSerialDebugAssistant/internal/serial"
	"github.com/Gyanano/RSerialDebugAssistant/internal/session"
	"github.com/Gyanano/RSerialDebugAssistant/internal/updater"
	"github.com/Gyanano/RSerialDebugAssistant/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config   *config.Config
	logger   *zap.Logger
	manager  *serial.Manager
	sessions *session.Store
	updater  *updater.Updater
	eventBus *handler.EventBus
}

// NewRouter creates a new router instance
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	manager *serial.Manager,
	sessions *session.Store,
	updater *updater.Updater,
	eventBus *handler.EventBus,
) *Router {
	return &Router{
		config:   config,
		logger:   logger,
		manager:  manager,
		sessions: sessions,
		updater:  updater,
		eventBus: eventBus,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Server))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.config, r.manager)
	terminalHandler := handler.NewTerminalHandler(r.manager, r.logger)
	settingsHandler := handler.NewSettingsHandler(r.manager, r.logger)
	recordingHandler := handler.NewRecordingHandler(r.manager, r.logger)
	sessionHandler := handler.NewSessionHandler(r.sessions, r.logger)
	wsHandler := handler.NewWebSocketHandler(r.eventBus, r.logger)

	healthHandler.RegisterRoutes(router)

	apiV1 := router.Group("/api/v1")
	terminalHandler.RegisterRoutes(apiV1)
	settingsHandler.RegisterRoutes(apiV1)
	recordingHandler.RegisterRoutes(apiV1.Group("/recording"))
	sessionHandler.RegisterRoutes(apiV1.Group("/sessions"))

	if r.config.Updater.Enabled {
		updateHandler := handler.NewUpdateHandler(r.updater, r.eventBus, r.logger)
		updateHandler.RegisterRoutes(apiV1.Group("/update"))
	}

	ws := router.Group("/ws")
	wsHandler.RegisterRoutes(ws)

	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
