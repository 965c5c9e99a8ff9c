// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Gyanano/RSerialDebugAssistant/internal/config"
	"github.com/Gyanano/RSerialDebugAssistant/internal/handler"
	"github.com/Gyanano/RSerialDebugAssistant/internal/model"
	"github.com/Gyanano/RSerialDebugAssistant/internal/routes"
	"github.com/Gyanano/RSerialDebugAssistant/internal/serial"
	"github.com/Gyanano/RSerialDebugAssistant/internal/session"
	"github.com/Gyanano/RSerialDebugAssistant/internal/updater"
	"github.com/Gyanano/RSerialDebugAssistant/internal/utils"
)

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server

	manager  *serial.Manager
	sessions *session.Store
	updater  *updater.Updater
	eventBus *handler.EventBus
}

// @title RSerial Debug Assistant API
// @version 1.0.0
// @description Serial port debugging backend: connection management, frame segmentation, log buffering, recording, and export

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8930
// @BasePath /api/v1
func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "rserial-backend")
	serviceLogger.LogServiceStart(cfg.App.Version)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	app.initializeCore()

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeCore wires the serial manager, session store, updater, and
// event bus together
func (app *Application) initializeCore() {
	app.eventBus = handler.NewEventBus(app.logger)
	go app.eventBus.Start()

	app.manager = serial.NewManager(app.config, app.logger)
	app.manager.SetEventHooks(
		func(entry model.LogEntry) {
			app.eventBus.Publish(handler.EventLogEntry, entry)
		},
		func(portName string, err error) {
			app.eventBus.Publish(handler.EventConnectionLost, map[string]string{
				"port_name": portName,
				"error":     err.Error(),
			})
		},
	)

	app.sessions = session.NewStore()
	app.updater = updater.New(app.config.Updater.GitHubRepo, app.config.App.Version, app.logger)

	app.logger.Info("Core components initialized")
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() error {
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.manager,
		app.sessions,
		app.updater,
		app.eventBus,
	)

	router := routerManager.SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
	)

	return nil
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "rserial-backend")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	// Close the port and stop recordings before the process exits
	if err := app.manager.Disconnect(); err != nil {
		app.logger.Error("Serial disconnect error", zap.Error(err))
	}

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}

	app.logger.Info("Application shutdown completed")
}

func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.waitForShutdown()

	return nil
}
