package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/srivas-saksham/SpatialParallax/domain/status"
	"github.com/srivas-saksham/SpatialParallax/pkg/api"
	"github.com/srivas-saksham/SpatialParallax/pkg/config"
	customlog "github.com/srivas-saksham/SpatialParallax/pkg/log"
	"github.com/srivas-saksham/SpatialParallax/pkg/relay"
	"github.com/srivas-saksham/SpatialParallax/pkg/zeromq"
	"github.com/srivas-saksham/SpatialParallax/services"
)

func main() {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}

	bootstrapCfg, err := config.LoadBootstrapConfig(configDir)
	if err != nil {
		log.Fatalf("Failed to load bootstrap config: %v\n", err)
	}

	appLogger, err := customlog.NewLogrusLogger(bootstrapCfg.Logging.Level, bootstrapCfg.Logging.LogPath)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}

	// Operational relay config (runtime-adjustable through the config API).
	configService, err := services.NewRelayConfigService(bootstrapCfg.OperationalConfigPath(), appLogger)
	if err != nil {
		appLogger.Fatalf("Failed to initialize relay config service: %v", err)
	}
	relayCfg := configService.GetCurrentConfig().Relay

	// Core: registry, throttle/derive pipeline, broadcast dispatcher.
	registry := relay.NewRegistry(appLogger)
	pipeline := relay.NewPipeline(relayCfg.MinSampleInterval(), appLogger)
	configService.SetThrottleUpdater(pipeline)
	dispatcher := relay.NewDispatcher(registry, appLogger)

	// Optional ZeroMQ tap republishing broadcast samples out of process.
	if bootstrapCfg.ZeroMQ.Enabled {
		publisher, err := zeromq.NewPosePublisher(
			bootstrapCfg.ZeroMQ.PublishBindAddress,
			time.Duration(bootstrapCfg.ZeroMQ.SendTimeoutMs)*time.Millisecond,
			appLogger,
		)
		if err != nil {
			appLogger.Fatalf("Failed to start pose tap publisher: %v", err)
		}
		defer publisher.Close()
		dispatcher.AddTap(publisher)
	}

	app := fiber.New(fiber.Config{
		AppName:      "SpatialParallax Relay",
		ErrorHandler: customErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "spatialparallax relay",
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	statusService := status.NewStatusService(registry, dispatcher)
	app.Get("/api/status", statusService.GetStatusHandler)

	api.RegisterConfigRoutes(app, configService, appLogger)

	// WebSocket endpoints: the path decides the session role.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	wsDeps := &api.WebSocketDeps{
		Logger:     appLogger,
		Registry:   registry,
		Pipeline:   pipeline,
		Dispatcher: dispatcher,
		Relay:      relayCfg,
	}
	app.Get("/ws/pose", websocket.New(func(conn *websocket.Conn) {
		api.SenderWebSocketHandler(conn, wsDeps)
	}))
	app.Get("/ws/view", websocket.New(func(conn *websocket.Conn) {
		api.ViewerWebSocketHandler(conn, wsDeps)
	}))

	go func() {
		addr := listenAddr(bootstrapCfg)
		appLogger.Infof("Relay server starting on %s", addr)
		if err := app.Listen(addr); err != nil {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Infof("Shutting down relay...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Infof("Relay exited properly")
}

func listenAddr(cfg *config.BootstrapConfig) string {
	port := os.Getenv("PORT")
	if port == "" {
		port = fmt.Sprintf("%d", cfg.Server.HTTPPort)
	}
	return ":" + port
}

// customErrorHandler renders every unhandled route error as JSON.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
