package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	customlog "github.com/srivas-saksham/SpatialParallax/pkg/log"
	"github.com/srivas-saksham/SpatialParallax/services"
)

// ConfigHandler holds dependencies for the relay configuration endpoints.
type ConfigHandler struct {
	configService services.RelayConfigService
	logger        customlog.Logger
}

// NewConfigHandler creates a new handler for configuration endpoints.
func NewConfigHandler(configService services.RelayConfigService, logger customlog.Logger) *ConfigHandler {
	if configService == nil {
		panic("ConfigService cannot be nil in NewConfigHandler")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewConfigHandler")
	}
	return &ConfigHandler{
		configService: configService,
		logger:        logger,
	}
}

// RegisterConfigRoutes registers the configuration API endpoints.
func RegisterConfigRoutes(app *fiber.App, configService services.RelayConfigService, logger customlog.Logger) {
	h := NewConfigHandler(configService, logger)

	apiGroup := app.Group("/api/v1/config")
	apiGroup.Get("/relay", h.handleGetRelayConfig)
	apiGroup.Put("/relay", h.handleUpdateRelayConfig)

	logger.Infof("Registered relay configuration API endpoints under /api/v1/config")
}

// handleGetRelayConfig returns the current operational config as YAML.
func (h *ConfigHandler) handleGetRelayConfig(c *fiber.Ctx) error {
	h.logger.Debugf("Handling GET request for /api/v1/config/relay")

	yamlData, err := h.configService.GetCurrentConfigYAML()
	if err != nil {
		h.logger.Errorf("Failed to get current relay config YAML: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Failed to retrieve configuration: %v", err),
		})
	}

	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(yamlData)
}

// handleUpdateRelayConfig replaces the operational config from a YAML body.
func (h *ConfigHandler) handleUpdateRelayConfig(c *fiber.Ctx) error {
	h.logger.Debugf("Handling PUT request for /api/v1/config/relay")

	contentType := c.Get(fiber.HeaderContentType)
	if contentType != "application/x-yaml" && contentType != "application/yaml" && contentType != "text/yaml" {
		// Relaxed check: try to process anyway, but note the mismatch.
		h.logger.Warnf("Received PUT request with unexpected Content-Type: %s", contentType)
	}

	newConfigYAML := c.Body()
	if len(newConfigYAML) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Request body cannot be empty.",
		})
	}

	if err := h.configService.UpdateConfig(newConfigYAML); err != nil {
		h.logger.Errorf("Failed to update relay configuration: %v", err)
		if strings.Contains(err.Error(), "invalid YAML") || strings.Contains(err.Error(), "validation failed") {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("Configuration update failed: %v", err),
			})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Internal server error during configuration update: %v", err),
		})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Relay configuration updated successfully.",
	})
}
