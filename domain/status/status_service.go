package status

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/srivas-saksham/SpatialParallax/pkg/relay"
)

// ServiceStatus is the snapshot returned by the status endpoint.
type ServiceStatus struct {
	Timestamp     time.Time             `json:"timestamp"`
	UptimeSeconds float64               `json:"uptime_seconds"`
	Senders       int                   `json:"senders"`
	Viewers       int                   `json:"viewers"`
	Dispatch      relay.DispatchMetrics `json:"dispatch"`
}

// StatusService reports process liveness and registered-client counts. It is
// a read-only view over the registry and dispatcher.
type StatusService struct {
	registry   *relay.Registry
	dispatcher *relay.Dispatcher
	startedAt  time.Time
}

// NewStatusService creates a status service over the given core state.
func NewStatusService(registry *relay.Registry, dispatcher *relay.Dispatcher) *StatusService {
	return &StatusService{
		registry:   registry,
		dispatcher: dispatcher,
		startedAt:  time.Now(),
	}
}

// Snapshot collects the current relay status.
func (s *StatusService) Snapshot() ServiceStatus {
	senders, viewers := s.registry.Counts()
	return ServiceStatus{
		Timestamp:     time.Now(),
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Senders:       senders,
		Viewers:       viewers,
		Dispatch:      s.dispatcher.Metrics(),
	}
}

// GetStatusHandler handles API requests for the relay status.
func (s *StatusService) GetStatusHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "success",
		"relay":  s.Snapshot(),
	})
}
