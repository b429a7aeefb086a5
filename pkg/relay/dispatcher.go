package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	customlog "github.com/srivas-saksham/SpatialParallax/pkg/log"
	"github.com/srivas-saksham/SpatialParallax/pkg/pose"
)

// Tap receives the serialized bytes of every broadcast sample, for
// out-of-process consumers. Tap failures are logged and never affect
// viewer delivery.
type Tap interface {
	PublishSample(payload []byte) error
}

// DispatchMetrics tracks broadcast statistics.
type DispatchMetrics struct {
	BroadcastCount    int64 `json:"broadcast_count"`
	DeliveredCount    int64 `json:"delivered_count"`
	ViewerDropCount   int64 `json:"viewer_drop_count"`
	TapErrorCount     int64 `json:"tap_error_count"`
	LastBroadcastTime int64 `json:"last_broadcast_time"`
}

// Dispatcher fans one sample out to every registered viewer. Delivery is
// best-effort, latest-value: a viewer whose queue is full or whose
// connection is gone is dropped from the registry without affecting the
// remaining viewers. No acknowledgment or retransmission exists.
type Dispatcher struct {
	logger   customlog.Logger
	registry *Registry
	taps     []Tap

	metrics DispatchMetrics
	mu      sync.Mutex
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry, logger customlog.Logger) *Dispatcher {
	return &Dispatcher{
		logger:   logger,
		registry: registry,
	}
}

// AddTap attaches a tap. Must be called before the first broadcast.
func (d *Dispatcher) AddTap(t Tap) {
	d.taps = append(d.taps, t)
}

// Broadcast serializes the sample once and enqueues it on every viewer's
// send queue. Returns the number of viewers the sample was handed to.
func (d *Dispatcher) Broadcast(sample *pose.Sample) (int, error) {
	payload, err := json.Marshal(sample)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize sample from %s: %w", sample.ClientID, err)
	}

	delivered := 0
	dropped := 0
	for _, viewer := range d.registry.Viewers() {
		if d.deliver(viewer, payload) {
			delivered++
		} else {
			dropped++
		}
	}

	tapErrors := 0
	for _, tap := range d.taps {
		if err := tap.PublishSample(payload); err != nil {
			tapErrors++
			d.logger.Warnf("Pose tap publish failed: %v", err)
		}
	}

	d.mu.Lock()
	d.metrics.BroadcastCount++
	d.metrics.DeliveredCount += int64(delivered)
	d.metrics.ViewerDropCount += int64(dropped)
	d.metrics.TapErrorCount += int64(tapErrors)
	d.metrics.LastBroadcastTime = time.Now().UnixNano()
	d.mu.Unlock()

	return delivered, nil
}

// deliver enqueues the payload for one viewer. A closed session or a full
// queue deregisters that viewer; its write pump notices Done and exits.
func (d *Dispatcher) deliver(viewer *Session, payload []byte) bool {
	select {
	case <-viewer.Done():
		d.registry.Unregister(viewer.ID)
		return false
	default:
	}

	select {
	case viewer.Send <- payload:
		return true
	default:
		d.logger.Warnf("Viewer %s (%s) send queue full, dropping viewer", viewer.ID, viewer.Remote)
		d.registry.Unregister(viewer.ID)
		viewer.Close()
		return false
	}
}

// Metrics returns a copy of the current broadcast statistics.
func (d *Dispatcher) Metrics() DispatchMetrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metrics
}
