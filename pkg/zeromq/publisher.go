package zeromq

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pebbe/zmq4"
	customlog "github.com/srivas-saksham/SpatialParallax/pkg/log"
)

// ErrPublisherClosed is returned when publishing after Close.
var ErrPublisherClosed = errors.New("pose publisher is closed")

// PoseTopic is the PUB envelope topic for broadcast samples.
const PoseTopic = "pose.sample"

// PosePublisher republishes every broadcast sample's JSON payload on a
// ZeroMQ PUB socket, for consumers outside the WebSocket fan-out. It
// implements relay.Tap.
type PosePublisher struct {
	socket *zmq4.Socket
	logger customlog.Logger
	mu     sync.Mutex
	closed bool
}

// NewPosePublisher creates a PUB socket bound to the given address. The send
// timeout prevents indefinite blocking on shutdown.
func NewPosePublisher(bindAddress string, sendTimeout time.Duration, logger customlog.Logger) (*PosePublisher, error) {
	socket, err := zmq4.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}

	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}
	if sendTimeout <= 0 {
		sendTimeout = 1 * time.Second
	}
	if err := socket.SetSndtimeo(sendTimeout); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set send timeout: %w", err)
	}

	if err := socket.Bind(bindAddress); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to bind to %s: %w", bindAddress, err)
	}

	logger.Infof("Pose tap publisher bound to %s (topic %s)", bindAddress, PoseTopic)

	return &PosePublisher{
		socket: socket,
		logger: logger,
	}, nil
}

// PublishSample sends one serialized sample as a two-frame message of topic
// envelope plus payload. PUB sockets never block on slow subscribers, so a
// failure here is a socket-level problem, not backpressure.
func (p *PosePublisher) PublishSample(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}

	if _, err := p.socket.Send(PoseTopic, zmq4.SNDMORE); err != nil {
		return fmt.Errorf("failed to send topic frame: %w", err)
	}
	if _, err := p.socket.SendBytes(payload, 0); err != nil {
		return fmt.Errorf("failed to send payload frame: %w", err)
	}
	return nil
}

// Close shuts the PUB socket down. Publish calls after Close fail with
// ErrPublisherClosed.
func (p *PosePublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	if err := p.socket.Close(); err != nil {
		p.logger.Warnf("Error closing pose tap socket: %v", err)
	}
}
