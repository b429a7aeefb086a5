package relay

import (
	"sync"
	"time"

	customlog "github.com/srivas-saksham/SpatialParallax/pkg/log"
	"github.com/srivas-saksham/SpatialParallax/pkg/pose"
)

// Pipeline applies the throttle-and-derive step to raw updates from sender
// sessions. The per-sender state lives on the session and is only touched
// from that sender's read loop; the pipeline itself only guards the
// adjustable rate limit.
type Pipeline struct {
	logger      customlog.Logger
	minInterval time.Duration
	mu          sync.RWMutex

	// now is the wall clock in epoch seconds; injectable for tests.
	now func() float64
}

// NewPipeline creates a pipeline enforcing the given minimum inter-sample
// interval. A zero interval disables throttling.
func NewPipeline(minInterval time.Duration, logger customlog.Logger) *Pipeline {
	return &Pipeline{
		logger:      logger,
		minInterval: minInterval,
		now: func() float64 {
			return float64(time.Now().UnixNano()) / float64(time.Second)
		},
	}
}

// SetMaxSendRate replaces the throttle rate at runtime. A rate of 0 disables
// throttling.
func (p *Pipeline) SetMaxSendRate(hz int) {
	var interval time.Duration
	if hz > 0 {
		interval = time.Second / time.Duration(hz)
	}

	p.mu.Lock()
	p.minInterval = interval
	p.mu.Unlock()

	p.logger.Infof("Throttle rate set to %d Hz (min interval %v)", hz, interval)
}

// Process decides whether one raw update from the given sender session is
// accepted, and if so returns the complete sample ready for broadcast.
// Dropped samples (throttled, or elapsed <= 0 from clock skew or reordering)
// return (nil, false) and leave the session state untouched.
//
// The first sample from a session is always accepted and carries no
// velocity. Accepted samples after that carry per-axis velocity, speed and
// the elapsed dt, all derived from the previous accepted sample.
func (p *Pipeline) Process(s *Session, upd *pose.RawUpdate) (*pose.Sample, bool) {
	ts := p.now()
	if upd.Timestamp != nil {
		ts = *upd.Timestamp
	}

	sample := &pose.Sample{
		ClientID: s.ID,
		TS:       ts,
		Position: upd.Position,
		Rotation: upd.Rotation,
	}

	if s.hasLast {
		elapsed := ts - s.lastTS
		if elapsed <= 0 {
			p.logger.Debugf("Dropping sample from %s: non-increasing timestamp (elapsed %.6fs)", s.ID, elapsed)
			return nil, false
		}

		p.mu.RLock()
		minInterval := p.minInterval
		p.mu.RUnlock()

		if minInterval > 0 && elapsed < minInterval.Seconds() {
			p.logger.Debugf("Dropping sample from %s: %.1fms below %.1fms floor",
				s.ID, elapsed*1000, minInterval.Seconds()*1000)
			return nil, false
		}

		delta := upd.Position.Sub(s.lastPos)
		v := delta.Scale(1.0 / elapsed)
		sample.Velocity = &pose.Velocity{
			VX:    v.X,
			VY:    v.Y,
			VZ:    v.Z,
			Speed: v.Norm(),
			DT:    elapsed,
		}
	}

	s.hasLast = true
	s.lastTS = ts
	s.lastPos = upd.Position

	return sample, true
}
