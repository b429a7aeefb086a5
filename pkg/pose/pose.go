package pose

import (
	"encoding/json"
	"fmt"
	"math"
)

// Vector3 defines a standard 3D vector.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns v - other component-wise.
func (v Vector3) Sub(other Vector3) Vector3 {
	return Vector3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v multiplied by s.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Norm returns the Euclidean length of v.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Quaternion is an orientation as sent by the client. The relay passes it
// through unchanged and never re-normalizes it.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Velocity is the motion derived between two consecutive accepted samples.
type Velocity struct {
	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
	VZ    float64 `json:"vz"`
	Speed float64 `json:"speed_m_s"`
	DT    float64 `json:"dt"`
}

// Sample is one normalized pose update ready for broadcast. Velocity is nil
// on the first sample from a client. Samples are immutable once built and
// safe to share across the fan-out.
type Sample struct {
	ClientID string     `json:"clientId"`
	TS       float64    `json:"ts"`
	Position Vector3    `json:"position"`
	Rotation Quaternion `json:"rotation"`
	Velocity *Velocity  `json:"velocity,omitempty"`
}

// RawUpdate is a validated inbound pose update. Timestamp is nil when the
// client did not supply one; the pipeline assigns server time in that case.
type RawUpdate struct {
	Position  Vector3
	Rotation  Quaternion
	Timestamp *float64
}

// ValidationError describes why an inbound message was rejected. The
// connection that sent it stays open.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid pose update: %s %s", e.Field, e.Reason)
}

// wire shapes with pointer fields so missing components are detectable.
type wireVector3 struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type wireQuaternion struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
	W *float64 `json:"w"`
}

type wireUpdate struct {
	Position  *wireVector3    `json:"position"`
	Rotation  *wireQuaternion `json:"rotation"`
	Timestamp *float64        `json:"timestamp"`
}

// ParseRawUpdate validates one inbound message. Anything that is not a JSON
// object with fully numeric position and rotation yields a *ValidationError;
// such messages never reach the pipeline. Millisecond-epoch timestamps are
// normalized to seconds.
func ParseRawUpdate(data []byte) (*RawUpdate, error) {
	var w wireUpdate
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &ValidationError{Field: "message", Reason: "is not a valid pose object"}
	}

	if w.Position == nil {
		return nil, &ValidationError{Field: "position", Reason: "is required"}
	}
	if w.Position.X == nil || w.Position.Y == nil || w.Position.Z == nil {
		return nil, &ValidationError{Field: "position", Reason: "must have numeric x, y, z"}
	}
	if w.Rotation == nil {
		return nil, &ValidationError{Field: "rotation", Reason: "is required"}
	}
	if w.Rotation.X == nil || w.Rotation.Y == nil || w.Rotation.Z == nil || w.Rotation.W == nil {
		return nil, &ValidationError{Field: "rotation", Reason: "must have numeric x, y, z, w"}
	}

	upd := &RawUpdate{
		Position: Vector3{X: *w.Position.X, Y: *w.Position.Y, Z: *w.Position.Z},
		Rotation: Quaternion{X: *w.Rotation.X, Y: *w.Rotation.Y, Z: *w.Rotation.Z, W: *w.Rotation.W},
	}

	if w.Timestamp != nil {
		ts := *w.Timestamp
		// WebXR clients tend to send epoch milliseconds; normalize to seconds.
		if ts > 1e12 {
			ts = ts / 1000.0
		}
		upd.Timestamp = &ts
	}

	return upd, nil
}
