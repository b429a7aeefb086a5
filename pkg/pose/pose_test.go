package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRawUpdateValid(t *testing.T) {
	msg := []byte(`{
		"position": {"x": 1.5, "y": -2.0, "z": 0.25},
		"rotation": {"x": 0, "y": 0, "z": 0, "w": 1},
		"timestamp": 100.5
	}`)

	upd, err := ParseRawUpdate(msg)
	require.NoError(t, err)

	assert.Equal(t, Vector3{X: 1.5, Y: -2.0, Z: 0.25}, upd.Position)
	assert.Equal(t, Quaternion{X: 0, Y: 0, Z: 0, W: 1}, upd.Rotation)
	require.NotNil(t, upd.Timestamp)
	assert.Equal(t, 100.5, *upd.Timestamp)
}

func TestParseRawUpdateNoTimestamp(t *testing.T) {
	msg := []byte(`{"position": {"x": 0, "y": 0, "z": 0}, "rotation": {"x": 0, "y": 0, "z": 0, "w": 1}}`)

	upd, err := ParseRawUpdate(msg)
	require.NoError(t, err)
	assert.Nil(t, upd.Timestamp)
}

func TestParseRawUpdateMillisecondTimestamp(t *testing.T) {
	// Epoch milliseconds get normalized to seconds.
	msg := []byte(`{
		"position": {"x": 0, "y": 0, "z": 0},
		"rotation": {"x": 0, "y": 0, "z": 0, "w": 1},
		"timestamp": 1700000000000
	}`)

	upd, err := ParseRawUpdate(msg)
	require.NoError(t, err)
	require.NotNil(t, upd.Timestamp)
	assert.InDelta(t, 1700000000.0, *upd.Timestamp, 1e-9)
}

func TestParseRawUpdateMalformed(t *testing.T) {
	cases := []struct {
		name string
		msg  string
	}{
		{"not json", `hello`},
		{"position not an object", `{"position": "not-a-number", "rotation": {"x":0,"y":0,"z":0,"w":1}}`},
		{"missing position", `{"rotation": {"x":0,"y":0,"z":0,"w":1}}`},
		{"missing rotation", `{"position": {"x":0,"y":0,"z":0}}`},
		{"non-numeric coordinate", `{"position": {"x":"a","y":0,"z":0}, "rotation": {"x":0,"y":0,"z":0,"w":1}}`},
		{"missing position component", `{"position": {"x":0,"y":0}, "rotation": {"x":0,"y":0,"z":0,"w":1}}`},
		{"missing quaternion w", `{"position": {"x":0,"y":0,"z":0}, "rotation": {"x":0,"y":0,"z":0}}`},
		{"non-numeric timestamp", `{"position": {"x":0,"y":0,"z":0}, "rotation": {"x":0,"y":0,"z":0,"w":1}, "timestamp": "later"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			upd, err := ParseRawUpdate([]byte(tc.msg))
			require.Error(t, err)
			assert.Nil(t, upd)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestQuaternionPassthrough(t *testing.T) {
	// Non-unit quaternions are not re-normalized.
	msg := []byte(`{"position": {"x":0,"y":0,"z":0}, "rotation": {"x":3,"y":4,"z":0,"w":12}}`)

	upd, err := ParseRawUpdate(msg)
	require.NoError(t, err)
	assert.Equal(t, Quaternion{X: 3, Y: 4, Z: 0, W: 12}, upd.Rotation)
}

func TestVector3Math(t *testing.T) {
	a := Vector3{X: 3, Y: 4, Z: 0}
	assert.InDelta(t, 5.0, a.Norm(), 1e-12)

	b := Vector3{X: 1, Y: 1, Z: 1}
	assert.Equal(t, Vector3{X: 2, Y: 3, Z: -1}, a.Sub(b))
	assert.Equal(t, Vector3{X: 6, Y: 8, Z: 0}, a.Scale(2))
}

func TestVelocitySpeedIsNorm(t *testing.T) {
	v := Vector3{X: 1.2, Y: -3.4, Z: 0.5}
	speed := v.Norm()
	assert.InDelta(t, math.Sqrt(1.2*1.2+3.4*3.4+0.5*0.5), speed, 1e-12)
}
