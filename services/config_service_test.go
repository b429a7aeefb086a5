package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debugf(format string, args ...interface{}) {}
func (nopLogger) Infof(format string, args ...interface{})  {}
func (nopLogger) Warnf(format string, args ...interface{})  {}
func (nopLogger) Errorf(format string, args ...interface{}) {}
func (nopLogger) Fatalf(format string, args ...interface{}) {}

type fakeUpdater struct {
	rates []int
}

func (f *fakeUpdater) SetMaxSendRate(hz int) {
	f.rates = append(f.rates, hz)
}

func TestServiceStartsOnDefaultsWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay_settings.yaml")

	svc, err := NewRelayConfigService(path, nopLogger{})
	require.NoError(t, err)

	cfg := svc.GetCurrentConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, 30, cfg.Relay.MaxSendRateHz)
}

func TestServiceLoadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay_settings.yaml")
	content := `
version: "1.0"
config_id: "test"
relay:
  max_send_rate_hz: 15
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	svc, err := NewRelayConfigService(path, nopLogger{})
	require.NoError(t, err)

	cfg := svc.GetCurrentConfig()
	assert.Equal(t, 15, cfg.Relay.MaxSendRateHz)
	assert.Equal(t, "test", cfg.ConfigID)
}

func TestUpdateConfigAppliesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay_settings.yaml")

	svc, err := NewRelayConfigService(path, nopLogger{})
	require.NoError(t, err)

	updater := &fakeUpdater{}
	svc.SetThrottleUpdater(updater)

	newYAML := []byte(`
version: "1.1"
config_id: "updated"
relay:
  max_send_rate_hz: 60
  heartbeat_interval_s: 15
`)
	require.NoError(t, svc.UpdateConfig(newYAML))

	cfg := svc.GetCurrentConfig()
	assert.Equal(t, "updated", cfg.ConfigID)
	assert.Equal(t, 60, cfg.Relay.MaxSendRateHz)
	assert.NotEmpty(t, cfg.LastUpdated)

	// The running pipeline got the new rate.
	assert.Equal(t, []int{60}, updater.rates)

	// The file was persisted and survives a reload.
	svc2, err := NewRelayConfigService(path, nopLogger{})
	require.NoError(t, err)
	assert.Equal(t, 60, svc2.GetCurrentConfig().Relay.MaxSendRateHz)
}

func TestUpdateConfigRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay_settings.yaml")

	svc, err := NewRelayConfigService(path, nopLogger{})
	require.NoError(t, err)

	err = svc.UpdateConfig([]byte("relay: [not: closed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid YAML")
}

func TestUpdateConfigRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay_settings.yaml")

	svc, err := NewRelayConfigService(path, nopLogger{})
	require.NoError(t, err)

	err = svc.UpdateConfig([]byte(`
relay:
  max_send_rate_hz: -5
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	// The active config is untouched after a failed update.
	assert.Equal(t, 30, svc.GetCurrentConfig().Relay.MaxSendRateHz)
}

func TestGetCurrentConfigYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay_settings.yaml")

	svc, err := NewRelayConfigService(path, nopLogger{})
	require.NoError(t, err)

	data, err := svc.GetCurrentConfigYAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_send_rate_hz: 30")
}
