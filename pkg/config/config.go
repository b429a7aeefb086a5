package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the operational relay configuration. Unlike the bootstrap
// config it can be replaced at runtime through the config API.
type Config struct {
	Version     string      `yaml:"version" json:"version"`
	ConfigID    string      `yaml:"config_id" json:"config_id"`
	LastUpdated string      `yaml:"lastUpdated" json:"lastUpdated"`
	Relay       RelayConfig `yaml:"relay" json:"relay"`
}

// RelayConfig holds the tunables consumed by the pose relay core.
type RelayConfig struct {
	// MaxSendRateHz caps accepted samples per sender. Samples arriving
	// faster than the implied minimum interval are dropped.
	MaxSendRateHz int `yaml:"max_send_rate_hz" json:"max_send_rate_hz"`
	// HeartbeatIntervalS is the ping cadence on every connection.
	HeartbeatIntervalS int `yaml:"heartbeat_interval_s" json:"heartbeat_interval_s"`
	// HeartbeatTimeoutMultiple scales the interval into the pong deadline.
	HeartbeatTimeoutMultiple int `yaml:"heartbeat_timeout_multiple" json:"heartbeat_timeout_multiple"`
	// SendQueueSize bounds each viewer's outbound queue.
	SendQueueSize int `yaml:"send_queue_size" json:"send_queue_size"`
	// MaxMessageBytes caps inbound message size.
	MaxMessageBytes int `yaml:"max_message_bytes" json:"max_message_bytes"`
}

// DefaultConfig returns the operational config used when no file exists yet.
func DefaultConfig() *Config {
	return &Config{
		Version:  "1.0",
		ConfigID: "relay-defaults",
		Relay: RelayConfig{
			MaxSendRateHz:            30,
			HeartbeatIntervalS:       30,
			HeartbeatTimeoutMultiple: 2,
			SendQueueSize:            64,
			MaxMessageBytes:          1 << 20,
		},
	}
}

// LoadConfig loads the operational configuration from the specified file path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the relay tunables for values the core cannot run with.
func (c *Config) Validate() error {
	if c.Relay.MaxSendRateHz < 0 {
		return fmt.Errorf("relay.max_send_rate_hz must be >= 0, got %d", c.Relay.MaxSendRateHz)
	}
	if c.Relay.HeartbeatIntervalS <= 0 {
		return fmt.Errorf("relay.heartbeat_interval_s must be > 0, got %d", c.Relay.HeartbeatIntervalS)
	}
	if c.Relay.HeartbeatTimeoutMultiple < 1 {
		return fmt.Errorf("relay.heartbeat_timeout_multiple must be >= 1, got %d", c.Relay.HeartbeatTimeoutMultiple)
	}
	if c.Relay.SendQueueSize <= 0 {
		return fmt.Errorf("relay.send_queue_size must be > 0, got %d", c.Relay.SendQueueSize)
	}
	if c.Relay.MaxMessageBytes < 0 {
		return fmt.Errorf("relay.max_message_bytes must be >= 0, got %d", c.Relay.MaxMessageBytes)
	}
	return nil
}

// ApplyDefaults fills zero-valued fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.Relay.MaxSendRateHz == 0 {
		c.Relay.MaxSendRateHz = def.Relay.MaxSendRateHz
	}
	if c.Relay.HeartbeatIntervalS == 0 {
		c.Relay.HeartbeatIntervalS = def.Relay.HeartbeatIntervalS
	}
	if c.Relay.HeartbeatTimeoutMultiple == 0 {
		c.Relay.HeartbeatTimeoutMultiple = def.Relay.HeartbeatTimeoutMultiple
	}
	if c.Relay.SendQueueSize == 0 {
		c.Relay.SendQueueSize = def.Relay.SendQueueSize
	}
	if c.Relay.MaxMessageBytes == 0 {
		c.Relay.MaxMessageBytes = def.Relay.MaxMessageBytes
	}
}

// MinSampleInterval converts the max send rate into the minimum accepted
// spacing between samples. A rate of 0 disables throttling.
func (c *RelayConfig) MinSampleInterval() time.Duration {
	if c.MaxSendRateHz <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.MaxSendRateHz)
}

// HeartbeatInterval returns the ping cadence as a duration.
func (c *RelayConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalS) * time.Second
}

// HeartbeatTimeout returns the pong deadline as a duration.
func (c *RelayConfig) HeartbeatTimeout() time.Duration {
	return c.HeartbeatInterval() * time.Duration(c.HeartbeatTimeoutMultiple)
}
