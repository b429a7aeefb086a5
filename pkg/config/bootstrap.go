package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BootstrapConfig holds the startup configuration loaded from relay_config.yaml.
// Runtime-adjustable relay tunables live in the operational Config instead.
type BootstrapConfig struct {
	Logging LoggingConfig   `yaml:"logging"`
	Server  ServerConfig    `yaml:"server"`
	ZeroMQ  ZeroMQBootstrap `yaml:"zeromq"`
	Data    DataConfig      `yaml:"data"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogPath string `yaml:"log_path,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

// ZeroMQBootstrap holds settings for the optional pose tap publisher.
type ZeroMQBootstrap struct {
	Enabled            bool   `yaml:"enabled"`
	PublishBindAddress string `yaml:"publish_bind_address"`
	SendTimeoutMs      int    `yaml:"send_timeout_ms"`
}

// DataConfig points at the directory holding the operational relay config.
type DataConfig struct {
	Directory       string `yaml:"directory"`
	RelayConfigFile string `yaml:"relay_config_file"`
}

// LoadBootstrapConfig loads relay_config.yaml from the given directory.
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, "relay_config.yaml")

	data, err := os.ReadFile(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	var bootstrapCfg BootstrapConfig
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	if bootstrapCfg.Server.HTTPPort == 0 {
		bootstrapCfg.Server.HTTPPort = 8765
	}
	if bootstrapCfg.Logging.Level == "" {
		bootstrapCfg.Logging.Level = "info"
	}
	if bootstrapCfg.ZeroMQ.Enabled && bootstrapCfg.ZeroMQ.PublishBindAddress == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: zeromq.publish_bind_address")
	}
	if bootstrapCfg.Data.Directory == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.directory")
	}
	if bootstrapCfg.Data.RelayConfigFile == "" {
		bootstrapCfg.Data.RelayConfigFile = "relay_settings.yaml"
	}

	return &bootstrapCfg, nil
}

// OperationalConfigPath returns the full path of the operational relay config.
func (b *BootstrapConfig) OperationalConfigPath() string {
	return filepath.Join(b.Data.Directory, b.Data.RelayConfigFile)
}
