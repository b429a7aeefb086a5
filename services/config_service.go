package services

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/srivas-saksham/SpatialParallax/pkg/config"
	customlog "github.com/srivas-saksham/SpatialParallax/pkg/log"
)

// ThrottleUpdater applies a new max send rate to the running pipeline.
// This avoids a direct dependency on the concrete pipeline implementation.
type ThrottleUpdater interface {
	SetMaxSendRate(hz int)
}

// RelayConfigService defines the interface for managing the operational
// relay configuration at runtime.
type RelayConfigService interface {
	LoadConfig() error
	GetCurrentConfig() *config.Config
	GetCurrentConfigYAML() ([]byte, error)
	UpdateConfig(newConfigYAML []byte) error
	PersistConfig(yamlData []byte) error
	SetThrottleUpdater(u ThrottleUpdater)
}

// relayConfigService implements the RelayConfigService interface.
type relayConfigService struct {
	operationalConfigPath string
	logger                customlog.Logger
	throttleUpdater       ThrottleUpdater
	currentConfig         *config.Config
	mu                    sync.RWMutex
}

// NewRelayConfigService creates a new RelayConfigService. The updater can be
// set later via SetThrottleUpdater. A missing config file is not fatal: the
// service starts on defaults and the file is created on the first update.
func NewRelayConfigService(operationalConfigPath string, logger customlog.Logger) (RelayConfigService, error) {
	if operationalConfigPath == "" {
		return nil, fmt.Errorf("operational configuration path cannot be empty")
	}
	if logger == nil {
		logger, _ = customlog.NewLogrusLogger("info", "")
		logger.Warnf("No logger provided to RelayConfigService, using default.")
	}

	service := &relayConfigService{
		operationalConfigPath: operationalConfigPath,
		logger:                logger,
		currentConfig:         config.DefaultConfig(),
		mu:                    sync.RWMutex{},
	}

	if err := service.LoadConfig(); err != nil {
		logger.Warnf("Initial load of relay config '%s' failed: %v. Starting on defaults.", operationalConfigPath, err)
		return service, nil
	}

	logger.Infof("RelayConfigService initialized from: %s", operationalConfigPath)
	return service, nil
}

// LoadConfig reads the operational config file and replaces currentConfig.
func (s *relayConfigService) LoadConfig() error {
	cfg, err := config.LoadConfig(s.operationalConfigPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.currentConfig = cfg
	s.mu.Unlock()

	s.logger.Infof("Loaded relay configuration (ID: %s, max rate: %d Hz)", cfg.ConfigID, cfg.Relay.MaxSendRateHz)
	return nil
}

// GetCurrentConfig returns the active configuration.
func (s *relayConfigService) GetCurrentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentConfig
}

// GetCurrentConfigYAML returns the active configuration serialized as YAML.
func (s *relayConfigService) GetCurrentConfigYAML() ([]byte, error) {
	s.mu.RLock()
	cfg := s.currentConfig
	s.mu.RUnlock()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize relay config: %w", err)
	}
	return data, nil
}

// UpdateConfig validates, applies and persists a new configuration supplied
// as YAML. On success the new throttle rate is pushed to the pipeline.
func (s *relayConfigService) UpdateConfig(newConfigYAML []byte) error {
	var newCfg config.Config
	if err := yaml.Unmarshal(newConfigYAML, &newCfg); err != nil {
		return fmt.Errorf("invalid YAML format: %w", err)
	}

	newCfg.ApplyDefaults()
	if err := newCfg.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	newCfg.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	persisted, err := yaml.Marshal(&newCfg)
	if err != nil {
		return fmt.Errorf("failed to serialize updated config: %w", err)
	}
	if err := s.PersistConfig(persisted); err != nil {
		return err
	}

	s.mu.Lock()
	s.currentConfig = &newCfg
	updater := s.throttleUpdater
	s.mu.Unlock()

	if updater != nil {
		updater.SetMaxSendRate(newCfg.Relay.MaxSendRateHz)
	}

	s.logger.Infof("Relay configuration updated (ID: %s, max rate: %d Hz)", newCfg.ConfigID, newCfg.Relay.MaxSendRateHz)
	return nil
}

// PersistConfig writes the given YAML to the operational config path.
func (s *relayConfigService) PersistConfig(yamlData []byte) error {
	if err := os.WriteFile(s.operationalConfigPath, yamlData, 0644); err != nil {
		return fmt.Errorf("failed to write relay config '%s': %w", s.operationalConfigPath, err)
	}
	return nil
}

// SetThrottleUpdater wires the running pipeline into config updates.
func (s *relayConfigService) SetThrottleUpdater(u ThrottleUpdater) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttleUpdater = u
}
