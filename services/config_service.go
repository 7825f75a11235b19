package services

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/steer-rc/controller/pkg/config"
	customlog "github.com/steer-rc/controller/pkg/log"
)

// ErrRejectedConfig wraps every parse or validation failure of an update.
var ErrRejectedConfig = errors.New("configuration rejected")

// ConfigListener is notified after a new configuration has been published.
type ConfigListener func(cfg *config.ControlConfig)

// ControlConfigService manages the operator's operational control configuration.
//
// Updates are staged: the YAML is parsed into a fresh value, validated and
// only then published as an immutable snapshot. Readers never observe a
// half-applied update.
type ControlConfigService interface {
	LoadConfig() error
	Current() *config.ControlConfig
	CurrentYAML() ([]byte, error)
	UpdateConfig(newConfigYAML []byte) error
	SetListener(l ConfigListener)
}

// controlConfigService implements the ControlConfigService interface.
type controlConfigService struct {
	operationalConfigPath string
	logger                customlog.Logger
	current               atomic.Pointer[config.ControlConfig]

	mu       sync.Mutex
	listener ConfigListener
}

// NewControlConfigService creates the service and loads the operational
// config from path. An empty path starts from defaults; a file that exists
// but does not validate is an error.
func NewControlConfigService(operationalConfigPath string, logger customlog.Logger) (ControlConfigService, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	service := &controlConfigService{
		operationalConfigPath: operationalConfigPath,
		logger:                logger,
	}

	defaults := config.DefaultControlConfig()
	service.current.Store(&defaults)

	if operationalConfigPath == "" {
		logger.Infof("No operational config file set, using defaults")
		return service, nil
	}
	if err := service.LoadConfig(); err != nil {
		return nil, err
	}

	logger.Infof("ControlConfigService initialized from %s", operationalConfigPath)
	return service, nil
}

// LoadConfig reads the operational config file and publishes it.
func (s *controlConfigService) LoadConfig() error {
	s.logger.Infof("Loading operational configuration from: %s", s.operationalConfigPath)

	cfg, err := config.LoadControlConfig(s.operationalConfigPath)
	if err != nil {
		s.logger.Errorf("Error loading operational config '%s': %v", s.operationalConfigPath, err)
		return fmt.Errorf("error loading operational config '%s': %w", s.operationalConfigPath, err)
	}

	s.publish(&cfg)
	return nil
}

// Current returns the published snapshot. Callers must treat it as read-only.
func (s *controlConfigService) Current() *config.ControlConfig {
	return s.current.Load()
}

// CurrentYAML renders the published snapshot, for the UI to edit.
func (s *controlConfigService) CurrentYAML() ([]byte, error) {
	data, err := yaml.Marshal(s.current.Load())
	if err != nil {
		return nil, fmt.Errorf("error rendering control config: %w", err)
	}
	return data, nil
}

// UpdateConfig parses and validates the YAML as a complete new configuration
// (unset fields take defaults) and publishes it. On error nothing changes.
func (s *controlConfigService) UpdateConfig(newConfigYAML []byte) error {
	s.logger.Infof("Attempting to update control configuration from provided YAML")

	newCfg, err := config.ParseControlConfig(newConfigYAML)
	if err != nil {
		s.logger.Warnf("Rejected control configuration: %v", err)
		return fmt.Errorf("%w: %v", ErrRejectedConfig, err)
	}

	s.publish(&newCfg)
	return nil
}

// SetListener installs the function called after each publish.
func (s *controlConfigService) SetListener(l ConfigListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

func (s *controlConfigService) publish(cfg *config.ControlConfig) {
	s.current.Store(cfg)
	s.logger.Infof("Published control configuration: target %s:%d, throttle range %v, interval %v",
		cfg.UDPHost, cfg.UDPPort, cfg.ThrottleRange, cfg.SendInterval)

	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener != nil {
		listener(cfg)
	}
}
