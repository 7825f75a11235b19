package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	OperatorBootstrapFile = "operator_config.yaml"
	VehicleBootstrapFile  = "vehicle_config.yaml"
)

// BootstrapConfig holds the process-level settings loaded once at startup.
// The operational tuning lives in the file named by Data.ConfigFilename.
type BootstrapConfig struct {
	Logging   LoggingConfig         `yaml:"logging"`
	Server    BootstrapServerConfig `yaml:"server"`
	Telemetry TelemetryConfig       `yaml:"telemetry"`
	Data      DataConfig            `yaml:"data"`
}

// LoggingConfig holds logging settings from bootstrap
type LoggingConfig struct {
	Level       string `yaml:"level"`
	LogPath     string `yaml:"log_path,omitempty"`
	GelfAddress string `yaml:"gelf_address,omitempty"`
}

// BootstrapServerConfig holds the status/config HTTP server settings.
// A zero port disables the server.
type BootstrapServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

// TelemetryConfig holds the ZeroMQ status channel endpoints.
// The vehicle binds PublishAddress; the operator connects SubscribeAddress.
type TelemetryConfig struct {
	Enabled          bool          `yaml:"enabled"`
	PublishAddress   string        `yaml:"publish_address,omitempty"`
	SubscribeAddress string        `yaml:"subscribe_address,omitempty"`
	PublishHz        int           `yaml:"publish_hz,omitempty"`
	Metrics          MetricsConfig `yaml:"metrics"`
}

// MetricsConfig controls the OpenTelemetry metrics export. The counters
// are written as JSON every Interval to Path, or to stdout when Path is empty.
type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval,omitempty"`
	Path     string        `yaml:"path,omitempty"`
}

// DataConfig holds data directory settings from bootstrap
type DataConfig struct {
	Directory      string `yaml:"directory"`
	ConfigFilename string `yaml:"config_file"`
}

// ConfigPath returns the full path of the operational config file.
func (b *BootstrapConfig) ConfigPath() string {
	return filepath.Join(b.Data.Directory, b.Data.ConfigFilename)
}

// LoadBootstrapConfig loads configDir/fileName and checks the required fields.
func LoadBootstrapConfig(configDir, fileName string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, fileName)

	data, err := os.ReadFile(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	bootstrapCfg := BootstrapConfig{
		Logging: LoggingConfig{Level: "info"},
		Telemetry: TelemetryConfig{
			PublishHz: 10,
			Metrics:   MetricsConfig{Interval: 30 * time.Second},
		},
	}
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	if bootstrapCfg.Data.Directory == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.directory")
	}
	if bootstrapCfg.Data.ConfigFilename == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.config_file")
	}
	if bootstrapCfg.Telemetry.Metrics.Enabled && bootstrapCfg.Telemetry.Metrics.Interval <= 0 {
		return nil, fmt.Errorf("invalid bootstrap config: telemetry.metrics.interval must be positive")
	}
	if bootstrapCfg.Telemetry.Enabled {
		if bootstrapCfg.Telemetry.PublishAddress == "" && bootstrapCfg.Telemetry.SubscribeAddress == "" {
			return nil, fmt.Errorf("missing required field in bootstrap config: telemetry.publish_address or telemetry.subscribe_address")
		}
		if bootstrapCfg.Telemetry.PublishHz <= 0 {
			return nil, fmt.Errorf("invalid bootstrap config: telemetry.publish_hz must be positive")
		}
	}

	return &bootstrapCfg, nil
}
