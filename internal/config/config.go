package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/strand-cli/strand/internal/util"
)

const (
	defaultConfigName = ".strand"
	defaultConfigDir  = ".strand"
)

// Manager handles strand configuration
type Manager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
}

// NewManager creates a new configuration manager
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		viper:      viper.New(),
		config:     &Config{},
	}
}

// Load loads the strand configuration from file
func (m *Manager) Load() (*Config, error) {
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	} else {
		// Try multiple locations
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		// Check ~/.strand/config.yaml
		m.viper.AddConfigPath(filepath.Join(home, defaultConfigDir))
		// Check ~/.strand.yaml
		m.viper.AddConfigPath(home)
		m.viper.SetConfigName(defaultConfigName)
		m.viper.SetConfigType("yaml")
	}

	if err := m.viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if err := m.viper.Unmarshal(m.config); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidConfig, err)
	}

	m.config.ApplyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m.config, nil
}

// Validate checks the loaded configuration for consistency
func (m *Manager) Validate() error {
	seen := make(map[string]bool)
	for _, job := range m.config.Jobs {
		if job.Name == "" {
			return util.NewValidationError("jobs.name", nil, "job name must not be empty")
		}
		if seen[job.Name] {
			return util.NewValidationError("jobs.name", job.Name, "duplicate job name")
		}
		seen[job.Name] = true

		if job.FailAt < 0 {
			return util.NewValidationError("jobs.failAt", job.FailAt, "must not be negative")
		}
		if job.FailAt > job.Steps {
			return util.NewValidationError("jobs.failAt", job.FailAt,
				fmt.Sprintf("exceeds step count %d", job.Steps))
		}
	}

	switch m.config.Defaults.OutputFormat {
	case "", "table", "json", "yaml":
	default:
		return util.NewValidationError("defaults.outputFormat", m.config.Defaults.OutputFormat,
			"must be one of table, json, yaml")
	}

	return nil
}

// Save writes the current configuration to the given path as YAML
func (m *Manager) Save(path string) error {
	if path == "" {
		path = m.configPath
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, defaultConfigDir, "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Config returns the currently loaded configuration
func (m *Manager) Config() *Config {
	return m.config
}
