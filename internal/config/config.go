// Package config loads and validates rangescan configuration from YAML
// files and the environment.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cyberrange/rangescan/internal/db"
	"github.com/cyberrange/rangescan/internal/errors"
	"github.com/cyberrange/rangescan/internal/logging"
)

// ScannerConfig holds settings for the external nmap binary.
type ScannerConfig struct {
	// Binary is the nmap executable name or path.
	Binary string `yaml:"binary" json:"binary"`
	// DefaultTemplate is used when a scan request names no template.
	DefaultTemplate string `yaml:"default_template" json:"default_template"`
	// TemplatesFile stores user-defined scan templates.
	TemplatesFile string `yaml:"templates_file" json:"templates_file"`
	// ReportsDir receives exported reports and nmap output files.
	ReportsDir string `yaml:"reports_dir" json:"reports_dir"`
}

// Config is the full application configuration.
type Config struct {
	Database db.Config      `yaml:"database" json:"database"`
	Scanner  ScannerConfig  `yaml:"scanner" json:"scanner"`
	Logging  logging.Config `yaml:"logging" json:"logging"`
}

// Default returns the baseline configuration before file and environment
// overrides.
func Default() *Config {
	return &Config{
		Database: db.DefaultConfig(),
		Scanner: ScannerConfig{
			Binary:          "nmap",
			DefaultTemplate: "Quick Scan",
			TemplatesFile:   "scan_templates.json",
			ReportsDir:      "reports",
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads configuration from a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			fmt.Sprintf("Failed to read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			fmt.Sprintf("Failed to parse config file %s", path), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Scanner.Binary == "" {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"scanner binary must not be empty", "scanner.binary", c.Scanner.Binary)
	}
	if c.Database.Host == "" {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"database host must not be empty", "database.host", c.Database.Host)
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"database port must be between 1 and 65535", "database.port", c.Database.Port)
	}
	if c.Database.MaxOpenConns < c.Database.MaxIdleConns {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"max_open_conns must not be less than max_idle_conns",
			"database.max_open_conns", c.Database.MaxOpenConns)
	}
	return nil
}
