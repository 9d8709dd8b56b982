// Package config loads the helpdesk bot configuration: the shared core
// sections plus the database, storage and web trigger settings.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "helpdeskbot/core/config"
	coredatabase "helpdeskbot/core/database"
)

// StorageConfig controls where downloaded attachments and static texts live.
type StorageConfig struct {
	UploadDir  string `yaml:"upload_dir" envconfig:"STORAGE_UPLOAD_DIR"`
	PolicyPath string `yaml:"policy_path" envconfig:"STORAGE_POLICY_PATH"`
}

// WebConfig configures the dashboard-facing trigger endpoint.
type WebConfig struct {
	Listen string `yaml:"listen" envconfig:"WEB_LISTEN"`
}

// Config aggregates everything the helpdesk bot needs to start.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Storage  StorageConfig       `yaml:"storage"`
	Web      WebConfig           `yaml:"web"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// Load reads the YAML file, applies environment overrides, and validates.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}

	if cfg.Database.Host == "" || cfg.Database.Name == "" {
		return nil, fmt.Errorf("database.host and database.name are required")
	}
	if cfg.Database.MaxConnections <= 0 {
		cfg.Database.MaxConnections = 10
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "uploads"
	}
	if cfg.Storage.PolicyPath == "" {
		cfg.Storage.PolicyPath = "pdn_policy.txt"
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8081"
	}

	return &cfg, nil
}
