package io

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/jarvis/internal/model"
)

// ConfigYAMLRepository loads client configuration from YAML files.
type ConfigYAMLRepository struct {
	fs fs.FS
}

// NewConfigYAMLRepository creates a new YAML config repository.
func NewConfigYAMLRepository(filesystem fs.FS) *ConfigYAMLRepository {
	return &ConfigYAMLRepository{fs: filesystem}
}

// GetConfig loads a client configuration from a YAML file. Missing fields are
// left at their zero value so they can be merged with other sources.
func (r *ConfigYAMLRepository) GetConfig(ctx context.Context, path string) (model.ClientConfig, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.ClientConfig{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return model.ClientConfig{}, ctx.Err()
	}

	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.ClientConfig{}, fmt.Errorf("parsing YAML: %w", err)
	}

	m, err := cfg.toModel()
	if err != nil {
		return model.ClientConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return m, nil
}

// ClientConfig represents the YAML structure for the client configuration.
type ClientConfig struct {
	ServerURL string         `yaml:"server_url"`
	Push      PushConfig     `yaml:"push"`
	Progress  ProgressConfig `yaml:"progress"`
	Storage   StorageConfig  `yaml:"storage"`
}

// PushConfig represents the YAML structure for the push channel configuration.
type PushConfig struct {
	ReconnectDelay string `yaml:"reconnect_delay"`
	PingInterval   string `yaml:"ping_interval"`
}

// ProgressConfig represents the YAML structure for the progress configuration.
type ProgressConfig struct {
	ArtifactsDelay string `yaml:"artifacts_delay"`
}

// StorageConfig represents the YAML structure for the local storage configuration.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

func (c ClientConfig) toModel() (model.ClientConfig, error) {
	reconnect, err := parseDuration("push.reconnect_delay", c.Push.ReconnectDelay)
	if err != nil {
		return model.ClientConfig{}, err
	}
	ping, err := parseDuration("push.ping_interval", c.Push.PingInterval)
	if err != nil {
		return model.ClientConfig{}, err
	}
	artifacts, err := parseDuration("progress.artifacts_delay", c.Progress.ArtifactsDelay)
	if err != nil {
		return model.ClientConfig{}, err
	}

	return model.ClientConfig{
		ServerURL:      c.ServerURL,
		ReconnectDelay: reconnect,
		ArtifactsDelay: artifacts,
		PingInterval:   ping,
		DBPath:         c.Storage.DBPath,
	}, nil
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got: %s", field, s)
	}

	return d, nil
}
