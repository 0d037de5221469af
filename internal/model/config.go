package model

import (
	"fmt"
	"net/url"
	"time"
)

// ClientConfig is the configuration of a client connecting to a backend.
type ClientConfig struct {
	ServerURL      string
	ReconnectDelay time.Duration
	ArtifactsDelay time.Duration
	PingInterval   time.Duration
	DBPath         string
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server url is required: %w", ErrNotValid)
	}

	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server url %q: %w", c.ServerURL, ErrNotValid)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server url scheme must be http or https, got %q: %w", u.Scheme, ErrNotValid)
	}
	if u.Host == "" {
		return fmt.Errorf("server url host is required: %w", ErrNotValid)
	}

	if c.ReconnectDelay < 0 {
		return fmt.Errorf("reconnect delay can't be negative: %w", ErrNotValid)
	}
	if c.ArtifactsDelay < 0 {
		return fmt.Errorf("artifacts delay can't be negative: %w", ErrNotValid)
	}
	if c.PingInterval < 0 {
		return fmt.Errorf("ping interval can't be negative: %w", ErrNotValid)
	}

	return nil
}
