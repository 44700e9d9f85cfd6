package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all configuration options for the ThermoHub8 bridge.
// It is immutable after Validate has run.
type Config struct {
	// Hub configuration
	BaseURL      string `json:"base_url"`      // hub base URL, scheme defaults to http
	APIKey       string `json:"api_key"`       // optional bearer token
	VerifySSL    bool   `json:"verify_ssl"`    // verify the hub's TLS certificate
	ScanInterval int    `json:"scan_interval"` // poll interval in seconds, clamped to [1, 60]

	// MQTT / Home Assistant configuration
	MQTTUrl         string `json:"mqtt_url"`         // MQTT URL (ws, wss, mqtt or mqtts)
	DiscoveryPrefix string `json:"discovery_prefix"` // Home Assistant discovery prefix
	DeviceID        string `json:"device_id"`        // unique device identifier

	// Application configuration
	PublishInterval int    `json:"publish_interval"` // MQTT state publish cadence in seconds
	MetricsAddr     string `json:"metrics_addr"`     // listen address for metrics/diagnostics, "" disables
	Verbose         bool   `json:"verbose"`          // enable debug logging
}

// Validate checks the configuration and normalizes defaulted fields.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("hub base URL is required")
	}
	c.BaseURL = normalizeBaseURL(c.BaseURL)

	if c.DeviceID == "" {
		return fmt.Errorf("device ID is required")
	}

	if c.MQTTUrl != "" {
		if !strings.HasPrefix(c.MQTTUrl, "ws://") &&
			!strings.HasPrefix(c.MQTTUrl, "wss://") &&
			!strings.HasPrefix(c.MQTTUrl, "mqtt://") &&
			!strings.HasPrefix(c.MQTTUrl, "mqtts://") {
			return fmt.Errorf("MQTT URL must use supported protocol (ws://, wss://, mqtt://, or mqtts://)")
		}
	}

	// Out-of-range intervals are clamped, not rejected: the hub tolerates
	// any cadence in [1, 60] and a bad option should not keep the bridge down.
	if c.ScanInterval < MinScanInterval {
		if c.ScanInterval != 0 {
			c.ScanInterval = MinScanInterval
		} else {
			c.ScanInterval = DefaultScanInterval
		}
	}
	if c.ScanInterval > MaxScanInterval {
		c.ScanInterval = MaxScanInterval
	}

	if c.PublishInterval <= 0 {
		c.PublishInterval = DefaultPublishInterval
	}

	return nil
}

// normalizeBaseURL defaults the scheme to http and strips a trailing slash so
// path joining stays predictable.
func normalizeBaseURL(raw string) string {
	u := strings.TrimRight(raw, "/")
	if !strings.Contains(u, "://") {
		u = "http://" + u
	}
	return u
}

// HasMQTT returns true if an MQTT broker is configured.
func (c *Config) HasMQTT() bool {
	return c.MQTTUrl != ""
}

// GetScanInterval returns the poll cadence as a duration.
func (c *Config) GetScanInterval() time.Duration {
	return time.Duration(c.ScanInterval) * time.Second
}

// GetPublishInterval returns the MQTT publish cadence as a duration.
func (c *Config) GetPublishInterval() time.Duration {
	return time.Duration(c.PublishInterval) * time.Second
}
