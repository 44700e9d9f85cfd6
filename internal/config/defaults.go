package config

// Central place for application-wide defaults and bounds. Changing a value
// here immediately affects all components that import this package.

const (
	// Poll interval bounds (seconds). The hub refuses nothing, but anything
	// below 1s hammers it and anything above 60s makes readings useless.
	MinScanInterval     = 1
	MaxScanInterval     = 60
	DefaultScanInterval = 5

	// MQTT state publish cadence (seconds).
	DefaultPublishInterval = 30

	DefaultDiscoveryPrefix = "homeassistant"
	DefaultDeviceID        = "thermohub8"
	DefaultMetricsAddr     = ":9188"
)

// GetDefaultConfig returns a configuration with sensible defaults.
func GetDefaultConfig() *Config {
	return &Config{
		VerifySSL:       true,
		ScanInterval:    DefaultScanInterval,
		DiscoveryPrefix: DefaultDiscoveryPrefix,
		DeviceID:        DefaultDeviceID,
		PublishInterval: DefaultPublishInterval,
		MetricsAddr:     DefaultMetricsAddr,
	}
}
