package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/thermohub/thermohub8-hass/internal/api"
	"github.com/thermohub/thermohub8-hass/internal/app"
	"github.com/thermohub/thermohub8-hass/internal/bus"
	"github.com/thermohub/thermohub8-hass/internal/config"
	"github.com/thermohub/thermohub8-hass/internal/metrics"
	"github.com/thermohub/thermohub8-hass/internal/mqtt"
	"github.com/thermohub/thermohub8-hass/internal/poller"
	"github.com/thermohub/thermohub8-hass/internal/readings"
)

// version is injected at build time via ldflags
var version = "dev"

func main() {
	cfg := parseFlags()

	logger := setupLogger(cfg.Verbose)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	logger.WithFields(logrus.Fields{
		"version":   version,
		"hub":       cfg.BaseURL,
		"device_id": cfg.DeviceID,
		"poll":      cfg.GetScanInterval(),
	}).Info("Starting thermohub8-hass")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("Shutdown signal received")
		cancel()
	}()

	// Core clients ---------------------------------------------------------------
	client := api.NewClient(cfg.BaseURL, cfg.APIKey, cfg.VerifySSL, logger)
	messageBus := bus.New()
	pollr := poller.New(client, cfg.GetScanInterval(), messageBus, logger)

	registry := prometheus.NewRegistry()
	mtr := metrics.New(registry)
	pollr.SetOnCycle(func(err error) {
		sensorCount := len(readings.Normalize(pollr.Data()))
		var lastSuccess float64
		if ts := pollr.LastSuccess(); !ts.IsZero() {
			lastSuccess = float64(ts.Unix())
		}
		mtr.ObserveCycle(err, pollr.FailureStreak(), sensorCount, lastSuccess)
	})

	var mqttClient *mqtt.Client
	if cfg.HasMQTT() {
		var err error
		mqttClient, err = mqtt.NewClient(cfg.MQTTUrl, cfg.DeviceID, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create MQTT client")
		}
		defer mqttClient.Disconnect(250)
		logger.Info("MQTT transmitter ready")
	} else {
		logger.Warn("No MQTT broker configured; readings are only served via metrics and diagnostics")
	}

	// Run application ------------------------------------------------------------
	if err := app.Run(ctx, cfg, pollr, messageBus, mqttClient, registry, logger); err != nil {
		logger.WithError(err).Fatal("thermohub8-hass failed")
	}
	logger.Info("thermohub8-hass stopped")
}

// -----------------------------------------------------------------------------
// Helpers & Flags
// -----------------------------------------------------------------------------

func parseFlags() *config.Config {
	// Optional .env next to the binary; real env always wins.
	_ = godotenv.Load()

	cfg := config.GetDefaultConfig()

	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.StringVar(&cfg.BaseURL, "base-url", getEnv("THERMOHUB8_BASE_URL", cfg.BaseURL), "ThermoHub8 base URL (scheme defaults to http)")
	flag.StringVar(&cfg.APIKey, "api-key", getEnv("THERMOHUB8_API_KEY", cfg.APIKey), "Bearer token for the hub API")
	flag.BoolVar(&cfg.VerifySSL, "verify-ssl", getEnvBool("THERMOHUB8_VERIFY_SSL", cfg.VerifySSL), "Verify the hub's TLS certificate")
	flag.StringVar(&cfg.MQTTUrl, "mqtt-url", getEnv("THERMOHUB8_MQTT_URL", cfg.MQTTUrl), "MQTT URL")
	flag.StringVar(&cfg.DiscoveryPrefix, "discovery-prefix", getEnv("THERMOHUB8_DISCOVERY_PREFIX", cfg.DiscoveryPrefix), "HA discovery prefix")
	flag.StringVar(&cfg.DeviceID, "device-id", getEnv("THERMOHUB8_DEVICE_ID", cfg.DeviceID), "Device identifier")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", getEnv("THERMOHUB8_METRICS_ADDR", cfg.MetricsAddr), "Metrics/diagnostics listen address (empty to disable)")
	flag.BoolVar(&cfg.Verbose, "verbose", getEnv("THERMOHUB8_VERBOSE", "false") == "true", "Verbose logging")

	scanIntervalStr := flag.String("scan-interval", getEnv("THERMOHUB8_SCAN_INTERVAL", ""), "Poll interval in seconds (1-60) or duration (e.g. 5s)")
	publishIntervalStr := flag.String("publish-interval", getEnv("THERMOHUB8_PUBLISH_INTERVAL", ""), "MQTT publish interval in seconds or duration (e.g. 30s)")

	flag.Parse()

	if *showVersion {
		fmt.Printf("thermohub8-hass %s\n", version)
		os.Exit(0)
	}

	if v := parseSeconds(*scanIntervalStr); v > 0 {
		cfg.ScanInterval = v
	}
	if v := parseSeconds(*publishIntervalStr); v > 0 {
		cfg.PublishInterval = v
	}

	return cfg
}

// parseSeconds accepts either a bare number of seconds or a Go duration.
func parseSeconds(s string) int {
	if s == "" {
		return 0
	}
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return int(d / time.Second)
	}
	return 0
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func setupLogger(verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}
