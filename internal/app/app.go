package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/thermohub/thermohub8-hass/internal/bus"
	"github.com/thermohub/thermohub8-hass/internal/config"
	"github.com/thermohub/thermohub8-hass/internal/diagnostics"
	"github.com/thermohub/thermohub8-hass/internal/mqtt"
	"github.com/thermohub/thermohub8-hass/internal/poller"
	"github.com/thermohub/thermohub8-hass/internal/readings"
	"github.com/thermohub/thermohub8-hass/internal/sensors"
	"github.com/thermohub/thermohub8-hass/internal/transmission"
)

// Run performs the gating first refresh, fixes the sensor identities from
// the first payload, then drives the poll loop, the MQTT transmit scheduler
// and the metrics server until ctx is cancelled.
//
// The first refresh failing is the one place a fetch failure blocks forward
// progress: the bridge does not come up without it.
func Run(
	parentCtx context.Context,
	cfg *config.Config,
	pollr *poller.Poller,
	messageBus *bus.Bus,
	mqttClient *mqtt.Client,
	registry *prometheus.Registry,
	logger *logrus.Logger,
) error {
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	if err := pollr.Refresh(ctx); err != nil {
		return fmt.Errorf("initial refresh failed: %w", err)
	}

	views := sensors.BuildViews(pollr.Data())
	logger.WithFields(logrus.Fields{
		"reported":     len(readings.Normalize(pollr.Data())),
		"placeholders": countPlaceholders(views),
	}).Info("Sensor identities fixed from first payload")

	var tx *transmission.Transmitter
	if mqttClient != nil {
		tx = transmission.NewTransmitter(mqttClient, cfg.DeviceID, cfg.DiscoveryPrefix, views, logger)
	}

	grp, ctx := errgroup.WithContext(ctx)

	// Poll loop -----------------------------------------------------------
	grp.Go(func() error {
		return pollr.Run(ctx)
	})

	// Transmit scheduler --------------------------------------------------
	if tx != nil {
		sub := messageBus.Subscribe()
		grp.Go(func() error {
			return runTransmitLoop(ctx, cfg, pollr, sub, tx, logger)
		})
	}

	// Metrics / diagnostics server ----------------------------------------
	if cfg.MetricsAddr != "" {
		grp.Go(func() error {
			return runMetricsServer(ctx, cfg.MetricsAddr, pollr, registry, logger)
		})
	}

	err := grp.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runTransmitLoop republishes state on the configured cadence whenever the
// sensor set or the hub's health changed since the last send. A failed send
// is retried on the next eligible tick.
func runTransmitLoop(
	ctx context.Context,
	cfg *config.Config,
	pollr *poller.Poller,
	sub <-chan *readings.Payload,
	tx *transmission.Transmitter,
	logger *logrus.Logger,
) error {
	latest := pollr.Data()
	var lastSent *readings.Payload
	var lastSentAt time.Time
	lastHealthy := false

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-sub:
			if !ok {
				return nil
			}
			latest = snap
		case <-ticker.C:
			if latest == nil {
				continue
			}
			healthy := pollr.Healthy()
			if !lastSentAt.IsZero() {
				if time.Since(lastSentAt) < cfg.GetPublishInterval() {
					continue
				}
				if !transmission.Changed(lastSent, latest) && healthy == lastHealthy {
					continue
				}
			}
			if err := tx.Transmit(latest, healthy); err != nil {
				logger.WithError(err).Warn("MQTT transmit failed")
				// Drop lastSent so the change check passes on the next
				// eligible tick and the publish is retried.
				lastSent = nil
				lastSentAt = time.Now()
				continue
			}
			lastSent = latest
			lastSentAt = time.Now()
			lastHealthy = healthy
		}
	}
}

func runMetricsServer(
	ctx context.Context,
	addr string,
	pollr *poller.Poller,
	registry *prometheus.Registry,
	logger *logrus.Logger,
) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/diagnostics", diagnostics.Handler(pollr, logger))

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.WithField("addr", addr).Info("Metrics and diagnostics server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	}
}

func countPlaceholders(views []*sensors.View) int {
	n := 0
	for _, v := range views {
		if v.Optional {
			n++
		}
	}
	return n
}
