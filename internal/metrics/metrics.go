package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the bridge's cycle health as Prometheus collectors.
type Metrics struct {
	CyclesTotal     prometheus.Counter
	FailuresTotal   prometheus.Counter
	FailureStreak   prometheus.Gauge
	LastSuccessTime prometheus.Gauge
	SensorsReported prometheus.Gauge
}

// New creates and registers the bridge collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermohub8_poll_cycles_total",
			Help: "Total poll cycles attempted against the hub.",
		}),
		FailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermohub8_poll_failures_total",
			Help: "Total poll cycles that failed.",
		}),
		FailureStreak: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermohub8_failure_streak",
			Help: "Consecutive failed poll cycles.",
		}),
		LastSuccessTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermohub8_last_success_timestamp_seconds",
			Help: "Unix time of the last successful poll cycle.",
		}),
		SensorsReported: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermohub8_sensors_reported",
			Help: "Number of sensors present in the latest payload.",
		}),
	}

	reg.MustRegister(m.CyclesTotal, m.FailuresTotal, m.FailureStreak, m.LastSuccessTime, m.SensorsReported)
	return m
}

// ObserveCycle records the outcome of one poll cycle.
func (m *Metrics) ObserveCycle(err error, streak, sensorCount int, lastSuccessUnix float64) {
	m.CyclesTotal.Inc()
	if err != nil {
		m.FailuresTotal.Inc()
	}
	m.FailureStreak.Set(float64(streak))
	if lastSuccessUnix > 0 {
		m.LastSuccessTime.Set(lastSuccessUnix)
	}
	if err == nil {
		m.SensorsReported.Set(float64(sensorCount))
	}
}
