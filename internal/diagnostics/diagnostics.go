package diagnostics

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/thermohub/thermohub8-hass/internal/poller"
	"github.com/thermohub/thermohub8-hass/internal/readings"
)

// Export is the diagnostics snapshot served to operators. The full payload
// is included unredacted; it only ever carries sensor readings, never
// credentials. The API key is deliberately not part of this struct.
type Export struct {
	PayloadKeys   []string       `json:"payload_keys"`
	Sample        map[string]any `json:"sample"`
	Healthy       bool           `json:"healthy"`
	FailureStreak int            `json:"failure_streak"`
	LastSuccess   string         `json:"last_success,omitempty"`
	SensorsCount  int            `json:"sensors_count"`
}

// Handler serves the diagnostics export as JSON.
func Handler(p *poller.Poller, logger *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := p.Data()

		export := Export{
			PayloadKeys:   data.Keys(),
			Sample:        data.Fields(),
			Healthy:       p.Healthy(),
			FailureStreak: p.FailureStreak(),
			SensorsCount:  len(readings.Normalize(data)),
		}
		if ts := p.LastSuccess(); !ts.IsZero() {
			export.LastSuccess = ts.Format(time.RFC3339)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(export); err != nil {
			logger.WithError(err).Warn("Failed to write diagnostics export")
		}
	})
}
