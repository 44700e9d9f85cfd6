package transmission

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/thermohub/thermohub8-hass/internal/mqtt"
	"github.com/thermohub/thermohub8-hass/internal/readings"
	"github.com/thermohub/thermohub8-hass/internal/sensors"
)

// Transmitter publishes the fixed sensor identities to Home Assistant via
// MQTT discovery: one retained discovery config per identity, a shared state
// topic, and a per-identity availability topic.
type Transmitter struct {
	client          *mqtt.Client
	deviceID        string
	discoveryPrefix string
	views           []*sensors.View
	logger          *logrus.Logger

	publishedConfigs map[string]bool // discovery configs already published
}

// HADiscoveryConfig represents a Home Assistant MQTT discovery configuration.
type HADiscoveryConfig struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	ValueTemplate     string   `json:"value_template,omitempty"`
	DeviceClass       string   `json:"device_class,omitempty"`
	StateClass        string   `json:"state_class,omitempty"`
	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	AvailabilityTopic string   `json:"availability_topic"`
	Device            HADevice `json:"device"`
}

// HADevice represents the device information for Home Assistant.
type HADevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// NewTransmitter creates a transmitter for a fixed set of sensor views.
func NewTransmitter(client *mqtt.Client, deviceID, discoveryPrefix string, views []*sensors.View, logger *logrus.Logger) *Transmitter {
	return &Transmitter{
		client:           client,
		deviceID:         deviceID,
		discoveryPrefix:  discoveryPrefix,
		views:            views,
		logger:           logger,
		publishedConfigs: make(map[string]bool),
	}
}

// Transmit publishes discovery configs (once), the shared state payload and
// per-identity availability derived from the given snapshot.
func (t *Transmitter) Transmit(p *readings.Payload, healthy bool) error {
	if !t.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	if err := t.publishDiscoveryConfigs(); err != nil {
		// Discovery failures must not block state updates.
		t.logger.WithError(err).Error("Failed to publish Home Assistant discovery configs")
	}

	if err := t.publishState(p); err != nil {
		return fmt.Errorf("failed to publish sensor state: %w", err)
	}

	for _, v := range t.views {
		status := "offline"
		if v.Available(healthy, p) {
			status = "online"
		}
		topic := t.viewAvailabilityTopic(v)
		if err := t.client.Publish(topic, []byte(status), true); err != nil {
			return fmt.Errorf("failed to publish availability to %s: %w", topic, err)
		}
	}

	t.logger.Debug("Sensor data transmitted")
	return nil
}

// publishDiscoveryConfigs ensures every identity has its retained discovery
// config on the broker. Placeholders are announced too so the full set of
// eight entities shows up in the UI right from the start.
func (t *Transmitter) publishDiscoveryConfigs() error {
	device := HADevice{
		Identifiers:  []string{fmt.Sprintf("thermohub8_%s", t.deviceID)},
		Name:         "ThermoHub8",
		Model:        "ThermoHub8",
		Manufacturer: "ThermoHub",
	}

	for _, v := range t.views {
		uniqueID := fmt.Sprintf("thermohub8_%s_%s", t.deviceID, v.EntityID())
		if t.publishedConfigs[uniqueID] {
			continue
		}

		config := HADiscoveryConfig{
			Name:              v.Name,
			UniqueID:          uniqueID,
			StateTopic:        t.client.StateTopic(),
			ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", v.EntityID()),
			AvailabilityTopic: t.viewAvailabilityTopic(v),
			Device:            device,
		}
		if v.Unit != "" {
			config.UnitOfMeasurement = v.Unit
		}
		if isTemperatureUnit(v.Unit) {
			config.DeviceClass = "temperature"
			config.StateClass = "measurement"
		}

		topic := t.client.DiscoveryTopic(t.discoveryPrefix, v.EntityID())
		payload, err := json.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to marshal discovery config: %w", err)
		}
		if err := t.client.Publish(topic, payload, true); err != nil {
			return fmt.Errorf("failed to publish %s discovery config: %w", v.Name, err)
		}

		t.logger.WithFields(logrus.Fields{
			"sensor_name": v.Name,
			"entity_id":   v.EntityID(),
			"topic":       topic,
		}).Info("Published sensor discovery config")

		t.publishedConfigs[uniqueID] = true
	}
	return nil
}

// publishState publishes the shared JSON state payload: one key per identity
// plus the hub-reported last_update timestamp when present.
func (t *Transmitter) publishState(p *readings.Payload) error {
	payload, err := BuildStatePayload(t.views, p)
	if err != nil {
		return err
	}
	if err := t.client.Publish(t.client.StateTopic(), payload, true); err != nil {
		return err
	}
	t.logger.WithFields(logrus.Fields{
		"topic":   t.client.StateTopic(),
		"payload": string(payload),
	}).Debug("Published sensor state")
	return nil
}

// BuildStatePayload renders the state topic JSON for a snapshot.
func BuildStatePayload(views []*sensors.View, p *readings.Payload) ([]byte, error) {
	state := make(map[string]any, len(views)+1)
	for _, v := range views {
		state[v.EntityID()] = v.Value(p)
	}
	if ts := p.Timestamp(); ts != "" {
		state["last_update"] = ts
	}
	return json.Marshal(state)
}

func (t *Transmitter) viewAvailabilityTopic(v *sensors.View) string {
	return fmt.Sprintf("%s/%s/availability", t.client.BaseTopic(), v.EntityID())
}

func isTemperatureUnit(unit string) bool {
	switch unit {
	case "°C", "°F", "K":
		return true
	}
	return false
}
