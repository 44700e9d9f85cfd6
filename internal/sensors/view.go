package sensors

import (
	"fmt"

	"github.com/thermohub/thermohub8-hass/internal/readings"
)

// MaxSensors is the fixed number of sensor identities a hub exposes.
const MaxSensors = 8

// View is one fixed sensor identity. Identities are assigned once from the
// first successful payload and held for the lifetime of the bridge, even when
// later payloads report a different set of ids. Name and Unit are likewise
// fixed at build time.
type View struct {
	ID       int
	Name     string
	Unit     string
	Optional bool // placeholder slot with no backing record at setup time
}

// BuildViews derives the 8 identities from the first successful payload: the
// first min(8, N) normalized records become identities with their real
// id/name/unit, and every remaining slot is a placeholder named "Sensor {i}"
// with no unit, marked optional. Placeholder ids fill the 1..8 range not
// claimed by a reported record, so a hub reporting only id 2 yields
// placeholders 1 and 3..8 rather than a second identity 2.
func BuildViews(first *readings.Payload) []*View {
	records := readings.Normalize(first)
	if len(records) > MaxSensors {
		records = records[:MaxSensors]
	}

	views := make([]*View, 0, MaxSensors)
	claimed := make(map[int]bool, len(records))
	for _, r := range records {
		views = append(views, &View{ID: r.ID, Name: r.Name, Unit: r.Unit})
		claimed[r.ID] = true
	}
	for i := 1; i <= MaxSensors && len(views) < MaxSensors; i++ {
		if claimed[i] {
			continue
		}
		views = append(views, &View{
			ID:       i,
			Name:     fmt.Sprintf("Sensor %d", i),
			Optional: true,
		})
	}
	return views
}

// Value returns the current value for this identity: the first normalized
// record with a matching id, nil otherwise. The cached payload is
// re-normalized on every read; no normalized cache is kept.
func (v *View) Value(p *readings.Payload) any {
	for _, r := range readings.Normalize(p) {
		if r.ID == v.ID {
			return r.Value
		}
	}
	return nil
}

// Available reports whether the identity should be shown as live: the poller
// must be healthy, and either a record with this id exists in the latest
// payload or the identity is an optional placeholder.
func (v *View) Available(healthy bool, p *readings.Payload) bool {
	if !healthy {
		return false
	}
	if v.Optional {
		return true
	}
	for _, r := range readings.Normalize(p) {
		if r.ID == v.ID {
			return true
		}
	}
	return false
}

// LastUpdate returns the hub-reported "ts" of the cached payload, "" when
// the payload doesn't carry one.
func (v *View) LastUpdate(p *readings.Payload) string {
	return p.Timestamp()
}

// EntityID returns the stable slug used in MQTT topics and unique ids.
func (v *View) EntityID() string {
	return fmt.Sprintf("sensor_%d", v.ID)
}
