package transmission

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/thermohub/thermohub8-hass/internal/readings"
	"github.com/thermohub/thermohub8-hass/internal/sensors"
)

func payloadT(t *testing.T, body string) *readings.Payload {
	t.Helper()
	p, err := readings.Decode([]byte(body), time.Now())
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return p
}

func TestChangedIgnoresTimestamp(t *testing.T) {
	a := payloadT(t, `{"sensors":[{"id":1,"value":20.0}],"ts":"2025-01-01T00:00:05Z"}`)
	b := payloadT(t, `{"sensors":[{"id":1,"value":20.0}],"ts":"2025-01-01T00:00:10Z"}`)
	if Changed(a, b) {
		t.Fatalf("identical sensor sets with different ts must not count as changed")
	}
}

func TestChangedDetectsValueChange(t *testing.T) {
	a := payloadT(t, `{"sensors":[{"id":1,"value":20.0}]}`)
	b := payloadT(t, `{"sensors":[{"id":1,"value":20.5}]}`)
	if !Changed(a, b) {
		t.Fatalf("value change must be detected")
	}

	c := payloadT(t, `{"sensors":[{"id":1,"value":20.0},{"id":2,"value":1}]}`)
	if !Changed(a, c) {
		t.Fatalf("added sensor must be detected")
	}
}

func TestChangedNilHandling(t *testing.T) {
	p := payloadT(t, `{"sensors":[]}`)
	if Changed(nil, nil) {
		t.Fatalf("nil/nil is unchanged")
	}
	if !Changed(nil, p) || !Changed(p, nil) {
		t.Fatalf("nil on one side is a change")
	}
}

func TestBuildStatePayload(t *testing.T) {
	first := payloadT(t, `{"sensors":[{"id":2,"name":"Outdoor","value":18.5,"unit":"°C"}],"ts":"2025-01-01T00:00:00Z"}`)
	views := sensors.BuildViews(first)

	raw, err := BuildStatePayload(views, first)
	if err != nil {
		t.Fatalf("build state payload: %v", err)
	}
	var state map[string]any
	if err := json.Unmarshal(raw, &state); err != nil {
		t.Fatalf("state payload is not valid JSON: %v", err)
	}

	if state["sensor_2"] != 18.5 {
		t.Fatalf("expected sensor_2=18.5, got %v", state["sensor_2"])
	}
	if state["last_update"] != "2025-01-01T00:00:00Z" {
		t.Fatalf("expected last_update from ts, got %v", state["last_update"])
	}
	// Placeholder slots are present with null values.
	for _, key := range []string{"sensor_3", "sensor_8"} {
		v, present := state[key]
		if !present {
			t.Fatalf("expected %s key in state payload", key)
		}
		if v != nil {
			t.Fatalf("expected %s to be null, got %v", key, v)
		}
	}
}

func TestBuildStatePayloadOmitsMissingTimestamp(t *testing.T) {
	first := payloadT(t, `{"sensors":[{"id":1,"value":1}]}`)
	views := sensors.BuildViews(first)

	raw, err := BuildStatePayload(views, first)
	if err != nil {
		t.Fatalf("build state payload: %v", err)
	}
	var state map[string]any
	if err := json.Unmarshal(raw, &state); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, present := state["last_update"]; present {
		t.Fatalf("last_update must be omitted when the payload has no ts")
	}
}
