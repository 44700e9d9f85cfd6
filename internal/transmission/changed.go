package transmission

import (
	"reflect"

	"github.com/thermohub/thermohub8-hass/internal/readings"
)

// Changed reports whether the normalized sensor set of cur differs from
// prev. The hub bumps "ts" on every response, so the comparison runs on the
// normalized records rather than the raw payload; an unchanged sensor set
// does not trigger a re-publish.
func Changed(prev, cur *readings.Payload) bool {
	if prev == nil && cur == nil {
		return false
	}
	if prev == nil || cur == nil {
		return true
	}
	return !reflect.DeepEqual(readings.Normalize(prev), readings.Normalize(cur))
}
