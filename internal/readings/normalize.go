package readings

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one canonical sensor reading after normalization.
// Value is the raw JSON scalar (or nil) exactly as reported; Unit is ""
// when the hub didn't report one.
type Record struct {
	ID    int
	Name  string
	Value any
	Unit  string
}

// Normalize converts a raw payload into an ordered list of canonical sensor
// records. It is pure and never fails: every malformed field degrades via a
// fallback instead. Rules, per entry at 1-based position idx:
//
//   - ID:    the entry's "id" when coercible to an integer, else idx
//   - Name:  the entry's "name" when non-blank, else "Sensor {ID}"
//   - Value: the entry's "value" as-is (nil allowed)
//   - Unit:  the entry's "unit" when a string, else ""
//
// A missing "sensors" key or a non-list value yields an empty result.
func Normalize(p *Payload) []Record {
	if p == nil {
		return nil
	}
	list, ok := p.fields["sensors"].([]any)
	if !ok {
		return nil
	}

	records := make([]Record, 0, len(list))
	for i, item := range list {
		idx := i + 1

		entry, ok := item.(map[string]any)
		if !ok {
			// Non-object entry: everything falls back to positional defaults.
			records = append(records, Record{ID: idx, Name: fmt.Sprintf("Sensor %d", idx)})
			continue
		}

		id := idx
		if raw, present := entry["id"]; present {
			if n, ok := coerceID(raw); ok {
				id = n
			}
		}

		name := fmt.Sprintf("Sensor %d", id)
		if raw, present := entry["name"]; present {
			if s := stringify(raw); strings.TrimSpace(s) != "" {
				name = s
			}
		}

		unit, _ := entry["unit"].(string)

		records = append(records, Record{
			ID:    id,
			Name:  name,
			Value: entry["value"],
			Unit:  unit,
		})
	}
	return records
}

// coerceID accepts integers, floats with an integral value and numeric
// strings. Anything else (including NaN/Inf) reports false so the caller
// falls back to the positional id.
func coerceID(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case string:
		id, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

// stringify renders a reported name. Hubs have been seen reporting numeric
// names; those become their decimal form rather than being dropped.
func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
