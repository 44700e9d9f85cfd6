package readings

import (
	"encoding/json"
	"sort"
	"time"
)

// Payload is one raw fetch result from the hub. The body is kept as the
// decoded JSON object without any schema validation; shape assumptions are
// made only by Normalize and its fallback rules.
type Payload struct {
	fields    map[string]any
	fetchedAt time.Time
}

// Decode parses a response body into a Payload. Anything other than a JSON
// object is rejected here; everything past that degrades via Normalize.
func Decode(body []byte, fetchedAt time.Time) (*Payload, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	return &Payload{fields: fields, fetchedAt: fetchedAt}, nil
}

// NewPayload builds a Payload from an already-decoded object. Used by tests
// and by callers that synthesize payloads.
func NewPayload(fields map[string]any, fetchedAt time.Time) *Payload {
	return &Payload{fields: fields, fetchedAt: fetchedAt}
}

// FetchedAt returns the local wall-clock time the payload was fetched.
func (p *Payload) FetchedAt() time.Time { return p.fetchedAt }

// Timestamp returns the hub-reported "ts" field, or "" when the payload
// doesn't carry one.
func (p *Payload) Timestamp() string {
	if p == nil {
		return ""
	}
	if ts, ok := p.fields["ts"].(string); ok {
		return ts
	}
	return ""
}

// Keys returns the sorted top-level keys of the payload.
func (p *Payload) Keys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, 0, len(p.fields))
	for k := range p.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fields returns the decoded payload object. Callers must treat it as
// read-only; the same map is shared by every reader of the snapshot.
func (p *Payload) Fields() map[string]any {
	if p == nil {
		return nil
	}
	return p.fields
}
