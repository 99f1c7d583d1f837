package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// timestampLayouts lists accepted wire formats, most common first. The
// backend emits extended ISO-8601 with fractional seconds but older payloads
// omit them, so decode is tolerant of both.
var timestampLayouts = []string{
	time.RFC3339Nano, // fractional or whole seconds, colon offset or Z
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02",
}

// Timestamp is a time.Time with tolerant ISO-8601 JSON decoding.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{Time: t} }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp format %q", s)
}
