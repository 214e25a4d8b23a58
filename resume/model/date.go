package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Date is a calendar date carried by resume entries. Input accepts
// YYYY-MM, YYYY-MM-DD or RFC3339; output is RFC3339 in UTC.
type Date struct {
	time.Time
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", "2006-01"}

// ParseDate parses one of the accepted input layouts. An empty string yields the zero Date.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Date{Time: t.UTC()}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM, YYYY-MM-DD or RFC3339", value)
}

// MustDate panics on malformed input. Intended for fixtures.
func MustDate(value string) *Date {
	d, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return &d
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.UTC().Format(time.RFC3339))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
