package sports

import (
	"encoding/json"
	"fmt"
)

// EncodeEvents serializes events for durable storage.
func EncodeEvents(events []Event) (string, error) {
	if events == nil {
		events = []Event{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("marshal events: %w", err)
	}
	return string(data), nil
}

// DecodeEvents deserializes a stored event payload. A corrupt payload is
// an error the caller treats as a cache miss.
func DecodeEvents(payload string) ([]Event, error) {
	var events []Event
	if err := json.Unmarshal([]byte(payload), &events); err != nil {
		return nil, fmt.Errorf("parse events payload: %w", err)
	}
	return events, nil
}
