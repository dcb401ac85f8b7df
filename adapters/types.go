package adapters

import (
	"fmt"
	"time"
)

// timestampLayout is ISO-8601 UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp is an event timestamp that marshals to ISO-8601 UTC with
// millisecond precision.
type Timestamp time.Time

// Now returns the current time as a Timestamp, truncated to millisecond
// precision so that a value survives a wire round trip unchanged.
func Now() Timestamp {
	return Timestamp(time.Now().UTC().Truncate(time.Millisecond))
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).UTC().Format(timestampLayout) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid timestamp: %s", data)
	}
	parsed, err := time.Parse(timestampLayout, string(data[1:len(data)-1]))
	if err != nil {
		return err
	}
	*t = Timestamp(parsed.UTC())
	return nil
}

// Event is a single tracked occurrence. Identity, session and device context
// are baked in when the event is created and never rewritten afterwards.
// Optional fields are omitted from the wire format rather than sent as null.
type Event struct {
	Name               string         `json:"name"`
	ClientEventID      string         `json:"client_event_id"`
	Timestamp          Timestamp      `json:"timestamp"`
	UserID             string         `json:"user_id,omitempty"`
	SessionID          string         `json:"session_id,omitempty"`
	Platform           string         `json:"platform"`
	OSVersion          string         `json:"os_version,omitempty"`
	AppVersion         string         `json:"app_version,omitempty"`
	AppBuildNumber     string         `json:"app_build_number,omitempty"`
	Environment        string         `json:"environment"`
	DeviceManufacturer string         `json:"device_manufacturer,omitempty"`
	Locale             string         `json:"locale,omitempty"`
	Timezone           string         `json:"timezone,omitempty"`
	Properties         map[string]any `json:"properties,omitempty"`
}

// BatchContext is the context snapshot attached to every delivery attempt.
// It is captured at send time, unlike the per-event fields captured at
// track time.
type BatchContext struct {
	Platform           string `json:"platform"`
	OSVersion          string `json:"os_version,omitempty"`
	AppVersion         string `json:"app_version,omitempty"`
	AppBuildNumber     string `json:"app_build_number,omitempty"`
	UserID             string `json:"user_id,omitempty"`
	SessionID          string `json:"session_id,omitempty"`
	Environment        string `json:"environment"`
	DeviceManufacturer string `json:"device_manufacturer,omitempty"`
	Locale             string `json:"locale,omitempty"`
	Timezone           string `json:"timezone,omitempty"`
}

// EventBatch is the body of an ingestion request.
type EventBatch struct {
	Events  []Event      `json:"events"`
	Context BatchContext `json:"context"`
}
