package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultPlantLabel is used in alert text when a record carries no name.
const DefaultPlantLabel = "your plant"

// Reading is a moisture value that may be absent. Sensors have been seen
// writing both numbers and numeric strings; anything else reads as absent.
type Reading struct {
	Value float64
	Valid bool
}

func NewReading(v float64) Reading { return Reading{Value: v, Valid: true} }

func (r *Reading) UnmarshalJSON(b []byte) error {
	*r = Reading{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*r = NewReading(f)
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		// bool, object, array: not a reading
		return nil
	}
	*r = NewReading(f)
	return nil
}

func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// Text is a string field the database may hold as a number or bool.
// Scalars are rendered as text; false, 0, objects and arrays read as empty.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case 't':
		*t = "true"
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return err
		}
		if f != 0 {
			*t = Text(strconv.FormatFloat(f, 'f', -1, 64))
		}
	}
	return nil
}

// MonitoringRecord is the per-plant node written by the upstream sensor.
type MonitoringRecord struct {
	MoistureValue Reading `json:"moisture_value"`
	FCMToken      Text    `json:"fcm_token,omitempty"`
	PlantName     Text    `json:"plant_name,omitempty"`
}

// PlantLabel returns the plant name, or DefaultPlantLabel when unnamed.
func (r MonitoringRecord) PlantLabel() string {
	if r.PlantName == "" {
		return DefaultPlantLabel
	}
	return string(r.PlantName)
}

type PlantID string

// Change is one update of a monitoring record. Before or After is nil when
// the platform delivered no value for that side.
type Change struct {
	EventID string
	PlantID PlantID
	Before  *MonitoringRecord
	After   *MonitoringRecord
}

// DecodeRecord parses a record snapshot. A missing or null snapshot yields
// nil with no error.
func DecodeRecord(raw []byte) (*MonitoringRecord, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var rec MonitoringRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
