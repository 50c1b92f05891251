package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Sentinel values carried by the backend in the status fields of a bin.
const (
	ActiveYes = "Yes"
	ActiveNo  = "No"
	NoAnomaly = "No"
)

// Variant names one of the wire schemas the backend has shipped for /get_bins.
type Variant string

const (
	VariantTelemetry Variant = "telemetry"
	VariantLegacy    Variant = "legacy"
)

// LatLng is a WGS84 position in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the position can be placed on a map.
func (p LatLng) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// BinRecord is one device's state as of its last report, normalised across
// wire variants.
type BinRecord struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Location    string   `json:"location,omitempty"`
	Position    *LatLng  `json:"position,omitempty"`
	FillLevel   float64  `json:"fill_level"`
	Temperature float64  `json:"temperature"`
	Humidity    *float64 `json:"humidity,omitempty"`
	SmokePPM    *float64 `json:"smoke_ppm,omitempty"`
	Active      string   `json:"active"`
	Anomaly     string   `json:"anomaly"`
	ReceivedAt  string   `json:"received_at,omitempty"`
}

// IsActive compares against the affirmative sentinel rather than a boolean.
func (b BinRecord) IsActive() bool {
	return b.Active == ActiveYes
}

// HasAnomaly reports whether the anomaly label differs from the "no anomaly" sentinel.
func (b BinRecord) HasAnomaly() bool {
	return b.Anomaly != NoAnomaly
}

// Placeable reports whether the record carries a renderable position.
func (b BinRecord) Placeable() bool {
	return b.Position != nil && b.Position.Valid()
}

// HourPoint is one bucket of the hourly full-bin history.
type HourPoint struct {
	Hour     string `json:"hour"`
	FullBins int    `json:"full_bins"`
}

// BinSnapshot is the full payload returned by one fetch cycle.
type BinSnapshot struct {
	Bins           []BinRecord    `json:"bins"`
	Counters       map[string]int `json:"counters"`
	FullBinHistory []HourPoint    `json:"full_bin_history"`
	Rejected       int            `json:"rejected,omitempty"` // records that did not decode
}

// Counter looks up an aggregate counter by its wire label.
func (s BinSnapshot) Counter(key string) (int, bool) {
	v, ok := s.Counters[key]
	return v, ok
}

// FlexString accepts either a JSON string or a JSON number. The backend has
// emitted integer row IDs and device-name strings for the same field.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*f = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexString(n.String())
	return nil
}
