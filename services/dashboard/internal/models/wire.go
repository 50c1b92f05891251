package models

// TelemetryBin is a bin entry as served by the TTN-backed dashboard backend.
type TelemetryBin struct {
	ID                 FlexString `json:"id"`
	DeviceName         string     `json:"device_name"`
	Location           string     `json:"location"`
	Lat                *float64   `json:"lat"`
	Lon                *float64   `json:"lon"`
	FixedLat           *float64   `json:"fixed_lat"`
	FixedLon           *float64   `json:"fixed_lon"`
	ReceivedAt         string     `json:"received_at"`
	Temperature        *float64   `json:"temperature"`
	FillLevel          *float64   `json:"fill_level"`
	Humidity           *float64   `json:"humidity"`
	SmokeConcentration *float64   `json:"smoke_concentration"`
	Active             string     `json:"active"`
	Anomaly            *string    `json:"anomaly"`
}

// LegacyBin is a bin entry as served by the first backend revision.
type LegacyBin struct {
	ID          FlexString `json:"id"`
	Location    string     `json:"location"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	Lat         *float64   `json:"lat"`
	Lon         *float64   `json:"lon"`
	Temperature *float64   `json:"temperature"`
	Capacity    *float64   `json:"capacity"`
	Status      string     `json:"status"`
	Anomaly     bool       `json:"anomaly"`
}

// WireHourPoint is a full_bin_history entry. Hours have been emitted both as
// zero-padded strings and as integers.
type WireHourPoint struct {
	Hour     FlexString `json:"hour"`
	FullBins int        `json:"full_bins"`
}
