package binfeed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/models"
)

// ErrDecode wraps every malformed-payload failure.
var ErrDecode = errors.New("decode bin payload")

// ErrUnknownVariant is returned for a variant without a registered adapter.
var ErrUnknownVariant = errors.New("unknown feed variant")

type binDecoder func(raw json.RawMessage) ([]models.BinRecord, int, error)

var decoders = map[models.Variant]binDecoder{
	models.VariantTelemetry: decodeTelemetryBins,
	models.VariantLegacy:    decodeLegacyBins,
}

// Decode maps a /get_bins body of the given variant into a BinSnapshot.
// A bin record that does not decode is dropped and counted in Rejected; only
// an unreadable envelope, bin list or history fails the whole body. Every top-level integer other than the bin list and the history is kept as
// an aggregate counter under its wire name.
func Decode(variant models.Variant, body []byte) (models.BinSnapshot, error) {
	decode, ok := decoders[variant]
	if !ok {
		return models.BinSnapshot{}, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return models.BinSnapshot{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	rawBins, ok := envelope["bins"]
	if !ok {
		return models.BinSnapshot{}, fmt.Errorf("%w: missing bins", ErrDecode)
	}
	bins, rejected, err := decode(rawBins)
	if err != nil {
		return models.BinSnapshot{}, fmt.Errorf("%w: bins: %v", ErrDecode, err)
	}

	history, err := decodeHistory(envelope["full_bin_history"])
	if err != nil {
		return models.BinSnapshot{}, fmt.Errorf("%w: full_bin_history: %v", ErrDecode, err)
	}

	return models.BinSnapshot{
		Bins:           bins,
		Counters:       decodeCounters(envelope),
		FullBinHistory: history,
		Rejected:       rejected,
	}, nil
}

func decodeCounters(envelope map[string]json.RawMessage) map[string]int {
	counters := make(map[string]int, len(envelope))
	for key, raw := range envelope {
		if key == "bins" || key == "full_bin_history" {
			continue
		}
		var n int
		if err := json.Unmarshal(raw, &n); err == nil {
			counters[key] = n
		}
	}
	return counters
}

func decodeHistory(raw json.RawMessage) ([]models.HourPoint, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wire []models.WireHourPoint
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	points := make([]models.HourPoint, 0, len(wire))
	for _, w := range wire {
		points = append(points, models.HourPoint{Hour: normalizeHour(string(w.Hour)), FullBins: w.FullBins})
	}
	return points, nil
}

// normalizeHour zero-pads integer hours so labels match the "HH" form.
func normalizeHour(h string) string {
	n, err := strconv.Atoi(h)
	if err != nil || n < 0 || n > 23 {
		return h
	}
	return fmt.Sprintf("%02d", n)
}

// decodeEach unmarshals each element of a JSON array on its own so that a
// malformed record is counted and dropped without losing the rest.
func decodeEach[W any](raw json.RawMessage, convert func(W) models.BinRecord) ([]models.BinRecord, int, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, 0, err
	}
	records := make([]models.BinRecord, 0, len(elems))
	rejected := 0
	for _, elem := range elems {
		var w W
		if err := json.Unmarshal(elem, &w); err != nil {
			rejected++
			continue
		}
		records = append(records, convert(w))
	}
	return records, rejected, nil
}

func decodeTelemetryBins(raw json.RawMessage) ([]models.BinRecord, int, error) {
	return decodeEach(raw, telemetryRecord)
}

func telemetryRecord(w models.TelemetryBin) models.BinRecord {
	pos := position(w.Lat, w.Lon)
	if pos == nil {
		pos = position(w.FixedLat, w.FixedLon)
	}
	anomaly := models.NoAnomaly
	if w.Anomaly != nil && *w.Anomaly != "" {
		anomaly = *w.Anomaly
	}
	name := w.DeviceName
	if name == "" {
		name = "Bin " + string(w.ID)
	}
	return models.BinRecord{
		ID:          string(w.ID),
		Name:        name,
		Location:    w.Location,
		Position:    pos,
		FillLevel:   valueOrZero(w.FillLevel),
		Temperature: valueOrZero(w.Temperature),
		Humidity:    w.Humidity,
		SmokePPM:    w.SmokeConcentration,
		Active:      w.Active,
		Anomaly:     anomaly,
		ReceivedAt:  w.ReceivedAt,
	}
}

func decodeLegacyBins(raw json.RawMessage) ([]models.BinRecord, int, error) {
	return decodeEach(raw, legacyRecord)
}

func legacyRecord(w models.LegacyBin) models.BinRecord {
	pos := position(w.Latitude, w.Longitude)
	if pos == nil {
		pos = position(w.Lat, w.Lon)
	}
	active := models.ActiveNo
	if w.Status == "active" {
		active = models.ActiveYes
	}
	anomaly := models.NoAnomaly
	if w.Anomaly {
		anomaly = "Flagged"
	}
	return models.BinRecord{
		ID:          string(w.ID),
		Name:        "Bin " + string(w.ID),
		Location:    w.Location,
		Position:    pos,
		FillLevel:   valueOrZero(w.Capacity),
		Temperature: valueOrZero(w.Temperature),
		Active:      active,
		Anomaly:     anomaly,
	}
}

// position returns nil unless both coordinates are present and placeable.
func position(lat, lon *float64) *models.LatLng {
	if lat == nil || lon == nil {
		return nil
	}
	p := models.LatLng{Lat: *lat, Lng: *lon}
	if !p.Valid() {
		return nil
	}
	return &p
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
