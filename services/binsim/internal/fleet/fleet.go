// Package fleet simulates a set of smart bins reporting telemetry and renders
// the /get_bins payloads the dashboard polls.
package fleet

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// ActiveWindow is how recent a reading must be for its bin to count as active.
	ActiveWindow = 5 * time.Minute
	// HistoryHours is the length of the full-bin history.
	HistoryHours = 6
	// FullThreshold is the fill level above which a bin is full.
	FullThreshold = 80

	smokeLimit       = 50
	temperatureLimit = 35
	moveLimitMeters  = 500
	earthRadiusM     = 6371000
	receivedAtLayout = "2006-01-02 15:04:05"
)

// Local is the zone reported timestamps and history hours are expressed in.
var Local = time.FixedZone("SGT", 8*60*60)

// Device is a simulated bin.
type Device struct {
	Name     string
	Location string
	FixedLat float64
	FixedLon float64
}

// Reading is one report from a device.
type Reading struct {
	Device      string
	Time        time.Time
	Temperature float64
	FillLevel   float64
	Humidity    float64
	Smoke       float64
	Lat         float64
	Lon         float64
	Anomaly     string
}

// DefaultDevices returns n devices. The first two sit at the reference
// deployment; the rest are spread on a small grid next to them.
func DefaultDevices(n int) []Device {
	devices := []Device{
		{Name: "my-bin-2", Location: "Block 1", FixedLat: 1.370653, FixedLon: 103.8268},
		{Name: "my-lorawan", Location: "Block 2", FixedLat: 1.371038, FixedLon: 103.825448},
	}
	for i := len(devices); i < n; i++ {
		devices = append(devices, Device{
			Name:     fmt.Sprintf("sim-bin-%03d", i+1),
			Location: fmt.Sprintf("Block %d", i+1),
			FixedLat: 1.3700 + float64(i%5)*0.0015,
			FixedLon: 103.8240 + float64(i/5)*0.0015,
		})
	}
	return devices[:max(n, 0)]
}

// Fleet holds the latest reading per device and a rolling history.
type Fleet struct {
	mu      sync.Mutex
	devices []Device
	latest  map[string]Reading
	history []Reading
	rng     *rand.Rand
	now     func() time.Time
}

// New creates a fleet. now defaults to time.Now.
func New(devices []Device, seed int64, now func() time.Time) *Fleet {
	if now == nil {
		now = time.Now
	}
	return &Fleet{
		devices: devices,
		latest:  make(map[string]Reading, len(devices)),
		rng:     rand.New(rand.NewSource(seed)),
		now:     now,
	}
}

// Step generates a random reading for a random device and records it.
func (f *Fleet) Step() Reading {
	f.mu.Lock()
	if len(f.devices) == 0 {
		f.mu.Unlock()
		return Reading{}
	}
	d := f.devices[f.rng.Intn(len(f.devices))]
	r := Reading{
		Device:      d.Name,
		Time:        f.now(),
		Temperature: round2(20 + f.rng.Float64()*20),
		FillLevel:   float64(f.rng.Intn(101)),
		Humidity:    round2(f.rng.Float64() * 100),
		Smoke:       round2(f.rng.Float64() * 100),
		Lat:         d.FixedLat,
		Lon:         d.FixedLon,
	}
	f.mu.Unlock()
	return f.Record(r)
}

// Record stores a reading after tagging its anomalies, and returns it.
func (f *Fleet) Record(r Reading) Reading {
	f.mu.Lock()
	defer f.mu.Unlock()

	var anomalies []string
	if r.Smoke > smokeLimit {
		anomalies = append(anomalies, "Smoke")
	}
	if r.Temperature > temperatureLimit {
		anomalies = append(anomalies, "Temperature")
	}
	if prev, ok := f.latest[r.Device]; ok && distanceMeters(prev.Lat, prev.Lon, r.Lat, r.Lon) > moveLimitMeters {
		anomalies = append(anomalies, "Location")
	}
	r.Anomaly = "No"
	if len(anomalies) > 0 {
		r.Anomaly = strings.Join(anomalies, ", ")
	}

	f.latest[r.Device] = r
	f.history = append(f.history, r)

	cutoff := f.now().Add(-HistoryHours * time.Hour)
	kept := f.history[:0]
	for _, h := range f.history {
		if h.Time.After(cutoff) {
			kept = append(kept, h)
		}
	}
	f.history = kept
	return r
}

// TelemetryBin is a bin entry in the telemetry payload.
type TelemetryBin struct {
	ID                 int     `json:"id"`
	DeviceName         string  `json:"device_name"`
	Location           string  `json:"location"`
	ReceivedAt         string  `json:"received_at"`
	Temperature        float64 `json:"temperature"`
	FillLevel          float64 `json:"fill_level"`
	Humidity           float64 `json:"humidity"`
	SmokeConcentration float64 `json:"smoke_concentration"`
	FixedLat           float64 `json:"fixed_lat"`
	FixedLon           float64 `json:"fixed_lon"`
	Lat                float64 `json:"lat"`
	Lon                float64 `json:"lon"`
	Active             string  `json:"active"`
	Anomaly            string  `json:"anomaly"`
}

// HourPoint is one history bucket. Hour is a string or an int depending on
// the variant.
type HourPoint struct {
	Hour     any `json:"hour"`
	FullBins int `json:"full_bins"`
}

// TelemetryPayload is the current /get_bins body.
type TelemetryPayload struct {
	Bins            []TelemetryBin `json:"bins"`
	TotalBins       int            `json:"total_bins"`
	ActiveBins      int            `json:"active_bins"`
	FullBins        int            `json:"full_bins"`
	FullBinsPerctg  int            `json:"full_bins_perctg"`
	FullBinHistory  []HourPoint    `json:"full_bin_history"`
	AnomalyBins     int            `json:"anomaly_bins"`
	InactiveBins    int            `json:"inactive_bins"`
	ActiveBinsGraph int            `json:"active_bins_graph"`
}

// LegacyBin is a bin entry in the first-revision payload.
type LegacyBin struct {
	ID          int     `json:"id"`
	Location    string  `json:"location"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Temperature float64 `json:"temperature"`
	Capacity    float64 `json:"capacity"`
	Status      string  `json:"status"`
	Anomaly     bool    `json:"anomaly"`
}

// LegacyPayload is the first-revision /get_bins body. The three categories
// partition all bins: anomaly first, then full, then normal.
type LegacyPayload struct {
	Bins           []LegacyBin `json:"bins"`
	TotalBins      int         `json:"total_bins"`
	NormalBins     int         `json:"normal_bins"`
	FullBins       int         `json:"full_bins"`
	AnomalyBins    int         `json:"anomaly_bins"`
	FullBinHistory []HourPoint `json:"full_bin_history"`
}

// Telemetry renders the current state as a telemetry payload.
func (f *Fleet) Telemetry() TelemetryPayload {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	p := TelemetryPayload{Bins: []TelemetryBin{}}
	for i, d := range f.devices {
		r, ok := f.latest[d.Name]
		if !ok {
			continue
		}
		active := now.Sub(r.Time) < ActiveWindow
		bin := TelemetryBin{
			ID:                 i + 1,
			DeviceName:         d.Name,
			Location:           d.Location,
			ReceivedAt:         r.Time.In(Local).Format(receivedAtLayout),
			Temperature:        r.Temperature,
			FillLevel:          r.FillLevel,
			Humidity:           r.Humidity,
			SmokeConcentration: r.Smoke,
			FixedLat:           d.FixedLat,
			FixedLon:           d.FixedLon,
			Lat:                r.Lat,
			Lon:                r.Lon,
			Active:             "No",
			Anomaly:            r.Anomaly,
		}
		p.TotalBins++
		if active {
			bin.Active = "Yes"
			p.ActiveBins++
			if r.FillLevel > FullThreshold {
				p.FullBins++
			}
			if r.Anomaly != "No" {
				p.AnomalyBins++
			}
		}
		p.Bins = append(p.Bins, bin)
	}

	if p.ActiveBins > 0 {
		p.FullBinsPerctg = p.FullBins * 100 / p.ActiveBins
	}
	p.InactiveBins = p.TotalBins - p.ActiveBins
	p.ActiveBinsGraph = p.ActiveBins - p.FullBins
	p.FullBinHistory = f.fullHistory(now, func(hour int) any { return fmt.Sprintf("%02d", hour) })
	return p
}

// Legacy renders the current state as a first-revision payload.
func (f *Fleet) Legacy() LegacyPayload {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	p := LegacyPayload{Bins: []LegacyBin{}}
	for i, d := range f.devices {
		r, ok := f.latest[d.Name]
		if !ok {
			continue
		}
		bin := LegacyBin{
			ID:          i + 1,
			Location:    d.Location,
			Latitude:    r.Lat,
			Longitude:   r.Lon,
			Temperature: r.Temperature,
			Capacity:    r.FillLevel,
			Status:      "inactive",
			Anomaly:     r.Anomaly != "No",
		}
		if now.Sub(r.Time) < ActiveWindow {
			bin.Status = "active"
		}

		p.TotalBins++
		switch {
		case bin.Anomaly:
			p.AnomalyBins++
		case r.FillLevel > FullThreshold:
			p.FullBins++
		default:
			p.NormalBins++
		}
		p.Bins = append(p.Bins, bin)
	}
	p.FullBinHistory = f.fullHistory(now, func(hour int) any { return hour })
	return p
}

// fullHistory counts distinct full devices per local hour over the last
// HistoryHours hours, newest hour first.
func (f *Fleet) fullHistory(now time.Time, label func(hour int) any) []HourPoint {
	current := now.In(Local).Truncate(time.Hour)
	buckets := make(map[int]map[string]struct{}, HistoryHours)
	for i := 0; i < HistoryHours; i++ {
		buckets[current.Add(-time.Duration(i)*time.Hour).Hour()] = map[string]struct{}{}
	}
	oldest := current.Add(-(HistoryHours - 1) * time.Hour)
	for _, r := range f.history {
		t := r.Time.In(Local)
		if r.FillLevel <= FullThreshold || t.Before(oldest) || t.After(now) {
			continue
		}
		if devs, ok := buckets[t.Hour()]; ok {
			devs[r.Device] = struct{}{}
		}
	}

	hours := make([]int, 0, len(buckets))
	for h := range buckets {
		hours = append(hours, h)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(hours)))

	points := make([]HourPoint, 0, len(hours))
	for _, h := range hours {
		points = append(points, HourPoint{Hour: label(h), FullBins: len(buckets[h])})
	}
	return points
}

func distanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
