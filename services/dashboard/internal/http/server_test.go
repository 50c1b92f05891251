package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/binfeed"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/charts"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/config"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/dashboard"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/mapview"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/models"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/popup"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/timeutil"
)

const payload = `{
	"bins": [
		{"id": 1, "device_name": "Bin A", "location": "Block 1", "lat": 1.35, "lon": 103.82, "active": "Yes", "fill_level": 80, "temperature": 29.5, "anomaly": "No"},
		{"id": 2, "device_name": "<b>Bin B</b>", "location": "Block 2", "lat": 1.36, "lon": 103.83, "active": "Yes", "fill_level": 92, "temperature": 31, "anomaly": "Overheat"},
		{"id": 3, "device_name": "Bin C", "active": "No", "fill_level": 10, "temperature": 27}
	],
	"total_bins": 3, "active_bins": 2, "full_bins": 1, "full_bins_perctg": 50, "anomaly_bins": 1,
	"active_bins_graph": 1, "inactive_bins": 1,
	"full_bin_history": [{"hour": "09", "full_bins": 1}, {"hour": "12", "full_bins": 2}]
}`

type fixture struct {
	server *Server
	canvas *mapview.Canvas
	ctrl   *dashboard.Controller
	clock  *timeutil.MockClock
}

func newFixture(t *testing.T, deliver bool) *fixture {
	t.Helper()
	cfg := config.Config{
		BackendURL:   "http://bins.test",
		BinsPath:     "/get_bins",
		Variant:      models.VariantTelemetry,
		PollInterval: 10 * time.Second,
		Port:         8080,
		MapCenter:    models.LatLng{Lat: 1.3521, Lng: 103.8198},
		MapZoom:      12,
	}
	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	canvas := mapview.NewCanvas(cfg.MapCenter, cfg.MapZoom)
	donut := charts.NewDonut("Bins", charts.RenderOptions{Title: "Bin Status"})
	trend := charts.NewTrendLine("Full bins", charts.RenderOptions{Title: "Full Bins per Hour"})
	ctrl := dashboard.NewController(
		mapview.NewReconciler(canvas, popup.Build, nil),
		charts.NewReconciler(donut, trend, charts.CategoriesFor(cfg.Variant), nil),
		clock, 30*time.Second, nil)

	if deliver {
		snap, err := binfeed.Decode(cfg.Variant, []byte(payload))
		require.NoError(t, err)
		ctrl.Deliver(snap)
	}

	srv := New(cfg, Session{Controller: ctrl, Canvas: canvas, Donut: donut, Trend: trend}, nil)
	return &fixture{server: srv, canvas: canvas, ctrl: ctrl, clock: clock}
}

func (f *fixture) do(method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	f.server.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestV1Map(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(http.MethodGet, "/api/v1/map")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))

	var body struct {
		Data struct {
			Center     models.LatLng `json:"center"`
			Zoom       int           `json:"zoom"`
			Markers    int           `json:"markers"`
			OpenPopups int           `json:"open_popups"`
		} `json:"data"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, models.LatLng{Lat: 1.3521, Lng: 103.8198}, body.Data.Center)
	assert.Equal(t, 12, body.Data.Zoom)
	assert.Equal(t, 2, body.Data.Markers, "bin without a position is skipped")
	assert.Zero(t, body.Data.OpenPopups)

	markers := f.canvas.Markers()
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/map/markers/"+markers[0].ID+"/click").Code)
	decodeBody(t, f.do(http.MethodGet, "/api/v1/map"), &body)
	assert.Equal(t, 1, body.Data.OpenPopups)
}

func TestV1Markers(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(http.MethodGet, "/api/v1/map/markers")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []mapview.MarkerView `json:"data"`
		Meta struct {
			Count int  `json:"count"`
			Stale bool `json:"stale"`
		} `json:"meta"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Data, 2)
	assert.Equal(t, 2, body.Meta.Count)
	assert.False(t, body.Meta.Stale)

	if diff := cmp.Diff(f.canvas.Markers(), body.Data); diff != "" {
		t.Errorf("markers mismatch (-canvas +api):\n%s", diff)
	}
	assert.Equal(t, "Bin 1 - Block 1", body.Data[0].Title)
}

func TestV1MarkerClick(t *testing.T) {
	f := newFixture(t, true)
	markers := f.canvas.Markers()
	require.Len(t, markers, 2)

	rec := f.do(http.MethodPost, "/api/v1/map/markers/"+markers[1].ID+"/click")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			ID    string `json:"id"`
			Popup string `json:"popup"`
		} `json:"data"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, markers[1].ID, body.Data.ID)
	assert.Contains(t, body.Data.Popup, "Fill Level: 92%")
	assert.Contains(t, body.Data.Popup, "Anomaly detected: Overheat")
	assert.Contains(t, body.Data.Popup, "&lt;b&gt;Bin B&lt;/b&gt;")
	assert.Equal(t, 1, f.canvas.OpenPopups())
}

func TestV1MarkerClick_ReplacedMarker(t *testing.T) {
	f := newFixture(t, true)
	old := f.canvas.Markers()[0].ID

	snap, err := binfeed.Decode(models.VariantTelemetry, []byte(payload))
	require.NoError(t, err)
	f.ctrl.Deliver(snap)

	rec := f.do(http.MethodPost, "/api/v1/map/markers/"+old+"/click")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestV1Status(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(http.MethodGet, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data dashboard.Status `json:"data"`
		Meta struct {
			Variant string `json:"variant"`
			Source  string `json:"source"`
		} `json:"meta"`
	}
	decodeBody(t, rec, &body)
	assert.False(t, body.Data.Stale)
	assert.Equal(t, "telemetry", body.Meta.Variant)
	assert.Equal(t, "http://bins.test/get_bins", body.Meta.Source)

	f.clock.Advance(time.Minute)
	rec = f.do(http.MethodGet, "/api/v1/status")
	decodeBody(t, rec, &body)
	assert.True(t, body.Data.Stale)
}

func TestV1Bins(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(http.MethodGet, "/api/v1/bins")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []models.BinRecord `json:"data"`
		Meta struct {
			Count    int            `json:"count"`
			Counters map[string]int `json:"counters"`
		} `json:"meta"`
	}
	decodeBody(t, rec, &body)
	assert.Len(t, body.Data, 3)
	assert.Equal(t, 3, body.Meta.Count)
	assert.Equal(t, 3, body.Meta.Counters["total_bins"])
}

func TestIndexPage(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	page := rec.Body.String()
	assert.Contains(t, page, `id="map"`)
	assert.Contains(t, page, `data-zoom="12"`)
	assert.Contains(t, page, `src="/charts/distribution"`)
	assert.Contains(t, page, `src="/charts/trend"`)
	assert.Contains(t, page, "50% of active")
	assert.Contains(t, page, `class="alert alert-warning d-none" role="alert" id="stale-banner"`, "banner is present but hidden")
	assert.Contains(t, page, `fetch("/api/v1/status")`)
	assert.Contains(t, page, `fetch("/api/v1/summary")`)
	assert.Contains(t, page, `id="card-2"`)
}

func TestIndexPage_StaleBanner(t *testing.T) {
	f := newFixture(t, false)
	f.ctrl.RecordFailure(assert.AnError)
	f.clock.Advance(time.Minute)

	rec := f.do(http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, `class="alert alert-warning" role="alert" id="stale-banner"`)
	assert.Contains(t, page, `Last successful update: <span id="stale-updated">never</span>`)
	assert.Contains(t, page, "Last error: "+assert.AnError.Error())
}

func TestV1Summary(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(http.MethodGet, "/api/v1/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []card `json:"data"`
	}
	decodeBody(t, rec, &body)
	want := []card{
		{Label: "Total Bins", Value: "3", Tone: "primary"},
		{Label: "Active Bins", Value: "2", Tone: "success"},
		{Label: "Full Bins", Value: "1", Detail: "50% of active", Tone: "warning"},
		{Label: "Anomalies", Value: "1", Tone: "danger"},
	}
	if diff := cmp.Diff(want, body.Data); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestV1Status_TurnsStaleWithoutReload(t *testing.T) {
	f := newFixture(t, true)
	page := f.do(http.MethodGet, "/").Body.String()
	assert.Contains(t, page, "d-none")

	var body struct {
		Data dashboard.Status `json:"data"`
	}
	decodeBody(t, f.do(http.MethodGet, "/api/v1/status"), &body)
	assert.False(t, body.Data.Stale)

	f.ctrl.RecordFailure(assert.AnError)
	f.clock.Advance(time.Minute)
	decodeBody(t, f.do(http.MethodGet, "/api/v1/status"), &body)
	assert.True(t, body.Data.Stale)
	assert.Equal(t, assert.AnError.Error(), body.Data.LastError)
	assert.False(t, body.Data.LastSuccess.IsZero())
}

func TestChartPages_ETag(t *testing.T) {
	f := newFixture(t, true)

	for _, path := range []string{"/charts/distribution", "/charts/trend", "/charts"} {
		t.Run(path, func(t *testing.T) {
			rec := f.do(http.MethodGet, path)
			require.Equal(t, http.StatusOK, rec.Code)
			etag := rec.Header().Get("ETag")
			require.NotEmpty(t, etag)

			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("If-None-Match", etag)
			rec = httptest.NewRecorder()
			f.server.Engine().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusNotModified, rec.Code)
			assert.Empty(t, rec.Body.String())

			snap, err := binfeed.Decode(models.VariantTelemetry, []byte(payload))
			require.NoError(t, err)
			f.ctrl.Deliver(snap)

			req = httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("If-None-Match", etag)
			rec = httptest.NewRecorder()
			f.server.Engine().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code, "a new cycle invalidates the tag")
			assert.NotEqual(t, etag, rec.Header().Get("ETag"))
		})
	}
}

func TestTablePage(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(http.MethodGet, "/table")
	require.Equal(t, http.StatusOK, rec.Code)

	page := rec.Body.String()
	assert.Contains(t, page, `id="bin-table"`)
	assert.Contains(t, page, "&lt;b&gt;Bin B&lt;/b&gt;")
	assert.NotContains(t, page, "<b>Bin B</b>")
	assert.Contains(t, page, "29.5°C")
	assert.Equal(t, 1, strings.Count(page, `class="table-danger"`))
}

func TestTablePage_Empty(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(http.MethodGet, "/table")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No bins reported yet")
}

func TestChartPages(t *testing.T) {
	f := newFixture(t, true)

	for _, tc := range []struct {
		path string
		want []string
	}{
		{"/charts/distribution", []string{"Bin Status", "Active", "Inactive", "Full"}},
		{"/charts/trend", []string{"Full Bins per Hour", "12", "09"}},
		{"/charts", []string{"Bin Status", "Full Bins per Hour"}},
	} {
		t.Run(tc.path, func(t *testing.T) {
			rec := f.do(http.MethodGet, tc.path)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
			for _, w := range tc.want {
				assert.Contains(t, rec.Body.String(), w)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(http.MethodOptions, "/api/v1/status")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSummarize_FallsBackToRecords(t *testing.T) {
	snap := models.BinSnapshot{Bins: []models.BinRecord{
		{ID: "1", Active: models.ActiveYes, FillLevel: 95, Anomaly: models.NoAnomaly},
		{ID: "2", Active: models.ActiveYes, FillLevel: 40, Anomaly: "Tilt"},
		{ID: "3", Active: models.ActiveNo, FillLevel: 99, Anomaly: "Tilt"},
		{ID: "4", Active: models.ActiveYes, FillLevel: 80, Anomaly: models.NoAnomaly},
	}}

	got := summarize(snap)
	want := []card{
		{Label: "Total Bins", Value: "4", Tone: "primary"},
		{Label: "Active Bins", Value: "3", Tone: "success"},
		{Label: "Full Bins", Value: "1", Detail: "33% of active", Tone: "warning"},
		{Label: "Anomalies", Value: "1", Tone: "danger"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summarize mismatch (-want +got):\n%s", diff)
	}
}
