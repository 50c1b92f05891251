package http

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/charts"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/dashboard"
	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/models"
)

// fullThreshold is the fill level above which an active bin counts as full
// when the backend does not report full_bins itself.
const fullThreshold = 80

type card struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Detail string `json:"detail,omitempty"`
	Tone   string `json:"tone"`
}

type tableRow struct {
	ID          string
	Name        string
	Location    string
	FillLevel   string
	Temperature string
	Humidity    string
	Smoke       string
	Active      bool
	Anomaly     string
	Anomalous   bool
	ReceivedAt  string
}

type pageData struct {
	Title       string
	Variant     models.Variant
	Cards       []card
	Status      dashboard.Status
	LastUpdated string
	Center      models.LatLng
	Zoom        int
	MapAPIKey   string
	RefreshMS   int64
	Rows        []tableRow
}

// summarize builds the headline cards. Backend counters win; missing ones
// are derived from the records.
func summarize(snap models.BinSnapshot) []card {
	var active, full, anomalies int
	for _, b := range snap.Bins {
		if !b.IsActive() {
			continue
		}
		active++
		if b.FillLevel > fullThreshold {
			full++
		}
		if b.HasAnomaly() {
			anomalies++
		}
	}

	total := counterOr(snap, charts.TotalCounter, len(snap.Bins))
	active = counterOr(snap, "active_bins", active)
	full = counterOr(snap, "full_bins", full)
	anomalies = counterOr(snap, "anomaly_bins", anomalies)

	perc := 0
	if active > 0 {
		perc = full * 100 / active
	}
	perc = counterOr(snap, "full_bins_perctg", perc)

	return []card{
		{Label: "Total Bins", Value: humanize.Comma(int64(total)), Tone: "primary"},
		{Label: "Active Bins", Value: humanize.Comma(int64(active)), Tone: "success"},
		{Label: "Full Bins", Value: humanize.Comma(int64(full)), Detail: strconv.Itoa(perc) + "% of active", Tone: "warning"},
		{Label: "Anomalies", Value: humanize.Comma(int64(anomalies)), Tone: "danger"},
	}
}

func counterOr(snap models.BinSnapshot, key string, fallback int) int {
	if n, ok := snap.Counter(key); ok {
		return n
	}
	return fallback
}

func rowsOf(bins []models.BinRecord) []tableRow {
	rows := make([]tableRow, 0, len(bins))
	for _, b := range bins {
		rows = append(rows, tableRow{
			ID:          b.ID,
			Name:        b.Name,
			Location:    b.Location,
			FillLevel:   humanize.Ftoa(b.FillLevel) + "%",
			Temperature: humanize.Ftoa(b.Temperature) + "°C",
			Humidity:    optional(b.Humidity, "%"),
			Smoke:       optional(b.SmokePPM, " PPM"),
			Active:      b.IsActive(),
			Anomaly:     b.Anomaly,
			Anomalous:   b.HasAnomaly(),
			ReceivedAt:  b.ReceivedAt,
		})
	}
	return rows
}

func optional(v *float64, unit string) string {
	if v == nil {
		return "n/a"
	}
	return humanize.Ftoa(*v) + unit
}

func (s *Server) buildPage(title string) pageData {
	st := s.session.Controller.Status()
	last := "never"
	if !st.LastSuccess.IsZero() {
		last = humanize.Time(st.LastSuccess)
	}
	snap := s.session.Controller.Snapshot()
	return pageData{
		Title:       title,
		Variant:     s.cfg.Variant,
		Cards:       summarize(snap),
		Status:      st,
		LastUpdated: last,
		Center:      s.session.Canvas.Center(),
		Zoom:        s.session.Canvas.Zoom(),
		MapAPIKey:   s.cfg.MapAPIKey,
		RefreshMS:   s.cfg.PollInterval.Milliseconds(),
		Rows:        rowsOf(snap.Bins),
	}
}

// handleIndex renders the map dashboard
// GET /
func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index", s.buildPage("Smart Bin Dashboard"))
}

// handleTable renders the latest record of every bin
// GET /table
func (s *Server) handleTable(c *gin.Context) {
	c.HTML(http.StatusOK, "table", s.buildPage("Bin Table"))
}

// GET /charts
func (s *Server) handleChartsPage(c *gin.Context) {
	s.renderChart(c, func() string {
		return "all-" + strconv.FormatUint(s.session.Donut.Revision(), 10) + "-" + strconv.FormatUint(s.session.Trend.Revision(), 10)
	}, func(buf *bytes.Buffer) error {
		return charts.RenderPage(buf, s.cfg.EChartsAssetsHost, s.session.Donut, s.session.Trend)
	})
}

// GET /charts/distribution
func (s *Server) handleDistributionChart(c *gin.Context) {
	s.renderChart(c, func() string {
		return "distribution-" + strconv.FormatUint(s.session.Donut.Revision(), 10)
	}, func(buf *bytes.Buffer) error {
		return s.session.Donut.Render(buf)
	})
}

// GET /charts/trend
func (s *Server) handleTrendChart(c *gin.Context) {
	s.renderChart(c, func() string {
		return "trend-" + strconv.FormatUint(s.session.Trend.Revision(), 10)
	}, func(buf *bytes.Buffer) error {
		return s.session.Trend.Render(buf)
	})
}

// renderChart serves a chart page with an ETag built from the chart
// revisions. The tag is left off when an update lands while rendering.
func (s *Server) renderChart(c *gin.Context, revision func() string, render func(*bytes.Buffer) error) {
	etag := `"` + s.instance + "-" + revision() + `"`
	if c.GetHeader("If-None-Match") == etag {
		c.Header("ETag", etag)
		c.Status(http.StatusNotModified)
		return
	}

	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		s.logger.Error("render chart", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if `"`+s.instance+"-"+revision()+`"` == etag {
		c.Header("ETag", etag)
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
