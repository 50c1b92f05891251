package charts

import (
	"fmt"
	"io"
	"sync"

	echarts "github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Dataset is the full data behind one chart. Colors is optional and indexed
// like Labels.
type Dataset struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
	Colors []string `json:"colors,omitempty"`
}

// Sum adds up every value.
func (d Dataset) Sum() int {
	total := 0
	for _, v := range d.Values {
		total += v
	}
	return total
}

func (d Dataset) clone() Dataset {
	return Dataset{
		Labels: append([]string(nil), d.Labels...),
		Values: append([]int(nil), d.Values...),
		Colors: append([]string(nil), d.Colors...),
	}
}

// Widget is a long-lived chart whose data is swapped in place.
type Widget interface {
	ReplaceDataset(ds Dataset)
	Update()
}

// RenderOptions controls the HTML page go-echarts emits.
type RenderOptions struct {
	Title      string
	Width      string
	Height     string
	AssetsHost string
}

func (o RenderOptions) initialization() opts.Initialization {
	cfg := opts.Initialization{PageTitle: o.Title, Width: o.Width, Height: o.Height}
	if cfg.Width == "" {
		cfg.Width = "100%"
	}
	if cfg.Height == "" {
		cfg.Height = "360px"
	}
	if o.AssetsHost != "" {
		cfg.AssetsHost = o.AssetsHost
	}
	return cfg
}

// chart holds the dataset and redraw revision shared by both widgets.
// Replaced data stays staged, and invisible to Dataset, until Update.
type chart struct {
	mu       sync.RWMutex
	render   RenderOptions
	dataset  Dataset
	staged   Dataset
	pending  bool
	revision uint64
}

func (c *chart) ReplaceDataset(ds Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged = ds.clone()
	c.pending = true
}

// Update publishes the pending dataset as a new revision.
func (c *chart) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending {
		return
	}
	c.dataset, c.staged = c.staged, Dataset{}
	c.pending = false
	c.revision++
}

// Dataset returns a copy of the published data.
func (c *chart) Dataset() Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dataset.clone()
}

// Revision counts published redraws. It changes exactly when the rendered
// output can change.
func (c *chart) Revision() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

// Donut is the status-distribution chart.
type Donut struct {
	chart
	series string
}

// NewDonut constructs an empty donut chart.
func NewDonut(series string, o RenderOptions) *Donut {
	return &Donut{chart: chart{render: o}, series: series}
}

// Chart builds the go-echarts pie for the current dataset.
func (d *Donut) Chart() *echarts.Pie {
	ds := d.Dataset()
	items := make([]opts.PieData, 0, len(ds.Labels))
	for i, label := range ds.Labels {
		item := opts.PieData{Name: label, Value: valueAt(ds.Values, i)}
		if i < len(ds.Colors) {
			item.ItemStyle = &opts.ItemStyle{Color: ds.Colors[i]}
		}
		items = append(items, item)
	}

	pie := echarts.NewPie()
	pie.SetGlobalOptions(
		echarts.WithInitializationOpts(d.render.initialization()),
		echarts.WithTitleOpts(opts.Title{Title: d.render.Title, Subtitle: fmt.Sprintf("%s bins", FormatNumber(float64(ds.Sum()), 0, ".", ","))}),
		echarts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		echarts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)
	pie.AddSeries(d.series, items, echarts.WithPieChartOpts(opts.PieChart{Radius: []string{"64%", "80%"}}))
	return pie
}

// Render writes a standalone HTML page for the chart.
func (d *Donut) Render(w io.Writer) error {
	return d.Chart().Render(w)
}

// TrendLine is the hourly full-bin chart.
type TrendLine struct {
	chart
	series string
	color  string
}

// NewTrendLine constructs an empty line chart.
func NewTrendLine(series string, o RenderOptions) *TrendLine {
	return &TrendLine{chart: chart{render: o}, series: series, color: "rgba(78, 115, 223, 1)"}
}

// Chart builds the go-echarts line for the current dataset.
func (t *TrendLine) Chart() *echarts.Line {
	ds := t.Dataset()
	points := make([]opts.LineData, 0, len(ds.Values))
	for _, v := range ds.Values {
		points = append(points, opts.LineData{Value: v})
	}

	line := echarts.NewLine()
	line.SetGlobalOptions(
		echarts.WithInitializationOpts(t.render.initialization()),
		echarts.WithTitleOpts(opts.Title{Title: t.render.Title}),
		echarts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		echarts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)
	line.SetXAxis(ds.Labels).
		AddSeries(t.series, points, echarts.WithItemStyleOpts(opts.ItemStyle{Color: t.color}))
	return line
}

// Render writes a standalone HTML page for the chart.
func (t *TrendLine) Render(w io.Writer) error {
	return t.Chart().Render(w)
}

// RenderPage writes both charts into one go-echarts page.
func RenderPage(w io.Writer, assetsHost string, donut *Donut, trend *TrendLine) error {
	page := components.NewPage()
	if assetsHost != "" {
		page.SetAssetsHost(assetsHost)
	}
	page.AddCharts(donut.Chart(), trend.Chart())
	return page.Render(w)
}

func valueAt(values []int, i int) int {
	if i < len(values) {
		return values[i]
	}
	return 0
}
