// Package popup renders the detail view bound to a bin marker's info window.
package popup

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/models"
)

const detailHTML = `<div class="bin-popup">
<h6><strong>Bin Name: {{.Name}}</strong></h6>
<p class="popup-field">Status: <span class="badge bg-{{if .Active}}success{{else}}secondary{{end}} text-white">{{if .Active}}ON{{else}}OFF{{end}}</span></p>
<p class="popup-field">Fill Level: {{.FillLevel}}</p>
<p class="popup-field">Temperature: {{.Temperature}}</p>
<p class="popup-field">Humidity: {{.Humidity}}</p>
<p class="popup-field">Smoke Concentration: {{.Smoke}}</p>
<p class="popup-field">Last Updated: {{.ReceivedAt}}</p>
{{- if .Anomaly}}
<p class="text-danger popup-alert"><strong>⚠️ Anomaly detected: {{.Anomaly}}</strong></p>
{{- end}}
</div>`

var detailTmpl = template.Must(template.New("popup").Parse(detailHTML))

type view struct {
	Name        string
	Active      bool
	FillLevel   string
	Temperature string
	Humidity    string
	Smoke       string
	ReceivedAt  string
	Anomaly     string
}

// Build renders the popup markup for one bin. The output depends only on the
// record, and every field is escaped by html/template.
func Build(bin models.BinRecord) (template.HTML, error) {
	v := view{
		Name:        bin.Name,
		Active:      bin.IsActive(),
		FillLevel:   formatValue(bin.FillLevel) + "%",
		Temperature: formatValue(bin.Temperature) + "°C",
		Humidity:    formatOptional(bin.Humidity, "%"),
		Smoke:       formatOptional(bin.SmokePPM, " PPM"),
		ReceivedAt:  bin.ReceivedAt,
	}
	if v.Name == "" {
		v.Name = "Bin " + bin.ID
	}
	if v.ReceivedAt == "" {
		v.ReceivedAt = "n/a"
	}
	if bin.HasAnomaly() {
		v.Anomaly = bin.Anomaly
		if v.Anomaly == "" {
			v.Anomaly = "unknown"
		}
	}

	var buf bytes.Buffer
	if err := detailTmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render popup for bin %s: %w", bin.ID, err)
	}
	return template.HTML(buf.String()), nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64, unit string) string {
	if v == nil {
		return "n/a"
	}
	return formatValue(*v) + unit
}
