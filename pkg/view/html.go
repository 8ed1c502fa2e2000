// Package view renders a SessionReport as the HTML page users see and the
// document exporter captures.
package view

import (
	"bytes"
	"html/template"
	"io"
	"time"

	"github.com/user/malscan-report/pkg/engine"
	"github.com/user/malscan-report/pkg/taxonomy"
)

// RiskColors are the severity chip colours.
var RiskColors = map[taxonomy.Severity]string{
	taxonomy.High:    "#FFCDD2",
	taxonomy.Medium:  "#FFE082",
	taxonomy.Low:     "#FFF59D",
	taxonomy.None:    "#E0E0E0",
	taxonomy.Unknown: "#CFD8DC",
}

// ThreatColors are the threat-type chip colours.
var ThreatColors = map[string]string{
	"trojan":     "#B71C1C",
	"ransomware": "#D84315",
	"worm":       "#FF6F00",
	"virus":      "#C62828",
	"benign":     "#9E9E9E",
}

const defaultThreatColor = "#90A4AE"

func riskColor(s taxonomy.Severity) string {
	if c, ok := RiskColors[s]; ok {
		return c
	}
	return "#CCCCCC"
}

func threatColor(label string) string {
	if c, ok := ThreatColors[engine.TypeKey(label)]; ok {
		return c
	}
	return defaultThreatColor
}

// chipText picks black text on the light grey benign chip, white elsewhere.
func chipText(label string) string {
	if threatColor(label) == ThreatColors["benign"] {
		return "#000"
	}
	return "#fff"
}

type bar struct {
	Name    string
	Value   int
	Percent float64
	Color   string
}

func bars(d engine.Distribution, color func(string) string) []bar {
	total := d.Total()
	out := make([]bar, 0, d.Len())
	for _, b := range d.Buckets() {
		pct := 0.0
		if total > 0 {
			pct = float64(b.Value) * 100 / float64(total)
		}
		out = append(out, bar{Name: b.Name, Value: b.Value, Percent: pct, Color: color(b.Name)})
	}
	return out
}

const page = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Scan Report - Session #{{.Report.Session.ID}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 0; background: #fff; color: #222; }
#report { max-width: 1200px; margin: 0 auto; padding: 24px; }
h1 { font-size: 28px; margin: 0 0 12px; }
.meta { text-align: center; margin-bottom: 16px; }
.charts { display: flex; gap: 32px; flex-wrap: wrap; justify-content: center; margin: 24px 0; }
.chart { flex: 1; min-width: 320px; border: 1px solid #ddd; border-radius: 4px; padding: 16px; }
.row { display: flex; align-items: center; margin: 6px 0; }
.swatch { width: 16px; height: 16px; border-radius: 4px; margin-right: 8px; }
.name { width: 110px; }
.track { flex: 1; background: #f2f2f2; height: 14px; margin: 0 8px; }
.fill { height: 14px; }
table { border-collapse: collapse; width: 100%; margin-top: 16px; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; vertical-align: top; }
th { background-color: #f2f2f2; }
.chip { display: inline-block; padding: 2px 10px; border-radius: 12px; font-weight: bold; }
</style>
</head>
<body>
<div id="report" data-rendered="false">
<h1>Scan Report - Session #{{.Report.Session.ID}}</h1>
<div class="meta">
<div>Scanned At: {{.ScannedAt}}</div>
{{with .Report.Session.ScannedBy}}<div>Scanned by: {{.Username}}{{if .Email}} ({{.Email}}){{end}}</div>{{end}}
</div>
<hr>
<div class="charts">
<div class="chart">
<h3>Risk Breakdown</h3>
{{range .Risk}}<div class="row"><div class="swatch" style="background: {{.Color}}"></div><div class="name">{{.Name}}</div><div class="track"><div class="fill" style="width: {{printf "%.1f" .Percent}}%; background: {{.Color}}"></div></div><div>{{.Value}}</div></div>
{{end}}
</div>
<div class="chart">
<h3>Threat Types</h3>
{{range .Types}}<div class="row"><div class="swatch" style="background: {{.Color}}"></div><div class="name">{{.Name}}</div><div class="track"><div class="fill" style="width: {{printf "%.1f" .Percent}}%; background: {{.Color}}"></div></div><div>{{.Value}}</div></div>
{{else}}<p>No files scanned.</p>
{{end}}
</div>
</div>
<h3 style="text-align: center">Scanned Files</h3>
<table>
<tr><th>#</th><th>Filename</th><th>Threat Type</th><th>Probabilities</th><th>Severity</th><th>Recommendation</th></tr>
{{range $i, $row := .Report.Rows}}<tr>
<td>{{inc $i}}</td>
<td>{{$row.Filename}}</td>
<td><span class="chip" style="background: {{threatColor $row.Label}}; color: {{chipText $row.Label}}">{{$row.Label}}</span></td>
<td>{{probs $row.Probabilities}}</td>
<td><span class="chip" style="background: {{riskColor $row.Severity}}; color: #000; font-weight: 500">{{$row.Severity}}</span></td>
<td>{{$row.Recommendation}}</td>
</tr>
{{end}}
</table>
</div>
<script>
requestAnimationFrame(function () {
  requestAnimationFrame(function () {
    document.getElementById("report").setAttribute("data-rendered", "true");
  });
});
</script>
</body>
</html>
`

var pageTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"inc":         func(i int) int { return i + 1 },
	"riskColor":   riskColor,
	"threatColor": threatColor,
	"chipText":    chipText,
	"probs": func(p engine.Probabilities) string {
		if len(p) == 0 {
			return "N/A"
		}
		return p.Summary()
	},
}).Parse(page))

// Render writes the report page.
func Render(w io.Writer, r *engine.SessionReport) error {
	data := struct {
		Report    *engine.SessionReport
		ScannedAt string
		Risk      []bar
		Types     []bar
	}{
		Report:    r,
		ScannedAt: r.Session.ScannedAt.UTC().Format(time.RFC1123),
		Risk: bars(r.BySeverity, func(name string) string {
			return riskColor(taxonomy.Severity(name))
		}),
		Types: bars(r.ByType, threatColor),
	}
	return pageTmpl.Execute(w, data)
}

// RenderBytes renders the page into memory.
func RenderBytes(r *engine.SessionReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
