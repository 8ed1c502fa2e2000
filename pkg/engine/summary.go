package engine

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/user/malscan-report/pkg/taxonomy"
)

// PlanItem groups the files that share one recommendation.
type PlanItem struct {
	Severity       taxonomy.Severity
	Recommendation string
	Files          []string
}

// ActionPlan groups rows by recommendation, most severe first. Rows of the
// None tier need no action and are left out.
func ActionPlan(r *SessionReport) []PlanItem {
	idx := make(map[string]int)
	var items []PlanItem
	for _, row := range r.Rows {
		if row.Severity == taxonomy.None {
			continue
		}
		key := string(row.Severity) + "\x00" + row.Recommendation
		i, ok := idx[key]
		if !ok {
			i = len(items)
			idx[key] = i
			items = append(items, PlanItem{Severity: row.Severity, Recommendation: row.Recommendation})
		}
		items[i].Files = append(items[i].Files, row.Filename)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Severity.Rank() > items[j].Severity.Rank()
	})
	return items
}

const summaryTemplate = `Scan Report - Session #{{.Report.Session.ID}}
--------------------------------------------------
Scanned At: {{.ScannedAt}}
{{- with .Report.Session.ScannedBy}}
Scanned By: {{.Username}}{{if .Email}} ({{.Email}}){{end}}
{{- end}}
Taxonomy:   {{.Report.TaxonomyVersion}}
Files:      {{len .Report.Rows}} ({{.Threats}} threats)

Risk Breakdown:
{{- range .Report.BySeverity.Buckets}}
  {{printf "%-10s" .Name}} {{.Value}}
{{- end}}

Threat Types:
{{- range .Report.ByType.Buckets}}
  {{printf "%-10s" .Name}} {{.Value}}
{{- else}}
  (none)
{{- end}}

Scanned Files:
{{- range $i, $row := .Report.Rows}}
{{inc $i}}. [{{$row.Severity}}] {{$row.Filename}} ({{$row.Label}})
   Probabilities: {{probs $row.Probabilities}}
   Fix: {{$row.Recommendation}}
{{- end}}
{{- if .Plan}}

Action Plan:
{{- range .Plan}}
  [{{.Severity}}] {{.Recommendation}}
  {{- range .Files}}
    - {{.}}
  {{- end}}
{{- end}}
{{- end}}
`

var summaryTmpl = template.Must(template.New("summary").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"probs": func(p Probabilities) string {
		if len(p) == 0 {
			return "N/A"
		}
		return p.Summary()
	},
}).Parse(summaryTemplate))

// Summary renders a plain-text report for terminal output.
func Summary(r *SessionReport) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Report    *SessionReport
		ScannedAt string
		Threats   int
		Plan      []PlanItem
	}{
		Report:    r,
		ScannedAt: r.Session.ScannedAt.UTC().Format(time.RFC1123),
		Threats:   r.ThreatCount(),
		Plan:      ActionPlan(r),
	}
	if err := summaryTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template summary: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n") + "\n", nil
}
