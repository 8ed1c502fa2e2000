package engine

import (
	"fmt"
	"strings"
	"time"
)

// DashboardMonths is how many calendar months the threat graph covers,
// ending with the current one.
const DashboardMonths = 3

// ThreatMonth is the threat count for one calendar month.
type ThreatMonth struct {
	Name    string `json:"name"` // "Jan 2024"
	Threats int    `json:"threats"`
}

// Dashboard rolls every session of an account up into one overview.
// BySeverity and ByType count threats only.
type Dashboard struct {
	Sessions     int           `json:"sessions"`
	Skipped      []SessionID   `json:"skipped,omitempty"`
	Scans        int           `json:"scans"`
	Threats      int           `json:"threats"`
	ThreatsToday int           `json:"threats_today"`
	ThreatGraph  []ThreatMonth `json:"threat_graph"`
	BySeverity   Distribution  `json:"by_severity"`
	ByType       Distribution  `json:"by_type"`
}

// Dashboard aggregates sessions as of now. Days and months are taken in
// now's location. Malformed sessions are listed in Skipped and left out.
func (b *Builder) Dashboard(sessions []Session, now time.Time) *Dashboard {
	loc := now.Location()
	nowYear, nowMonth, nowDay := now.Date()

	d := &Dashboard{ThreatGraph: make([]ThreatMonth, DashboardMonths)}
	for i := range d.ThreatGraph {
		m := time.Date(nowYear, nowMonth-time.Month(DashboardMonths-1-i), 1, 0, 0, 0, 0, loc)
		d.ThreatGraph[i].Name = m.Format("Jan 2006")
	}

	var threats []FileResult
	for _, s := range sessions {
		if err := Validate(s); err != nil {
			d.Skipped = append(d.Skipped, s.ID)
			continue
		}
		d.Sessions++
		d.Scans += len(s.Files)

		y, m, day := s.ScannedAt.In(loc).Date()
		age := (nowYear-y)*12 + int(nowMonth-m)
		for _, f := range s.Files {
			if !IsThreat(f.Label) {
				continue
			}
			threats = append(threats, f)
			if y == nowYear && m == nowMonth && day == nowDay {
				d.ThreatsToday++
			}
			if age >= 0 && age < DashboardMonths {
				d.ThreatGraph[DashboardMonths-1-age].Threats++
			}
		}
	}

	d.Threats = len(threats)
	d.BySeverity, d.ByType = b.aggregator.Aggregate(threats)
	return d
}

// String renders the dashboard for terminal output.
func (d *Dashboard) String() string {
	var sb strings.Builder
	sb.WriteString("Threat Dashboard\n")
	sb.WriteString("--------------------------------------------------\n")
	sb.WriteString(fmt.Sprintf("Sessions:      %d\n", d.Sessions))
	sb.WriteString(fmt.Sprintf("Files scanned: %d\n", d.Scans))
	sb.WriteString(fmt.Sprintf("Threats:       %d\n", d.Threats))
	sb.WriteString(fmt.Sprintf("Threats today: %d\n", d.ThreatsToday))
	if len(d.Skipped) > 0 {
		ids := make([]string, len(d.Skipped))
		for i, id := range d.Skipped {
			ids[i] = "#" + id.String()
		}
		sb.WriteString(fmt.Sprintf("Skipped (invalid): %s\n", strings.Join(ids, ", ")))
	}

	sb.WriteString("\nThreats by Month:\n")
	for _, m := range d.ThreatGraph {
		sb.WriteString(fmt.Sprintf("  %-10s %d\n", m.Name, m.Threats))
	}
	sb.WriteString("Risk Breakdown:\n")
	for _, b := range d.BySeverity.Buckets() {
		sb.WriteString(fmt.Sprintf("  %-10s %d\n", b.Name, b.Value))
	}
	sb.WriteString("Threat Types:\n")
	if d.ByType.Len() == 0 {
		sb.WriteString("  none\n")
	}
	for _, b := range d.ByType.Buckets() {
		sb.WriteString(fmt.Sprintf("  %-10s %d\n", b.Name, b.Value))
	}
	return sb.String()
}
