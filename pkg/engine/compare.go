package engine

import (
	"fmt"
	"strings"
)

// Delta is the change of one distribution category between two sessions.
type Delta struct {
	Name     string
	Previous int
	Current  int
}

// Change is Current minus Previous.
func (d Delta) Change() int {
	return d.Current - d.Previous
}

// Comparison describes how a session differs from a baseline session.
type Comparison struct {
	Baseline   SessionID
	Current    SessionID
	BySeverity []Delta
	ByType     []Delta
	New        []ClassifiedFileResult // threats absent from the baseline
	Fixed      []ClassifiedFileResult // baseline threats no longer flagged
	Unchanged  []ClassifiedFileResult // threats flagged in both
}

func isThreat(row ClassifiedFileResult) bool {
	return IsThreat(row.Label)
}

// Compare diffs two reports. Files are matched by filename.
func Compare(baseline, current *SessionReport) Comparison {
	c := Comparison{
		Baseline:   baseline.Session.ID,
		Current:    current.Session.ID,
		BySeverity: deltas(baseline.BySeverity, current.BySeverity),
		ByType:     deltas(baseline.ByType, current.ByType),
	}

	before := make(map[string]ClassifiedFileResult)
	for _, row := range baseline.Rows {
		if isThreat(row) {
			before[row.Filename] = row
		}
	}
	seen := make(map[string]bool)
	for _, row := range current.Rows {
		if !isThreat(row) {
			continue
		}
		seen[row.Filename] = true
		if _, ok := before[row.Filename]; ok {
			c.Unchanged = append(c.Unchanged, row)
		} else {
			c.New = append(c.New, row)
		}
	}
	for _, row := range baseline.Rows {
		if isThreat(row) && !seen[row.Filename] {
			c.Fixed = append(c.Fixed, row)
		}
	}
	return c
}

func deltas(prev, curr Distribution) []Delta {
	keys := prev.Keys()
	for _, k := range curr.Keys() {
		if !prev.Has(k) {
			keys = append(keys, k)
		}
	}
	out := make([]Delta, 0, len(keys))
	for _, k := range keys {
		out = append(out, Delta{Name: k, Previous: prev.Get(k), Current: curr.Get(k)})
	}
	return out
}

// String renders the comparison for terminal output.
func (c Comparison) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Session Comparison (#%s vs baseline #%s):\n", c.Current, c.Baseline))
	sb.WriteString("--------------------------------------------------\n")

	sb.WriteString("Risk Breakdown:\n")
	for _, d := range c.BySeverity {
		sb.WriteString(fmt.Sprintf("  %-10s %d -> %d (%+d)\n", d.Name, d.Previous, d.Current, d.Change()))
	}
	sb.WriteString("Threat Types:\n")
	for _, d := range c.ByType {
		sb.WriteString(fmt.Sprintf("  %-10s %d -> %d (%+d)\n", d.Name, d.Previous, d.Current, d.Change()))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("NEW THREATS: %d\n", len(c.New)))
	for _, r := range c.New {
		sb.WriteString(fmt.Sprintf("  [+] [%s] %s (%s)\n", r.Severity, r.Filename, r.Label))
	}
	sb.WriteString(fmt.Sprintf("FIXED THREATS: %d\n", len(c.Fixed)))
	for _, r := range c.Fixed {
		sb.WriteString(fmt.Sprintf("  [-] [%s] %s (%s)\n", r.Severity, r.Filename, r.Label))
	}
	sb.WriteString(fmt.Sprintf("UNCHANGED THREATS: %d\n", len(c.Unchanged)))
	for i, r := range c.Unchanged {
		if i >= 10 {
			sb.WriteString(fmt.Sprintf("  ... and %d more.\n", len(c.Unchanged)-10))
			break
		}
		sb.WriteString(fmt.Sprintf("  [=] [%s] %s (%s)\n", r.Severity, r.Filename, r.Label))
	}
	return sb.String()
}
