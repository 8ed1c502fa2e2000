package taxonomy

import "fmt"

// Severity is a coarse risk tier derived from a predicted label.
type Severity string

const (
	High    Severity = "High"
	Medium  Severity = "Medium"
	Low     Severity = "Low"
	None    Severity = "None"
	Unknown Severity = "Unknown"
)

var severityRank = map[Severity]int{
	High:    4,
	Medium:  3,
	Low:     2,
	None:    1,
	Unknown: 0,
}

// Rank orders tiers for display. Higher is more severe.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Valid reports whether s is one of the known tiers.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// ParseSeverity accepts a tier name in any case.
func ParseSeverity(v string) (Severity, error) {
	for s := range severityRank {
		if Normalize(v) == Normalize(string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown severity: %q", v)
}
