package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/user/malscan-report/pkg/taxonomy"
)

// SessionID identifies a scan session. The backend sends it as a number,
// other producers as a string; both decode to the same value.
type SessionID string

func (id *SessionID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SessionID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("session id: %w", err)
	}
	*id = SessionID(n.String())
	return nil
}

func (id SessionID) String() string {
	return string(id)
}

// Timestamp accepts RFC 3339 and zone-less ISO 8601 (Python isoformat) values.
// Zone-less values are taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// ParseTimestamp parses a backend timestamp.
func ParseTimestamp(v string) (Timestamp, error) {
	v = strings.TrimSpace(v)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return Timestamp{t.UTC()}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp: %q", v)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Probability is one class score reported by the classifier.
type Probability struct {
	Label string
	Value float64
}

// Probabilities keeps class scores in the order the classifier reported them.
type Probabilities []Probability

func (p *Probabilities) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("probabilities: expected object, got %v", tok)
	}

	out := Probabilities{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("probabilities: expected key, got %v", keyTok)
		}
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("probabilities[%s]: %w", key, err)
		}
		v, err := n.Float64()
		if err != nil {
			return fmt.Errorf("probabilities[%s]: %w", key, err)
		}
		out = append(out, Probability{Label: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

func (p Probabilities) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prob := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prob.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(prob.Value, 'g', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Summary renders "<label>: <pct>%" entries joined by " | ".
func (p Probabilities) Summary() string {
	parts := make([]string, 0, len(p))
	for _, prob := range p {
		parts = append(parts, fmt.Sprintf("%s: %s%%", prob.Label, percent(prob.Value)))
	}
	return strings.Join(parts, " | ")
}

// percent renders v*100 with one decimal. Exact halves round up, so 0.0625
// prints as 6.3; everything else rounds to nearest.
func percent(v float64) string {
	x := v * 100
	t := x * 10
	f := math.Floor(t)
	// The FMA residual is the rounding error of x*10: a tie is real only if
	// the product was exact or the true value lies above it.
	if t-f == 0.5 && math.FMA(x, 10, -t) >= 0 {
		return strconv.FormatFloat((f+1)/10, 'f', 1, 64)
	}
	return strconv.FormatFloat(x, 'f', 1, 64)
}

// User is the account that ran a scan.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// FileResult is the classifier output for one file.
type FileResult struct {
	Filename      string        `json:"filename"`
	Label         string        `json:"prediction"`
	Probabilities Probabilities `json:"probabilities"`
}

// Session is one scan operation. Files is nil only when the payload omitted it.
type Session struct {
	ID        SessionID    `json:"session_id"`
	ScannedAt Timestamp    `json:"scanned_at"`
	ScannedBy *User        `json:"user,omitempty"`
	Files     []FileResult `json:"files"`
}

// ClassifiedFileResult is a FileResult scored against a taxonomy.
type ClassifiedFileResult struct {
	FileResult
	Severity       taxonomy.Severity `json:"severity"`
	Recommendation string            `json:"recommendation"`
	Category       string            `json:"category"`
	Known          bool              `json:"known"`
}

// SessionReport is the decision-ready view of a session.
type SessionReport struct {
	Session         Session                `json:"session"`
	Rows            []ClassifiedFileResult `json:"rows"`
	BySeverity      Distribution           `json:"by_severity"`
	ByType          Distribution           `json:"by_type"`
	TaxonomyVersion string                 `json:"taxonomy_version"`
}

var benignLabels = map[string]bool{"benign": true, "clean": true, "none": true}

// IsThreat reports whether a label counts as a threat. Only benign, clean and
// none do not; unknown and empty labels do.
func IsThreat(label string) bool {
	return !benignLabels[taxonomy.Normalize(label)]
}

// ThreatCount counts rows whose label is not a benign one.
func (r *SessionReport) ThreatCount() int {
	n := 0
	for _, row := range r.Rows {
		if IsThreat(row.Label) {
			n++
		}
	}
	return n
}
