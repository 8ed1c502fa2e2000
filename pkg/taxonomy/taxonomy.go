package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomies/default.yaml
var defaultTable []byte

//go:embed taxonomies/extended.yaml
var extendedTable []byte

var builtins = map[string][]byte{
	"report":   defaultTable,
	"extended": extendedTable,
}

// Rule maps one predicted label to a severity tier and remediation text.
type Rule struct {
	Label          string   `yaml:"label"`
	Severity       Severity `yaml:"severity"`
	Recommendation string   `yaml:"recommendation"`
	Category       string   `yaml:"category"`
}

// Fallback is applied to labels the table does not know.
type Fallback struct {
	Severity       Severity `yaml:"severity"`
	Recommendation string   `yaml:"recommendation"`
	Category       string   `yaml:"category"`
}

// Table is a versioned severity policy. It is data, loaded from YAML.
type Table struct {
	Version    string     `yaml:"version"`
	Name       string     `yaml:"name"`
	Severities []Severity `yaml:"severities"`
	Fallback   Fallback   `yaml:"fallback"`
	Rules      []Rule     `yaml:"rules"`

	index map[string]int
}

// Normalize lower-cases and trims a label for lookup.
func Normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Default returns the embedded table.
func Default() *Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
	}
	return t
}

// Builtin returns one of the embedded tables by name ("report", "extended").
func Builtin(name string) (*Table, error) {
	data, ok := builtins[Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("unknown builtin taxonomy: %s", name)
	}
	return Parse(data)
}

// Resolve treats ref as a builtin name first, then as a file path.
// An empty ref yields the default table.
func Resolve(ref string) (*Table, error) {
	if ref == "" {
		return Default(), nil
	}
	if _, ok := builtins[Normalize(ref)]; ok {
		return Builtin(ref)
	}
	return Load(ref)
}

// Load reads a YAML table from disk.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes and validates a YAML table.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Table) validate() error {
	if strings.TrimSpace(t.Version) == "" {
		return fmt.Errorf("taxonomy version is required")
	}
	if len(t.Severities) == 0 {
		return fmt.Errorf("taxonomy %s declares no severities", t.Version)
	}

	declared := make(map[Severity]bool, len(t.Severities))
	for i, s := range t.Severities {
		canon, err := ParseSeverity(string(s))
		if err != nil {
			return err
		}
		if declared[canon] {
			return fmt.Errorf("severity %s declared twice", canon)
		}
		declared[canon] = true
		t.Severities[i] = canon
	}

	fb, err := ParseSeverity(string(t.Fallback.Severity))
	if err != nil {
		return fmt.Errorf("fallback: %w", err)
	}
	if !declared[fb] {
		return fmt.Errorf("fallback severity %s is not in severities", fb)
	}
	t.Fallback.Severity = fb
	if t.Fallback.Recommendation == "" {
		return fmt.Errorf("fallback recommendation is required")
	}

	index := make(map[string]int, len(t.Rules))
	for i := range t.Rules {
		r := &t.Rules[i]
		r.Label = Normalize(r.Label)
		if r.Label == "" {
			return fmt.Errorf("rule %d: label is required", i+1)
		}
		if _, dup := index[r.Label]; dup {
			return fmt.Errorf("rule %q: duplicate label", r.Label)
		}
		sev, err := ParseSeverity(string(r.Severity))
		if err != nil {
			return fmt.Errorf("rule %q: %w", r.Label, err)
		}
		if !declared[sev] {
			return fmt.Errorf("rule %q: severity %s is not in severities", r.Label, sev)
		}
		r.Severity = sev
		index[r.Label] = i
	}
	t.index = index
	return nil
}

// Lookup finds the rule for a label. The label is normalized first.
// Tables built in code rather than parsed have no index; their rules are
// scanned in order and matched the same way, and the first match wins.
func (t *Table) Lookup(label string) (Rule, bool) {
	key := Normalize(label)
	if t.index != nil {
		i, ok := t.index[key]
		if !ok {
			return Rule{}, false
		}
		return t.Rules[i], true
	}
	for _, r := range t.Rules {
		if key != "" && Normalize(r.Label) == key {
			r.Label = key
			if sev, err := ParseSeverity(string(r.Severity)); err == nil {
				r.Severity = sev
			}
			return r, true
		}
	}
	return Rule{}, false
}

// Validate checks a table built in code and indexes its rules, the same way
// Parse does for YAML tables.
func (t *Table) Validate() error {
	return t.validate()
}

// Labels returns every known label in table order.
func (t *Table) Labels() []string {
	labels := make([]string, 0, len(t.Rules))
	for _, r := range t.Rules {
		labels = append(labels, r.Label)
	}
	return labels
}

// Marshal renders the table back to YAML.
func (t *Table) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}
