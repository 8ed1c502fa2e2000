package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	tbl := Default()

	assert.Equal(t, []Severity{High, Medium, None, Unknown}, tbl.Severities)
	assert.Equal(t, Unknown, tbl.Fallback.Severity)
	assert.Equal(t, []string{"trojan", "ransomware", "worm", "virus", "benign"}, tbl.Labels())

	r, ok := tbl.Lookup("  TroJan ")
	require.True(t, ok)
	assert.Equal(t, High, r.Severity)
	assert.Equal(t, "⚠️ Immediate quarantine and full system scan", r.Recommendation)

	r, ok = tbl.Lookup("virus")
	require.True(t, ok)
	assert.Equal(t, Medium, r.Severity)

	_, ok = tbl.Lookup("zephyr")
	assert.False(t, ok)
}

func TestBuiltinExtended(t *testing.T) {
	tbl, err := Builtin("Extended")
	require.NoError(t, err)

	assert.Equal(t, []Severity{High, Medium, Low, None, Unknown}, tbl.Severities)
	for label, want := range map[string]Severity{
		"ransomware": High,
		"keylogger":  Medium,
		"pup":        Low,
		"tracking":   Low,
		"clean":      None,
	} {
		r, ok := tbl.Lookup(label)
		require.True(t, ok, label)
		assert.Equal(t, want, r.Severity, label)
	}

	_, err = Builtin("nope")
	assert.Error(t, err)
}

func TestParseNormalizesRules(t *testing.T) {
	tbl, err := Parse([]byte(`
version: "1"
severities: [high, NONE, unknown]
fallback:
  severity: UNKNOWN
  recommendation: review
rules:
  - label: "  Trojan "
    severity: HIGH
    recommendation: quarantine
`))
	require.NoError(t, err)

	assert.Equal(t, []Severity{High, None, Unknown}, tbl.Severities)
	assert.Equal(t, Unknown, tbl.Fallback.Severity)
	r, ok := tbl.Lookup("TROJAN")
	require.True(t, ok)
	assert.Equal(t, "trojan", r.Label)
	assert.Equal(t, High, r.Severity)
}

func TestParseRejectsInvalidTables(t *testing.T) {
	cases := map[string]string{
		"missing version": `
severities: [High, Unknown]
fallback: {severity: Unknown, recommendation: r}
`,
		"undeclared rule severity": `
version: "1"
severities: [High, Unknown]
fallback: {severity: Unknown, recommendation: r}
rules:
  - {label: virus, severity: Medium, recommendation: scan}
`,
		"duplicate label": `
version: "1"
severities: [High, Unknown]
fallback: {severity: Unknown, recommendation: r}
rules:
  - {label: worm, severity: High, recommendation: a}
  - {label: " WORM", severity: High, recommendation: b}
`,
		"undeclared fallback": `
version: "1"
severities: [High]
fallback: {severity: Unknown, recommendation: r}
`,
		"bogus severity": `
version: "1"
severities: [Critical]
fallback: {severity: Critical, recommendation: r}
`,
		"missing fallback text": `
version: "1"
severities: [Unknown]
fallback: {severity: Unknown}
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	tbl, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "report", tbl.Name)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: "custom-1"
severities: [Medium, None]
fallback: {severity: None, recommendation: "review manually"}
rules:
  - {label: virus, severity: Medium, recommendation: scan}
`), 0600))

	tbl, err = Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-1", tbl.Version)
	assert.Equal(t, None, tbl.Fallback.Severity)

	_, err = Resolve(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeverityRank(t *testing.T) {
	assert.Greater(t, High.Rank(), Medium.Rank())
	assert.Greater(t, Medium.Rank(), Low.Rank())
	assert.Greater(t, Low.Rank(), None.Rank())
	assert.Greater(t, None.Rank(), Unknown.Rank())
	assert.False(t, Severity("Critical").Valid())
}

func TestLookupOnTableBuiltInCode(t *testing.T) {
	tbl := &Table{
		Version:    "inline",
		Severities: []Severity{High, None},
		Fallback:   Fallback{Severity: None, Recommendation: "review"},
		Rules: []Rule{
			{Label: " Trojan", Severity: "high", Recommendation: "quarantine"},
			{Label: "trojan", Severity: None, Recommendation: "shadowed"},
		},
	}

	r, ok := tbl.Lookup("TROJAN")
	require.True(t, ok)
	assert.Equal(t, Rule{Label: "trojan", Severity: High, Recommendation: "quarantine"}, r)
	_, ok = tbl.Lookup("worm")
	assert.False(t, ok)
	_, ok = tbl.Lookup("")
	assert.False(t, ok)

	// Validate indexes the table and rejects the duplicate label.
	assert.Error(t, tbl.Validate())

	tbl.Rules = tbl.Rules[:1]
	require.NoError(t, tbl.Validate())
	r, ok = tbl.Lookup("trojan")
	require.True(t, ok)
	assert.Equal(t, High, r.Severity)
}
