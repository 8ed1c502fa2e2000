package export

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/malscan-report/pkg/engine"
)

func buildReport(t *testing.T, files []engine.FileResult) *engine.SessionReport {
	t.Helper()
	r, err := engine.NewBuilder(nil).Build(engine.Session{
		ID:        "42",
		ScannedAt: engine.Timestamp{Time: time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)},
		Files:     files,
	})
	require.NoError(t, err)
	return r
}

func scenarioFiles() []engine.FileResult {
	return []engine.FileResult{
		{Filename: "trojan.exe", Label: "trojan", Probabilities: engine.Probabilities{{Label: "trojan", Value: 0.92}, {Label: "benign", Value: 0.08}}},
		{Filename: "ok.txt", Label: "benign", Probabilities: engine.Probabilities{{Label: "trojan", Value: 0.01}, {Label: "benign", Value: 0.99}}},
	}
}

func TestTabularScenario(t *testing.T) {
	out, err := NewTabularExporter(TabularOptions{}).Export(buildReport(t, scenarioFiles()))
	require.NoError(t, err)

	want := strings.Join([]string{
		`"Filename","Threat Type","Severity","Recommendation","Probabilities"`,
		`"trojan.exe","trojan","High","⚠️ Immediate quarantine and full system scan","trojan: 92.0% | benign: 8.0%"`,
		`"ok.txt","benign","None","✅ No action needed","trojan: 1.0% | benign: 99.0%"`,
	}, "\n")
	assert.Equal(t, want, string(out))
}

func TestTabularEmptySessionIsHeaderOnly(t *testing.T) {
	out, err := NewTabularExporter(TabularOptions{}).Export(buildReport(t, []engine.FileResult{}))
	require.NoError(t, err)
	assert.Equal(t, `"Filename","Threat Type","Severity","Recommendation","Probabilities"`, string(out))
}

func TestTabularRoundTrip(t *testing.T) {
	files := []engine.FileResult{
		{Filename: `a,b"c.exe`, Label: `Tro"jan`, Probabilities: engine.Probabilities{{Label: `tro"jan`, Value: 0.5}, {Label: "a,b", Value: 0.5}}},
		{Filename: "line\nbreak.txt", Label: "benign"},
		{Filename: "", Label: ""},
	}
	report := buildReport(t, files)
	out, err := NewTabularExporter(TabularOptions{}).Export(report)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(files)+1)
	assert.Equal(t, TabularColumns, records[0])

	for i, row := range report.Rows {
		rec := records[i+1]
		assert.Equal(t, row.Filename, rec[0])
		assert.Equal(t, row.Label, rec[1])
		assert.Equal(t, string(row.Severity), rec[2])
		assert.Equal(t, row.Recommendation, rec[3])
		assert.Equal(t, row.Probabilities.Summary(), rec[4])
	}
	assert.Equal(t, `a,b"c.exe`, records[1][0])
	assert.Equal(t, `tro"jan: 50.0% | a,b: 50.0%`, records[1][4])
	assert.Equal(t, "Unknown", records[3][2])
}

func TestTabularIsDeterministic(t *testing.T) {
	report := buildReport(t, scenarioFiles())
	exp := NewTabularExporter(TabularOptions{})

	first, err := exp.Export(report)
	require.NoError(t, err)
	second, err := exp.Export(report)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTabularOptions(t *testing.T) {
	report := buildReport(t, []engine.FileResult{{Filename: "=cmd|' /C calc'!A0", Label: "virus"}})

	out, err := NewTabularExporter(TabularOptions{ExcelBOM: true, SanitizeFormulas: true}).Export(report)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), utf8BOM+`"Filename"`))
	assert.Contains(t, string(out), `"'=cmd|' /C calc'!A0","virus","Medium"`)
}

func TestFilenames(t *testing.T) {
	assert.Equal(t, "scan_report_session_42.csv", TabularFilename("42"))
	assert.Equal(t, "scan_report_session_42.pdf", DocumentFilename("42"))
}
