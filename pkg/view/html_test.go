package view

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/malscan-report/pkg/engine"
)

func report(t *testing.T, files []engine.FileResult) *engine.SessionReport {
	t.Helper()
	r, err := engine.NewBuilder(nil).Build(engine.Session{
		ID:        "42",
		ScannedAt: engine.Timestamp{Time: time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)},
		ScannedBy: &engine.User{ID: 3, Username: "alice", Email: "alice@example.com"},
		Files:     files,
	})
	require.NoError(t, err)
	return r
}

func TestRender(t *testing.T) {
	r := report(t, []engine.FileResult{
		{Filename: "trojan.exe", Label: "trojan", Probabilities: engine.Probabilities{{Label: "trojan", Value: 0.92}, {Label: "benign", Value: 0.08}}},
		{Filename: "<script>.txt", Label: "benign"},
	})

	out, err := RenderBytes(r)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, `id="report" data-rendered="false"`)
	assert.Contains(t, html, `setAttribute("data-rendered", "true")`)
	assert.Contains(t, html, "Scan Report - Session #42")
	assert.Contains(t, html, "Scanned by: alice (alice@example.com)")
	assert.Contains(t, html, "trojan: 92.0% | benign: 8.0%")
	assert.Contains(t, html, "N/A")
	assert.Contains(t, html, "Immediate quarantine and full system scan")
	assert.Contains(t, html, "#B71C1C")
	assert.Contains(t, html, "#FFCDD2")
	assert.NotContains(t, html, "<script>.txt")
	assert.Contains(t, html, "&lt;script&gt;.txt")
}

func TestRenderEmptySession(t *testing.T) {
	out, err := RenderBytes(report(t, []engine.FileResult{}))
	require.NoError(t, err)
	assert.Contains(t, string(out), "No files scanned.")
	assert.Equal(t, 1, strings.Count(string(out), "<table>"))
}

func TestThreatColorFallback(t *testing.T) {
	assert.Equal(t, ThreatColors["trojan"], threatColor("Trojan"))
	assert.Equal(t, defaultThreatColor, threatColor("spyware"))
	assert.Equal(t, "#000", chipText("benign"))
	assert.Equal(t, "#fff", chipText("worm"))
}
