package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionJSON = `{
  "session_id": 42,
  "scanned_at": "2024-06-01T10:30:00",
  "user": {"id": 3, "username": "alice"},
  "files": [
    {"filename": "trojan.exe", "prediction": "trojan", "probabilities": {"trojan": 0.92, "benign": 0.08}},
    {"filename": "ok.txt", "prediction": "benign", "probabilities": {"trojan": 0.01, "benign": 0.99}}
  ]
}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Cleanup(func() {
		reportTaxonomy, reportFile, exportFormat, exportOutDir = "", "", "csv", ""
		reportJSON = false
		diffBaseFile, diffCurFile = "", ""
		dashboardTaxonomy, dashboardJSON = "extended", false
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeSession(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestReportShowFromFile(t *testing.T) {
	out, err := run(t, "report", "show", "--file", writeSession(t, sessionJSON))
	require.NoError(t, err)
	assert.Contains(t, out, "Scan Report - Session #42")
	assert.Contains(t, out, "trojan.exe")
	assert.Contains(t, out, "Immediate quarantine and full system scan")
}

func TestReportExportCSV(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "report", "export", "--file", writeSession(t, sessionJSON), "--format", "csv", "-o", dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "scan_report_session_42.csv")
	assert.Contains(t, out, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"Filename","Threat Type","Severity","Recommendation","Probabilities"`, lines[0])
}

func TestReportExportRejectsFormat(t *testing.T) {
	_, err := run(t, "report", "export", "--file", writeSession(t, sessionJSON), "--format", "docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestReportShowMalformed(t *testing.T) {
	_, err := run(t, "report", "show", "--file", writeSession(t, `{"session_id": 1, "scanned_at": "2024-06-01T10:30:00"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "files")
}

func TestSessionsListRequiresPrivilege(t *testing.T) {
	_, err := run(t, "sessions", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "privileged")
}

func TestTaxonomyValidate(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("version: \"1\"\nseverities: [High]\nrules:\n  - label: x\n    severity: Low\n"), 0600))
	_, err := run(t, "taxonomy", "validate", bad)
	assert.Error(t, err)

	out, err := run(t, "taxonomy", "show", "extended")
	require.NoError(t, err)
	assert.Contains(t, out, "spyware")
}

const historyJSON = `[
  {"session_id": 7, "scanned_at": "2024-06-02T08:00:00", "file_count": 2,
   "files": [
     {"filename": "a.exe", "prediction": "spyware", "probabilities": {"spyware": 0.8, "benign": 0.2}},
     {"filename": "b.txt", "prediction": "benign", "probabilities": {"spyware": 0.1, "benign": 0.9}}
   ]},
  {"session_id": 6, "scanned_at": "2024-06-01T08:00:00", "file_count": 1}
]`

func privilegedBackend(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(historyJSON))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("MALSCAN_BACKEND_URL", srv.URL)
	t.Setenv("MALSCAN_PRIVILEGED", "true")
}

func TestSessionsListMarksInvalidRows(t *testing.T) {
	privilegedBackend(t)

	out, err := run(t, "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "#7")
	assert.Regexp(t, `#6\s+2024-06-01 08:00:00\s+1\s+invalid`, out)
}

func TestSessionsDashboard(t *testing.T) {
	privilegedBackend(t)

	out, err := run(t, "sessions", "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Sessions:      1")
	assert.Contains(t, out, "Threats:       1")
	assert.Contains(t, out, "Skipped (invalid): #6")
	assert.Regexp(t, `Medium\s+1`, out)
	assert.Regexp(t, `spyware\s+1`, out)
}

func TestSessionsDashboardRequiresPrivilege(t *testing.T) {
	_, err := run(t, "sessions", "dashboard")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "privileged")
}

func TestInteractiveFetchFollowsCommandContext(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	aborted := make(chan bool, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		select {
		case <-r.Context().Done():
			aborted <- true
		case <-time.After(5 * time.Second):
			aborted <- false
		}
	}))
	defer srv.Close()
	t.Setenv("MALSCAN_BACKEND_URL", srv.URL)

	in, feed := io.Pipe()
	rootCmd.SetIn(in)
	rootCmd.SetArgs([]string{"interactive"})
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetContext(context.Background())
		interactiveCmd.SetContext(context.Background())
	})

	done := make(chan error, 1)
	go func() { done <- rootCmd.ExecuteContext(ctx) }()

	_, err := io.WriteString(feed, "open 5\n")
	require.NoError(t, err)
	assert.True(t, <-aborted, "fetch should stop when the command context is cancelled")

	require.NoError(t, feed.Close())
	require.NoError(t, <-done)
}
