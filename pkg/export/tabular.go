// Package export turns session reports into downloadable artifacts.
package export

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/user/malscan-report/pkg/engine"
)

// UTF-8 BOM for Excel compatibility.
const utf8BOM = "\xEF\xBB\xBF"

// TabularColumns is the fixed column order of the tabular export.
var TabularColumns = []string{"Filename", "Threat Type", "Severity", "Recommendation", "Probabilities"}

// TabularOptions configures the tabular exporter.
type TabularOptions struct {
	// ExcelBOM prefixes the output with a UTF-8 BOM.
	ExcelBOM bool `yaml:"excel_bom"`

	// SanitizeFormulas prefixes fields starting with = + - @ TAB or CR with a
	// single quote so spreadsheets do not evaluate them.
	SanitizeFormulas bool `yaml:"sanitize_formulas"`
}

// TabularExporter writes a SessionReport as quoted comma-separated text.
// Every field is quoted and quotes inside a field are doubled, so the
// output is byte-identical for identical reports.
type TabularExporter struct {
	Options TabularOptions
}

// NewTabularExporter creates a tabular exporter.
func NewTabularExporter(opts TabularOptions) *TabularExporter {
	return &TabularExporter{Options: opts}
}

// TabularFilename is the download name for a session's tabular export.
func TabularFilename(id engine.SessionID) string {
	return fmt.Sprintf("scan_report_session_%s.csv", id)
}

// Export renders the report into memory.
func (e *TabularExporter) Export(r *engine.SessionReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the header and one row per classified file, in report order.
func (e *TabularExporter) Write(w io.Writer, r *engine.SessionReport) error {
	bw := bufio.NewWriter(w)
	if e.Options.ExcelBOM {
		if _, err := bw.WriteString(utf8BOM); err != nil {
			return err
		}
	}
	e.writeRecord(bw, TabularColumns, false)
	for _, row := range r.Rows {
		bw.WriteByte('\n')
		e.writeRecord(bw, []string{
			row.Filename,
			row.Label,
			string(row.Severity),
			row.Recommendation,
			row.Probabilities.Summary(),
		}, true)
	}
	return bw.Flush()
}

func (e *TabularExporter) writeRecord(w *bufio.Writer, fields []string, data bool) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		if data && e.Options.SanitizeFormulas {
			f = sanitizeFormula(f)
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
}

func sanitizeFormula(f string) string {
	if f == "" {
		return f
	}
	switch f[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + f
	}
	return f
}
