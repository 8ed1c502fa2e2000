package export

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	gofpdf "github.com/go-pdf/fpdf"

	"github.com/user/malscan-report/pkg/engine"
	"github.com/user/malscan-report/pkg/logging"
)

// DocumentOptions configures the paginated document export.
type DocumentOptions struct {
	Page         PageSize
	ReadyTimeout time.Duration
	SettleDelay  time.Duration
	// Compress deflates page streams. Disabled in tests to keep text searchable.
	Compress bool
}

// DefaultDocumentOptions mirrors the report page: A4 portrait, half a second
// to settle after the view signals it is rendered.
func DefaultDocumentOptions() DocumentOptions {
	return DocumentOptions{
		Page:         A4,
		ReadyTimeout: 10 * time.Second,
		SettleDelay:  500 * time.Millisecond,
		Compress:     true,
	}
}

// DocumentExporter captures a rendered report and paginates it into a PDF.
// Exports of the same session run one at a time.
type DocumentExporter struct {
	opts DocumentOptions

	mu    sync.Mutex
	locks map[engine.SessionID]*sessionLock
}

// sessionLock is dropped from the map once no export holds or waits on it.
type sessionLock struct {
	sync.Mutex
	refs int
}

// NewDocumentExporter creates a document exporter.
func NewDocumentExporter(opts DocumentOptions) *DocumentExporter {
	if opts.Page.W <= 0 || opts.Page.H <= 0 {
		opts.Page = A4
	}
	return &DocumentExporter{opts: opts, locks: make(map[engine.SessionID]*sessionLock)}
}

// DocumentFilename is the download name for a session's document export.
func DocumentFilename(id engine.SessionID) string {
	return fmt.Sprintf("scan_report_session_%s.pdf", id)
}

func (e *DocumentExporter) lock(id engine.SessionID) *sessionLock {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &sessionLock{}
		e.locks[id] = l
	}
	l.refs++
	e.mu.Unlock()

	l.Lock()
	return l
}

func (e *DocumentExporter) unlock(id engine.SessionID, l *sessionLock) {
	l.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(e.locks, id)
	}
}

// Export captures src and returns the PDF bytes. Failures are returned once
// as *ExportError; the caller decides whether to retry.
func (e *DocumentExporter) Export(ctx context.Context, id engine.SessionID, src Source) ([]byte, error) {
	l := e.lock(id)
	defer e.unlock(id, l)

	raster, err := CaptureView(ctx, src, CaptureOptions{
		ReadyTimeout: e.opts.ReadyTimeout,
		SettleDelay:  e.opts.SettleDelay,
	})
	if err != nil {
		return nil, &ExportError{SessionID: id, Stage: StageCapture, Err: err}
	}

	placements, err := Paginate(raster.Width, raster.Height, e.opts.Page)
	if err != nil {
		return nil, &ExportError{SessionID: id, Stage: StageLayout, Err: err}
	}
	logging.Debugf("session %s: %dx%d capture on %d page(s)", id, raster.Width, raster.Height, len(placements))

	doc, err := RenderDocument(raster, placements, e.opts.Page, e.opts.Compress)
	if err != nil {
		return nil, &ExportError{SessionID: id, Stage: StageRender, Err: err}
	}
	return doc, nil
}

// RenderDocument writes a portrait PDF with the raster drawn at each placement.
func RenderDocument(r Raster, placements []Placement, page PageSize, compress bool) ([]byte, error) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: page.W, Ht: page.H},
	})
	pdf.SetCompression(compress)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("report", opts, bytes.NewReader(r.PNG))
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("register image: %w", err)
	}

	for _, p := range placements {
		pdf.AddPage()
		pdf.ImageOptions("report", p.X, p.Y, p.W, p.H, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
