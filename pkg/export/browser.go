package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/user/malscan-report/pkg/logging"
)

// ReadySelector matches the report root once the page has rendered.
const ReadySelector = `#report[data-rendered="true"]`

// BrowserOptions configures the headless browser used for captures.
type BrowserOptions struct {
	ChromePath    string
	ViewportWidth int
	NoSandbox     bool
}

// BrowserSource renders report HTML in headless Chrome and captures it.
type BrowserSource struct {
	opts BrowserOptions

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	page   string
	loaded bool
}

// NewBrowserSource starts a headless browser. Close releases it.
func NewBrowserSource(ctx context.Context, opts BrowserOptions) (*BrowserSource, error) {
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = 1200
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(opts.ViewportWidth, 900),
	)
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Starts the browser so launch failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &BrowserSource{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Load writes html to a temporary file and navigates to it.
func (b *BrowserSource) Load(ctx context.Context, html []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dir, err := os.MkdirTemp("", "malscan-view-")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "report.html")
	if err := os.WriteFile(path, html, 0600); err != nil {
		os.RemoveAll(dir)
		return err
	}
	b.cleanup()
	b.page = path
	b.loaded = false

	// Fix the layout width so captures do not depend on the window manager.
	viewport := emulation.SetDeviceMetricsOverride(int64(b.opts.ViewportWidth), 900, 1, false)
	if err := b.run(ctx, viewport, chromedp.Navigate("file://"+filepath.ToSlash(path))); err != nil {
		return fmt.Errorf("load view: %w", err)
	}
	b.loaded = true
	logging.Debugf("view loaded from %s", path)
	return nil
}

// WaitRendered waits for the report root to carry data-rendered="true".
func (b *BrowserSource) WaitRendered(ctx context.Context) error {
	b.mu.Lock()
	loaded := b.loaded
	b.mu.Unlock()
	if !loaded {
		return ErrRenderNotReady
	}
	return b.run(ctx, chromedp.WaitVisible(ReadySelector, chromedp.ByQuery))
}

// Capture takes a full-page PNG screenshot.
func (b *BrowserSource) Capture(ctx context.Context) ([]byte, error) {
	var buf []byte
	// Quality 100 selects PNG.
	if err := b.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// Close shuts the browser down and removes the temporary page.
func (b *BrowserSource) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.browserCancel()
	b.allocCancel()
	b.cleanup()
}

func (b *BrowserSource) cleanup() {
	if b.page != "" {
		os.RemoveAll(filepath.Dir(b.page))
		b.page = ""
	}
}

// run executes actions on the browser tab, bounded by ctx. Cancelling a
// context derived from the tab context does not close the tab.
func (b *BrowserSource) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.browserCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}
