package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"time"
)

// Source is a rendered view that can be captured as a PNG raster.
type Source interface {
	// WaitRendered blocks until the view reports it has finished rendering.
	WaitRendered(ctx context.Context) error
	// Capture returns a PNG snapshot of the whole view.
	Capture(ctx context.Context) ([]byte, error)
}

// CaptureOptions bounds the readiness wait.
type CaptureOptions struct {
	ReadyTimeout time.Duration
	SettleDelay  time.Duration
}

// Raster is a captured PNG with its pixel size.
type Raster struct {
	PNG    []byte
	Width  int
	Height int
}

// CaptureView waits for src to be rendered, lets it settle, then captures it.
// Readiness failures are reported as ErrRenderNotReady.
func CaptureView(ctx context.Context, src Source, opts CaptureOptions) (Raster, error) {
	if src == nil {
		return Raster{}, fmt.Errorf("%w: no view", ErrRenderNotReady)
	}

	readyCtx := ctx
	if opts.ReadyTimeout > 0 {
		var cancel context.CancelFunc
		readyCtx, cancel = context.WithTimeout(ctx, opts.ReadyTimeout)
		defer cancel()
	}
	if err := src.WaitRendered(readyCtx); err != nil {
		return Raster{}, fmt.Errorf("%w: %v", ErrRenderNotReady, err)
	}

	if opts.SettleDelay > 0 {
		t := time.NewTimer(opts.SettleDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return Raster{}, ctx.Err()
		case <-t.C:
		}
	}

	data, err := src.Capture(ctx)
	if err != nil {
		return Raster{}, err
	}
	return DecodeRaster(data)
}

// DecodeRaster reads the pixel size of a PNG.
func DecodeRaster(data []byte) (Raster, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Raster{}, fmt.Errorf("decode capture: %w", err)
	}
	if format != "png" {
		return Raster{}, fmt.Errorf("decode capture: expected png, got %s", format)
	}
	return Raster{PNG: data, Width: cfg.Width, Height: cfg.Height}, nil
}
