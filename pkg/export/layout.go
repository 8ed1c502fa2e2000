package export

import (
	"fmt"
	"math"
)

// PageSize is a page format in millimetres.
type PageSize struct {
	Name string  `yaml:"name"`
	W    float64 `yaml:"width"`
	H    float64 `yaml:"height"`
}

// A4 portrait, the format the report has always been exported in.
var A4 = PageSize{Name: "A4", W: 210, H: 297}

// Placement positions the captured raster on one page.
type Placement struct {
	Page int
	X, Y float64
	W, H float64
}

// FitWidth scales a srcW x srcH raster to pageW keeping its aspect ratio.
func FitWidth(srcW, srcH int, pageW float64) (Placement, error) {
	if srcW <= 0 || srcH <= 0 {
		return Placement{}, fmt.Errorf("invalid raster size %dx%d", srcW, srcH)
	}
	if pageW <= 0 {
		return Placement{}, fmt.Errorf("invalid page width %.2f", pageW)
	}
	scale := pageW / float64(srcW)
	return Placement{Page: 1, W: pageW, H: float64(srcH) * scale}, nil
}

// Paginate lays a raster across as many pages as its scaled height needs.
// Each page shows the next page-height slice: the image is drawn at full
// size and shifted up by one page height per page, the page box clips it.
func Paginate(srcW, srcH int, page PageSize) ([]Placement, error) {
	fit, err := FitWidth(srcW, srcH, page.W)
	if err != nil {
		return nil, err
	}
	if page.H <= 0 {
		return nil, fmt.Errorf("invalid page height %.2f", page.H)
	}

	// Tolerate float noise so an exact multiple does not spill a blank page.
	pages := int(math.Ceil(fit.H/page.H - 1e-9))
	if pages < 1 {
		pages = 1
	}
	out := make([]Placement, pages)
	for i := range out {
		out[i] = Placement{
			Page: i + 1,
			X:    0,
			Y:    -float64(i) * page.H,
			W:    fit.W,
			H:    fit.H,
		}
	}
	return out, nil
}
