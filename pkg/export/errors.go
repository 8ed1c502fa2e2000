package export

import (
	"errors"
	"fmt"

	"github.com/user/malscan-report/pkg/engine"
)

// ErrRenderNotReady means the view could not be captured: it was never
// loaded or did not signal readiness in time. Retrying is safe.
var ErrRenderNotReady = errors.New("render not ready")

// Export stages, used in ExportError.
const (
	StageCapture = "capture"
	StageLayout  = "layout"
	StageRender  = "render"
)

// ExportError carries the session and stage an export failed in.
type ExportError struct {
	SessionID engine.SessionID
	Stage     string
	Err       error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export session %s: %s: %v", e.SessionID, e.Stage, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
