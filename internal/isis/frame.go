package isis

import (
	"time"

	"github.com/pspoerri/isiscam/internal/camera"
)

// FrameCamera is the interface for unprojected framing cubes.
type FrameCamera struct {
	base
}

func newFrameCamera(path string, c *camera.Camera) (Interface, error) {
	return &FrameCamera{base{path: path, cam: c}}, nil
}

func (f *FrameCamera) Variant() Variant { return Frame }

func (f *FrameCamera) PixelToGround(p Pixel) (Ground, error) { return f.sensorPixelToGround(p) }

func (f *FrameCamera) GroundToPixel(g Ground) (Pixel, error) { return f.sensorGroundToPixel(g) }

// ExposureMidTime returns the middle of the exposure. It is the start time
// when the label gives no exposure duration.
func (f *FrameCamera) ExposureMidTime() time.Time {
	return f.cam.StartTime.Add(f.cam.ExposureDuration / 2)
}
