package isis

import (
	"errors"
	"time"

	"github.com/pspoerri/isiscam/internal/camera"
)

// ErrNoLineTiming is returned when a line scan label has no line rate.
var ErrNoLineTiming = errors.New("label has no LineExposureDuration")

// LineScanCamera is the interface for unprojected line scan cubes.
type LineScanCamera struct {
	base
}

func newLineScanCamera(path string, c *camera.Camera) (Interface, error) {
	return &LineScanCamera{base{path: path, cam: c}}, nil
}

func (l *LineScanCamera) Variant() Variant { return LineScan }

func (l *LineScanCamera) PixelToGround(p Pixel) (Ground, error) { return l.sensorPixelToGround(p) }

func (l *LineScanCamera) GroundToPixel(g Ground) (Pixel, error) { return l.sensorGroundToPixel(g) }

// LineRate returns the time between image lines, including summing.
func (l *LineScanCamera) LineRate() time.Duration {
	return l.cam.LineExposureDuration * time.Duration(l.cam.Summing)
}

// LineTime returns the acquisition time of an image line. Line 0.5 is the
// start of the first line.
func (l *LineScanCamera) LineTime(line float64) (time.Time, error) {
	rate := l.LineRate()
	if rate <= 0 {
		return time.Time{}, ErrNoLineTiming
	}
	offset := time.Duration((line - 0.5) * float64(rate))
	return l.cam.StartTime.Add(offset), nil
}

// TimeToLine is the inverse of LineTime.
func (l *LineScanCamera) TimeToLine(t time.Time) (float64, error) {
	rate := l.LineRate()
	if rate <= 0 {
		return 0, ErrNoLineTiming
	}
	return float64(t.Sub(l.cam.StartTime))/float64(rate) + 0.5, nil
}
