package isis

import (
	"fmt"

	"github.com/pspoerri/isiscam/internal/camera"
)

// base holds what every interface shares.
type base struct {
	path string
	cam  *camera.Camera
}

func (b *base) Path() string           { return b.path }
func (b *base) Camera() *camera.Camera { return b.cam }

// contains reports whether p lies inside the image. Cubes that do not state
// their dimensions accept every position.
func (b *base) contains(p Pixel) bool {
	if b.cam.Samples > 0 && (p.Sample < 0.5 || p.Sample > float64(b.cam.Samples)+0.5) {
		return false
	}
	if b.cam.Lines > 0 && (p.Line < 0.5 || p.Line > float64(b.cam.Lines)+0.5) {
		return false
	}
	return true
}

// sensorPixelToGround and sensorGroundToPixel back the unprojected
// interfaces with the camera's sensor model.
func (b *base) sensorPixelToGround(p Pixel) (Ground, error) {
	if b.cam.Sensor == nil {
		return Ground{}, ErrNoSensor
	}
	if !b.contains(p) {
		return Ground{}, fmt.Errorf("sample %v line %v: %w", p.Sample, p.Line, ErrOutsideImage)
	}
	lat, lon, err := b.cam.Sensor.ImageToGround(p.Sample, p.Line)
	if err != nil {
		return Ground{}, err
	}
	return Ground{Lat: lat, Lon: lon}, nil
}

func (b *base) sensorGroundToPixel(g Ground) (Pixel, error) {
	if b.cam.Sensor == nil {
		return Pixel{}, ErrNoSensor
	}
	s, l, err := b.cam.Sensor.GroundToImage(g.Lat, g.Lon)
	if err != nil {
		return Pixel{}, err
	}
	p := Pixel{Sample: s, Line: l}
	if !b.contains(p) {
		return Pixel{}, fmt.Errorf("lat %v lon %v: %w", g.Lat, g.Lon, ErrOutsideImage)
	}
	return p, nil
}
