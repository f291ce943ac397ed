package isis

import (
	"fmt"

	"github.com/pspoerri/isiscam/internal/camera"
	"github.com/pspoerri/isiscam/internal/coord"
)

// mapped backs the map-projected interfaces with the cube's Mapping group.
type mapped struct {
	base
	mapper *coord.Mapper
}

func newMapped(path string, c *camera.Camera) (mapped, error) {
	m, err := coord.ParseMapping(c.Mapping())
	if err != nil {
		return mapped{}, fmt.Errorf("%s: %w", path, err)
	}
	mp, err := coord.NewMapper(m)
	if err != nil {
		return mapped{}, fmt.Errorf("%s: %w", path, err)
	}
	return mapped{base: base{path: path, cam: c}, mapper: mp}, nil
}

// Mapper returns the projection used for ground mapping.
func (m *mapped) Mapper() *coord.Mapper { return m.mapper }

func (m *mapped) PixelToGround(p Pixel) (Ground, error) {
	if !m.contains(p) {
		return Ground{}, fmt.Errorf("sample %v line %v: %w", p.Sample, p.Line, ErrOutsideImage)
	}
	lat, lon, ok := m.mapper.ImageToGround(p.Sample, p.Line)
	if !ok {
		return Ground{}, fmt.Errorf("sample %v line %v: %w", p.Sample, p.Line, ErrNotVisible)
	}
	return Ground{Lat: lat, Lon: lon}, nil
}

func (m *mapped) GroundToPixel(g Ground) (Pixel, error) {
	s, l, ok := m.mapper.GroundToImage(g.Lat, g.Lon)
	if !ok {
		return Pixel{}, fmt.Errorf("lat %v lon %v: %w", g.Lat, g.Lon, ErrNotVisible)
	}
	p := Pixel{Sample: s, Line: l}
	if !m.contains(p) {
		return Pixel{}, fmt.Errorf("lat %v lon %v: %w", g.Lat, g.Lon, ErrOutsideImage)
	}
	return p, nil
}

// MapFrameCamera is the interface for map-projected framing cubes.
type MapFrameCamera struct {
	mapped
}

func newMapFrameCamera(path string, c *camera.Camera) (Interface, error) {
	m, err := newMapped(path, c)
	if err != nil {
		return nil, err
	}
	return &MapFrameCamera{m}, nil
}

func (m *MapFrameCamera) Variant() Variant { return MapFrame }

// MapLineScanCamera is the interface for map-projected line scan cubes.
type MapLineScanCamera struct {
	mapped
}

func newMapLineScanCamera(path string, c *camera.Camera) (Interface, error) {
	m, err := newMapped(path, c)
	if err != nil {
		return nil, err
	}
	return &MapLineScanCamera{m}, nil
}

func (m *MapLineScanCamera) Variant() Variant { return MapLineScan }
