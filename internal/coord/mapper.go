package coord

import "fmt"

// WorldMapper converts between 1-based ISIS sample/line and projection x/y.
// Sample 0.5, line 0.5 is the upper-left corner of the first pixel.
type WorldMapper struct {
	UpperLeftX float64
	UpperLeftY float64
	Resolution float64 // meters per pixel
}

// ProjectionXY returns the projection coordinates of an image position.
func (w WorldMapper) ProjectionXY(sample, line float64) (x, y float64) {
	x = w.UpperLeftX + (sample-0.5)*w.Resolution
	y = w.UpperLeftY - (line-0.5)*w.Resolution
	return x, y
}

// ImagePosition returns the image position of projection coordinates.
func (w WorldMapper) ImagePosition(x, y float64) (sample, line float64) {
	sample = (x-w.UpperLeftX)/w.Resolution + 0.5
	line = (w.UpperLeftY-y)/w.Resolution + 0.5
	return sample, line
}

// Mapper converts between image positions and ground coordinates of a
// map-projected cube. Ground coordinates use the Mapping's conventions.
type Mapper struct {
	Mapping    Mapping
	Projection Projection
	World      WorldMapper
}

// NewMapper builds a Mapper from a parsed Mapping group.
func NewMapper(m Mapping) (*Mapper, error) {
	proj, err := ForMapping(m)
	if err != nil {
		return nil, err
	}
	res := m.Resolution()
	if res <= 0 {
		return nil, fmt.Errorf("mapping: no PixelResolution or Scale")
	}
	return &Mapper{
		Mapping:    m,
		Projection: proj,
		World: WorldMapper{
			UpperLeftX: m.UpperLeftCornerX,
			UpperLeftY: m.UpperLeftCornerY,
			Resolution: res,
		},
	}, nil
}

// ImageToGround returns the latitude/longitude of an image position.
func (mp *Mapper) ImageToGround(sample, line float64) (lat, lon float64, ok bool) {
	x, y := mp.World.ProjectionXY(sample, line)
	lat, lon, ok = mp.Projection.ToLatLon(x, y)
	if !ok {
		return 0, 0, false
	}
	lat, lon = mp.Mapping.FromCentric(lat, lon)
	return lat, lon, true
}

// leftEdge is the sample of the image's left edge, less rounding slack.
const leftEdge = 0.5 - 1e-6

// GroundToImage returns the image position of a latitude/longitude. Any
// equivalent longitude is accepted. Of the positions lon, lon-360 and
// lon+360 map to, the nearest one at or right of the image's left edge is
// returned, so a map spanning less than 360 degrees has a single answer.
func (mp *Mapper) GroundToImage(lat, lon float64) (sample, line float64, ok bool) {
	base := mp.Mapping.MapLongitude(lon)
	for _, l := range [3]float64{base, base - 360, base + 360} {
		clat, clon := mp.Mapping.ToCentric(lat, l)
		x, y, valid := mp.Projection.FromLatLon(clat, clon)
		if !valid {
			continue
		}
		s, ln := mp.World.ImagePosition(x, y)
		switch {
		case !ok:
			sample, line, ok = s, ln, true
		case s >= leftEdge && (sample < leftEdge || s < sample):
			sample, line = s, ln
		}
	}
	return sample, line, ok
}
