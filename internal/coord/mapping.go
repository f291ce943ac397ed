package coord

import (
	"fmt"
	"math"
	"strings"

	"github.com/pspoerri/isiscam/internal/pvl"
)

// Mapping holds the keywords of an ISIS Mapping group. Angles are degrees in
// the group's own latitude type and longitude direction; lengths are meters.
type Mapping struct {
	ProjectionName   string
	TargetName       string
	EquatorialRadius float64
	PolarRadius      float64
	Planetographic   bool
	PositiveWest     bool
	LongitudeDomain  int // 180 or 360

	CenterLatitude  float64
	CenterLongitude float64

	PixelResolution  float64 // meters per pixel
	Scale            float64 // pixels per degree
	UpperLeftCornerX float64
	UpperLeftCornerY float64

	MinimumLatitude  float64
	MaximumLatitude  float64
	MinimumLongitude float64
	MaximumLongitude float64
}

// ParseMapping reads a Mapping group. ProjectionName and EquatorialRadius
// are required. PolarRadius defaults to the equatorial radius.
func ParseMapping(g *pvl.Group) (Mapping, error) {
	m := Mapping{LongitudeDomain: 360}

	kw, ok := g.Keyword("ProjectionName")
	if !ok || kw.Text() == "" {
		return Mapping{}, fmt.Errorf("mapping: missing ProjectionName")
	}
	m.ProjectionName = kw.Text()
	if kw, ok := g.Keyword("TargetName"); ok {
		m.TargetName = kw.Text()
	}

	kw, ok = g.Keyword("EquatorialRadius")
	if !ok {
		return Mapping{}, fmt.Errorf("mapping: missing EquatorialRadius")
	}
	var err error
	if m.EquatorialRadius, err = meters(kw); err != nil {
		return Mapping{}, err
	}
	m.PolarRadius = m.EquatorialRadius
	if kw, ok := g.Keyword("PolarRadius"); ok {
		if m.PolarRadius, err = meters(kw); err != nil {
			return Mapping{}, err
		}
	}

	if kw, ok := g.Keyword("LatitudeType"); ok {
		switch strings.ToLower(kw.Text()) {
		case "planetocentric":
		case "planetographic":
			m.Planetographic = true
		default:
			return Mapping{}, fmt.Errorf("mapping: invalid LatitudeType %q", kw.Text())
		}
	}
	if kw, ok := g.Keyword("LongitudeDirection"); ok {
		switch strings.ToLower(kw.Text()) {
		case "positiveeast":
		case "positivewest":
			m.PositiveWest = true
		default:
			return Mapping{}, fmt.Errorf("mapping: invalid LongitudeDirection %q", kw.Text())
		}
	}
	if kw, ok := g.Keyword("LongitudeDomain"); ok {
		d, err := kw.Int()
		if err != nil || (d != 180 && d != 360) {
			return Mapping{}, fmt.Errorf("mapping: invalid LongitudeDomain %q", kw.Text())
		}
		m.LongitudeDomain = d
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"CenterLatitude", &m.CenterLatitude},
		{"CenterLongitude", &m.CenterLongitude},
		{"Scale", &m.Scale},
		{"MinimumLatitude", &m.MinimumLatitude},
		{"MaximumLatitude", &m.MaximumLatitude},
		{"MinimumLongitude", &m.MinimumLongitude},
		{"MaximumLongitude", &m.MaximumLongitude},
	}
	for _, f := range floats {
		kw, ok := g.Keyword(f.name)
		if !ok {
			continue
		}
		if *f.dst, err = kw.Float(); err != nil {
			return Mapping{}, fmt.Errorf("mapping: %w", err)
		}
	}

	lengths := []struct {
		name string
		dst  *float64
	}{
		{"PixelResolution", &m.PixelResolution},
		{"UpperLeftCornerX", &m.UpperLeftCornerX},
		{"UpperLeftCornerY", &m.UpperLeftCornerY},
	}
	for _, f := range lengths {
		kw, ok := g.Keyword(f.name)
		if !ok {
			continue
		}
		if *f.dst, err = meters(kw); err != nil {
			return Mapping{}, err
		}
	}

	return m, nil
}

// meters converts a length keyword, accepting meter and kilometer units
// (optionally per pixel).
func meters(kw pvl.Keyword) (float64, error) {
	v, err := kw.Float()
	if err != nil {
		return 0, fmt.Errorf("mapping: %w", err)
	}
	unit := strings.ToLower(kw.Unit())
	unit = strings.TrimSuffix(unit, "/pixel")
	switch unit {
	case "", "m", "meter", "meters":
		return v, nil
	case "km", "kilometer", "kilometers":
		return v * 1000, nil
	default:
		return 0, fmt.Errorf("mapping: keyword %s: unknown length unit %q", kw.Name, kw.Unit())
	}
}

// Resolution returns meters per pixel, deriving it from Scale when
// PixelResolution is absent.
func (m Mapping) Resolution() float64 {
	if m.PixelResolution > 0 {
		return m.PixelResolution
	}
	if m.Scale > 0 {
		return 2 * math.Pi * m.EquatorialRadius / 360 / m.Scale
	}
	return 0
}

// ToCentric converts a latitude/longitude in the mapping's conventions to
// planetocentric, positive-east degrees.
func (m Mapping) ToCentric(lat, lon float64) (float64, float64) {
	if m.Planetographic {
		lat = graphicToCentric(lat, m.EquatorialRadius, m.PolarRadius)
	}
	if m.PositiveWest {
		lon = -lon
	}
	return lat, lon
}

// FromCentric converts planetocentric, positive-east degrees to the
// mapping's conventions, wrapping longitude into its domain.
func (m Mapping) FromCentric(lat, lon float64) (float64, float64) {
	if m.Planetographic {
		lat = centricToGraphic(lat, m.EquatorialRadius, m.PolarRadius)
	}
	if m.PositiveWest {
		lon = -lon
	}
	return lat, wrapDomain(lon, m.LongitudeDomain)
}

// MapLongitude returns the longitude equivalent to lon, in the mapping's
// conventions, that lies in the map's longitude range: within
// [MinimumLongitude, MinimumLongitude+360) when the group gives a range,
// otherwise within the LongitudeDomain.
func (m Mapping) MapLongitude(lon float64) float64 {
	if m.MaximumLongitude > m.MinimumLongitude {
		d := math.Mod(lon-m.MinimumLongitude, 360)
		if d < 0 {
			d += 360
		}
		return m.MinimumLongitude + d
	}
	return wrapDomain(lon, m.LongitudeDomain)
}

func graphicToCentric(lat, a, b float64) float64 {
	if math.Abs(lat) >= 90 || a == b {
		return lat
	}
	return math.Atan(math.Tan(lat*deg)*(b*b)/(a*a)) / deg
}

func centricToGraphic(lat, a, b float64) float64 {
	if math.Abs(lat) >= 90 || a == b {
		return lat
	}
	return math.Atan(math.Tan(lat*deg)*(a*a)/(b*b)) / deg
}

// wrapDomain folds lon into [0, 360) or [-180, 180).
func wrapDomain(lon float64, domain int) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	if domain == 180 && lon >= 180 {
		lon -= 360
	}
	return lon
}
