// Package coord converts between planetary map projection coordinates and
// latitude/longitude for map-projected ISIS cubes.
package coord

import (
	"fmt"
	"math"
	"strings"
)

// Projection converts between projection x/y (meters) and planetocentric,
// positive-east latitude/longitude (degrees). The ok result is false for
// points the projection cannot represent.
type Projection interface {
	// FromLatLon converts latitude/longitude to projection coordinates.
	FromLatLon(lat, lon float64) (x, y float64, ok bool)

	// ToLatLon converts projection coordinates to latitude/longitude.
	ToLatLon(x, y float64) (lat, lon float64, ok bool)

	// Name returns the ISIS projection name.
	Name() string
}

// UnsupportedProjectionError is returned for projections without an
// implementation here.
type UnsupportedProjectionError struct {
	Name string
}

func (e *UnsupportedProjectionError) Error() string {
	return fmt.Sprintf("unsupported map projection %q", e.Name)
}

// ForMapping returns the Projection described by m. The center latitude and
// longitude are converted to planetocentric, positive-east first.
func ForMapping(m Mapping) (Projection, error) {
	if m.EquatorialRadius <= 0 {
		return nil, fmt.Errorf("mapping: invalid equatorial radius %v", m.EquatorialRadius)
	}
	r := m.EquatorialRadius
	clat, clon := m.ToCentric(m.CenterLatitude, m.CenterLongitude)

	switch strings.ToLower(strings.TrimSpace(m.ProjectionName)) {
	case "equirectangular":
		return &Equirectangular{Radius: r, CenterLat: clat, CenterLon: clon}, nil
	case "simplecylindrical":
		return &SimpleCylindrical{Radius: r, CenterLon: clon}, nil
	case "sinusoidal":
		return &Sinusoidal{Radius: r, CenterLon: clon}, nil
	case "polarstereographic":
		if math.Abs(math.Abs(clat)-90) > 1e-9 {
			return nil, fmt.Errorf("mapping: polar stereographic center latitude %v is not a pole", m.CenterLatitude)
		}
		return &PolarStereographic{Radius: r, North: clat > 0, CenterLon: clon}, nil
	case "orthographic":
		return &Orthographic{Radius: r, CenterLat: clat, CenterLon: clon}, nil
	default:
		return nil, &UnsupportedProjectionError{Name: m.ProjectionName}
	}
}

const deg = math.Pi / 180
