package coord

import "math"

// Equirectangular is the spherical equidistant cylindrical projection with
// true scale at CenterLat. The cylindrical projections take longitudes as
// given: x grows with lon - CenterLon without wrapping, so callers pass
// longitudes already in the map's range.
type Equirectangular struct {
	Radius    float64
	CenterLat float64
	CenterLon float64
}

func (p *Equirectangular) Name() string { return "Equirectangular" }

func (p *Equirectangular) FromLatLon(lat, lon float64) (x, y float64, ok bool) {
	x = p.Radius * (lon - p.CenterLon) * deg * math.Cos(p.CenterLat*deg)
	y = p.Radius * lat * deg
	return x, y, math.Abs(lat) <= 90
}

func (p *Equirectangular) ToLatLon(x, y float64) (lat, lon float64, ok bool) {
	c := math.Cos(p.CenterLat * deg)
	if c == 0 {
		return 0, 0, false
	}
	lat = y / p.Radius / deg
	lon = p.CenterLon + x/(p.Radius*c)/deg
	return lat, lon, math.Abs(lat) <= 90
}

// SimpleCylindrical is Equirectangular with true scale at the equator.
type SimpleCylindrical struct {
	Radius    float64
	CenterLon float64
}

func (p *SimpleCylindrical) Name() string { return "SimpleCylindrical" }

func (p *SimpleCylindrical) FromLatLon(lat, lon float64) (x, y float64, ok bool) {
	x = p.Radius * (lon - p.CenterLon) * deg
	y = p.Radius * lat * deg
	return x, y, math.Abs(lat) <= 90
}

func (p *SimpleCylindrical) ToLatLon(x, y float64) (lat, lon float64, ok bool) {
	lat = y / p.Radius / deg
	lon = p.CenterLon + x/p.Radius/deg
	return lat, lon, math.Abs(lat) <= 90
}

// Sinusoidal is the spherical equal-area sinusoidal projection.
type Sinusoidal struct {
	Radius    float64
	CenterLon float64
}

func (p *Sinusoidal) Name() string { return "Sinusoidal" }

func (p *Sinusoidal) FromLatLon(lat, lon float64) (x, y float64, ok bool) {
	dlon := lon - p.CenterLon
	x = p.Radius * dlon * deg * math.Cos(lat*deg)
	y = p.Radius * lat * deg
	return x, y, math.Abs(lat) <= 90 && math.Abs(dlon) <= 180
}

func (p *Sinusoidal) ToLatLon(x, y float64) (lat, lon float64, ok bool) {
	phi := y / p.Radius
	if math.Abs(phi) > math.Pi/2 {
		return 0, 0, false
	}
	c := math.Cos(phi)
	if c < 1e-12 {
		// Poles collapse to a point; any longitude is valid.
		return phi / deg, p.CenterLon, math.Abs(x) < 1e-6*p.Radius
	}
	dlon := x / (p.Radius * c)
	if math.Abs(dlon) > math.Pi {
		return 0, 0, false
	}
	return phi / deg, p.CenterLon + dlon/deg, true
}
