package coord

import "math"

// PolarStereographic is the spherical stereographic projection centered on
// a pole.
type PolarStereographic struct {
	Radius    float64
	North     bool
	CenterLon float64
}

func (p *PolarStereographic) Name() string { return "PolarStereographic" }

func (p *PolarStereographic) FromLatLon(lat, lon float64) (x, y float64, ok bool) {
	if math.Abs(lat) > 90 {
		return 0, 0, false
	}
	phi := lat * deg
	dlon := (lon - p.CenterLon) * deg
	if p.North {
		if lat <= -90 {
			return 0, 0, false
		}
		rho := 2 * p.Radius * math.Tan(math.Pi/4-phi/2)
		return rho * math.Sin(dlon), -rho * math.Cos(dlon), true
	}
	if lat >= 90 {
		return 0, 0, false
	}
	rho := 2 * p.Radius * math.Tan(math.Pi/4+phi/2)
	return rho * math.Sin(dlon), rho * math.Cos(dlon), true
}

func (p *PolarStereographic) ToLatLon(x, y float64) (lat, lon float64, ok bool) {
	rho := math.Hypot(x, y)
	if p.North {
		lat = 90 - 2*math.Atan(rho/(2*p.Radius))/deg
		if rho == 0 {
			return lat, p.CenterLon, true
		}
		return lat, p.CenterLon + math.Atan2(x, -y)/deg, true
	}
	lat = -90 + 2*math.Atan(rho/(2*p.Radius))/deg
	if rho == 0 {
		return lat, p.CenterLon, true
	}
	return lat, p.CenterLon + math.Atan2(x, y)/deg, true
}

// Orthographic is the spherical orthographic projection. Only the
// hemisphere facing the center point is representable.
type Orthographic struct {
	Radius    float64
	CenterLat float64
	CenterLon float64
}

func (p *Orthographic) Name() string { return "Orthographic" }

func (p *Orthographic) FromLatLon(lat, lon float64) (x, y float64, ok bool) {
	if math.Abs(lat) > 90 {
		return 0, 0, false
	}
	phi, phi0 := lat*deg, p.CenterLat*deg
	dlon := (lon - p.CenterLon) * deg
	cosc := math.Sin(phi0)*math.Sin(phi) + math.Cos(phi0)*math.Cos(phi)*math.Cos(dlon)
	x = p.Radius * math.Cos(phi) * math.Sin(dlon)
	y = p.Radius * (math.Cos(phi0)*math.Sin(phi) - math.Sin(phi0)*math.Cos(phi)*math.Cos(dlon))
	return x, y, cosc >= 0
}

func (p *Orthographic) ToLatLon(x, y float64) (lat, lon float64, ok bool) {
	rho := math.Hypot(x, y)
	if rho > p.Radius*(1+1e-12) {
		return 0, 0, false
	}
	if rho == 0 {
		return p.CenterLat, p.CenterLon, true
	}
	phi0 := p.CenterLat * deg
	c := math.Asin(math.Min(rho/p.Radius, 1))
	sinc, cosc := math.Sin(c), math.Cos(c)
	phi := math.Asin(cosc*math.Sin(phi0) + y*sinc*math.Cos(phi0)/rho)
	dlon := math.Atan2(x*sinc, rho*cosc*math.Cos(phi0)-y*sinc*math.Sin(phi0))
	return phi / deg, p.CenterLon + dlon/deg, true
}
