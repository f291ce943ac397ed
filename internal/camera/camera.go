// Package camera builds generic camera descriptions from ISIS cube labels.
//
// A Camera answers the two questions the interface selector asks of a cube:
// which geometry class the instrument belongs to, and whether the cube
// carries a map projection. Instrument knowledge lives in a Registry,
// the counterpart of an ISIS camera plugin table.
package camera

import (
	"errors"
	"fmt"
	"time"

	"github.com/pspoerri/isiscam/internal/pvl"
)

// Type is the geometry class of a camera. Values follow the ISIS numbering.
type Type int

const (
	Framing        Type = 0
	PushFrame      Type = 1
	LineScan       Type = 2
	Radar          Type = 3
	Point          Type = 4
	RollingShutter Type = 5
)

var typeNames = map[Type]string{
	Framing:        "Framing",
	PushFrame:      "PushFrame",
	LineScan:       "LineScan",
	Radar:          "Radar",
	Point:          "Point",
	RollingShutter: "RollingShutter",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType accepts an ISIS type name, case-insensitively.
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if equalName(name, s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown camera type %q", s)
}

// Sensor maps between image and ground for an unprojected cube. Samples and
// lines are 1-based; latitude and longitude are in degrees.
type Sensor interface {
	ImageToGround(sample, line float64) (lat, lon float64, err error)
	GroundToImage(lat, lon float64) (sample, line float64, err error)
}

// Camera is the generic camera for one cube.
type Camera struct {
	Spacecraft string
	Instrument string
	Target     string
	NaifIKCode int

	Samples int
	Lines   int
	Bands   int

	StartTime time.Time
	StopTime  time.Time

	// ExposureDuration applies to framing instruments, LineExposureDuration
	// to line scanners. Either may be zero if the label omits it.
	ExposureDuration     time.Duration
	LineExposureDuration time.Duration
	Summing              int

	// Sensor is nil unless the instrument's registry entry provides one.
	Sensor Sensor

	Label *pvl.Label

	cameraType Type
	mapping    *pvl.Group
}

// Type returns the geometry class reported by the instrument.
func (c *Camera) Type() Type { return c.cameraType }

// HasProjection reports whether the cube carries a Mapping group.
func (c *Camera) HasProjection() bool { return c.mapping != nil }

// Mapping returns the cube's Mapping group, or nil when unprojected.
func (c *Camera) Mapping() *pvl.Group { return c.mapping }

var (
	// ErrNoInstrument is returned for labels without an Instrument group.
	ErrNoInstrument = errors.New("label has no Instrument group")
	// ErrNoCube is returned for labels without an IsisCube object.
	ErrNoCube = errors.New("label has no IsisCube object")
)

// UnknownInstrumentError is returned when no registry entry matches the
// label's instrument.
type UnknownInstrumentError struct {
	Spacecraft string
	Instrument string
	NaifIKCode int
}

func (e *UnknownInstrumentError) Error() string {
	if e.NaifIKCode != 0 {
		return fmt.Sprintf("unsupported instrument %s/%s (NAIF %d)", e.Spacecraft, e.Instrument, e.NaifIKCode)
	}
	return fmt.Sprintf("unsupported instrument %s/%s", e.Spacecraft, e.Instrument)
}
