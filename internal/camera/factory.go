package camera

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pspoerri/isiscam/internal/pvl"
)

// Factory creates generic cameras from labels.
type Factory struct {
	Registry *Registry
}

// DefaultFactory returns a factory backed by DefaultRegistry.
func DefaultFactory() *Factory {
	return &Factory{Registry: DefaultRegistry()}
}

// Create builds the generic camera described by lbl.
func (f *Factory) Create(lbl *pvl.Label) (*Camera, error) {
	cube, ok := lbl.FindObject("IsisCube")
	if !ok {
		return nil, ErrNoCube
	}
	inst, ok := cube.FindGroup("Instrument")
	if !ok {
		return nil, ErrNoInstrument
	}

	c := &Camera{Label: lbl, Summing: 1}
	c.Spacecraft = firstText(inst, "SpacecraftName", "InstrumentHostName", "MissionName")
	c.Instrument = firstText(inst, "InstrumentId", "InstrumentName")
	c.Target = firstText(inst, "TargetName")

	if kern, ok := cube.FindGroup("Kernels"); ok {
		for _, name := range []string{"NaifIkCode", "NaifFrameCode"} {
			kw, ok := kern.Keyword(name)
			if !ok {
				continue
			}
			code, err := kw.Int()
			if err != nil {
				return nil, fmt.Errorf("kernels: %w", err)
			}
			c.NaifIKCode = code
			break
		}
	}

	reg := f.Registry
	if reg == nil {
		reg = DefaultRegistry()
	}
	entry, ok := reg.Lookup(c.Spacecraft, c.Instrument, c.NaifIKCode)
	if !ok {
		return nil, &UnknownInstrumentError{Spacecraft: c.Spacecraft, Instrument: c.Instrument, NaifIKCode: c.NaifIKCode}
	}
	c.cameraType = entry.Type

	if err := readDimensions(cube, c); err != nil {
		return nil, err
	}
	if err := readTiming(inst, c); err != nil {
		return nil, err
	}

	if m, ok := cube.FindGroup("Mapping"); ok {
		c.mapping = m
	}

	if entry.Sensor != nil {
		s, err := entry.Sensor(c)
		if err != nil {
			return nil, fmt.Errorf("sensor model for %s/%s: %w", c.Spacecraft, c.Instrument, err)
		}
		c.Sensor = s
	}
	return c, nil
}

func firstText(g *pvl.Group, names ...string) string {
	for _, name := range names {
		if kw, ok := g.Keyword(name); ok && kw.Text() != "" {
			return kw.Text()
		}
	}
	return ""
}

func readDimensions(cube *pvl.Object, c *Camera) error {
	dims, ok := cube.FindGroup("Dimensions")
	if !ok {
		return nil
	}
	for _, d := range []struct {
		name string
		dst  *int
	}{
		{"Samples", &c.Samples},
		{"Lines", &c.Lines},
		{"Bands", &c.Bands},
	} {
		kw, ok := dims.Keyword(d.name)
		if !ok {
			continue
		}
		n, err := kw.Int()
		if err != nil {
			return fmt.Errorf("dimensions: %w", err)
		}
		*d.dst = n
	}
	return nil
}

func readTiming(inst *pvl.Group, c *Camera) error {
	var err error
	if kw, ok := inst.Keyword("StartTime"); ok {
		if c.StartTime, err = kw.Time(); err != nil {
			return fmt.Errorf("instrument: %w", err)
		}
	}
	if kw, ok := inst.Keyword("StopTime"); ok {
		if c.StopTime, err = kw.Time(); err != nil {
			return fmt.Errorf("instrument: %w", err)
		}
	}
	if kw, ok := inst.Keyword("ExposureDuration"); ok {
		if c.ExposureDuration, err = duration(kw); err != nil {
			return fmt.Errorf("instrument: %w", err)
		}
	}
	if kw, ok := inst.Keyword("LineExposureDuration"); ok {
		if c.LineExposureDuration, err = duration(kw); err != nil {
			return fmt.Errorf("instrument: %w", err)
		}
	}
	for _, name := range []string{"SpatialSumming", "Summing", "SampleSumming"} {
		kw, ok := inst.Keyword(name)
		if !ok {
			continue
		}
		n, err := kw.Int()
		if err != nil {
			return fmt.Errorf("instrument: %w", err)
		}
		if n > 0 {
			c.Summing = n
		}
		break
	}
	return nil
}

// duration converts a keyword to a time.Duration. Values without a unit are
// taken as milliseconds, which is what ISIS writes for exposure keywords.
func duration(kw pvl.Keyword) (time.Duration, error) {
	v, err := kw.Float()
	if err != nil {
		return 0, err
	}
	var scale float64
	switch strings.ToLower(kw.Unit()) {
	case "", "ms", "msec", "msecs", "millisecond", "milliseconds":
		scale = float64(time.Millisecond)
	case "us", "usec", "microsecond", "microseconds":
		scale = float64(time.Microsecond)
	case "s", "sec", "secs", "second", "seconds":
		scale = float64(time.Second)
	default:
		return 0, fmt.Errorf("keyword %s: unknown time unit %q", kw.Name, kw.Unit())
	}
	return time.Duration(math.Round(v * scale)), nil
}
