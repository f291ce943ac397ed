package camera

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pspoerri/isiscam/internal/pvl"
)

func label(t *testing.T, instrument, extra string) *pvl.Label {
	t.Helper()
	src := fmt.Sprintf(`Object = IsisCube
  Object = Core
    Group = Dimensions
      Samples = 5064
      Lines   = 1000
      Bands   = 1
    End_Group
  End_Object
  Group = Instrument
%s
  End_Group
%s
End_Object
End`, instrument, extra)
	lbl, err := pvl.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return lbl
}

const nacInstrument = `    SpacecraftName       = "LUNAR RECONNAISSANCE ORBITER"
    InstrumentId         = NACL
    StartTime            = 2009-09-03T03:21:47.123
    StopTime             = 2009-09-03T03:22:05.634
    LineExposureDuration = 0.3544 <ms>
    SpatialSumming       = 2`

const mapping = `  Group = Mapping
    ProjectionName   = Equirectangular
    EquatorialRadius = 1737400.0 <meters>
  End_Group`

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{Framing, "Framing"},
		{PushFrame, "PushFrame"},
		{LineScan, "LineScan"},
		{Radar, "Radar"},
		{Point, "Point"},
		{RollingShutter, "RollingShutter"},
		{Type(42), "Type(42)"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("Type(%d).String() = %q, want %q", int(tt.typ), got, tt.want)
		}
	}
}

func TestParseType(t *testing.T) {
	for _, name := range []string{"framing", "LINESCAN", "Push_Frame", "radar"} {
		if _, err := ParseType(name); err != nil {
			t.Errorf("ParseType(%q): %v", name, err)
		}
	}
	if typ, _ := ParseType("line scan"); typ != LineScan {
		t.Errorf("ParseType(line scan) = %v, want LineScan", typ)
	}
	if _, err := ParseType("pinhole"); err == nil {
		t.Error("ParseType(pinhole): expected error")
	}
}

func TestCreate_LineScan(t *testing.T) {
	c, err := DefaultFactory().Create(label(t, nacInstrument, ""))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Type() != LineScan {
		t.Errorf("Type() = %v, want LineScan", c.Type())
	}
	if c.HasProjection() {
		t.Error("HasProjection() = true for a level-1 cube")
	}
	if c.Samples != 5064 || c.Lines != 1000 || c.Bands != 1 {
		t.Errorf("dimensions = %dx%dx%d", c.Samples, c.Lines, c.Bands)
	}
	if c.LineExposureDuration != 354400*time.Nanosecond {
		t.Errorf("LineExposureDuration = %v, want 354.4µs", c.LineExposureDuration)
	}
	if c.Summing != 2 {
		t.Errorf("Summing = %d, want 2", c.Summing)
	}
	want := time.Date(2009, 9, 3, 3, 21, 47, 123000000, time.UTC)
	if !c.StartTime.Equal(want) {
		t.Errorf("StartTime = %v, want %v", c.StartTime, want)
	}
	if c.Sensor != nil {
		t.Error("default registry should not attach a sensor")
	}
}

func TestCreate_Projected(t *testing.T) {
	c, err := DefaultFactory().Create(label(t, nacInstrument, mapping))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !c.HasProjection() {
		t.Fatal("HasProjection() = false with a Mapping group")
	}
	kw, ok := c.Mapping().Keyword("ProjectionName")
	if !ok || kw.Text() != "Equirectangular" {
		t.Errorf("Mapping ProjectionName = %q", kw.Text())
	}
}

func TestCreate_LookupByNaifCode(t *testing.T) {
	inst := `    SpacecraftName = "MARS ODYSSEY"
    InstrumentId   = THEMIS`
	kernels := `  Group = Kernels
    NaifFrameCode = -53032
  End_Group`
	c, err := DefaultFactory().Create(label(t, inst, kernels))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Type() != PushFrame {
		t.Errorf("Type() = %v, want PushFrame", c.Type())
	}
	if c.NaifIKCode != -53032 {
		t.Errorf("NaifIKCode = %d", c.NaifIKCode)
	}
}

func TestCreate_Errors(t *testing.T) {
	f := DefaultFactory()

	noCube, _ := pvl.Parse(strings.NewReader("Object = Label\nBytes = 1\nEnd_Object\nEnd"))
	if _, err := f.Create(noCube); !errors.Is(err, ErrNoCube) {
		t.Errorf("Create(no cube) error = %v, want ErrNoCube", err)
	}

	noInst, _ := pvl.Parse(strings.NewReader("Object = IsisCube\nEnd_Object\nEnd"))
	if _, err := f.Create(noInst); !errors.Is(err, ErrNoInstrument) {
		t.Errorf("Create(no instrument) error = %v, want ErrNoInstrument", err)
	}

	unknown := label(t, `    SpacecraftName = "VOYAGER 1"
    InstrumentId   = NARROW_ANGLE_CAMERA`, "")
	_, err := f.Create(unknown)
	var ue *UnknownInstrumentError
	if !errors.As(err, &ue) {
		t.Fatalf("Create(unknown) error = %v, want *UnknownInstrumentError", err)
	}
	if ue.Instrument != "NARROW_ANGLE_CAMERA" {
		t.Errorf("UnknownInstrumentError.Instrument = %q", ue.Instrument)
	}

	badTime := label(t, `    SpacecraftName = "LUNAR RECONNAISSANCE ORBITER"
    InstrumentId   = NACR
    StartTime      = sometime`, "")
	if _, err := f.Create(badTime); err == nil {
		t.Error("Create(bad StartTime): expected error")
	}

	badUnit := label(t, `    SpacecraftName       = "LUNAR RECONNAISSANCE ORBITER"
    InstrumentId         = NACR
    LineExposureDuration = 1.0 <fortnights>`, "")
	if _, err := f.Create(badUnit); err == nil {
		t.Error("Create(bad unit): expected error")
	}
}

type fixedSensor struct{}

func (fixedSensor) ImageToGround(sample, line float64) (float64, float64, error) {
	return line, sample, nil
}

func (fixedSensor) GroundToImage(lat, lon float64) (float64, float64, error) {
	return lon, lat, nil
}

func TestRegistry_RegisterOverridesAndSensor(t *testing.T) {
	reg := DefaultRegistry()
	n := reg.Len()
	called := false
	reg.Register(Entry{
		Spacecraft: "Lunar Reconnaissance Orbiter",
		Instrument: "nacl",
		Type:       Framing,
		Sensor: func(c *Camera) (Sensor, error) {
			called = true
			if c.Lines != 1000 {
				return nil, fmt.Errorf("camera not filled before sensor: lines=%d", c.Lines)
			}
			return fixedSensor{}, nil
		},
	})
	if reg.Len() != n+1 {
		t.Fatalf("Len() = %d, want %d", reg.Len(), n+1)
	}

	// The label's NAIF code matches the built-in entry; the later name
	// entry still wins.
	kernels := `  Group = Kernels
    NaifIkCode = -85600
  End_Group`
	c, err := (&Factory{Registry: reg}).Create(label(t, nacInstrument, kernels))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !called {
		t.Error("SensorFunc was not called")
	}
	if c.Type() != Framing {
		t.Errorf("Type() = %v, want the overriding Framing entry", c.Type())
	}
	if c.Sensor == nil {
		t.Error("Sensor is nil")
	}
}

func TestRegistry_LaterEntryWins(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  Type
	}{
		{"by name over code", Entry{Spacecraft: "LUNAR RECONNAISSANCE ORBITER", Instrument: "NACL", Type: Framing}, Framing},
		{"by code over name", Entry{NaifIKCode: -85600, Type: Point}, Point},
		{"unrelated entry", Entry{Spacecraft: "LUNAR RECONNAISSANCE ORBITER", Instrument: "NACR", Type: Framing}, LineScan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := DefaultRegistry()
			reg.Register(tt.entry)
			e, ok := reg.Lookup("LUNAR RECONNAISSANCE ORBITER", "NACL", -85600)
			if !ok || e.Type != tt.want {
				t.Errorf("Lookup = %+v, %v, want type %v", e, ok, tt.want)
			}
		})
	}
}

func TestRegistry_SensorError(t *testing.T) {
	reg := NewRegistry(Entry{
		Spacecraft: "LUNAR RECONNAISSANCE ORBITER",
		Instrument: "NACL",
		Type:       LineScan,
		Sensor: func(*Camera) (Sensor, error) {
			return nil, errors.New("no kernels")
		},
	})
	if _, err := (&Factory{Registry: reg}).Create(label(t, nacInstrument, "")); err == nil {
		t.Fatal("expected sensor error")
	}
}

func TestRegistry_CodeOnlyEntries(t *testing.T) {
	reg := DefaultRegistry()
	if _, ok := reg.Lookup("MARS ODYSSEY", "THEMIS", 0); ok {
		t.Error("code-only entry matched by name")
	}
	if e, ok := reg.Lookup("", "", -53031); !ok || e.Type != LineScan {
		t.Errorf("Lookup(-53031) = %+v, %v", e, ok)
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		text, unit string
		want       time.Duration
	}{
		{"1.877", "MSEC", 1877 * time.Microsecond},
		{"95.0625", "MICROSECONDS", 95062 * time.Nanosecond},
		{"2", "seconds", 2 * time.Second},
		{"3", "", 3 * time.Millisecond},
	}
	for _, tt := range tests {
		kw := pvl.Keyword{Name: "D", Values: []pvl.Value{{Text: tt.text, Unit: tt.unit}}}
		got, err := duration(kw)
		if err != nil {
			t.Errorf("duration(%s <%s>): %v", tt.text, tt.unit, err)
			continue
		}
		if d := got - tt.want; d < -time.Nanosecond || d > time.Nanosecond {
			t.Errorf("duration(%s <%s>) = %v, want %v", tt.text, tt.unit, got, tt.want)
		}
	}
}
