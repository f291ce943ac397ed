package isis

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pspoerri/isiscam/internal/camera"
	"github.com/pspoerri/isiscam/internal/pvl"
)

const cubeTemplate = `Object = IsisCube
  Object = Core
    StartByte = 65537
    Format    = Tile
    Group = Dimensions
      Samples = 1000
      Lines   = 2000
      Bands   = 1
    End_Group
  End_Object

  Group = Instrument
    SpacecraftName       = %q
    InstrumentId         = %s
    StartTime            = 2009-09-03T03:21:47.000
    ExposureDuration     = 20 <ms>
    LineExposureDuration = 0.5 <ms>
    SpatialSumming       = 2
  End_Group
%s
End_Object
End
`

const mappingGroup = `
  Group = Mapping
    ProjectionName     = SimpleCylindrical
    TargetName         = Moon
    EquatorialRadius   = 1737400.0 <meters>
    PolarRadius        = 1737400.0 <meters>
    LatitudeType       = Planetocentric
    LongitudeDirection = PositiveEast
    LongitudeDomain    = 360
    CenterLongitude    = 0.0
    PixelResolution    = 100.0 <meters/pixel>
    UpperLeftCornerX   = 0.0 <meters>
    UpperLeftCornerY   = 10000.0 <meters>
  End_Group`

func writeCube(t *testing.T, spacecraft, instrument string, projected bool) string {
	t.Helper()
	extra := ""
	if projected {
		extra = mappingGroup
	}
	path := filepath.Join(t.TempDir(), instrument+".cub")
	src := fmt.Sprintf(cubeTemplate, spacecraft, instrument, extra)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// registryWith returns a registry holding a single instrument of type typ.
func registryWith(typ camera.Type) *camera.Registry {
	return camera.NewRegistry(camera.Entry{Spacecraft: "TEST CRAFT", Instrument: "CAM", Type: typ})
}

func TestOpen_VariantMatrix(t *testing.T) {
	tests := []struct {
		instrument string
		spacecraft string
		projected  bool
		want       Variant
	}{
		{"ISSNA", "CASSINI-HUYGENS", false, Frame},
		{"ISSNA", "CASSINI-HUYGENS", true, MapFrame},
		{"NACL", "LUNAR RECONNAISSANCE ORBITER", false, LineScan},
		{"NACL", "LUNAR RECONNAISSANCE ORBITER", true, MapLineScan},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			path := writeCube(t, tt.spacecraft, tt.instrument, tt.projected)
			ci, err := Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if ci == nil {
				t.Fatal("Open returned a nil interface without error")
			}
			if got := ci.Variant(); got != tt.want {
				t.Errorf("Variant() = %v, want %v", got, tt.want)
			}
			if got := ci.Variant().Projected(); got != tt.projected {
				t.Errorf("Projected() = %v, want %v", got, tt.projected)
			}
			if ci.Path() != path {
				t.Errorf("Path() = %q, want %q", ci.Path(), path)
			}
			if ci.Camera() == nil {
				t.Error("Camera() is nil")
			}
		})
	}
}

func TestOpen_ConcreteTypes(t *testing.T) {
	checks := []struct {
		typ       camera.Type
		projected bool
		check     func(Interface) bool
	}{
		{camera.Framing, false, func(ci Interface) bool { _, ok := ci.(*FrameCamera); return ok }},
		{camera.Framing, true, func(ci Interface) bool { _, ok := ci.(*MapFrameCamera); return ok }},
		{camera.LineScan, false, func(ci Interface) bool { _, ok := ci.(*LineScanCamera); return ok }},
		{camera.LineScan, true, func(ci Interface) bool { _, ok := ci.(*MapLineScanCamera); return ok }},
	}
	for _, c := range checks {
		path := writeCube(t, "TEST CRAFT", "CAM", c.projected)
		ci, err := NewOpener(registryWith(c.typ)).Open(path)
		if err != nil {
			t.Fatalf("Open(%v, projected=%v): %v", c.typ, c.projected, err)
		}
		if !c.check(ci) {
			t.Errorf("Open(%v, projected=%v) returned %T", c.typ, c.projected, ci)
		}
	}
}

func TestOpen_UnsupportedCameraType(t *testing.T) {
	types := []camera.Type{camera.PushFrame, camera.Radar, camera.Point, camera.RollingShutter, camera.Type(-1), camera.Type(17)}
	for _, typ := range types {
		for _, projected := range []bool{false, true} {
			t.Run(fmt.Sprintf("%v/projected=%v", typ, projected), func(t *testing.T) {
				path := writeCube(t, "TEST CRAFT", "CAM", projected)
				ci, err := NewOpener(registryWith(typ)).Open(path)
				if err == nil {
					t.Fatalf("Open = %v, want error", ci)
				}
				if ci != nil {
					t.Errorf("Open returned %T alongside an error", ci)
				}
				if !errors.Is(err, ErrUnsupportedCameraType) {
					t.Errorf("error %v does not match ErrUnsupportedCameraType", err)
				}
				var ue *UnsupportedCameraTypeError
				if !errors.As(err, &ue) {
					t.Fatalf("error %v is not *UnsupportedCameraTypeError", err)
				}
				if ue.Type != typ {
					t.Errorf("reported type = %v, want %v", ue.Type, typ)
				}
				if ue.Path != path {
					t.Errorf("reported path = %q, want %q", ue.Path, path)
				}
				if !strings.Contains(err.Error(), fmt.Sprint(int(typ))) {
					t.Errorf("message %q does not name the type value", err)
				}
			})
		}
	}
}

func TestSelect(t *testing.T) {
	for typ := camera.Type(-2); typ <= 8; typ++ {
		for _, projected := range []bool{false, true} {
			v, err := Select(typ, projected)
			switch typ {
			case camera.Framing, camera.LineScan:
				if err != nil {
					t.Errorf("Select(%v, %v): %v", typ, projected, err)
				}
				if v.Projected() != projected {
					t.Errorf("Select(%v, %v) = %v", typ, projected, v)
				}
			default:
				var ue *UnsupportedCameraTypeError
				if !errors.As(err, &ue) || ue.Type != typ {
					t.Errorf("Select(%v, %v) error = %v", typ, projected, err)
				}
			}
		}
	}
}

func TestOpen_PropagatesErrors(t *testing.T) {
	readErr := errors.New("disk on fire")
	o := &Opener{
		Labels:  LabelReaderFunc(func(string) (*pvl.Label, error) { return nil, readErr }),
		Cameras: camera.DefaultFactory(),
	}
	if _, err := o.Open("x.cub"); !errors.Is(err, readErr) {
		t.Errorf("Open error = %v, want the label reader's error", err)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.cub")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(missing) error = %v, want os.ErrNotExist", err)
	}

	path := writeCube(t, "VOYAGER 2", "NARROW_ANGLE_CAMERA", false)
	_, err := Open(path)
	var ue *camera.UnknownInstrumentError
	if !errors.As(err, &ue) {
		t.Errorf("Open(unknown instrument) error = %v", err)
	}
	if errors.Is(err, ErrUnsupportedCameraType) {
		t.Error("unknown instrument reported as unsupported camera type")
	}
}

func TestMapped_GroundMapping(t *testing.T) {
	path := writeCube(t, "LUNAR RECONNAISSANCE ORBITER", "NACL", true)
	ci, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	g, err := ci.PixelToGround(Pixel{Sample: 0.5, Line: 0.5})
	if err != nil {
		t.Fatalf("PixelToGround: %v", err)
	}
	wantLat := 10000 / 1737400.0 * 180 / math.Pi
	if math.Abs(g.Lat-wantLat) > 1e-9 || math.Abs(g.Lon) > 1e-9 {
		t.Errorf("corner = %+v, want lat %v lon 0", g, wantLat)
	}

	p, err := ci.GroundToPixel(Ground{Lat: 0, Lon: 1})
	if err != nil {
		t.Fatalf("GroundToPixel: %v", err)
	}
	wantSample := 1737400.0*math.Pi/180/100 + 0.5
	if math.Abs(p.Sample-wantSample) > 1e-6 || math.Abs(p.Line-100.5) > 1e-6 {
		t.Errorf("GroundToPixel = %+v, want sample %v line 100.5", p, wantSample)
	}

	if _, err := ci.PixelToGround(Pixel{Sample: 1001, Line: 1}); !errors.Is(err, ErrOutsideImage) {
		t.Errorf("PixelToGround outside = %v, want ErrOutsideImage", err)
	}
	if _, err := ci.GroundToPixel(Ground{Lat: -60, Lon: 0}); !errors.Is(err, ErrOutsideImage) {
		t.Errorf("GroundToPixel outside = %v, want ErrOutsideImage", err)
	}
	if _, err := ci.GroundToPixel(Ground{Lat: 95, Lon: 0}); !errors.Is(err, ErrNotVisible) {
		t.Errorf("GroundToPixel(lat 95) = %v, want ErrNotVisible", err)
	}

	mls, ok := ci.(*MapLineScanCamera)
	if !ok {
		t.Fatalf("got %T", ci)
	}
	if mls.Mapper().Projection.Name() != "SimpleCylindrical" {
		t.Errorf("projection = %s", mls.Mapper().Projection.Name())
	}
}

func TestMapped_BadMapping(t *testing.T) {
	src := fmt.Sprintf(cubeTemplate, "CASSINI-HUYGENS", "ISSNA", `
  Group = Mapping
    ProjectionName   = Bonne
    EquatorialRadius = 1.0
    PixelResolution  = 1.0
  End_Group`)
	path := filepath.Join(t.TempDir(), "bonne.cub")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected error for unsupported projection")
	}
}

type scaleSensor struct{}

func (scaleSensor) ImageToGround(s, l float64) (float64, float64, error) {
	return l / 100, s / 100, nil
}

func (scaleSensor) GroundToImage(lat, lon float64) (float64, float64, error) {
	return lon * 100, lat * 100, nil
}

func TestUnprojected_Sensor(t *testing.T) {
	path := writeCube(t, "CASSINI-HUYGENS", "ISSNA", false)
	ci, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := ci.PixelToGround(Pixel{Sample: 1, Line: 1}); !errors.Is(err, ErrNoSensor) {
		t.Errorf("PixelToGround without sensor = %v, want ErrNoSensor", err)
	}
	if _, err := ci.GroundToPixel(Ground{}); !errors.Is(err, ErrNoSensor) {
		t.Errorf("GroundToPixel without sensor = %v, want ErrNoSensor", err)
	}

	reg := camera.NewRegistry(camera.Entry{
		Spacecraft: "CASSINI-HUYGENS",
		Instrument: "ISSNA",
		Type:       camera.Framing,
		Sensor:     func(*camera.Camera) (camera.Sensor, error) { return scaleSensor{}, nil },
	})
	ci, err = NewOpener(reg).Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	g, err := ci.PixelToGround(Pixel{Sample: 300, Line: 200})
	if err != nil {
		t.Fatalf("PixelToGround: %v", err)
	}
	if g != (Ground{Lat: 2, Lon: 3}) {
		t.Errorf("PixelToGround = %+v", g)
	}
	p, err := ci.GroundToPixel(Ground{Lat: 2, Lon: 3})
	if err != nil {
		t.Fatalf("GroundToPixel: %v", err)
	}
	if p != (Pixel{Sample: 300, Line: 200}) {
		t.Errorf("GroundToPixel = %+v", p)
	}
	if _, err := ci.GroundToPixel(Ground{Lat: 50, Lon: 3}); !errors.Is(err, ErrOutsideImage) {
		t.Errorf("GroundToPixel beyond last line = %v, want ErrOutsideImage", err)
	}

	frame := ci.(*FrameCamera)
	want := time.Date(2009, 9, 3, 3, 21, 47, 10000000, time.UTC)
	if got := frame.ExposureMidTime(); !got.Equal(want) {
		t.Errorf("ExposureMidTime() = %v, want %v", got, want)
	}
}

func TestLineScan_Timing(t *testing.T) {
	path := writeCube(t, "LUNAR RECONNAISSANCE ORBITER", "NACL", false)
	ci, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ls := ci.(*LineScanCamera)
	if got := ls.LineRate(); got != time.Millisecond {
		t.Errorf("LineRate() = %v, want 1ms (0.5ms x summing 2)", got)
	}
	start := ls.Camera().StartTime

	got, err := ls.LineTime(0.5)
	if err != nil || !got.Equal(start) {
		t.Errorf("LineTime(0.5) = %v, %v, want %v", got, err, start)
	}
	got, _ = ls.LineTime(1000.5)
	if want := start.Add(time.Second); !got.Equal(want) {
		t.Errorf("LineTime(1000.5) = %v, want %v", got, want)
	}
	line, err := ls.TimeToLine(start.Add(250 * time.Millisecond))
	if err != nil || math.Abs(line-250.5) > 1e-9 {
		t.Errorf("TimeToLine = %v, %v, want 250.5", line, err)
	}

	ls.Camera().LineExposureDuration = 0
	if _, err := ls.LineTime(1); !errors.Is(err, ErrNoLineTiming) {
		t.Errorf("LineTime without rate = %v, want ErrNoLineTiming", err)
	}
	if _, err := ls.TimeToLine(start); !errors.Is(err, ErrNoLineTiming) {
		t.Errorf("TimeToLine without rate = %v, want ErrNoLineTiming", err)
	}
}

func TestVariantString(t *testing.T) {
	names := map[Variant]string{Frame: "Frame", MapFrame: "MapFrame", LineScan: "LineScan", MapLineScan: "MapLineScan", Variant(9): "Variant(9)"}
	for v, want := range names {
		if got := v.String(); got != want {
			t.Errorf("Variant(%d).String() = %q, want %q", int(v), got, want)
		}
	}
}
