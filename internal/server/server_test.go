package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pspoerri/isiscam/internal/camera"
	"github.com/pspoerri/isiscam/internal/isis"
)

const labelSize = 2048

const cubeLabel = `Object = IsisCube
  Object = Core
    StartByte = %d
    Format    = BandSequential
    Group = Dimensions
      Samples = 4
      Lines   = 2
      Bands   = 1
    End_Group
    Group = Pixels
      Type       = UnsignedByte
      ByteOrder  = Lsb
      Base       = 0.0
      Multiplier = 1.0
    End_Group
  End_Object

  Group = Instrument
    SpacecraftName = "TEST CRAFT"
    InstrumentId   = %s
    StartTime      = 2009-09-03T03:21:47.000
  End_Group
%s
End_Object
End
`

const mapping = `
  Group = Mapping
    ProjectionName   = SimpleCylindrical
    TargetName       = Moon
    EquatorialRadius = 1737400.0 <meters>
    PolarRadius      = 1737400.0 <meters>
    LatitudeType     = Planetocentric
    LongitudeDomain  = 360
    CenterLongitude  = 0.0
    PixelResolution  = 100.0 <meters/pixel>
    UpperLeftCornerX = 0.0 <meters>
    UpperLeftCornerY = 10000.0 <meters>
  End_Group`

// newTestServer writes cubes into a temporary root and serves them.
func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	root := t.TempDir()
	write := func(name, inst, extra string) {
		lbl := fmt.Sprintf(cubeLabel, labelSize+1, inst, extra)
		buf := make([]byte, labelSize)
		copy(buf, lbl)
		buf = append(buf, 10, 20, 30, 40, 50, 60, 70, 0)
		if err := os.WriteFile(filepath.Join(root, name), buf, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("map.cub", "CAM", mapping)
	write("raw.cub", "CAM", "")
	write("radar.cub", "SAR", "")
	write("unknown.cub", "MYSTERY", "")

	reg := camera.NewRegistry(
		camera.Entry{Spacecraft: "TEST CRAFT", Instrument: "CAM", Type: camera.Framing},
		camera.Entry{Spacecraft: "TEST CRAFT", Instrument: "SAR", Type: camera.Radar},
	)
	s := &Server{Cameras: isis.NewOpener(reg), Root: root}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, root
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp, buf.Bytes()
}

func TestCamera(t *testing.T) {
	ts, root := newTestServer(t)

	resp, body := get(t, ts.URL+"/camera?path=map.cub")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		t.Fatal(err)
	}
	if info.Path != filepath.Join(root, "map.cub") || info.Variant != "MapFrame" || !info.Projected {
		t.Errorf("info = %+v", info)
	}
	if info.Samples != 4 || info.Lines != 2 || info.Type != "Framing" || info.StartTime == nil {
		t.Errorf("info = %+v", info)
	}
}

func TestStatusCodes(t *testing.T) {
	ts, _ := newTestServer(t)
	tests := []struct {
		url  string
		want int
	}{
		{"/camera?path=raw.cub", http.StatusOK},
		{"/camera?path=radar.cub", http.StatusUnprocessableEntity},
		{"/camera?path=unknown.cub", http.StatusUnprocessableEntity},
		{"/camera?path=missing.cub", http.StatusNotFound},
		{"/camera?path=../../etc/passwd", http.StatusNotFound},
		{"/camera", http.StatusBadRequest},
		{"/camera/pixel?path=map.cub&sample=x&line=1", http.StatusBadRequest},
		{"/camera/pixel?path=raw.cub&sample=1&line=1", http.StatusUnprocessableEntity},
		{"/camera/pixel?path=map.cub&sample=100&line=1", http.StatusUnprocessableEntity},
		{"/camera/ground?path=map.cub&lat=1", http.StatusBadRequest},
		{"/camera/browse?path=map.cub&band=2", http.StatusBadRequest},
		{"/camera/browse?path=map.cub&band=zero", http.StatusBadRequest},
		{"/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			resp, body := get(t, ts.URL+tt.url)
			if resp.StatusCode != tt.want {
				t.Errorf("GET %s = %d, want %d: %s", tt.url, resp.StatusCode, tt.want, body)
			}
		})
	}
}

func TestPixelAndGround(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := get(t, ts.URL+"/camera/pixel?path=map.cub&sample=0.5&line=0.5")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var g isis.Ground
	if err := json.Unmarshal(body, &g); err != nil {
		t.Fatal(err)
	}
	wantLat := 10000.0 / 1737400.0 * 180 / math.Pi
	if math.Abs(g.Lat-wantLat) > 1e-9 || math.Abs(g.Lon) > 1e-9 {
		t.Errorf("ground = %+v, want lat %v lon 0", g, wantLat)
	}

	url := fmt.Sprintf("%s/camera/ground?path=map.cub&lat=%v&lon=%v", ts.URL, g.Lat, g.Lon)
	resp, body = get(t, url)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var p isis.Pixel
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatal(err)
	}
	if math.Abs(p.Sample-0.5) > 1e-6 || math.Abs(p.Line-0.5) > 1e-6 {
		t.Errorf("pixel = %+v, want (0.5, 0.5)", p)
	}
}

func TestBrowse(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := get(t, ts.URL+"/camera/browse?path=map.cub")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	img, err := png.Decode(bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 2 {
		t.Errorf("size = %dx%d, want 4x2", b.Dx(), b.Dy())
	}
	// The last pixel is a Null DN and renders black.
	if r, _, _, _ := img.At(3, 1).RGBA(); r != 0 {
		t.Errorf("null pixel = %d, want 0", r)
	}
}

func TestRouteList(t *testing.T) {
	ts, _ := newTestServer(t)
	_, body := get(t, ts.URL+"/route-list")
	var routes []string
	if err := json.Unmarshal(body, &routes); err != nil {
		t.Fatal(err)
	}
	want := []string{"camera", "camera/browse", "camera/ground", "camera/pixel"}
	if diff := cmp.Diff(want, routes); diff != "" {
		t.Errorf("routes mismatch (-want +got):\n%s", diff)
	}
}
