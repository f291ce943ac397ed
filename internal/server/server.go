// Package server exposes camera interfaces over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/pspoerri/isiscam/internal/camera"
	"github.com/pspoerri/isiscam/internal/cube"
	"github.com/pspoerri/isiscam/internal/encode"
	"github.com/pspoerri/isiscam/internal/isis"
)

// Opener opens the camera interface of a cube.
type Opener interface {
	Open(path string) (isis.Interface, error)
}

// RouteTable maps URL endpoints to handlers.
type RouteTable map[string]http.HandlerFunc

// ListEndpoints lists the endpoints in a RouteTable, sorted.
func (rt RouteTable) ListEndpoints() []string {
	routes := make([]string, 0, len(rt))
	for k := range rt {
		routes = append(routes, k)
	}
	sort.Strings(routes)
	return routes
}

// Server answers camera queries for cubes below Root.
type Server struct {
	Cameras Opener

	// Root confines request paths. Empty allows any path.
	Root string

	// Browse encodes /camera/browse replies. Defaults to PNG.
	Browse encode.Encoder
	MaxDim int

	// Logger enables chi request logging when set.
	Logger *log.Logger
}

// RT returns the camera routes.
func (s *Server) RT() RouteTable {
	return RouteTable{
		"camera":        s.camera,
		"camera/pixel":  s.pixel,
		"camera/ground": s.ground,
		"camera/browse": s.browse,
	}
}

// Handler returns a router serving RT and /route-list.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	if s.Logger != nil {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: s.Logger, NoColor: true}))
	}
	r.Use(middleware.Recoverer)

	rt := s.RT()
	for route, h := range rt {
		r.Get("/"+route, h)
	}
	r.Get("/route-list", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, rt.ListEndpoints())
	})
	return r
}

// Info summarizes a camera interface.
type Info struct {
	Path       string
	Variant    string
	Type       string
	Projected  bool
	Spacecraft string
	Instrument string
	Target     string `json:",omitempty"`
	NaifIKCode int    `json:",omitempty"`
	Samples    int
	Lines      int
	Bands      int
	StartTime  *time.Time `json:",omitempty"`
	StopTime   *time.Time `json:",omitempty"`

	ExposureDuration     time.Duration `json:",omitempty"`
	LineExposureDuration time.Duration `json:",omitempty"`
	Summing              int
}

// Describe builds the Info of ci.
func Describe(ci isis.Interface) Info {
	c := ci.Camera()
	info := Info{
		Path:                 ci.Path(),
		Variant:              ci.Variant().String(),
		Type:                 c.Type().String(),
		Projected:            c.HasProjection(),
		Spacecraft:           c.Spacecraft,
		Instrument:           c.Instrument,
		Target:               c.Target,
		NaifIKCode:           c.NaifIKCode,
		Samples:              c.Samples,
		Lines:                c.Lines,
		Bands:                c.Bands,
		ExposureDuration:     c.ExposureDuration,
		LineExposureDuration: c.LineExposureDuration,
		Summing:              c.Summing,
	}
	if !c.StartTime.IsZero() {
		info.StartTime = &c.StartTime
	}
	if !c.StopTime.IsZero() {
		info.StopTime = &c.StopTime
	}
	return info
}

func (s *Server) camera(w http.ResponseWriter, r *http.Request) {
	ci, ok := s.open(w, r)
	if !ok {
		return
	}
	writeJSON(w, Describe(ci))
}

func (s *Server) pixel(w http.ResponseWriter, r *http.Request) {
	sample, line, ok := floatParams(w, r, "sample", "line")
	if !ok {
		return
	}
	ci, ok := s.open(w, r)
	if !ok {
		return
	}
	g, err := ci.PixelToGround(isis.Pixel{Sample: sample, Line: line})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, g)
}

func (s *Server) ground(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := floatParams(w, r, "lat", "lon")
	if !ok {
		return
	}
	ci, ok := s.open(w, r)
	if !ok {
		return
	}
	p, err := ci.GroundToPixel(isis.Ground{Lat: lat, Lon: lon})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, p)
}

func (s *Server) browse(w http.ResponseWriter, r *http.Request) {
	path, ok := s.path(w, r)
	if !ok {
		return
	}
	band := 1
	if v := r.URL.Query().Get("band"); v != "" {
		b, err := strconv.Atoi(v)
		if err != nil || b < 1 {
			http.Error(w, fmt.Sprintf("invalid band %q", v), http.StatusBadRequest)
			return
		}
		band = b
	}

	cr, err := cube.Open(path)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cr.Close()
	if band > cr.Layout().Bands {
		http.Error(w, fmt.Sprintf("band %d out of range [1, %d]", band, cr.Layout().Bands), http.StatusBadRequest)
		return
	}
	img, err := encode.Browse(cr, band, s.MaxDim)
	if err != nil {
		writeError(w, err)
		return
	}
	enc := s.Browse
	if enc == nil {
		enc = &encode.PNGEncoder{}
	}
	data, err := enc.Encode(img)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType(enc.Format()))
	w.Write(data)
}

func contentType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "fits":
		return "application/fits"
	default:
		return "application/octet-stream"
	}
}

// path resolves the path query parameter against Root.
func (s *Server) path(w http.ResponseWriter, r *http.Request) (string, bool) {
	p := r.URL.Query().Get("path")
	if p == "" {
		http.Error(w, "missing path parameter", http.StatusBadRequest)
		return "", false
	}
	if s.Root != "" {
		p = filepath.Join(s.Root, filepath.Clean("/"+p))
	}
	return p, true
}

func (s *Server) open(w http.ResponseWriter, r *http.Request) (isis.Interface, bool) {
	path, ok := s.path(w, r)
	if !ok {
		return nil, false
	}
	opener := s.Cameras
	if opener == nil {
		opener = isis.NewOpener(nil)
	}
	ci, err := opener.Open(path)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return ci, true
}

func floatParams(w http.ResponseWriter, r *http.Request, names ...string) (float64, float64, bool) {
	var vals [2]float64
	for i, name := range names[:2] {
		v := r.URL.Query().Get(name)
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid %s parameter %q", name, v), http.StatusBadRequest)
			return 0, 0, false
		}
		vals[i] = f
	}
	return vals[0], vals[1], true
}

// statusOf maps library errors to HTTP status codes.
func statusOf(err error) int {
	var unknown *camera.UnknownInstrumentError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, isis.ErrUnsupportedCameraType),
		errors.As(err, &unknown),
		errors.Is(err, camera.ErrNoInstrument),
		errors.Is(err, isis.ErrNoSensor),
		errors.Is(err, isis.ErrOutsideImage),
		errors.Is(err, isis.ErrNotVisible),
		errors.Is(err, cube.ErrDetached):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusOf(err))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("error encoding response: %v", err)
	}
}
