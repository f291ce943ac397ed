// Package isis selects the camera interface that matches an ISIS cube.
//
// A cube is classified by two facts from its label: the geometry class of
// the instrument (framing or line scan) and whether a map projection has
// been attached. Each combination has its own Interface implementation.
package isis

import (
	"errors"
	"fmt"

	"github.com/pspoerri/isiscam/internal/camera"
	"github.com/pspoerri/isiscam/internal/pvl"
)

// Variant identifies a concrete camera interface.
type Variant int

const (
	Frame Variant = iota
	MapFrame
	LineScan
	MapLineScan
)

func (v Variant) String() string {
	switch v {
	case Frame:
		return "Frame"
	case MapFrame:
		return "MapFrame"
	case LineScan:
		return "LineScan"
	case MapLineScan:
		return "MapLineScan"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Projected reports whether the variant works in map projection space.
func (v Variant) Projected() bool {
	return v == MapFrame || v == MapLineScan
}

// Pixel is a 1-based image position. Sample 0.5, line 0.5 is the upper-left
// corner of the image.
type Pixel struct {
	Sample float64
	Line   float64
}

// Ground is a latitude/longitude in degrees.
type Ground struct {
	Lat float64
	Lon float64
}

// Interface is a camera interface for one cube.
type Interface interface {
	// Variant reports which concrete interface this is.
	Variant() Variant

	// Path returns the cube the interface was opened from.
	Path() string

	// Camera returns the generic camera built from the cube label.
	Camera() *camera.Camera

	// PixelToGround maps an image position to the ground.
	PixelToGround(p Pixel) (Ground, error)

	// GroundToPixel maps a ground point into the image.
	GroundToPixel(g Ground) (Pixel, error)
}

var (
	// ErrUnsupportedCameraType matches every *UnsupportedCameraTypeError.
	ErrUnsupportedCameraType = errors.New("unsupported camera type")
	// ErrNoSensor is returned by unprojected interfaces whose camera has no
	// sensor model.
	ErrNoSensor = errors.New("camera has no sensor model")
	// ErrOutsideImage is returned for positions outside the image.
	ErrOutsideImage = errors.New("position is outside the image")
	// ErrNotVisible is returned for points the projection cannot represent.
	ErrNotVisible = errors.New("point is not representable in the projection")
)

// UnsupportedCameraTypeError reports a camera whose geometry class has no
// interface.
type UnsupportedCameraTypeError struct {
	Path string
	Type camera.Type
}

func (e *UnsupportedCameraTypeError) Error() string {
	msg := fmt.Sprintf("unsupported ISIS camera type %d (%s)", int(e.Type), e.Type)
	if e.Path != "" {
		return e.Path + ": " + msg
	}
	return msg
}

func (e *UnsupportedCameraTypeError) Is(target error) bool {
	return target == ErrUnsupportedCameraType
}

type selectionKey struct {
	typ       camera.Type
	projected bool
}

var selection = map[selectionKey]Variant{
	{camera.Framing, false}:  Frame,
	{camera.Framing, true}:   MapFrame,
	{camera.LineScan, false}: LineScan,
	{camera.LineScan, true}:  MapLineScan,
}

// Select maps a geometry class and projection flag to a variant.
func Select(t camera.Type, projected bool) (Variant, error) {
	v, ok := selection[selectionKey{t, projected}]
	if !ok {
		return 0, &UnsupportedCameraTypeError{Type: t}
	}
	return v, nil
}

type constructor func(path string, c *camera.Camera) (Interface, error)

var constructors = map[Variant]constructor{
	Frame:       newFrameCamera,
	MapFrame:    newMapFrameCamera,
	LineScan:    newLineScanCamera,
	MapLineScan: newMapLineScanCamera,
}

// LabelReader reads the label of a cube.
type LabelReader interface {
	Read(path string) (*pvl.Label, error)
}

// LabelReaderFunc adapts a function to LabelReader.
type LabelReaderFunc func(path string) (*pvl.Label, error)

func (f LabelReaderFunc) Read(path string) (*pvl.Label, error) { return f(path) }

// CameraFactory builds a generic camera from a label.
type CameraFactory interface {
	Create(lbl *pvl.Label) (*camera.Camera, error)
}

// Opener opens camera interfaces using its label reader and camera factory.
type Opener struct {
	Labels  LabelReader
	Cameras CameraFactory
}

// NewOpener returns an Opener reading labels from disk and resolving
// instruments in reg. A nil reg uses camera.DefaultRegistry.
func NewOpener(reg *camera.Registry) *Opener {
	if reg == nil {
		reg = camera.DefaultRegistry()
	}
	return &Opener{
		Labels:  LabelReaderFunc(pvl.Read),
		Cameras: &camera.Factory{Registry: reg},
	}
}

// Open reads the cube label at path and returns the matching interface.
func (o *Opener) Open(path string) (Interface, error) {
	lbl, err := o.Labels.Read(path)
	if err != nil {
		return nil, err
	}
	cam, err := o.Cameras.Create(lbl)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	v, err := Select(cam.Type(), cam.HasProjection())
	if err != nil {
		return nil, &UnsupportedCameraTypeError{Path: path, Type: cam.Type()}
	}
	return constructors[v](path, cam)
}

// Open opens path with the default label reader and instrument registry.
func Open(path string) (Interface, error) {
	return NewOpener(nil).Open(path)
}
