package cube

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/pspoerri/isiscam/internal/pvl"
)

// PixelType is the storage type of cube pixels.
type PixelType int

const (
	UnsignedByte PixelType = iota
	SignedWord
	UnsignedWord
	Real
)

// Size returns the number of bytes per pixel.
func (t PixelType) Size() int {
	switch t {
	case UnsignedByte:
		return 1
	case SignedWord, UnsignedWord:
		return 2
	default:
		return 4
	}
}

func (t PixelType) String() string {
	switch t {
	case UnsignedByte:
		return "UnsignedByte"
	case SignedWord:
		return "SignedWord"
	case UnsignedWord:
		return "UnsignedWord"
	case Real:
		return "Real"
	default:
		return fmt.Sprintf("PixelType(%d)", int(t))
	}
}

// ErrDetached is returned for cubes whose pixels live in another file.
var ErrDetached = errors.New("detached cube data is not supported")

// Layout describes where and how a cube stores its pixels.
type Layout struct {
	Samples, Lines, Bands int

	// StartByte is the 1-based offset of the first pixel.
	StartByte int64

	Tiled       bool
	TileSamples int
	TileLines   int

	Type       PixelType
	ByteOrder  binary.ByteOrder
	Base       float64
	Multiplier float64
}

// ParseLayout reads the Core object of a cube label.
func ParseLayout(lbl *pvl.Label) (Layout, error) {
	cube, ok := lbl.FindObject("IsisCube")
	if !ok {
		return Layout{}, fmt.Errorf("label has no IsisCube object")
	}
	if _, ok := cube.Keyword("^Core"); ok {
		return Layout{}, ErrDetached
	}
	core, ok := cube.FindObject("Core")
	if !ok {
		return Layout{}, fmt.Errorf("label has no Core object")
	}

	l := Layout{ByteOrder: binary.LittleEndian, Multiplier: 1}

	kw, ok := core.Keyword("StartByte")
	if !ok {
		return Layout{}, fmt.Errorf("core: missing StartByte")
	}
	start, err := kw.Int()
	if err != nil || start < 1 {
		return Layout{}, fmt.Errorf("core: invalid StartByte %q", kw.Text())
	}
	l.StartByte = int64(start)

	format := "Tile"
	if kw, ok := core.Keyword("Format"); ok {
		format = kw.Text()
	}
	switch strings.ToLower(format) {
	case "tile":
		l.Tiled = true
		l.TileSamples, l.TileLines = 128, 128
		for _, d := range []struct {
			name string
			dst  *int
		}{{"TileSamples", &l.TileSamples}, {"TileLines", &l.TileLines}} {
			if kw, ok := core.Keyword(d.name); ok {
				n, err := kw.Int()
				if err != nil || n <= 0 {
					return Layout{}, fmt.Errorf("core: invalid %s %q", d.name, kw.Text())
				}
				*d.dst = n
			}
		}
	case "bandsequential":
	default:
		return Layout{}, fmt.Errorf("core: unsupported Format %q", format)
	}

	dims, ok := core.FindGroup("Dimensions")
	if !ok {
		return Layout{}, fmt.Errorf("core: missing Dimensions group")
	}
	for _, d := range []struct {
		name string
		dst  *int
	}{{"Samples", &l.Samples}, {"Lines", &l.Lines}, {"Bands", &l.Bands}} {
		kw, ok := dims.Keyword(d.name)
		if !ok {
			return Layout{}, fmt.Errorf("dimensions: missing %s", d.name)
		}
		n, err := kw.Int()
		if err != nil || n <= 0 {
			return Layout{}, fmt.Errorf("dimensions: invalid %s %q", d.name, kw.Text())
		}
		*d.dst = n
	}

	pix, ok := core.FindGroup("Pixels")
	if !ok {
		return Layout{}, fmt.Errorf("core: missing Pixels group")
	}
	kw, ok = pix.Keyword("Type")
	if !ok {
		return Layout{}, fmt.Errorf("pixels: missing Type")
	}
	switch strings.ToLower(kw.Text()) {
	case "unsignedbyte":
		l.Type = UnsignedByte
	case "signedword":
		l.Type = SignedWord
	case "unsignedword":
		l.Type = UnsignedWord
	case "real":
		l.Type = Real
	default:
		return Layout{}, fmt.Errorf("pixels: unsupported Type %q", kw.Text())
	}
	if kw, ok := pix.Keyword("ByteOrder"); ok {
		switch strings.ToLower(kw.Text()) {
		case "lsb":
		case "msb":
			l.ByteOrder = binary.BigEndian
		default:
			return Layout{}, fmt.Errorf("pixels: invalid ByteOrder %q", kw.Text())
		}
	}
	for _, f := range []struct {
		name string
		dst  *float64
	}{{"Base", &l.Base}, {"Multiplier", &l.Multiplier}} {
		if kw, ok := pix.Keyword(f.name); ok {
			if *f.dst, err = kw.Float(); err != nil {
				return Layout{}, fmt.Errorf("pixels: %w", err)
			}
		}
	}
	return l, nil
}

// DataSize returns the number of bytes of pixel data, including the padding
// of partial edge tiles.
func (l Layout) DataSize() int64 {
	if !l.Tiled {
		return int64(l.Samples) * int64(l.Lines) * int64(l.Bands) * int64(l.Type.Size())
	}
	across := int64(ceilDiv(l.Samples, l.TileSamples))
	down := int64(ceilDiv(l.Lines, l.TileLines))
	return across * down * int64(l.Bands) * int64(l.TileSamples) * int64(l.TileLines) * int64(l.Type.Size())
}

// pixelIndex returns the storage index of a 1-based sample, line and band.
func (l Layout) pixelIndex(sample, line, band int) int64 {
	s, ln, b := int64(sample-1), int64(line-1), int64(band-1)
	if !l.Tiled {
		return (b*int64(l.Lines)+ln)*int64(l.Samples) + s
	}
	ts, tl := int64(l.TileSamples), int64(l.TileLines)
	across := int64(ceilDiv(l.Samples, l.TileSamples))
	down := int64(ceilDiv(l.Lines, l.TileLines))
	tile := (b*down+ln/tl)*across + s/ts
	return tile*ts*tl + (ln%tl)*ts + s%ts
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// ISIS special pixel values.
const (
	low2 = -32752 // smallest valid SignedWord

	lowU2  = 3     // smallest valid UnsignedWord
	highU2 = 65522 // largest valid UnsignedWord

	validMin4 = 0xFF7FFFFA // bits of the smallest valid Real
)

// decode converts raw pixel bytes to a DN. ok is false for special pixels.
func (l Layout) decode(b []byte) (float64, bool) {
	switch l.Type {
	case UnsignedByte:
		v := b[0]
		if v == 0 || v == 255 {
			return 0, false
		}
		return l.Base + l.Multiplier*float64(v), true
	case SignedWord:
		v := int16(l.ByteOrder.Uint16(b))
		if v < low2 {
			return 0, false
		}
		return l.Base + l.Multiplier*float64(v), true
	case UnsignedWord:
		v := l.ByteOrder.Uint16(b)
		if v < lowU2 || v > highU2 {
			return 0, false
		}
		return l.Base + l.Multiplier*float64(v), true
	default:
		bits := l.ByteOrder.Uint32(b)
		f := math.Float32frombits(bits)
		if bits > validMin4 && bits <= 0xFF7FFFFF || math.IsNaN(float64(f)) {
			return 0, false
		}
		return float64(f), true
	}
}
