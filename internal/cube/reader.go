// Package cube reads pixel data from attached ISIS cubes.
package cube

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/pspoerri/isiscam/internal/pvl"
)

// Reader provides pixel access to an attached ISIS cube.
// The file is memory-mapped for lock-free concurrent access.
type Reader struct {
	data   []byte
	label  *pvl.Label
	layout Layout
	path   string
}

// Open opens a cube by memory-mapping it and parsing its label.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	size := fi.Size()
	if size == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	data, err := mapFile(f, int(size))
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	lbl, err := pvl.Parse(bytes.NewReader(data))
	if err != nil {
		unmapFile(data)
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	layout, err := ParseLayout(lbl)
	if err != nil {
		unmapFile(data)
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if end := layout.StartByte - 1 + layout.DataSize(); end > size {
		unmapFile(data)
		return nil, fmt.Errorf("%s: truncated pixel data (need %d bytes, have %d)", path, end, size)
	}

	return &Reader{data: data, label: lbl, layout: layout, path: path}, nil
}

// Close releases the memory mapping.
func (r *Reader) Close() error {
	if r.data == nil {
		return nil
	}
	err := unmapFile(r.data)
	r.data = nil
	return err
}

// Label returns the parsed cube label.
func (r *Reader) Label() *pvl.Label { return r.label }

// Layout returns the pixel storage layout.
func (r *Reader) Layout() Layout { return r.layout }

// Path returns the file path.
func (r *Reader) Path() string { return r.path }

// Value returns the DN at a 1-based sample, line and band. ok is false for
// special pixels and positions outside the cube.
func (r *Reader) Value(sample, line, band int) (float64, bool) {
	l := &r.layout
	if sample < 1 || sample > l.Samples || line < 1 || line > l.Lines || band < 1 || band > l.Bands {
		return 0, false
	}
	size := int64(l.Type.Size())
	off := l.StartByte - 1 + l.pixelIndex(sample, line, band)*size
	return l.decode(r.data[off : off+size])
}

// ReadBand returns a band in line-major order. Special pixels are NaN.
func (r *Reader) ReadBand(band int) ([]float64, error) {
	l := &r.layout
	if band < 1 || band > l.Bands {
		return nil, fmt.Errorf("%s: band %d out of range [1, %d]", r.path, band, l.Bands)
	}
	out := make([]float64, l.Samples*l.Lines)
	for line := 1; line <= l.Lines; line++ {
		row := out[(line-1)*l.Samples : line*l.Samples]
		for s := range row {
			v, ok := r.Value(s+1, line, band)
			if !ok {
				v = math.NaN()
			}
			row[s] = v
		}
	}
	return out, nil
}
