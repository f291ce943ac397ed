package encode

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/pspoerri/isiscam/internal/cube"
)

// Band is a source of cube bands. *cube.Reader implements it.
type Band interface {
	Layout() cube.Layout
	ReadBand(band int) ([]float64, error)
}

// Stretch limits, as percentiles of the valid pixels.
const (
	stretchLow  = 0.005
	stretchHigh = 0.995
)

// Browse renders one band as an 8-bit image at most maxDim pixels on the long
// axis. Source pixels are box-averaged, then linearly stretched between the
// 0.5% and 99.5% percentiles into [1, 255]. Pixels with no valid source
// are 0. maxDim <= 0 keeps full resolution.
func Browse(r Band, band, maxDim int) (*image.Gray, error) {
	l := r.Layout()
	px, err := r.ReadBand(band)
	if err != nil {
		return nil, err
	}
	if len(px) != l.Samples*l.Lines {
		return nil, fmt.Errorf("browse: band has %d pixels, want %d", len(px), l.Samples*l.Lines)
	}

	factor := 1
	if long := max(l.Samples, l.Lines); maxDim > 0 && long > maxDim {
		factor = (long + maxDim - 1) / maxDim
	}
	w := (l.Samples + factor - 1) / factor
	h := (l.Lines + factor - 1) / factor

	box := decimate(px, l.Samples, l.Lines, factor, w, h)
	lo, hi := percentiles(box)

	img := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range box {
		if math.IsNaN(v) {
			continue
		}
		img.Pix[i] = stretch(v, lo, hi)
	}
	return img, nil
}

// decimate box-averages px into a w x h grid, skipping NaN.
func decimate(px []float64, samples, lines, factor, w, h int) []float64 {
	out := make([]float64, w*h)
	if factor == 1 {
		copy(out, px)
		return out
	}
	for oy := 0; oy < h; oy++ {
		for ox := 0; ox < w; ox++ {
			var sum float64
			var n int
			for y := oy * factor; y < min((oy+1)*factor, lines); y++ {
				row := px[y*samples : (y+1)*samples]
				for x := ox * factor; x < min((ox+1)*factor, samples); x++ {
					if v := row[x]; !math.IsNaN(v) {
						sum += v
						n++
					}
				}
			}
			if n == 0 {
				out[oy*w+ox] = math.NaN()
			} else {
				out[oy*w+ox] = sum / float64(n)
			}
		}
	}
	return out
}

// percentiles returns the stretch limits of the non-NaN values.
func percentiles(vals []float64) (lo, hi float64) {
	valid := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return 0, 0
	}
	sort.Float64s(valid)
	n := float64(len(valid) - 1)
	return valid[int(math.Round(stretchLow*n))], valid[int(math.Round(stretchHigh*n))]
}

func stretch(v, lo, hi float64) uint8 {
	if hi <= lo {
		return 128
	}
	t := (v - lo) / (hi - lo)
	t = math.Max(0, math.Min(1, t))
	return uint8(1 + math.Round(t*254))
}
