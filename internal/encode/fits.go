package encode

import (
	"bytes"
	"image"
	"image/color"

	"github.com/astrogo/fitsio"
)

// FITSEncoder writes browse images as a single 16-bit FITS primary image.
// Pixels are stored as signed words with BZERO = 32768.
type FITSEncoder struct {
	// Cards are appended to the primary header.
	Cards []fitsio.Card
}

func (e *FITSEncoder) Encode(img image.Image) ([]byte, error) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	var buf bytes.Buffer
	fits, err := fitsio.Create(&buf)
	if err != nil {
		return nil, err
	}
	im := fitsio.NewImage(16, []int{width, height})
	defer im.Close()

	cards := append([]fitsio.Card{
		{Name: "BZERO", Value: 32768},
		{Name: "BSCALE", Value: 1.0},
	}, e.Cards...)
	if err := im.Header().Append(cards...); err != nil {
		return nil, err
	}

	ints := make([]int16, 0, width*height)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			ints = append(ints, int16(int(g.Y)-32768))
		}
	}
	if err := im.Write(ints); err != nil {
		return nil, err
	}
	if err := fits.Write(im); err != nil {
		return nil, err
	}
	if err := fits.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *FITSEncoder) Format() string        { return "fits" }
func (e *FITSEncoder) FileExtension() string { return ".fits" }
