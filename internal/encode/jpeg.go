package encode

import (
	"bytes"
	"image"
	"image/draw"
	"image/jpeg"
)

// JPEGEncoder writes browse images as baseline JPEG.
type JPEGEncoder struct {
	Quality int // clamped to 1-100; 0 means 85
}

func (e *JPEGEncoder) Encode(img image.Image) ([]byte, error) {
	q := e.Quality
	switch {
	case q <= 0:
		q = 85
	case q > 100:
		q = 100
	}
	// 16-bit gray would otherwise be encoded as three-channel YCbCr.
	if g, ok := img.(*image.Gray16); ok {
		img = toGray(g)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *JPEGEncoder) Format() string        { return "jpeg" }
func (e *JPEGEncoder) FileExtension() string { return ".jpg" }

func toGray(src image.Image) *image.Gray {
	dst := image.NewGray(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}
