package encode

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/astrogo/fitsio"
	"github.com/gen2brain/webp"
)

// DecodeImage decodes browse bytes in the specified format. FITS data is
// returned as *image.Gray16.
func DecodeImage(data []byte, format string) (image.Image, error) {
	r := bytes.NewReader(data)
	switch format {
	case "png":
		return png.Decode(r)
	case "jpeg", "jpg":
		return jpeg.Decode(r)
	case "webp":
		return webp.Decode(r)
	case "fits", "fit":
		return decodeFITS(data)
	default:
		return nil, fmt.Errorf("unsupported decode format: %q", format)
	}
}

func decodeFITS(data []byte) (image.Image, error) {
	f, err := fitsio.Open(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("fits: %w", err)
	}
	defer f.Close()

	hdu, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("fits: primary HDU is not an image")
	}
	axes := hdu.Header().Axes()
	if len(axes) != 2 || hdu.Header().Bitpix() != 16 {
		return nil, fmt.Errorf("fits: want a 2-D 16-bit image, got BITPIX=%d axes %v", hdu.Header().Bitpix(), axes)
	}
	pix := make([]int16, axes[0]*axes[1])
	if err := hdu.Read(&pix); err != nil {
		return nil, fmt.Errorf("fits: %w", err)
	}

	var zero int
	if c := hdu.Header().Get("BZERO"); c != nil {
		switch v := c.Value.(type) {
		case int:
			zero = v
		case int64:
			zero = int(v)
		case float64:
			zero = int(v)
		}
	}
	img := image.NewGray16(image.Rect(0, 0, axes[0], axes[1]))
	for i, v := range pix {
		img.Pix[2*i] = uint8(uint16(int(v)+zero) >> 8)
		img.Pix[2*i+1] = uint8(uint16(int(v) + zero))
	}
	return img, nil
}
