// Package encode writes cube bands as browse images.
package encode

import (
	"fmt"
	"image"
)

// Encoder encodes a browse image into file bytes.
type Encoder interface {
	// Encode encodes an image to bytes in the output format.
	Encode(img image.Image) ([]byte, error)

	// Format returns the format name (e.g. "jpeg", "png", "webp", "fits").
	Format() string

	// FileExtension returns the appropriate file extension.
	FileExtension() string
}

// NewEncoder creates an encoder for the given format and quality.
// Quality only applies to the lossy formats.
func NewEncoder(format string, quality int) (Encoder, error) {
	switch format {
	case "jpeg", "jpg":
		return &JPEGEncoder{Quality: quality}, nil
	case "png":
		return &PNGEncoder{}, nil
	case "webp":
		return newWebPEncoder(quality)
	case "fits", "fit":
		return &FITSEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported browse format: %q (supported: jpeg, png, webp, fits)", format)
	}
}
