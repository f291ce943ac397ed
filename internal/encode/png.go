package encode

import (
	"bytes"
	"image"
	"image/png"
)

// PNGEncoder writes browse images as PNG. Gray images stay single-channel.
type PNGEncoder struct {
	// Compression defaults to png.DefaultCompression; browse files are
	// written once and served many times.
	Compression png.CompressionLevel
}

func (e *PNGEncoder) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := &png.Encoder{CompressionLevel: e.Compression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *PNGEncoder) Format() string        { return "png" }
func (e *PNGEncoder) FileExtension() string { return ".png" }
