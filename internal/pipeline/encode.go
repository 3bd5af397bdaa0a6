package pipeline

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	"squish/pkg/imgutil"
)

// encodeBuffer serializes the final raster buffer. Opaque images encode as
// JPEG at the requested quality; images with transparency encode as PNG so
// the alpha channel survives, with the compression level stepped from
// quality. Both paths are deterministic for a fixed buffer and quality.
// The output stream is built from pixels alone, so no source metadata can
// leak into it.
func encodeBuffer(img *image.NRGBA, quality int, hasAlpha bool) ([]byte, imgutil.Kind, error) {
	var buf bytes.Buffer

	if hasAlpha {
		enc := png.Encoder{CompressionLevel: pngLevel(quality)}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, imgutil.KindPNG, err
		}
		return buf.Bytes(), imgutil.KindPNG, nil
	}

	q := quality
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		return nil, imgutil.KindJPEG, err
	}
	return buf.Bytes(), imgutil.KindJPEG, nil
}

func pngLevel(quality int) png.CompressionLevel {
	if quality < 50 {
		return png.BestCompression
	}
	return png.DefaultCompression
}
