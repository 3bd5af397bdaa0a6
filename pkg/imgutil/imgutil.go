package imgutil

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
)

// Kind identifies a supported image type.
type Kind int

const (
	KindUnknown Kind = iota
	KindJPEG
	KindPNG
	KindGIF
	KindTIFF
)

func (k Kind) String() string {
	switch k {
	case KindJPEG:
		return "jpeg"
	case KindPNG:
		return "png"
	case KindGIF:
		return "gif"
	case KindTIFF:
		return "tiff"
	default:
		return "unknown"
	}
}

var (
	pngSig    = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	jpegSig   = []byte{0xff, 0xd8, 0xff}
	gifSig    = []byte("GIF8")
	tiffSigLE = []byte{0x49, 0x49, 0x2a, 0x00}
	tiffSigBE = []byte{0x4d, 0x4d, 0x00, 0x2a}
)

// DetectHeader inspects the first 8 bytes of a buffer for known signatures.
func DetectHeader(header []byte) (Kind, error) {
	if len(header) < 8 {
		return KindUnknown, errors.New("header too short")
	}

	switch {
	case bytes.HasPrefix(header, jpegSig):
		return KindJPEG, nil
	case bytes.HasPrefix(header, pngSig):
		return KindPNG, nil
	case bytes.HasPrefix(header, gifSig):
		return KindGIF, nil
	case bytes.HasPrefix(header, tiffSigLE), bytes.HasPrefix(header, tiffSigBE):
		return KindTIFF, nil
	default:
		return KindUnknown, nil
	}
}

// Sniff determines the type of an in-memory image.
func Sniff(data []byte) (Kind, error) {
	if len(data) < 8 {
		return KindUnknown, errors.New("header too short")
	}
	return DetectHeader(data[:8])
}

// SniffReader reads the first 8 bytes from r and determines its type.
func SniffReader(r io.Reader) (Kind, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return KindUnknown, err
	}
	return DetectHeader(header)
}

// Decode decodes an in-memory image into an NRGBA buffer. It also reports
// the detected container kind and whether any pixel carries a non-opaque
// alpha value.
func Decode(data []byte) (*image.NRGBA, Kind, bool, error) {
	kind, err := Sniff(data)
	if err != nil {
		return nil, KindUnknown, false, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, kind, false, err
	}

	nrgba := ToNRGBA(img)
	return nrgba, kind, HasAlpha(nrgba), nil
}

// ToNRGBA converts any decoded image to an NRGBA buffer anchored at (0,0).
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}

	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x-b.Min.X, y-b.Min.Y, img.At(x, y))
		}
	}
	return out
}

// HasAlpha reports whether any pixel in the buffer is not fully opaque.
func HasAlpha(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff {
			return true
		}
	}
	return false
}
