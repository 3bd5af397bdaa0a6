package metadata

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"testing"
)

func TestExtractJPEGExif(t *testing.T) {
	meta, err := Extract(buildJPEGWithExif())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata, got nil")
	}

	if meta.Make != "TestMake" {
		t.Fatalf("make = %q, want TestMake", meta.Make)
	}
	if meta.Model != "TestCam" {
		t.Fatalf("model = %q, want TestCam", meta.Model)
	}
	if meta.CapturedAt != "2024-01-02 03:04:05" {
		t.Fatalf("captured = %q, want 2024-01-02 03:04:05", meta.CapturedAt)
	}
}

func TestExtractNoMetadata(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})

	var jpegBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	meta, err := Extract(jpegBuf.Bytes())
	if err != nil {
		t.Fatalf("extract jpeg: %v", err)
	}
	if meta != nil {
		t.Fatalf("plain JPEG yielded metadata: %+v", meta)
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	meta, err = Extract(pngBuf.Bytes())
	if err != nil {
		t.Fatalf("extract png: %v", err)
	}
	if meta != nil {
		t.Fatalf("plain PNG yielded metadata: %+v", meta)
	}
}

func TestExtractPNGTextChunks(t *testing.T) {
	meta, err := Extract(buildPNGWithMetadata(t, false))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata, got nil")
	}
	if meta.Model != "TestCam" {
		t.Fatalf("model = %q, want TestCam", meta.Model)
	}
	if meta.CapturedAt != "2024-01-02 03:04:05" {
		t.Fatalf("captured = %q, want 2024-01-02 03:04:05", meta.CapturedAt)
	}
}

func TestExtractPNGITXtChunk(t *testing.T) {
	// iTXt carries compression flag/method, language tag, and translated
	// keyword between the keyword NUL and the text.
	payload := []byte("Camera Model\x00\x00\x00en\x00Kameramodell\x00TestCam")
	meta, err := Extract(buildPNGWithChunks(t, buildPNGChunk("iTXt", payload)))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata, got nil")
	}
	if meta.Model != "TestCam" {
		t.Fatalf("model = %q, want TestCam", meta.Model)
	}
}

func TestExtractPNGITXtCompressedSkipped(t *testing.T) {
	// Compression flag set: the text is a zlib stream, not plain UTF-8.
	payload := []byte("Camera Model\x00\x01\x00en\x00\x00\x78\x9c\x03\x00")
	meta, err := Extract(buildPNGWithChunks(t, buildPNGChunk("iTXt", payload)))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if meta != nil {
		t.Fatalf("compressed iTXt yielded metadata: %+v", meta)
	}
}

func TestSplitITXt(t *testing.T) {
	if key, value, ok := splitITXt([]byte("Date\x00\x00\x00\x00\x002024:01:02 03:04:05")); !ok ||
		key != "Date" || value != "2024:01:02 03:04:05" {
		t.Fatalf("got %q %q %v", key, value, ok)
	}
	if _, _, ok := splitITXt([]byte("Keyword\x00\x00\x00no-terminators")); ok {
		t.Fatal("missing language/translated NULs should fail")
	}
	if _, _, ok := splitITXt([]byte("\x00\x00\x00\x00\x00v")); ok {
		t.Fatal("empty keyword should fail")
	}
}

func TestExtractPNGEmbeddedExif(t *testing.T) {
	meta, err := Extract(buildPNGWithMetadata(t, true))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata, got nil")
	}
	// The eXIf block wins over ad-hoc text chunks.
	if meta.Make != "TestMake" {
		t.Fatalf("make = %q, want TestMake from eXIf", meta.Make)
	}
}

func TestParseGPSCoordinate(t *testing.T) {
	lat, ok := parseGPSCoordinate("[40/1 26/1 4771/100]")
	if !ok {
		t.Fatal("parse failed")
	}
	want := 40.0 + 26.0/60.0 + 47.71/3600.0
	if math.Abs(lat-want) > 1e-9 {
		t.Fatalf("lat = %v, want %v", lat, want)
	}

	if v, ok := parseGPSCoordinate("12.5"); !ok || v != 12.5 {
		t.Fatalf("decimal parse: %v %v", v, ok)
	}
	if _, ok := parseGPSCoordinate(""); ok {
		t.Fatal("empty input should fail")
	}
	if _, ok := parseGPSCoordinate("[1/0]"); ok {
		t.Fatal("zero denominator should fail")
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	if got := normalizeTimestamp("2024:01:02 03:04:05"); got != "2024-01-02 03:04:05" {
		t.Fatalf("got %q", got)
	}
}

func buildJPEGWithExif() []byte {
	exifData := buildExifTIFF()
	exifSeg := append([]byte("Exif\x00\x00"), exifData...)

	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xd8})
	buf.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(exifSeg)+2))
	buf.Write(exifSeg)
	buf.Write([]byte{0xff, 0xd9})
	return buf.Bytes()
}

// buildExifTIFF assembles a little-endian TIFF block with Make, Model, and
// DateTime string entries.
func buildExifTIFF() []byte {
	var tiff bytes.Buffer
	tiff.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8)) // IFD offset

	makeVal := []byte("TestMake\x00")
	modelVal := []byte("TestCam\x00")
	dateVal := []byte("2024:01:02 03:04:05\x00")

	// 8 byte header + 2 byte count + 3 entries * 12 + 4 byte next pointer.
	dataStart := uint32(8 + 2 + 3*12 + 4)

	_ = binary.Write(&tiff, binary.LittleEndian, uint16(3))

	writeEntry := func(tag uint16, count, offset uint32) {
		_ = binary.Write(&tiff, binary.LittleEndian, tag)
		_ = binary.Write(&tiff, binary.LittleEndian, uint16(2)) // ASCII
		_ = binary.Write(&tiff, binary.LittleEndian, count)
		_ = binary.Write(&tiff, binary.LittleEndian, offset)
	}

	writeEntry(0x010f, uint32(len(makeVal)), dataStart)
	writeEntry(0x0110, uint32(len(modelVal)), dataStart+uint32(len(makeVal)))
	writeEntry(0x0132, uint32(len(dateVal)), dataStart+uint32(len(makeVal)+len(modelVal)))

	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0)) // no next IFD

	tiff.Write(makeVal)
	tiff.Write(modelVal)
	tiff.Write(dateVal)
	return tiff.Bytes()
}

func buildPNGWithMetadata(t *testing.T, withExif bool) []byte {
	t.Helper()

	chunks := buildPNGChunk("tEXt", []byte("Model\x00TestCam"))
	chunks = append(chunks, buildPNGChunk("tIME", []byte{0x07, 0xe8, 0x01, 0x02, 0x03, 0x04, 0x05})...)
	if withExif {
		chunks = append(chunks, buildPNGChunk("eXIf", buildExifTIFF())...)
	}
	return buildPNGWithChunks(t, chunks)
}

// buildPNGWithChunks inserts raw chunks into a minimal PNG just before IEND.
func buildPNGWithChunks(t *testing.T, chunks []byte) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	data := buf.Bytes()
	if len(data) < 12 || string(data[len(data)-8:len(data)-4]) != "IEND" {
		t.Fatal("unexpected png layout")
	}

	insertAt := len(data) - 12
	out := append([]byte{}, data[:insertAt]...)
	out = append(out, chunks...)
	out = append(out, data[insertAt:]...)
	return out
}

func buildPNGChunk(chunkType string, data []byte) []byte {
	chunkTypeBytes := []byte(chunkType)
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data)))
	crc := crc32.ChecksumIEEE(append(chunkTypeBytes, data...))
	crcBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(crcBuf, crc)

	chunk := make([]byte, 0, 12+len(data))
	chunk = append(chunk, lenBuf...)
	chunk = append(chunk, chunkTypeBytes...)
	chunk = append(chunk, data...)
	chunk = append(chunk, crcBuf...)
	return chunk
}
