package metadata

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// fromPNG walks the PNG chunk stream for capture metadata: tEXt/iTXt
// key-value pairs, the tIME chunk, and an embedded eXIf block (which, when
// present, is parsed like any other EXIF payload and wins over the ad-hoc
// text chunks).
func fromPNG(rs io.ReadSeeker) (*Metadata, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	br := bufio.NewReader(rs)

	sig := make([]byte, 8)
	if _, err := io.ReadFull(br, sig); err != nil {
		return nil, err
	}
	if !bytes.Equal(sig, pngSignature) {
		return nil, errors.New("invalid PNG signature")
	}

	meta := &Metadata{}
	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(br, lenBuf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, err
		}
		length := binary.BigEndian.Uint32(lenBuf)

		chunkType := make([]byte, 4)
		if _, err := io.ReadFull(br, chunkType); err != nil {
			return nil, err
		}
		chunkName := string(chunkType)

		switch chunkName {
		case "tEXt":
			data := make([]byte, length)
			if _, err := io.ReadFull(br, data); err != nil {
				return nil, err
			}
			if _, err := io.CopyN(io.Discard, br, 4); err != nil {
				return nil, err
			}
			applyTextChunk(meta, data)
		case "iTXt":
			data := make([]byte, length)
			if _, err := io.ReadFull(br, data); err != nil {
				return nil, err
			}
			if _, err := io.CopyN(io.Discard, br, 4); err != nil {
				return nil, err
			}
			if key, value, ok := splitITXt(data); ok {
				applyTextPair(meta, key, value)
			}
		case "tIME":
			data := make([]byte, length)
			if _, err := io.ReadFull(br, data); err != nil {
				return nil, err
			}
			if _, err := io.CopyN(io.Discard, br, 4); err != nil {
				return nil, err
			}
			if meta.CapturedAt == "" && len(data) == 7 {
				meta.CapturedAt = formatPNGTime(data)
			}
		case "eXIf":
			data := make([]byte, length)
			if _, err := io.ReadFull(br, data); err != nil {
				return nil, err
			}
			if _, err := io.CopyN(io.Discard, br, 4); err != nil {
				return nil, err
			}
			if exifMeta, err := fromExif(bytes.NewReader(data)); err == nil && exifMeta != nil {
				return exifMeta, nil
			}
		default:
			if _, err := io.CopyN(io.Discard, br, int64(length)+4); err != nil {
				return nil, err
			}
		}

		if chunkName == "IEND" {
			break
		}
	}

	if meta.Empty() {
		return nil, nil
	}
	return meta, nil
}

// applyTextChunk maps a tEXt key-value pair onto metadata fields.
func applyTextChunk(meta *Metadata, data []byte) {
	idx := bytes.IndexByte(data, 0)
	if idx <= 0 {
		return
	}
	applyTextPair(meta, string(data[:idx]), strings.TrimSpace(string(data[idx+1:])))
}

// splitITXt pulls the keyword and text out of an iTXt payload. After the
// keyword NUL the chunk carries a compression flag, a compression method,
// a NUL-terminated language tag, and a NUL-terminated translated keyword
// before the text itself. Compressed payloads are skipped.
func splitITXt(data []byte) (key, value string, ok bool) {
	idx := bytes.IndexByte(data, 0)
	if idx <= 0 || idx+2 >= len(data) {
		return "", "", false
	}
	key = string(data[:idx])
	if data[idx+1] != 0 { // compression flag
		return "", "", false
	}
	rest := data[idx+3:]

	langEnd := bytes.IndexByte(rest, 0)
	if langEnd < 0 {
		return "", "", false
	}
	rest = rest[langEnd+1:]

	transEnd := bytes.IndexByte(rest, 0)
	if transEnd < 0 {
		return "", "", false
	}
	return key, strings.TrimSpace(string(rest[transEnd+1:])), true
}

func applyTextPair(meta *Metadata, key, value string) {
	if value == "" {
		return
	}

	lower := strings.ToLower(key)
	switch {
	case strings.Contains(lower, "model"):
		if meta.Model == "" {
			meta.Model = value
		}
	case strings.Contains(lower, "make"):
		if meta.Make == "" {
			meta.Make = value
		}
	case strings.Contains(lower, "date"), strings.Contains(lower, "time"):
		if meta.CapturedAt == "" {
			meta.CapturedAt = normalizeTimestamp(value)
		}
	case strings.Contains(lower, "serial"):
		meta.HasSerial = true
	}
}

func formatPNGTime(data []byte) string {
	year := int(binary.BigEndian.Uint16(data[:2]))
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
		year, data[2], data[3], data[4], data[5], data[6])
}
