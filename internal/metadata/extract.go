// Package metadata reads embedded capture metadata (device, exposure, GPS)
// out of source image bytes. It is strictly read-only: the pipeline's output
// is re-serialized from a raster buffer, so nothing extracted here can ever
// reach the output stream.
package metadata

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"squish/pkg/imgutil"
)

// Metadata is the capture information found in a source image. A nil
// *Metadata means no metadata block existed at all.
type Metadata struct {
	Make         string
	Model        string
	CapturedAt   string  // "2024-01-02 03:04:05", timezone unknown
	ExposureTime string  // raw rational, e.g. "1/250"
	Aperture     float64 // f-number, 0 when absent
	ISO          string
	FocalLength  float64 // millimeters, 0 when absent
	Latitude     *float64
	Longitude    *float64
	HasSerial    bool
}

// Empty reports whether nothing at all was extracted.
func (m *Metadata) Empty() bool {
	return m == nil || (m.Make == "" && m.Model == "" && m.CapturedAt == "" &&
		m.ExposureTime == "" && m.Aperture == 0 && m.ISO == "" &&
		m.FocalLength == 0 && m.Latitude == nil && !m.HasSerial)
}

// Extract parses capture metadata from raw image bytes. Images without any
// metadata block yield (nil, nil).
func Extract(data []byte) (*Metadata, error) {
	kind, err := imgutil.Sniff(data)
	if err != nil {
		return nil, err
	}

	switch kind {
	case imgutil.KindJPEG, imgutil.KindTIFF:
		return fromExif(bytes.NewReader(data))
	case imgutil.KindPNG:
		return fromPNG(bytes.NewReader(data))
	default:
		return nil, nil
	}
}

func fromExif(rs io.ReadSeeker) (*Metadata, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	// Locate the EXIF blob inside the container first; the flat-data call
	// expects a TIFF header at offset zero, not a JPEG/APP1 wrapping.
	raw, err := exif.SearchAndExtractExifWithReader(rs)
	if err != nil {
		if isNoExif(err) {
			return nil, nil
		}
		return nil, err
	}

	tags, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		if isNoExif(err) {
			return nil, nil
		}
		return nil, err
	}

	return fromTags(tags), nil
}

func fromTags(tags []exif.ExifTag) *Metadata {
	meta := &Metadata{}
	var latRaw, lonRaw, latRef, lonRef string

	for _, tag := range tags {
		switch tag.TagName {
		case "Make":
			meta.Make = strings.TrimSpace(tag.FormattedFirst)
		case "Model", "CameraModelName":
			if meta.Model == "" {
				meta.Model = strings.TrimSpace(tag.FormattedFirst)
			}
		case "DateTimeOriginal":
			meta.CapturedAt = normalizeTimestamp(tag.FormattedFirst)
		case "DateTimeDigitized", "DateTime":
			if meta.CapturedAt == "" {
				meta.CapturedAt = normalizeTimestamp(tag.FormattedFirst)
			}
		case "ExposureTime":
			meta.ExposureTime = strings.TrimSpace(tag.FormattedFirst)
		case "FNumber":
			if v, ok := parseRational(tag.FormattedFirst); ok {
				meta.Aperture = v
			}
		case "ISOSpeedRatings", "PhotographicSensitivity":
			if meta.ISO == "" {
				meta.ISO = strings.TrimSpace(tag.FormattedFirst)
			}
		case "FocalLength":
			if v, ok := parseRational(tag.FormattedFirst); ok {
				meta.FocalLength = v
			}
		case "GPSLatitude":
			latRaw = tag.Formatted
		case "GPSLongitude":
			lonRaw = tag.Formatted
		case "GPSLatitudeRef":
			latRef = strings.TrimSpace(tag.FormattedFirst)
		case "GPSLongitudeRef":
			lonRef = strings.TrimSpace(tag.FormattedFirst)
		}

		if strings.Contains(strings.ToLower(tag.TagName), "serial") {
			meta.HasSerial = true
		}
	}

	if lat, okLat := parseGPSCoordinate(latRaw); okLat {
		if lon, okLon := parseGPSCoordinate(lonRaw); okLon {
			if latRef == "S" {
				lat = -lat
			}
			if lonRef == "W" {
				lon = -lon
			}
			meta.Latitude = &lat
			meta.Longitude = &lon
		}
	}

	if meta.Empty() {
		return nil
	}
	return meta
}

func isNoExif(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "no exif")
}

// normalizeTimestamp converts EXIF "2024:01:02 03:04:05" date separators to
// dashes, leaving the time part alone.
func normalizeTimestamp(ts string) string {
	ts = strings.TrimSpace(ts)
	out := ts
	for i := 0; i < 2; i++ {
		if idx := strings.Index(out, ":"); idx >= 0 {
			out = out[:idx] + "-" + out[idx+1:]
		}
	}
	return out
}

// parseGPSCoordinate decodes a degrees/minutes/seconds rational list such as
// "[40/1 26/1 4771/100]" into decimal degrees.
func parseGPSCoordinate(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return 0, false
	}

	if len(parts) == 1 && !strings.Contains(parts[0], "/") {
		if v, err := strconv.ParseFloat(parts[0], 64); err == nil {
			return v, true
		}
	}

	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		value, ok := parseRational(part)
		if !ok {
			return 0, false
		}
		values = append(values, value)
	}

	switch len(values) {
	case 3:
		return values[0] + values[1]/60.0 + values[2]/3600.0, true
	case 2:
		return values[0] + values[1]/60.0, true
	default:
		return values[0], true
	}
}

func parseRational(part string) (float64, bool) {
	part = strings.TrimSpace(part)
	if part == "" {
		return 0, false
	}
	if strings.Contains(part, "/") {
		items := strings.SplitN(part, "/", 2)
		if len(items) != 2 {
			return 0, false
		}
		num, err := strconv.ParseFloat(items[0], 64)
		if err != nil {
			return 0, false
		}
		den, err := strconv.ParseFloat(items[1], 64)
		if err != nil || den == 0 {
			return 0, false
		}
		return num / den, true
	}

	value, err := strconv.ParseFloat(part, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
