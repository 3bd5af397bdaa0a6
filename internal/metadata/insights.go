package metadata

import (
	"fmt"
	"strings"
)

// Insight is a human-readable privacy observation derived from extracted
// metadata.
type Insight struct {
	Kind    string
	Message string
}

// Insights expands metadata into the privacy observations the CLI reports.
func Insights(meta *Metadata) []Insight {
	if meta.Empty() {
		return nil
	}

	insights := []Insight{}

	if meta.Latitude != nil && meta.Longitude != nil {
		insights = append(insights, Insight{
			Kind:    "Location",
			Message: fmt.Sprintf("Approx location: %.5f, %.5f", *meta.Latitude, *meta.Longitude),
		})
		insights = append(insights, Insight{
			Kind:    "Location",
			Message: "Exact coordinates can reveal home, workplace, or travel patterns.",
		})
	}

	if device := deviceLine(meta); device != "" {
		insights = append(insights, Insight{Kind: "Device", Message: device})
	}

	if meta.CapturedAt != "" {
		insights = append(insights, Insight{
			Kind:    "Timeline",
			Message: fmt.Sprintf("Captured: %s (timezone unknown)", meta.CapturedAt),
		})
		insights = append(insights, Insight{
			Kind:    "Timeline",
			Message: "Capture timestamps can expose routines and time zones.",
		})
	}

	if meta.HasSerial {
		insights = append(insights, Insight{
			Kind:    "Identifier",
			Message: "Unique device identifiers (serial numbers) are present.",
		})
	}

	return insights
}

func deviceLine(meta *Metadata) string {
	device := strings.TrimSpace(strings.Join([]string{meta.Make, meta.Model}, " "))
	if device == "" {
		return ""
	}

	msg := fmt.Sprintf("Device: %s", device)
	if deviceType := inferDeviceType(strings.ToLower(device)); deviceType != "" {
		msg += fmt.Sprintf(" (%s)", deviceType)
	}
	return msg
}

func inferDeviceType(device string) string {
	switch {
	case strings.Contains(device, "iphone"),
		strings.Contains(device, "pixel"),
		strings.Contains(device, "galaxy"),
		strings.Contains(device, "android"):
		return "smartphone"
	case strings.Contains(device, "ipad"),
		strings.Contains(device, "tablet"):
		return "tablet"
	case strings.Contains(device, "gopro"):
		return "action camera"
	case strings.Contains(device, "dji"):
		return "drone"
	case strings.Contains(device, "canon"),
		strings.Contains(device, "nikon"),
		strings.Contains(device, "sony"),
		strings.Contains(device, "fujifilm"),
		strings.Contains(device, "panasonic"),
		strings.Contains(device, "olympus"),
		strings.Contains(device, "leica"):
		return "camera"
	default:
		return ""
	}
}
