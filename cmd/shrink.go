package cmd

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"squish/internal/metadata"
	"squish/internal/pipeline"
	"squish/internal/redact"
	"squish/internal/tui"
)

var (
	shrinkOutput    string
	shrinkQuality   int
	shrinkMaxWidth  int
	shrinkColors    int
	shrinkDither    bool
	shrinkBlurFaces bool
	shrinkFaceBoxes []string
	shrinkRotate    int
	shrinkCrop      string
	shrinkBlurPower float64
)

var shrinkDoneStyle = lipgloss.NewStyle().Foreground(tui.ColorSuccess)

var shrinkCmd = &cobra.Command{
	Use:   "shrink [flags] <image>",
	Short: "Shrink an image and strip its metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		boxes, err := parseFaceBoxes(shrinkFaceBoxes)
		if err != nil {
			return err
		}
		crop, err := parseCrop(shrinkCrop)
		if err != nil {
			return err
		}

		var detector redact.Detector = redact.Unavailable{}
		if len(boxes) > 0 {
			detector = redact.Static{Boxes: boxes}
		}

		events := make(chan pipeline.ProgressEvent, 64)
		outcomes := make(chan pipeline.Outcome, 1)
		orch := pipeline.New(detector, events, outcomes,
			pipeline.WithBlurStrength(shrinkBlurPower))

		if _, err := orch.SetSource(data); err != nil {
			return err
		}

		model := tui.NewModel(events)
		program := tea.NewProgram(model)

		uiDone := make(chan struct{})
		go func() {
			_, _ = program.Run()
			close(uiDone)
		}()

		opts := pipeline.ProcessingOptions{
			Quality:        shrinkQuality,
			MaxWidth:       shrinkMaxWidth,
			ApplyDithering: shrinkDither,
			ColorCount:     shrinkColors,
			ApplyFaceBlur:  shrinkBlurFaces,
			Rotation:       shrinkRotate,
			Crop:           crop,
		}

		if err := orch.Request(context.Background(), opts, pipeline.TriggerImmediate); err != nil {
			close(events)
			<-uiDone
			return err
		}

		outcome := <-outcomes
		close(events)
		<-uiDone
		if outcome.Err != nil {
			return outcome.Err
		}
		result := outcome.Result

		outPath := shrinkOutput
		if outPath == "" {
			outPath = defaultOutputPath(args[0], result.Format.String())
		}
		if err := os.WriteFile(outPath, result.Data, 0o644); err != nil {
			return err
		}

		rows := []tui.SummaryRow{
			{Label: "Output", Value: outPath},
			{Label: "Dimensions", Value: fmt.Sprintf("%dx%d -> %dx%d",
				result.Source.Width, result.Source.Height,
				result.Output.Width, result.Output.Height)},
			{Label: "Size (bytes)", Value: fmt.Sprintf("%d -> %d", result.Source.SizeBytes, result.Output.SizeBytes)},
			{Label: "Space saved", Value: fmt.Sprintf("%.1f%%", result.CompressionRatio()*100)},
		}
		fmt.Fprintln(os.Stdout, tui.RenderSummary(rows))
		fmt.Fprintln(os.Stdout, shrinkDoneStyle.Render("✓ squished"))

		if !result.Meta.Empty() {
			fmt.Fprintln(os.Stdout, "Scrubbed from the source (not present in the output):")
			lines := []string{}
			for _, insight := range metadata.Insights(result.Meta) {
				lines = append(lines, insight.Message)
			}
			fmt.Fprintln(os.Stdout, tui.RenderInsights(lines))
		}

		return nil
	},
}

func defaultOutputPath(input, format string) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	return base + "-squished." + format
}

func parseFaceBoxes(specs []string) ([]redact.Box, error) {
	boxes := make([]redact.Box, 0, len(specs))
	for _, spec := range specs {
		vals, err := parseInts(spec, 4)
		if err != nil {
			return nil, fmt.Errorf("invalid --face-box %q: %w", spec, err)
		}
		boxes = append(boxes, redact.Box{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]})
	}
	return boxes, nil
}

func parseCrop(spec string) (*image.Rectangle, error) {
	if spec == "" {
		return nil, nil
	}
	vals, err := parseInts(spec, 4)
	if err != nil {
		return nil, fmt.Errorf("invalid --crop %q: %w", spec, err)
	}
	rect := image.Rect(vals[0], vals[1], vals[0]+vals[2], vals[1]+vals[3])
	return &rect, nil
}

func parseInts(spec string, n int) ([]int, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma-separated integers", n)
	}
	vals := make([]int, n)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func init() {
	shrinkCmd.Flags().StringVarP(&shrinkOutput, "output", "o", "", "output file path")
	shrinkCmd.Flags().IntVarP(&shrinkQuality, "quality", "q", 75, "output quality, 0-100")
	shrinkCmd.Flags().IntVarP(&shrinkMaxWidth, "max-width", "w", 1920, "downscale target width (never upscales)")
	shrinkCmd.Flags().IntVarP(&shrinkColors, "colors", "c", 8, "palette size for dithering, 2-32")
	shrinkCmd.Flags().BoolVar(&shrinkDither, "dither", false, "quantize colors with error-diffusion dithering")
	shrinkCmd.Flags().BoolVar(&shrinkBlurFaces, "blur-faces", false, "blur face regions given with --face-box")
	shrinkCmd.Flags().StringArrayVar(&shrinkFaceBoxes, "face-box", nil, "face box as x,y,w,h (repeatable)")
	shrinkCmd.Flags().Float64Var(&shrinkBlurPower, "blur-strength", 1.0, "face blur intensity multiplier")
	shrinkCmd.Flags().IntVar(&shrinkRotate, "rotate", 0, "clockwise rotation: 0, 90, 180, or 270")
	shrinkCmd.Flags().StringVar(&shrinkCrop, "crop", "", "crop rectangle as x,y,w,h (after rotation)")

	rootCmd.AddCommand(shrinkCmd)
}
