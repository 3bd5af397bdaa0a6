package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"squish/internal/metadata"
	"squish/internal/tui"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <image>",
	Short: "Report embedded capture metadata without modifying anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		meta, err := metadata.Extract(data)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "%s\n", inspectFileStyle.Render(args[0]))
		if meta.Empty() {
			fmt.Fprintf(os.Stdout, "  %s %s\n",
				inspectBulletStyle.Render("-"),
				inspectDimStyle.Render("no capture metadata"),
			)
			return nil
		}

		for _, row := range metadataRows(meta) {
			fmt.Fprintf(os.Stdout, "  %s %s\n",
				inspectKeyStyle.Render(row.Label+":"),
				inspectValueStyle.Render(row.Value),
			)
		}

		insights := metadata.Insights(meta)
		if len(insights) > 0 {
			fmt.Fprintln(os.Stdout)
			fmt.Fprintf(os.Stdout, "%s\n", inspectKeyStyle.Render("Privacy insights:"))
			lines := make([]string, 0, len(insights))
			for _, insight := range insights {
				lines = append(lines, insight.Message)
			}
			fmt.Fprintln(os.Stdout, tui.RenderInsights(lines))
		}

		return nil
	},
}

func metadataRows(meta *metadata.Metadata) []tui.SummaryRow {
	rows := []tui.SummaryRow{}
	add := func(label, value string) {
		if value != "" {
			rows = append(rows, tui.SummaryRow{Label: label, Value: value})
		}
	}

	add("Make", meta.Make)
	add("Model", meta.Model)
	add("Captured", meta.CapturedAt)
	add("Exposure", meta.ExposureTime)
	if meta.Aperture > 0 {
		add("Aperture", fmt.Sprintf("f/%.1f", meta.Aperture))
	}
	add("ISO", meta.ISO)
	if meta.FocalLength > 0 {
		add("Focal length", fmt.Sprintf("%.1f mm", meta.FocalLength))
	}
	if meta.Latitude != nil && meta.Longitude != nil {
		add("GPS", fmt.Sprintf("%.5f, %.5f", *meta.Latitude, *meta.Longitude))
	}
	return rows
}

var (
	inspectFileStyle   = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	inspectKeyStyle    = lipgloss.NewStyle().Foreground(tui.ColorAccentAlt)
	inspectValueStyle  = lipgloss.NewStyle().Foreground(tui.ColorInk)
	inspectDimStyle    = lipgloss.NewStyle().Foreground(tui.ColorDim)
	inspectBulletStyle = lipgloss.NewStyle().Foreground(tui.ColorDim)
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}
