package tui

import "github.com/charmbracelet/lipgloss"

// Shared terminal palette. Teal accents over a warm off-white, with amber
// reserved for privacy warnings.
var (
	ColorInk       = lipgloss.Color("#F2EFE9")
	ColorDim       = lipgloss.Color("#8C8A85")
	ColorAccent    = lipgloss.Color("#2DD4BF")
	ColorAccentAlt = lipgloss.Color("#5EEAD4")
	ColorSuccess   = lipgloss.Color("#84CC16")
	ColorWarn      = lipgloss.Color("#F59E0B")
)
