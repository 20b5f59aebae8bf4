package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
)

// HeaderStyle is used for report titles.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// ColumnStyle is used for table column headings.
var ColumnStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGray)

// RuleStyle renders separator lines.
var RuleStyle = lipgloss.NewStyle().
	Foreground(ColorSubtle)

// UrgencyStyle returns a color-coded style for an urgency score.
func UrgencyStyle(score int) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch {
	case score >= 76:
		return style.Foreground(ColorRed)
	case score >= 51:
		return style.Foreground(ColorOrange)
	case score >= 26:
		return style.Foreground(ColorYellow)
	default:
		return style.Foreground(ColorGreen)
	}
}
