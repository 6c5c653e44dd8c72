package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Theme represents a color theme for the chat TUI
type Theme struct {
	Name string

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Accent    lipgloss.AdaptiveColor

	Success lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor

	Border lipgloss.AdaptiveColor
	Muted  lipgloss.AdaptiveColor

	// Picked colors the selected title and its score
	Picked lipgloss.AdaptiveColor
}

func adaptive(pair [2]string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: pair[0], Dark: pair[1]}
}

// buildTheme creates a theme from light/dark color pairs
func buildTheme(name string, primary, secondary, accent, success, warning, errorColor, border, muted, picked [2]string) Theme {
	return Theme{
		Name:      name,
		Primary:   adaptive(primary),
		Secondary: adaptive(secondary),
		Accent:    adaptive(accent),
		Success:   adaptive(success),
		Warning:   adaptive(warning),
		Error:     adaptive(errorColor),
		Border:    adaptive(border),
		Muted:     adaptive(muted),
		Picked:    adaptive(picked),
	}
}

// Available themes
var (
	DefaultTheme = buildTheme("default",
		[2]string{"#1E40AF", "#3B82F6"}, [2]string{"#6B7280", "#9CA3AF"}, [2]string{"#7C3AED", "#A855F7"},
		[2]string{"#059669", "#10B981"}, [2]string{"#D97706", "#F59E0B"}, [2]string{"#DC2626", "#EF4444"},
		[2]string{"#D1D5DB", "#374151"}, [2]string{"#6B7280", "#9CA3AF"}, [2]string{"#B45309", "#FBBF24"})

	HighContrastTheme = buildTheme("high-contrast",
		[2]string{"#000000", "#FFFFFF"}, [2]string{"#666666", "#BBBBBB"}, [2]string{"#000080", "#8080FF"},
		[2]string{"#006600", "#00FF00"}, [2]string{"#CC6600", "#FFAA00"}, [2]string{"#CC0000", "#FF4444"},
		[2]string{"#000000", "#FFFFFF"}, [2]string{"#666666", "#BBBBBB"}, [2]string{"#800080", "#FFFF00"})

	MinimalTheme = buildTheme("minimal",
		[2]string{"#2D3748", "#E2E8F0"}, [2]string{"#718096", "#A0AEC0"}, [2]string{"#4A5568", "#CBD5E0"},
		[2]string{"#2F855A", "#68D391"}, [2]string{"#C05621", "#F6AD55"}, [2]string{"#C53030", "#FC8181"},
		[2]string{"#E2E8F0", "#2D3748"}, [2]string{"#A0AEC0", "#718096"}, [2]string{"#553C9A", "#B794F6"})
)

// ThemeByName returns a theme and whether the name was known
func ThemeByName(name string) (Theme, bool) {
	switch name {
	case "", "default":
		return DefaultTheme, true
	case "high-contrast":
		return HighContrastTheme, true
	case "minimal":
		return MinimalTheme, true
	default:
		return DefaultTheme, false
	}
}

// GetAvailableThemes returns list of available theme names
func GetAvailableThemes() []string {
	return []string{"default", "high-contrast", "minimal"}
}

// IsColorDisabled checks if colors should be disabled
func IsColorDisabled() bool {
	return os.Getenv("NO_COLOR") != ""
}

// Styles contains the styled components of the chat view
type Styles struct {
	Theme Theme

	Title  lipgloss.Style
	Header lipgloss.Style
	Body   lipgloss.Style
	Muted  lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	User      lipgloss.Style
	Librarian lipgloss.Style
	Picked    lipgloss.Style

	Box   lipgloss.Style
	Input lipgloss.Style
}

// NewStyles builds styles for theme. With color disabled every style
// renders plain text.
func NewStyles(theme Theme, color bool) *Styles {
	if !color || IsColorDisabled() {
		plain := lipgloss.NewStyle()
		return &Styles{
			Theme: theme, Title: plain, Header: plain, Body: plain, Muted: plain,
			Success: plain, Warning: plain, Error: plain,
			User: plain, Librarian: plain, Picked: plain,
			Box:   lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
			Input: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
		}
	}

	return &Styles{
		Theme: theme,

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			Padding(0, 1),

		Header: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Body: lipgloss.NewStyle(),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Success: lipgloss.NewStyle().
			Foreground(theme.Success).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(theme.Warning).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(theme.Error).
			Bold(true),

		User: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Librarian: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Picked: lipgloss.NewStyle().
			Foreground(theme.Picked).
			Bold(true),

		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Primary).
			Padding(0, 1),
	}
}
