// Package styles holds the panel's color themes and rendering helpers.
package styles

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// BaseColors defines global UI colors.
type BaseColors struct {
	Background string
	Foreground string
	Muted      string
	Accent     string
	Border     string
}

// PostColors defines colors for post states.
type PostColors struct {
	Own      string
	Other    string
	Mention  string
	Edited   string
	Selected string
	Editing  string
}

// IndicatorColors defines colors for the unread and status indicators.
type IndicatorColors struct {
	Unread  string
	NewPost string
	Error   string
}

// ChromeColors defines non-content UI colors.
type ChromeColors struct {
	Header       string
	Footer       string
	SelectedItem string
	Popup        string
}

// BorderColors defines border colors for pane state.
type BorderColors struct {
	ActivePane   string
	InactivePane string
	Divider      string
}

// CodeColors defines quoted code and diff colors.
type CodeColors struct {
	ChromaStyle string // chroma style name used for syntax highlighting
	Gutter      string
	DiffAdd     string
	DiffRemove  string
	DiffHunk    string
}

// Theme defines the panel style tokens.
type Theme struct {
	Name          string
	BorderStyle   string   // "rounded", "sharp", "double", "hidden"
	AuthorPalette []string // optional override for author identity colors (ANSI-256 codes)

	Base      BaseColors
	Post      PostColors
	Indicator IndicatorColors
	Chrome    ChromeColors
	Borders   BorderColors
	Code      CodeColors
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	"default":       DefaultTheme,
	"high-contrast": HighContrastTheme,
}

// Lookup returns the named theme, or the default theme and false.
func Lookup(name string) (Theme, bool) {
	theme, ok := Themes[name]
	if !ok {
		return DefaultTheme, false
	}
	return theme, true
}

// ThemeNames returns the registered theme names, sorted.
func ThemeNames() []string {
	names := make([]string, 0, len(Themes))
	for name := range Themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t Theme) MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Muted))
}

func (t Theme) AccentStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Accent))
}

func (t Theme) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Indicator.Error)).Bold(true)
}

func (t Theme) HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Chrome.Header)).Bold(true)
}

func (t Theme) FooterStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Chrome.Footer))
}
