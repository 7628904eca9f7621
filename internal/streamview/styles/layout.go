package styles

import "github.com/charmbracelet/lipgloss"

const (
	// LayoutGap is the space between the stream and thread panes.
	LayoutGap = 1

	// LayoutInnerPadding is the pane content padding.
	LayoutInnerPadding = 0
)

const (
	minStreamWidth = 40
	minThreadWidth = 30
	maxThreadWidth = 60
)

// PaneWidths are the outer widths of the stream and thread panes.
type PaneWidths struct {
	Stream int
	Thread int
}

// ComputePaneWidths splits totalWidth between the stream and an open thread pane.
// The thread pane takes the whole width when both cannot fit.
func ComputePaneWidths(totalWidth int, threadOpen bool) PaneWidths {
	if totalWidth <= 0 {
		return PaneWidths{}
	}
	if !threadOpen {
		return PaneWidths{Stream: totalWidth}
	}
	thread := clampInt(totalWidth*2/5, minThreadWidth, maxThreadWidth)
	stream := totalWidth - thread - LayoutGap
	if stream < minStreamWidth {
		return PaneWidths{Thread: totalWidth}
	}
	return PaneWidths{Stream: stream, Thread: thread}
}

// PanelStyle returns a focused/unfocused border style for panes.
func PanelStyle(theme Theme, focused bool) lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(panelBorderStyle(theme)).
		BorderForeground(lipgloss.Color(panelBorderColor(theme, focused))).
		Padding(LayoutInnerPadding)
}

// DividerStyle returns the divider style between sections.
func DividerStyle(theme Theme) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Borders.Divider))
}

// PopupStyle frames the mention suggestion list.
func PopupStyle(theme Theme) lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(panelBorderStyle(theme)).
		BorderForeground(lipgloss.Color(theme.Borders.ActivePane)).
		Background(lipgloss.Color(theme.Chrome.Popup))
}

func panelBorderColor(theme Theme, focused bool) string {
	if focused {
		return theme.Borders.ActivePane
	}
	return theme.Borders.InactivePane
}

func panelBorderStyle(theme Theme) lipgloss.Border {
	switch theme.BorderStyle {
	case "double":
		return lipgloss.DoubleBorder()
	case "sharp":
		return lipgloss.NormalBorder()
	case "hidden":
		return lipgloss.HiddenBorder()
	default:
		return lipgloss.RoundedBorder()
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
