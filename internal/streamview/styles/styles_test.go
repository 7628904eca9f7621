package styles

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/streampanel/internal/models"
)

func TestLookup(t *testing.T) {
	theme, ok := Lookup("high-contrast")
	require.True(t, ok)
	require.Equal(t, "high-contrast", theme.Name)

	theme, ok = Lookup("neon")
	require.False(t, ok)
	require.Equal(t, "default", theme.Name)

	require.Equal(t, []string{"default", "high-contrast"}, ThemeNames())
}

func TestAuthorColorMapper_Deterministic(t *testing.T) {
	m := NewAuthorColorMapper(nil)
	require.Equal(t, m.ColorCode("alice"), m.ColorCode(" Alice "))
	require.Contains(t, AuthorColorPalette, m.ColorCode("bob"))

	single := NewAuthorColorMapper([]string{"99"})
	require.Equal(t, "99", single.ColorCode("anyone"))
}

func TestContrastingTextColor(t *testing.T) {
	require.Equal(t, "16", contrastingTextColor("231"))
	require.Equal(t, "231", contrastingTextColor("16"))
	require.Equal(t, "231", contrastingTextColor("nope"))
}

func TestComputePaneWidths(t *testing.T) {
	require.Equal(t, PaneWidths{}, ComputePaneWidths(0, true))
	require.Equal(t, PaneWidths{Stream: 120}, ComputePaneWidths(120, false))

	w := ComputePaneWidths(120, true)
	require.Equal(t, 48, w.Thread)
	require.Equal(t, 120-48-LayoutGap, w.Stream)

	require.Equal(t, PaneWidths{Thread: 60}, ComputePaneWidths(60, true))
}

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "3 minutes ago", FormatTimestamp(now.Add(-3*time.Minute), now, true))
	require.Empty(t, FormatTimestamp(time.Time{}, now, false))
	require.NotEmpty(t, FormatTimestamp(now.Add(-48*time.Hour), now, false))
}

func TestRenderReplyCount(t *testing.T) {
	s := NewPostStyles(DefaultTheme, nil)
	require.Empty(t, s.RenderReplyCount(0))
	require.Contains(t, s.RenderReplyCount(1), "1 reply")
	require.Contains(t, s.RenderReplyCount(1200), "1,200 replies")
}

func TestRenderBody_Wraps(t *testing.T) {
	s := NewPostStyles(DefaultTheme, nil)
	out := s.RenderBody("one two three four five six", 10)
	for _, line := range strings.Split(out, "\n") {
		require.LessOrEqual(t, lipgloss.Width(line), 10)
	}
	require.Contains(t, s.RenderBody("hi @alice", 0), "alice")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 10))
	require.Equal(t, "", Truncate("anything", 0))
	out := Truncate("日本語のテキスト", 7)
	require.LessOrEqual(t, lipgloss.Width(out), 7)
	require.True(t, strings.HasSuffix(out, "…"))
}

func TestRenderBlock_LineNumbers(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	s := NewCodeStyles(DefaultTheme)
	out := s.RenderBlock(models.CodeBlock{
		File:  "main.go",
		Code:  "a := 1\nb := 2",
		Range: models.Range{StartLine: 9, EndLine: 10},
	}, 80)
	require.Contains(t, out, "main.go:9-10")
	require.Contains(t, out, " 9 │ ")
	require.Contains(t, out, "10 │ ")
	require.Contains(t, out, "b := 2")
}

func TestHighlightCode_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	require.Equal(t, "x := 1", HighlightCode("x := 1", "a.go", "monokai"))
}

func TestRenderDiff_KeepsLines(t *testing.T) {
	s := NewCodeStyles(DefaultTheme)
	out := s.RenderDiff("--- a\n+++ b\n@@ -1 +1 @@\n-old\n+new\n")
	require.Len(t, strings.Split(out, "\n"), 5)
	require.Contains(t, out, "new")
}
