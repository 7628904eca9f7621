package styles

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/streampanel/internal/models"
)

// HighlightCode applies syntax highlighting chosen from the file name.
// The input is returned unchanged when highlighting is unavailable.
func HighlightCode(code, filename, styleName string) string {
	if code == "" || os.Getenv("NO_COLOR") != "" {
		return code
	}
	lexer := lexers.Match(filename)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromastyles.Get(styleName)
	if style == nil {
		style = chromastyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

// CodeStyles renders quoted code blocks and diffs.
type CodeStyles struct {
	Theme    Theme
	Location lipgloss.Style
	Gutter   lipgloss.Style
	Action   lipgloss.Style
	Add      lipgloss.Style
	Remove   lipgloss.Style
	Hunk     lipgloss.Style
}

func NewCodeStyles(theme Theme) CodeStyles {
	return CodeStyles{
		Theme:    theme,
		Location: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Accent)).Underline(true),
		Gutter:   lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Code.Gutter)),
		Action:   lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Chrome.SelectedItem)).Bold(true),
		Add:      lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Code.DiffAdd)),
		Remove:   lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Code.DiffRemove)),
		Hunk:     lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Code.DiffHunk)),
	}
}

// RenderBlock renders the block location followed by highlighted code with
// line numbers starting at the block's first line.
func (s CodeStyles) RenderBlock(block models.CodeBlock, width int) string {
	lines := strings.Split(HighlightCode(block.Code, block.File, s.Theme.Code.ChromaStyle), "\n")
	start := block.Range.StartLine
	if start <= 0 {
		start = 1
	}
	gutterWidth := len(fmt.Sprint(start + len(lines) - 1))

	out := make([]string, 0, len(lines)+1)
	out = append(out, s.Location.Render(Truncate(block.Location(), width)))
	for i, line := range lines {
		gutter := s.Gutter.Render(fmt.Sprintf("%*d │ ", gutterWidth, start+i))
		out = append(out, gutter+line)
	}
	return strings.Join(out, "\n")
}

// RenderAction renders a clickable code-block action label such as "[diff]".
func (s CodeStyles) RenderAction(label string) string {
	return s.Action.Render("[" + label + "]")
}

// RenderDiff colors a unified diff line by line.
func (s CodeStyles) RenderDiff(diff string) string {
	if diff == "" {
		return diff
	}
	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = s.Gutter.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = s.Hunk.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = s.Add.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = s.Remove.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
