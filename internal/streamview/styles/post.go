package styles

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
)

const replyPrefix = "│ "

var mentionToken = regexp.MustCompile(`@[\p{L}\p{N}_.+-]+`)

// PostStyles contains pre-built styles for post rendering.
type PostStyles struct {
	Theme        Theme
	AuthorColors *AuthorColorMapper

	HeaderBase     lipgloss.Style
	Timestamp      lipgloss.Style
	Body           lipgloss.Style
	Mention        lipgloss.Style
	Edited         lipgloss.Style
	ReplyIndicator lipgloss.Style
	ReplyCount     lipgloss.Style
	Unread         lipgloss.Style
	Selected       lipgloss.Style
	Editing        lipgloss.Style
	NewPosts       lipgloss.Style
}

// NewPostStyles builds a reusable style set for posts.
func NewPostStyles(theme Theme, mapper *AuthorColorMapper) PostStyles {
	if mapper == nil {
		mapper = NewAuthorColorMapper(theme.AuthorPalette)
	}

	return PostStyles{
		Theme:          theme,
		AuthorColors:   mapper,
		HeaderBase:     lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Foreground)),
		Timestamp:      lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Muted)),
		Body:           lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Foreground)),
		Mention:        lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Post.Mention)).Bold(true),
		Edited:         lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Post.Edited)).Italic(true),
		ReplyIndicator: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Muted)).Bold(true),
		ReplyCount:     lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Accent)),
		Unread: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Indicator.Unread)).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.Post.Selected)),
		Editing: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Post.Editing)).
			Bold(true),
		NewPosts: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.Base.Background)).
			Background(lipgloss.Color(theme.Indicator.NewPost)).
			Bold(true),
	}
}

// RenderHeader renders the author name and timestamp. With relative set the
// time is rendered relative to now ("3 minutes ago").
func (s PostStyles) RenderHeader(author string, ts, now time.Time, relative bool) string {
	name := strings.TrimSpace(author)
	if name == "" {
		name = "unknown"
	}
	authorText := s.AuthorColors.Foreground(name).Render(name)
	return s.HeaderBase.Render(authorText + " " + s.Timestamp.Render(FormatTimestamp(ts, now, relative)))
}

// FormatTimestamp renders ts as a clock time, or relative to now.
func FormatTimestamp(ts, now time.Time, relative bool) string {
	if ts.IsZero() {
		return ""
	}
	if relative {
		return humanize.RelTime(ts, now, "ago", "from now")
	}
	if ts.Year() != now.Year() || ts.YearDay() != now.YearDay() {
		return ts.Local().Format("Jan 2 15:04")
	}
	return ts.Local().Format("15:04")
}

// RenderBody renders wrapped body text with mentions highlighted.
func (s PostStyles) RenderBody(body string, width int) string {
	return s.Body.Render(wrapBody(s.highlightMentions(body), width))
}

// RenderReply renders a wrapped reply body with an indented vertical bar.
func (s PostStyles) RenderReply(body string, width int) string {
	renderWidth := width - lipgloss.Width(replyPrefix)
	if renderWidth < 1 {
		renderWidth = 1
	}

	wrapped := wrapBody(s.highlightMentions(body), renderWidth)
	lines := strings.Split(wrapped, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, s.ReplyIndicator.Render(replyPrefix)+s.Body.Render(line))
	}
	return strings.Join(out, "\n")
}

// RenderReplyCount renders "N replies", or nothing for zero.
func (s PostStyles) RenderReplyCount(n int) string {
	switch {
	case n <= 0:
		return ""
	case n == 1:
		return s.ReplyCount.Render("1 reply")
	default:
		return s.ReplyCount.Render(fmt.Sprintf("%s replies", humanize.Comma(int64(n))))
	}
}

// RenderEditedMarker renders "(edited)" for edited posts.
func (s PostStyles) RenderEditedMarker(edited bool) string {
	if !edited {
		return ""
	}
	return s.Edited.Render("(edited)")
}

// RenderUnreadIndicator renders a bold unread dot.
func (s PostStyles) RenderUnreadIndicator(unread bool) string {
	if !unread {
		return ""
	}
	return s.Unread.Render("●")
}

// RenderNewPostsBanner renders the "new posts" banner shown at a pane edge.
func (s PostStyles) RenderNewPostsBanner(label string, width int) string {
	text := " " + label + " "
	if width > 0 {
		text = Truncate(text, width)
	}
	return lipgloss.PlaceHorizontal(max(width, lipgloss.Width(text)), lipgloss.Center, s.NewPosts.Render(text))
}

func (s PostStyles) highlightMentions(body string) string {
	return mentionToken.ReplaceAllStringFunc(body, func(token string) string {
		return s.Mention.Render(token)
	})
}

// Truncate cuts s to width display cells, adding an ellipsis when cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

func wrapBody(body string, width int) string {
	if width <= 0 {
		return body
	}
	parts := strings.Split(body, "\n")
	for i := range parts {
		parts[i] = wordwrap.String(parts[i], width)
	}
	return strings.Join(parts, "\n")
}
