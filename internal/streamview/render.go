package streamview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/tOgg1/streampanel/internal/models"
	"github.com/tOgg1/streampanel/internal/streamview/styles"
	"github.com/tOgg1/streampanel/internal/streamview/thread"
	"github.com/tOgg1/streampanel/internal/streamview/threading"
)

const quotePreviewLines = 2

type panelLayout struct {
	panes      styles.PaneWidths
	bodyHeight int
	quote      string
	popup      string
}

func postZoneID(postID string) string {
	return "post-" + postID
}

func candidateZoneID(i int) string {
	return fmt.Sprintf("mention-%d", i)
}

func actionZoneID(action, postID string, i int) string {
	return fmt.Sprintf("%s-%s-%d", action, postID, i)
}

func (m *Model) layout() panelLayout {
	l := panelLayout{
		panes: styles.ComputePaneWidths(m.width, m.thread.State().ThreadPaneActive),
		quote: m.renderQuote(),
		popup: m.renderPopup(),
	}
	// header, new-posts banner, composer label and status line
	chrome := 4 + m.input.Height()
	if l.quote != "" {
		chrome += lipgloss.Height(l.quote)
	}
	if l.popup != "" {
		chrome += lipgloss.Height(l.popup)
	}
	l.bodyHeight = max(1, m.height-chrome)
	return l
}

func (m *Model) resizeInput() {
	m.input.SetHeight(min(max(1, m.input.LineCount()), maxComposerLines))
}

// relayout re-renders the stream into the viewport and feeds the resulting
// geometry to the controller.
func (m *Model) relayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	l := m.layout()
	m.input.SetWidth(m.width)

	contentWidth := l.panes.Stream
	if contentWidth <= 0 {
		contentWidth = m.width
	}
	content, nodes := m.renderStream(contentWidth)
	m.nodes = nodes
	m.viewport.Width = contentWidth
	m.viewport.Height = l.bodyHeight
	m.viewport.SetContent(content)
	if m.stickBottom {
		m.viewport.GotoBottom()
		m.stickBottom = false
	}

	visible := l.bodyHeight
	if l.panes.Stream == 0 {
		visible = 0
	}
	m.thread.UpdateScroll(thread.Geometry{
		Offset:        m.viewport.YOffset,
		Height:        visible,
		ContentHeight: m.viewport.TotalLineCount(),
		Nodes:         nodes,
	})
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width <= 0 || m.height <= 0 {
		return "Loading..."
	}
	l := m.layout()
	sections := []string{m.renderHeader(), m.renderBody(l), m.renderBelowBanner()}
	if l.quote != "" {
		sections = append(sections, l.quote)
	}
	if l.popup != "" {
		sections = append(sections, l.popup)
	}
	sections = append(sections, m.renderComposerLabel(), m.input.View(), m.renderStatus())
	return m.zones.Scan(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) renderHeader() string {
	title := "#" + m.streamName(m.streamID)
	if m.streamID == "" {
		title = "no stream"
	}
	if n := m.thread.UnreadCount(); n > 0 {
		title += fmt.Sprintf(" (%d unread)", n)
	}
	header := m.theme.HeaderStyle().Render(title)
	if m.thread.State().UnreadAbove {
		header += " " + m.postStyles.NewPosts.Render(" ▲ new posts above ")
	}
	return truncate.String(header, uint(m.width))
}

func (m *Model) renderBelowBanner() string {
	if !m.thread.State().UnreadBelow {
		return ""
	}
	return m.postStyles.RenderNewPostsBanner("▼ new posts below", m.width)
}

func (m *Model) renderBody(l panelLayout) string {
	box := lipgloss.NewStyle().Height(l.bodyHeight).MaxHeight(l.bodyHeight)
	if m.diff != nil {
		return box.Render(m.renderDiff(m.width, l.bodyHeight))
	}

	var streamView string
	switch {
	case m.loading:
		streamView = m.theme.MutedStyle().Render("Loading...")
	case len(m.nodes) == 0:
		streamView = m.theme.MutedStyle().Render("No posts yet. Say something!")
	default:
		streamView = m.viewport.View()
	}

	if !m.thread.State().ThreadPaneActive {
		return box.Render(streamView)
	}
	threadView := m.renderThread(l.panes.Thread, l.bodyHeight)
	if l.panes.Stream == 0 {
		return box.Render(threadView)
	}
	streamView = lipgloss.NewStyle().Width(l.panes.Stream).Render(streamView)
	gap := strings.Repeat(" ", styles.LayoutGap)
	return box.Render(lipgloss.JoinHorizontal(lipgloss.Top, streamView, gap, threadView))
}

// renderStream lays out every live post and records where each one starts.
func (m *Model) renderStream(width int) (string, []thread.NodeBox) {
	posts := m.thread.Posts()
	replies := threading.ReplyCounts(posts)
	lines := make([]string, 0, len(posts)*3)
	nodes := make([]thread.NodeBox, 0, len(posts))
	for _, post := range posts {
		block := m.renderPost(post, width, replies[post.ID], true)
		top := len(lines)
		for _, line := range strings.Split(block, "\n") {
			lines = append(lines, truncate.String(line, uint(width)))
		}
		nodes = append(nodes, thread.NodeBox{PostID: post.ID, Top: top, Height: len(lines) - top})
	}
	return strings.Join(lines, "\n"), nodes
}

func (m *Model) renderPost(post models.Post, width, replyCount int, clickable bool) string {
	st := m.thread.State()
	indent := ""
	if post.IsReply() && clickable {
		indent = "  "
	}

	parts := []string{}
	if dot := m.postStyles.RenderUnreadIndicator(m.thread.IsUnread(post.ID)); dot != "" {
		parts = append(parts, dot)
	}
	if st.EditingPostID == post.ID {
		parts = append(parts, m.postStyles.Editing.Render("✎ editing"))
	}
	parts = append(parts, m.postStyles.RenderHeader(m.authorName(post.AuthorID), post.CreatedAt, m.now(), m.relativeTime))
	if marker := m.postStyles.RenderEditedMarker(post.HasBeenEdited); marker != "" {
		parts = append(parts, marker)
	}
	if count := m.postStyles.RenderReplyCount(replyCount); count != "" {
		parts = append(parts, count)
	}
	header := indent + strings.Join(parts, " ")
	if st.ThreadPaneActive && post.ThreadID() == st.ActiveThreadID && clickable {
		header = m.postStyles.Selected.Render(header)
	}
	if clickable {
		header = m.zones.Mark(postZoneID(post.ID), header)
	}

	lines := []string{header}
	if post.IsReply() && clickable {
		lines = append(lines, indentLines(m.postStyles.RenderReply(post.Text, width-len(indent)), indent))
	} else {
		lines = append(lines, m.postStyles.RenderBody(post.Text, width))
	}
	for i, block := range post.CodeBlocks {
		lines = append(lines, indentLines(m.codeStyles.RenderBlock(block, width-len(indent)), indent))
		if clickable && m.fileDiffs[block.File] {
			actions := m.theme.MutedStyle().Render("file changed ") +
				m.zones.Mark(actionZoneID("diff", post.ID, i), m.codeStyles.RenderAction("diff")) + " " +
				m.zones.Mark(actionZoneID("apply", post.ID, i), m.codeStyles.RenderAction("apply"))
			lines = append(lines, indent+actions)
		}
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func indentLines(s, indent string) string {
	if indent == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = indent + lines[i]
	}
	return strings.Join(lines, "\n")
}

// renderThread draws the thread pane, keeping the newest replies when the
// thread is taller than the pane.
func (m *Model) renderThread(width, height int) string {
	frame := styles.PanelStyle(m.theme, true)
	innerWidth := max(1, width-frame.GetHorizontalFrameSize())
	innerHeight := max(1, height-frame.GetVerticalFrameSize())

	th := threading.BuildThread(m.thread.Posts(), m.thread.State().ActiveThreadID)
	title := "Thread"
	var body []string
	if th != nil {
		title = fmt.Sprintf("Thread · %s", m.postStyles.RenderReplyCount(th.ReplyCount()))
		if th.ReplyCount() == 0 {
			title = "Thread · no replies yet"
		}
		for _, post := range th.Posts() {
			for _, line := range strings.Split(m.renderPost(*post, innerWidth, 0, false), "\n") {
				body = append(body, truncate.String(line, uint(innerWidth)))
			}
		}
	}
	if len(body) > innerHeight-1 {
		body = body[len(body)-(innerHeight-1):]
	}
	content := append([]string{m.theme.HeaderStyle().Render(title)}, body...)
	return frame.Width(innerWidth).Height(innerHeight).Render(strings.Join(content, "\n"))
}

func (m *Model) renderDiff(width, height int) string {
	frame := styles.PanelStyle(m.theme, true)
	innerWidth := max(1, width-frame.GetHorizontalFrameSize())
	innerHeight := max(1, height-frame.GetVerticalFrameSize())

	title := m.theme.HeaderStyle().Render("Diff · "+m.diff.CodeBlock.Location()) +
		m.theme.MutedStyle().Render("  (esc to close)")
	lines := []string{title}
	diff := m.diff.Diff
	if strings.TrimSpace(diff) == "" {
		diff = "No differences."
	}
	for _, line := range strings.Split(m.codeStyles.RenderDiff(diff), "\n") {
		lines = append(lines, truncate.String(line, uint(innerWidth)))
	}
	if len(lines) > innerHeight {
		lines = lines[:innerHeight]
	}
	return frame.Width(innerWidth).Height(innerHeight).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderQuote() string {
	q := m.composer.State().QuotedCode
	if q == nil {
		return ""
	}
	bar := m.theme.AccentStyle().Render("▍ ")
	lines := []string{bar + m.theme.AccentStyle().Render(q.File+":"+q.QuoteRange.String()) +
		m.theme.MutedStyle().Render("  ctrl+x to remove")}
	code := strings.Split(strings.TrimRight(q.QuoteText, "\n"), "\n")
	for i, line := range code {
		if i == quotePreviewLines {
			lines = append(lines, bar+m.theme.MutedStyle().Render(fmt.Sprintf("… %d more lines", len(code)-i)))
			break
		}
		lines = append(lines, bar+styles.Truncate(line, max(1, m.width-2)))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderPopup() string {
	popup := m.composer.State().Mention
	if !popup.Open {
		return ""
	}
	start, end := popupWindow(len(popup.Candidates), popup.SelectedIndex, m.suggestionLimit)
	selected := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Chrome.SelectedItem)).Bold(true)
	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		user := popup.Candidates[i]
		row := "@" + user.Identity()
		if full := user.FullName(); full != user.Identity() {
			row += "  " + m.theme.MutedStyle().Render(full)
		}
		if i == popup.SelectedIndex {
			row = selected.Render("> ") + selected.Render("@"+user.Identity()) + strings.TrimPrefix(row, "@"+user.Identity())
		} else {
			row = "  " + row
		}
		rows = append(rows, m.zones.Mark(candidateZoneID(i), row))
	}
	return styles.PopupStyle(m.theme).Render(strings.Join(rows, "\n"))
}

// popupWindow returns the candidate range to show so that the selection
// stays visible. limit <= 0 shows everything.
func popupWindow(n, selected, limit int) (int, int) {
	if limit <= 0 || n <= limit {
		return 0, n
	}
	start := selected - limit + 1
	if start < 0 {
		start = 0
	}
	return start, start + limit
}

func (m *Model) renderComposerLabel() string {
	st := m.thread.State()
	switch {
	case st.EditingPostID != "":
		return m.postStyles.Editing.Render("editing post · enter save · esc cancel · ctrl+d delete")
	case st.ThreadPaneActive:
		return m.theme.AccentStyle().Render("replying in thread · esc close")
	default:
		return styles.DividerStyle(m.theme).Render(strings.Repeat("─", max(1, m.width)))
	}
}

func (m *Model) renderStatus() string {
	if m.prompt != nil {
		opts := m.prompt.Options
		confirm, cancel := opts.ConfirmLabel, opts.CancelLabel
		if confirm == "" {
			confirm = "yes"
		}
		if cancel == "" {
			cancel = "no"
		}
		text := fmt.Sprintf("%s: %s  [y] %s  [n] %s", opts.Title, opts.Message, confirm, cancel)
		return m.theme.ErrorStyle().Render(styles.Truncate(text, m.width))
	}
	if m.status != "" {
		if m.statusErr {
			return m.theme.ErrorStyle().Render(styles.Truncate(m.status, m.width))
		}
		return m.theme.FooterStyle().Render(styles.Truncate(m.status, m.width))
	}
	help := "enter send · ↑ edit last · ctrl+r thread · ctrl+n/p stream · pgup/pgdn scroll · ctrl+c quit"
	return m.theme.FooterStyle().Render(styles.Truncate(help, m.width))
}
