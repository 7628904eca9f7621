package streamview

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tOgg1/streampanel/internal/events"
	"github.com/tOgg1/streampanel/internal/streamview/composer"
	"github.com/tOgg1/streampanel/internal/streamview/threading"
)

const wheelStep = 3

var composerKeys = map[string]composer.Key{
	"up":        composer.KeyUp,
	"down":      composer.KeyDown,
	"tab":       composer.KeyTab,
	"enter":     composer.KeyEnter,
	"alt+enter": composer.KeyShiftEnter,
	"esc":       composer.KeyEscape,
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" {
		m.quitting = true
		return tea.Quit
	}
	if m.prompt != nil {
		return m.handlePromptKey(key)
	}
	if m.diff != nil {
		switch key {
		case "esc", "q", "enter":
			m.diff = nil
		}
		return nil
	}

	if m.composer.Suggesting() {
		if ck, ok := composerKeys[key]; ok && m.composer.HandleKey(ck) {
			return nil
		}
	}

	switch key {
	case "enter":
		m.submit()
		return nil
	case "alt+enter":
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m.inputChanged()
		return cmd
	case "up":
		if m.walkEdits() {
			return nil
		}
	case "esc":
		if _, editing := m.thread.EditingPost(); editing {
			m.thread.CancelEdit()
			m.composer.Reset()
			m.restoreDraft()
			return nil
		}
		if m.thread.State().ThreadPaneActive {
			m.thread.DismissThread()
			m.rememberThread()
		}
		return nil
	case "pgup":
		m.scrollBy(-max(1, m.viewport.Height-1))
		return nil
	case "pgdown":
		m.scrollBy(max(1, m.viewport.Height-1))
		return nil
	case "ctrl+r":
		m.openNewestThread()
		return nil
	case "ctrl+d":
		if _, editing := m.thread.EditingPost(); editing {
			return m.requestDelete()
		}
	case "ctrl+x":
		if m.composer.State().QuotedCode != nil {
			m.composer.DismissQuote()
			m.saveDraft()
			return nil
		}
	case "ctrl+n":
		return m.switchStream(m.adjacentStream(1))
	case "ctrl+p":
		return m.switchStream(m.adjacentStream(-1))
	case "ctrl+g":
		m.toggleRelativeTime()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.inputChanged()
	return cmd
}

func (m *Model) handlePromptKey(key string) tea.Cmd {
	switch strings.ToLower(key) {
	case "y", "enter":
		m.prompt.Answer(true)
	case "n", "esc":
		m.prompt.Answer(false)
	default:
		return nil
	}
	m.prompt = nil
	return nil
}

func (m *Model) inputChanged() {
	m.composer.HandleInput()
	m.resizeInput()
	m.saveDraft()
}

func (m *Model) submit() {
	if m.composer.Submit() {
		m.stickBottom = true
		m.resizeInput()
		return
	}
	// Enter on an emptied composer leaves edit mode.
	if _, editing := m.thread.EditingPost(); editing {
		m.thread.CancelEdit()
		m.composer.Reset()
		m.restoreDraft()
	}
}

// walkEdits handles Up: with an empty composer it edits the user's last
// post, and while the text is still the edited post's it walks back.
func (m *Model) walkEdits() bool {
	text := m.composer.Text()
	editing, isEditing := m.thread.EditingPost()
	switch {
	case isEditing && text == editing.Text:
	case strings.TrimSpace(text) == "" && m.composer.State().QuotedCode == nil:
	default:
		return false
	}
	post, ok := m.thread.EditPreviousOwnPost()
	if !ok {
		return isEditing
	}
	m.composer.SetText(post.Text)
	m.resizeInput()
	m.scrollToPost(post.ID)
	return true
}

func (m *Model) openNewestThread() {
	threads := threading.BuildThreads(m.thread.Posts())
	if len(threads) == 0 {
		return
	}
	root := threads[len(threads)-1].Root
	m.thread.SelectPost(root.ID, true)
	m.rememberThread()
}

func (m *Model) adjacentStream(delta int) string {
	if len(m.streams) == 0 {
		return ""
	}
	idx := 0
	for i, stream := range m.streams {
		if stream.ID == m.streamID {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(m.streams)) % len(m.streams)
	return m.streams[idx].ID
}

func (m *Model) toggleRelativeTime() {
	m.relativeTime = !m.relativeTime
	if m.tuiState == nil {
		return
	}
	prefs := m.tuiState.Preferences()
	prefs.RelativeTime = m.relativeTime
	m.tuiState.SetPreferences(prefs)
}

func (m *Model) scrollBy(delta int) {
	m.viewport.SetYOffset(m.viewport.YOffset + delta)
	m.stickBottom = false
}

func (m *Model) scrollToPost(postID string) {
	for _, node := range m.nodes {
		if node.PostID != postID {
			continue
		}
		if node.Top < m.viewport.YOffset || node.Top+node.Height > m.viewport.YOffset+m.viewport.Height {
			m.viewport.SetYOffset(node.Top)
		}
		return
	}
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.scrollBy(-wheelStep)
		return nil
	case tea.MouseButtonWheelDown:
		m.scrollBy(wheelStep)
		return nil
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return nil
	}

	if st := m.composer.State(); st.Mention.Open {
		for i := range st.Mention.Candidates {
			if m.zones.Get(candidateZoneID(i)).InBounds(msg) {
				m.composer.Confirm(i)
				m.saveDraft()
				return nil
			}
		}
	}
	for _, post := range m.thread.Posts() {
		for i, block := range post.CodeBlocks {
			action := events.CodeBlockAction{PostID: post.ID, CodeBlock: block}
			if m.zones.Get(actionZoneID("diff", post.ID, i)).InBounds(msg) {
				m.publisher.Publish(m.ctx, events.New(events.TypeShowDiff, action))
				return nil
			}
			if m.zones.Get(actionZoneID("apply", post.ID, i)).InBounds(msg) {
				m.publisher.Publish(m.ctx, events.New(events.TypeApplyPatch, action))
				m.setStatus("patch sent for " + block.Location())
				return nil
			}
		}
		if m.zones.Get(postZoneID(post.ID)).InBounds(msg) {
			m.thread.SelectPost(post.ID, true)
			m.rememberThread()
			return nil
		}
	}
	return nil
}
