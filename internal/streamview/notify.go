package streamview

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tOgg1/streampanel/internal/models"
	"github.com/tOgg1/streampanel/internal/streamview/styles"
)

const notificationBodyWidth = 120

// notifyMention raises a desktop notification for a post that mentions the
// current user, unless the panel has focus.
func (m *Model) notifyMention(post models.Post) tea.Cmd {
	if !m.notifications || m.thread.State().HasFocus {
		return nil
	}
	title := m.authorName(post.AuthorID) + " mentioned you in " + m.streamName(post.StreamID)
	body := styles.Truncate(post.Text, notificationBodyWidth)
	notify := m.notify
	return func() tea.Msg {
		return notifyDoneMsg{err: notify(title, body)}
	}
}

func (m *Model) authorName(userID string) string {
	for _, user := range m.users {
		if user.ID == userID {
			return user.FullName()
		}
	}
	return userID
}
