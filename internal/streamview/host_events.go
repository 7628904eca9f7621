package streamview

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tOgg1/streampanel/internal/events"
	"github.com/tOgg1/streampanel/internal/host"
	"github.com/tOgg1/streampanel/internal/models"
)

// promptSource is implemented by hosts that leave confirmations to the panel.
type promptSource interface {
	Prompts() <-chan *host.ConfirmRequest
}

func (m *Model) waitHostEvent() tea.Cmd {
	if m.bridge == nil || m.hostDetached {
		return nil
	}
	ch := m.bridge.Events()
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return hostClosedMsg{}
		}
		return hostEventMsg{event: event}
	}
}

func (m *Model) waitPrompt() tea.Cmd {
	source, ok := m.bridge.(promptSource)
	if !ok {
		return nil
	}
	ch := source.Prompts()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case req := <-ch:
			return promptMsg{req: req}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Model) handleHostEvent(event events.Event) {
	log := m.logger.With().Str("event", string(event.Type)).Logger()
	switch body := event.Body.(type) {
	case events.FileChanged:
		m.fileDiffs[body.File] = body.HasDiff
		log.Debug().Str("file", body.File).Bool("has_diff", body.HasDiff).Msg("file changed")
	case events.CodeHighlighted:
		if _, editing := m.thread.EditingPost(); editing {
			m.thread.CancelEdit()
			m.composer.Reset()
		}
		m.composer.AttachQuote(body.Quote)
		m.resizeInput()
		m.saveDraft()
	case events.MarkerSelected:
		m.thread.SelectPost(body.PostID, false)
		m.rememberThread()
		m.scrollToPost(body.PostID)
	case events.DiffReady:
		diff := body
		m.diff = &diff
	default:
		log.Debug().Msg("ignoring host event")
	}
}

// subscribeFiles asks the host to watch the files quoted by posts that are
// not yet covered by a subscription.
func (m *Model) subscribeFiles() {
	byFile := make(map[string][]models.CodeBlock)
	var order []string
	for _, post := range m.thread.Posts() {
		for i, block := range post.CodeBlocks {
			if strings.TrimSpace(block.File) == "" {
				continue
			}
			if block.ID == "" {
				block.ID = actionZoneID("block", post.ID, i)
			}
			if m.subscribed[block.ID] {
				continue
			}
			m.subscribed[block.ID] = true
			if _, ok := byFile[block.File]; !ok {
				order = append(order, block.File)
			}
			byFile[block.File] = append(byFile[block.File], block)
		}
	}
	for _, file := range order {
		sub := events.FileSubscription{File: file, Blocks: byFile[file]}
		m.subscriptions = append(m.subscriptions, sub)
		m.publisher.Publish(m.ctx, events.New(events.TypeSubscribeFileChanged, sub))
	}
}

// unsubscribeFiles releases every subscription made for the current stream.
func (m *Model) unsubscribeFiles() {
	for _, sub := range m.subscriptions {
		m.publisher.Publish(m.ctx, events.New(events.TypeUnsubscribeFileChanged, sub))
	}
	m.subscriptions = nil
	m.subscribed = make(map[string]bool)
	m.fileDiffs = make(map[string]bool)
}
