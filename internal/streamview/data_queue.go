package streamview

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tOgg1/streampanel/internal/streamview/data"
	"github.com/tOgg1/streampanel/internal/streamview/thread"
)

// dataQueue turns the controller's fire-and-forget data calls into commands.
// The model drains it after every update.
type dataQueue struct {
	ctx      context.Context
	provider data.Provider
	pending  []tea.Cmd
}

var _ thread.DataLayer = (*dataQueue)(nil)

func newDataQueue(ctx context.Context, provider data.Provider) *dataQueue {
	return &dataQueue{ctx: ctx, provider: provider}
}

func (q *dataQueue) MarkStreamRead(streamID string) {
	ctx, provider := q.ctx, q.provider
	q.pending = append(q.pending, func() tea.Msg {
		seq, err := provider.MarkStreamRead(ctx, streamID)
		return markedReadMsg{streamID: streamID, seq: seq, err: err}
	})
}

func (q *dataQueue) EditPost(postID, text string, mentionedUserIDs []string) {
	ctx, provider := q.ctx, q.provider
	mentions := append([]string(nil), mentionedUserIDs...)
	q.pending = append(q.pending, func() tea.Msg {
		err := provider.EditPost(ctx, postID, text, mentions)
		return postEditedMsg{postID: postID, err: err}
	})
}

func (q *dataQueue) drain() tea.Cmd {
	if len(q.pending) == 0 {
		return nil
	}
	cmds := q.pending
	q.pending = nil
	return tea.Batch(cmds...)
}
