package events

import (
	"strings"
	"time"

	"github.com/tOgg1/streampanel/internal/models"
)

// Type names an event exchanged between the panel and its host.
type Type string

// Inbound events, sent by the host to the panel.
const (
	TypeFileChanged     Type = "file-changed"
	TypeCodeHighlighted Type = "code-highlighted"
	TypeMarkerSelected  Type = "marker-selected"
	TypeDiffReady       Type = "diff-ready"
)

// Outbound events, sent by the panel to the host.
const (
	TypeThreadSelected         Type = "interaction:thread-selected"
	TypeThreadClosed           Type = "interaction:thread-closed"
	TypeShowDiff               Type = "interaction:show-diff"
	TypeApplyPatch             Type = "interaction:apply-patch"
	TypeSubscribeFileChanged   Type = "subscription:file-changed"
	TypeUnsubscribeFileChanged Type = "unsubscribe:file-changed"
	TypeAnalytics              Type = "analytics"
)

// Outbound lists the types the panel sends to its host.
func Outbound() []Type {
	return []Type{
		TypeThreadSelected,
		TypeThreadClosed,
		TypeShowDiff,
		TypeApplyPatch,
		TypeSubscribeFileChanged,
		TypeUnsubscribeFileChanged,
		TypeAnalytics,
	}
}

// Namespace returns the part before ":" ("interaction" for
// interaction:thread-selected), or "" for unqualified types.
func (t Type) Namespace() string {
	if i := strings.Index(string(t), ":"); i >= 0 {
		return string(t)[:i]
	}
	return ""
}

// Event is a typed message with a payload.
type Event struct {
	ID        string    `json:"id,omitempty"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Body      any       `json:"body,omitempty"`
}

// New builds an event stamped with the current time.
func New(eventType Type, body any) *Event {
	return &Event{Type: eventType, Timestamp: time.Now().UTC(), Body: body}
}

// FileChanged reports that a watched file changed on disk.
type FileChanged struct {
	File    string `json:"file"`
	HasDiff bool   `json:"hasDiff"`
}

// CodeHighlighted carries the user's editor selection.
type CodeHighlighted struct {
	Quote models.CodeQuote `json:"quote"`
}

// MarkerSelected reports a click on a gutter marker that belongs to a post.
type MarkerSelected struct {
	PostID string `json:"postId"`
}

// DiffReady carries a rendered diff between a code block and the file.
type DiffReady struct {
	CodeBlock models.CodeBlock `json:"codeBlock"`
	Diff      string           `json:"diff"`
}

// ThreadSelected is published when the user opens a thread.
type ThreadSelected struct {
	ThreadID string      `json:"threadId"`
	StreamID string      `json:"streamId"`
	Post     models.Post `json:"post"`
}

// ThreadClosed is published when the thread pane is dismissed.
type ThreadClosed struct {
	Post models.Post `json:"post"`
}

// CodeBlockAction asks the host to diff or patch a quoted block.
type CodeBlockAction struct {
	PostID    string           `json:"postId"`
	CodeBlock models.CodeBlock `json:"codeBlock"`
}

// FileSubscription starts or stops file-changed notifications. Blocks are
// the quoted code blocks the host compares against the file to set HasDiff.
type FileSubscription struct {
	File   string             `json:"file"`
	Blocks []models.CodeBlock `json:"blocks,omitempty"`
}

// Analytics is a usage event.
type Analytics struct {
	Label   string         `json:"label"`
	Payload map[string]any `json:"payload,omitempty"`
}
