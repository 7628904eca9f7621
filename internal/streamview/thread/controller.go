// Package thread tracks the active thread, the post being edited and the
// unread state derived from scroll geometry.
package thread

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/tOgg1/streampanel/internal/events"
	"github.com/tOgg1/streampanel/internal/models"
)

// DefaultOffBottomThreshold is how far (in rows) the viewport may sit above
// the bottom and still count as "at the bottom".
const DefaultOffBottomThreshold = 100

// ReadMarker commits read state to the data layer.
type ReadMarker interface {
	MarkStreamRead(streamID string)
}

// PostEditor saves edited posts to the data layer.
type PostEditor interface {
	EditPost(postID, text string, mentionedUserIDs []string)
}

// DataLayer is the part of the data layer the controller calls. Calls are
// fire-and-forget.
type DataLayer interface {
	ReadMarker
	PostEditor
}

// Options configures a Controller.
type Options struct {
	CurrentUserID string

	// OffBottomThreshold defaults to DefaultOffBottomThreshold.
	OffBottomThreshold int

	// Notifier receives interaction events for the host.
	Notifier events.Publisher

	Data DataLayer

	// FocusComposer moves input focus to the composer.
	FocusComposer func()

	// Roster resolves mentions in edited posts.
	Roster func() []models.User

	Logger *zerolog.Logger
}

// State is a snapshot of the controller.
type State struct {
	StreamID          string
	ActiveThreadID    string
	ThreadPaneActive  bool
	EditingPostID     string
	ScrolledOffBottom bool
	UnreadAbove       bool
	UnreadBelow       bool
	HasFocus          bool
}

// NodeBox is the rendered position of one post, in rows from the top of
// the content.
type NodeBox struct {
	PostID string
	Top    int
	Height int
}

// Geometry describes the scroll container after a scroll or resize.
type Geometry struct {
	Offset        int
	Height        int
	ContentHeight int
	Nodes         []NodeBox
}

// Controller is the thread and scroll view-state. It is not safe for
// concurrent use; all calls come from the UI loop.
type Controller struct {
	userID        string
	threshold     int
	notifier      events.Publisher
	data          DataLayer
	focusComposer func()
	roster        func() []models.User
	logger        zerolog.Logger

	state  State
	posts  []models.Post
	unread map[string]bool
}

// New creates a Controller.
func New(opts Options) *Controller {
	threshold := opts.OffBottomThreshold
	if threshold <= 0 {
		threshold = DefaultOffBottomThreshold
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "thread").Logger()
	}
	return &Controller{
		userID:        opts.CurrentUserID,
		threshold:     threshold,
		notifier:      opts.Notifier,
		data:          opts.Data,
		focusComposer: opts.FocusComposer,
		roster:        opts.Roster,
		logger:        logger,
		unread:        make(map[string]bool),
	}
}

// State returns a snapshot.
func (c *Controller) State() State {
	return c.state
}

// CurrentUserID returns the user the controller acts for.
func (c *Controller) CurrentUserID() string {
	return c.userID
}

// SetStream replaces the stream's posts. Posts by other users newer than
// lastReadSeqNum start out unread.
func (c *Controller) SetStream(streamID string, posts []models.Post, lastReadSeqNum int) {
	if streamID != c.state.StreamID {
		c.state.ActiveThreadID = ""
		c.state.ThreadPaneActive = false
	}
	c.state.StreamID = streamID
	c.state.ScrolledOffBottom = false
	c.state.UnreadAbove = false
	c.state.UnreadBelow = false

	c.posts = append(c.posts[:0:0], posts...)
	sort.SliceStable(c.posts, func(i, j int) bool { return c.posts[i].SeqNum < c.posts[j].SeqNum })

	c.unread = make(map[string]bool)
	for _, post := range c.posts {
		if post.AuthorID != c.userID && post.SeqNum > lastReadSeqNum && !post.Deactivated {
			c.unread[post.ID] = true
		}
	}
	c.logger.Debug().Str("stream_id", streamID).Int("posts", len(c.posts)).Int("unread", len(c.unread)).Msg("stream set")
	c.reconcileEditing(true)
}

// AddPost inserts or updates a post and reports whether the view should
// scroll to the bottom.
func (c *Controller) AddPost(post models.Post) bool {
	if post.StreamID != "" && c.state.StreamID != "" && post.StreamID != c.state.StreamID {
		return false
	}
	if i := c.indexOf(post.ID); i >= 0 {
		c.posts[i] = post
		if post.Deactivated {
			delete(c.unread, post.ID)
			c.reconcileEditing(false)
		}
		return false
	}

	i := sort.Search(len(c.posts), func(i int) bool { return c.posts[i].SeqNum > post.SeqNum })
	c.posts = append(c.posts, models.Post{})
	copy(c.posts[i+1:], c.posts[i:])
	c.posts[i] = post

	mine := post.AuthorID == c.userID
	if !mine && !post.Deactivated {
		c.unread[post.ID] = true
	}
	return !c.state.ScrolledOffBottom || mine
}

// RemovePost drops a post from the stream.
func (c *Controller) RemovePost(postID string) {
	i := c.indexOf(postID)
	if i < 0 {
		return
	}
	c.posts = append(c.posts[:i], c.posts[i+1:]...)
	delete(c.unread, postID)
	if c.state.ActiveThreadID == postID {
		c.state.ActiveThreadID = ""
		c.state.ThreadPaneActive = false
	}
	c.reconcileEditing(false)
}

// Posts returns the live (non-deactivated) posts in sequence order.
func (c *Controller) Posts() []models.Post {
	out := make([]models.Post, 0, len(c.posts))
	for _, post := range c.posts {
		if !post.Deactivated {
			out = append(out, post)
		}
	}
	return out
}

// Post looks up a post by ID.
func (c *Controller) Post(postID string) (models.Post, bool) {
	if i := c.indexOf(postID); i >= 0 {
		return c.posts[i], true
	}
	return models.Post{}, false
}

// MaxSeqNum returns the highest known sequence number.
func (c *Controller) MaxSeqNum() int {
	if len(c.posts) == 0 {
		return 0
	}
	return c.posts[len(c.posts)-1].SeqNum
}

// IsUnread reports whether a post is flagged unread.
func (c *Controller) IsUnread(postID string) bool {
	return c.unread[postID]
}

// UnreadCount returns the number of unread posts.
func (c *Controller) UnreadCount() int {
	return len(c.unread)
}

func (c *Controller) indexOf(postID string) int {
	if postID == "" {
		return -1
	}
	for i := range c.posts {
		if c.posts[i].ID == postID {
			return i
		}
	}
	return -1
}

// SelectPost opens the thread the post belongs to. Only user-initiated
// selections are announced to the host.
func (c *Controller) SelectPost(postID string, userInitiated bool) {
	post, ok := c.Post(postID)
	if !ok {
		return
	}
	c.state.ActiveThreadID = post.ThreadID()
	c.state.ThreadPaneActive = true
	c.logger.Debug().Str("thread_id", c.state.ActiveThreadID).Bool("user", userInitiated).Msg("thread selected")

	if userInitiated {
		c.publish(events.TypeThreadSelected, events.ThreadSelected{
			ThreadID: c.state.ActiveThreadID,
			StreamID: c.state.StreamID,
			Post:     post,
		})
	}
}

// DismissThread closes the thread pane and returns focus to the composer.
func (c *Controller) DismissThread() {
	if c.state.ActiveThreadID != "" {
		root, ok := c.Post(c.state.ActiveThreadID)
		if !ok {
			root = models.Post{ID: c.state.ActiveThreadID, StreamID: c.state.StreamID}
		}
		c.publish(events.TypeThreadClosed, events.ThreadClosed{Post: root})
	}
	c.state.ActiveThreadID = ""
	c.state.ThreadPaneActive = false
	if c.focusComposer != nil {
		c.focusComposer()
	}
}

// ThreadPosts returns the root and replies of the active thread.
func (c *Controller) ThreadPosts() []models.Post {
	id := c.state.ActiveThreadID
	if id == "" {
		return nil
	}
	var out []models.Post
	for _, post := range c.posts {
		if !post.Deactivated && post.ThreadID() == id {
			out = append(out, post)
		}
	}
	return out
}

// SetFocus records whether the panel has input focus.
func (c *Controller) SetFocus(focused bool) {
	if c.state.HasFocus == focused {
		return
	}
	c.state.HasFocus = focused
	c.maybeMarkRead()
}

// UpdateScroll recomputes the unread indicators and the off-bottom flag.
// Visible unread posts are only cleared while the panel has focus.
func (c *Controller) UpdateScroll(g Geometry) {
	prevAbove, prevBelow := c.state.UnreadAbove, c.state.UnreadBelow
	above, below, cleared := false, false, false

	bottom := g.Offset + g.Height
	for _, node := range g.Nodes {
		if !c.unread[node.PostID] {
			continue
		}
		switch {
		case node.Top < g.Offset:
			above = true
		case node.Top >= bottom:
			below = true
		case c.state.HasFocus:
			delete(c.unread, node.PostID)
			cleared = true
		}
	}

	c.state.UnreadAbove = above
	c.state.UnreadBelow = below
	// Exactly at the threshold still counts as at the bottom.
	c.state.ScrolledOffBottom = g.ContentHeight-bottom > c.threshold

	if (prevAbove && !above) || (prevBelow && !below) || cleared {
		c.maybeMarkRead()
	}
}

func (c *Controller) maybeMarkRead() {
	if !c.state.HasFocus || c.state.UnreadAbove || c.state.UnreadBelow || c.state.StreamID == "" {
		return
	}
	c.unread = make(map[string]bool)
	c.logger.Debug().Str("stream_id", c.state.StreamID).Msg("mark stream read")
	if c.data != nil {
		c.data.MarkStreamRead(c.state.StreamID)
	}
}

func (c *Controller) publish(eventType events.Type, body any) {
	if c.notifier == nil {
		return
	}
	c.notifier.Publish(context.Background(), events.New(eventType, body))
}
