package thread

import (
	"regexp"
	"strings"

	"github.com/tOgg1/streampanel/internal/models"
	"github.com/tOgg1/streampanel/internal/streamview/mention"
)

var findReplaceRe = regexp.MustCompile(`^s/([^/]+)/([^/]*)/$`)

// FindMyPostBeforeSeqNum returns the current user's live post with the
// highest sequence number below seq.
func (c *Controller) FindMyPostBeforeSeqNum(seq int) (models.Post, bool) {
	for i := len(c.posts) - 1; i >= 0; i-- {
		post := c.posts[i]
		if post.SeqNum >= seq || post.Deactivated || post.AuthorID != c.userID {
			continue
		}
		return post, true
	}
	return models.Post{}, false
}

// FindMyLastPost returns the current user's newest live post.
func (c *Controller) FindMyLastPost() (models.Post, bool) {
	for i := len(c.posts) - 1; i >= 0; i-- {
		post := c.posts[i]
		if !post.Deactivated && post.AuthorID == c.userID {
			return post, true
		}
	}
	return models.Post{}, false
}

// StartEdit puts one of the current user's posts into edit mode.
func (c *Controller) StartEdit(postID string) bool {
	post, ok := c.Post(postID)
	if !ok || post.Deactivated || post.AuthorID != c.userID {
		return false
	}
	c.state.EditingPostID = post.ID
	c.logger.Debug().Str("post_id", post.ID).Msg("edit started")
	return true
}

// EditingPost returns the post in edit mode.
func (c *Controller) EditingPost() (models.Post, bool) {
	if c.state.EditingPostID == "" {
		return models.Post{}, false
	}
	return c.Post(c.state.EditingPostID)
}

// CancelEdit leaves edit mode.
func (c *Controller) CancelEdit() {
	if c.state.EditingPostID == "" {
		return
	}
	c.state.EditingPostID = ""
	if c.focusComposer != nil {
		c.focusComposer()
	}
}

// SaveEdit stores new text for the post in edit mode and leaves edit mode.
// Blank or unchanged text saves nothing.
func (c *Controller) SaveEdit(text string) {
	post, ok := c.EditingPost()
	c.state.EditingPostID = ""
	if !ok {
		return
	}
	if strings.TrimSpace(text) == "" || text == post.Text {
		return
	}
	c.applyEdit(post, text)
}

// EditLastOwnPost starts editing the current user's newest post.
func (c *Controller) EditLastOwnPost() (models.Post, bool) {
	post, ok := c.FindMyLastPost()
	if !ok {
		return models.Post{}, false
	}
	c.StartEdit(post.ID)
	return post, true
}

// EditPreviousOwnPost walks edit mode back to the user's previous post.
// Without an edit in progress it starts at the newest post.
func (c *Controller) EditPreviousOwnPost() (models.Post, bool) {
	current, ok := c.EditingPost()
	if !ok {
		return c.EditLastOwnPost()
	}
	post, ok := c.FindMyPostBeforeSeqNum(current.SeqNum)
	if !ok {
		return current, false
	}
	c.StartEdit(post.ID)
	return post, true
}

// TryFindReplace handles "s/find/replace/" by rewriting the user's last
// post. It reports false, leaving the text to be posted as is, when the
// text is not the shorthand, there is no prior post or nothing would change.
func (c *Controller) TryFindReplace(text string) bool {
	match := findReplaceRe.FindStringSubmatch(strings.TrimSpace(text))
	if match == nil {
		return false
	}
	post, ok := c.FindMyLastPost()
	if !ok {
		return false
	}
	updated := strings.Replace(post.Text, match[1], match[2], 1)
	if updated == post.Text {
		return false
	}
	c.applyEdit(post, updated)
	return true
}

func (c *Controller) applyEdit(post models.Post, text string) {
	var roster []models.User
	if c.roster != nil {
		roster = c.roster()
	}
	mentions := mention.MentionedUserIDs(text, roster)

	if i := c.indexOf(post.ID); i >= 0 {
		c.posts[i].Text = text
		c.posts[i].MentionedUserIDs = mentions
		c.posts[i].HasBeenEdited = true
	}
	c.logger.Debug().Str("post_id", post.ID).Msg("post edited")
	if c.data != nil {
		c.data.EditPost(post.ID, text, mentions)
	}
}

// reconcileEditing clears a stale edit. After a stream switch only the
// bottom post may stay in edit mode; otherwise the post must still exist.
func (c *Controller) reconcileEditing(streamSwitch bool) {
	id := c.state.EditingPostID
	if id == "" {
		return
	}
	post, ok := c.Post(id)
	stale := !ok || post.Deactivated
	if !stale && streamSwitch {
		live := c.Posts()
		stale = len(live) == 0 || live[len(live)-1].ID != id
	}
	if stale {
		c.logger.Debug().Str("post_id", id).Msg("stale edit cleared")
		c.state.EditingPostID = ""
	}
}
