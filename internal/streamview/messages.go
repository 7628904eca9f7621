package streamview

import (
	"github.com/tOgg1/streampanel/internal/events"
	"github.com/tOgg1/streampanel/internal/host"
	"github.com/tOgg1/streampanel/internal/models"
)

type pollTickMsg struct{}

type metadataLoadedMsg struct {
	users   []models.User
	streams []models.Stream
	err     error
}

type streamLoadedMsg struct {
	streamID string
	posts    []models.Post
	lastRead int
	err      error
}

type postsPolledMsg struct {
	streamID string
	posts    []models.Post
	users    []models.User
	err      error
}

type postCreatedMsg struct {
	post *models.Post
	err  error
}

type postEditedMsg struct {
	postID string
	err    error
}

type postDeletedMsg struct {
	postID string
	err    error
}

type markedReadMsg struct {
	streamID string
	seq      int
	err      error
}

type deleteConfirmedMsg struct {
	postID string
	ok     bool
	err    error
}

type hostEventMsg struct {
	event events.Event
}

type hostClosedMsg struct{}

type promptMsg struct {
	req *host.ConfirmRequest
}

type notifyDoneMsg struct {
	err error
}
