package streamview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/streampanel/internal/events"
	"github.com/tOgg1/streampanel/internal/host"
	"github.com/tOgg1/streampanel/internal/models"
	"github.com/tOgg1/streampanel/internal/streamview/data"
	"github.com/tOgg1/streampanel/internal/streamview/state"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type editCall struct {
	postID   string
	text     string
	mentions []string
}

type fakeProvider struct {
	mu         sync.Mutex
	me         string
	users      []models.User
	streams    []models.Stream
	posts      map[string][]models.Post
	lastRead   map[string]int
	created    []data.NewPost
	edits      []editCall
	deleted    []string
	markedRead []string
	nextID     int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		me: "u-me",
		users: []models.User{
			{ID: "u-me", Username: "zed", Email: "zed@example.com"},
			{ID: "u-alice", FirstName: "Alice", Username: "alice", Email: "alice@example.com"},
			{ID: "u-albert", Username: "albert", Email: "albert@example.com"},
			{ID: "u-bob", FirstName: "Bob", Username: "bob", Email: "bob@example.com"},
		},
		streams: []models.Stream{
			{ID: "s-general", Name: "general", Kind: models.StreamKindChannel},
			{ID: "s-random", Name: "random", Kind: models.StreamKindChannel},
		},
		posts:    make(map[string][]models.Post),
		lastRead: make(map[string]int),
	}
}

func (f *fakeProvider) addPost(streamID, authorID, text string) models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addPostLocked(streamID, authorID, text, "")
}

func (f *fakeProvider) addPostLocked(streamID, authorID, text, parentID string) models.Post {
	f.nextID++
	seq := 1
	if posts := f.posts[streamID]; len(posts) > 0 {
		seq = posts[len(posts)-1].SeqNum + 1
	}
	post := models.Post{
		ID:           fmt.Sprintf("p%d", f.nextID),
		StreamID:     streamID,
		ParentPostID: parentID,
		AuthorID:     authorID,
		Text:         text,
		CreatedAt:    testNow.Add(time.Duration(f.nextID) * time.Minute),
		SeqNum:       seq,
	}
	f.posts[streamID] = append(f.posts[streamID], post)
	return post
}

func (f *fakeProvider) CurrentUserID() string { return f.me }

func (f *fakeProvider) Users(context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.User(nil), f.users...), nil
}

func (f *fakeProvider) Streams(context.Context) ([]models.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Stream(nil), f.streams...), nil
}

func (f *fakeProvider) Posts(_ context.Context, streamID string, sinceSeq int) ([]models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Post
	for _, post := range f.posts[streamID] {
		if post.SeqNum > sinceSeq {
			out = append(out, post)
		}
	}
	return out, nil
}

func (f *fakeProvider) Post(_ context.Context, postID string) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, posts := range f.posts {
		for _, post := range posts {
			if post.ID == postID {
				p := post
				return &p, nil
			}
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeProvider) LastReadSeqNum(_ context.Context, streamID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRead[streamID], nil
}

func (f *fakeProvider) CreatePost(_ context.Context, req data.NewPost) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	post := f.addPostLocked(req.StreamID, f.me, req.Text, req.ParentPostID)
	post.CodeBlocks = req.CodeBlocks
	post.MentionedUserIDs = req.MentionedUserIDs
	posts := f.posts[req.StreamID]
	posts[len(posts)-1] = post
	return &post, nil
}

func (f *fakeProvider) EditPost(_ context.Context, postID, text string, mentions []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editCall{postID: postID, text: text, mentions: mentions})
	return nil
}

func (f *fakeProvider) DeletePost(_ context.Context, postID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, postID)
	return nil
}

func (f *fakeProvider) MarkStreamRead(_ context.Context, streamID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedRead = append(f.markedRead, streamID)
	return len(f.posts[streamID]), nil
}

type fakeBridge struct {
	mu       sync.Mutex
	handled  []events.Event
	confirm  bool
	confirms []host.ConfirmOptions
	inbound  chan events.Event
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{confirm: true, inbound: make(chan events.Event, 8)}
}

func (b *fakeBridge) Confirm(_ context.Context, opts host.ConfirmOptions) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirms = append(b.confirms, opts)
	return b.confirm, nil
}

func (b *fakeBridge) RegisterCommand(string, string, host.CommandHandler) error { return nil }

func (b *fakeBridge) RunCommand(context.Context, string, string, ...string) error { return nil }

func (b *fakeBridge) Handle(_ context.Context, event *events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handled = append(b.handled, *event)
}

func (b *fakeBridge) Events() <-chan events.Event { return b.inbound }

func (b *fakeBridge) Close() error { return nil }

func (b *fakeBridge) eventsOfType(t events.Type) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, event := range b.handled {
		if event.Type == t {
			out = append(out, event)
		}
	}
	return out
}

type fixture struct {
	provider  *fakeProvider
	bridge    *fakeBridge
	notified  []string
	notifyMu  sync.Mutex
	state     *state.Manager
	threshold int
	logger    *zerolog.Logger
}

func newFixture() *fixture {
	return &fixture{provider: newFakeProvider(), bridge: newFakeBridge()}
}

func (fx *fixture) start(t *testing.T) *Model {
	t.Helper()
	model, err := New(Config{
		Provider:           fx.provider,
		Bridge:             fx.bridge,
		State:              fx.state,
		Logger:             fx.logger,
		OffBottomThreshold: fx.threshold,
		Notifications:      true,
		Notify: func(title, message string) error {
			fx.notifyMu.Lock()
			defer fx.notifyMu.Unlock()
			fx.notified = append(fx.notified, title+": "+message)
			return nil
		},
		Now: func() time.Time { return testNow },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = model.Close() })

	model = applyUpdate(t, model, tea.WindowSizeMsg{Width: 100, Height: 30})
	model = applyUpdate(t, model, model.loadMetadata()())
	require.NotEmpty(t, model.streamID)
	return applyUpdateWithCmd(t, model, model.loadStream(model.streamID)())
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{
		Type:  tea.KeyRunes,
		Runes: []rune{r},
	}
}

func typeText(t *testing.T, model *Model, text string) *Model {
	t.Helper()
	for _, r := range text {
		model = applyUpdate(t, model, runeKey(r))
	}
	return model
}

func applyUpdate(t *testing.T, model *Model, msg tea.Msg) *Model {
	t.Helper()
	next, _ := model.Update(msg)
	out, ok := next.(*Model)
	require.True(t, ok)
	return out
}

func applyUpdateWithCmd(t *testing.T, model *Model, msg tea.Msg) *Model {
	t.Helper()
	next, cmd := model.Update(msg)
	out, ok := next.(*Model)
	require.True(t, ok)
	if cmd == nil {
		return out
	}
	return runCmdDepth(t, out, cmd, 0)
}

const maxRunCmdDepth = 8

func runCmdDepth(t *testing.T, model *Model, cmd tea.Cmd, depth int) *Model {
	t.Helper()
	if cmd == nil || depth >= maxRunCmdDepth {
		return model
	}

	// Run cmd with a short timeout to skip blocking commands (ticks, channel waits).
	type result struct{ msg tea.Msg }
	ch := make(chan result, 1)
	go func() { ch <- result{cmd()} }()
	select {
	case r := <-ch:
		switch typed := r.msg.(type) {
		case nil:
			return model
		case tea.BatchMsg:
			out := model
			for _, sub := range typed {
				out = runCmdDepth(t, out, sub, depth+1)
			}
			return out
		default:
			next, nextCmd := model.Update(typed)
			out, ok := next.(*Model)
			require.True(t, ok)
			return runCmdDepth(t, out, nextCmd, depth+1)
		}
	case <-time.After(50 * time.Millisecond):
		return model
	}
}

func TestLoadShowsStreamAndCommitsRead(t *testing.T) {
	fx := newFixture()
	fx.provider.addPost("s-general", "u-bob", "hello from bob")
	fx.provider.addPost("s-general", "u-alice", "and alice")

	model := fx.start(t)

	view := model.View()
	require.Contains(t, view, "#general")
	require.Contains(t, view, "hello from bob")
	require.Contains(t, view, "and alice")
	require.Equal(t, "s-general", model.thread.State().StreamID)

	// Both posts fit on screen and the panel has focus.
	require.Zero(t, model.thread.UnreadCount())
	require.Equal(t, []string{"s-general"}, fx.provider.markedRead)
}

func TestBlurredPanelKeepsUnreadAndNotifiesMentions(t *testing.T) {
	fx := newFixture()
	model := fx.start(t)
	model = applyUpdate(t, model, tea.BlurMsg{})
	require.False(t, model.thread.State().HasFocus)

	post := fx.provider.addPost("s-general", "u-bob", "@zed can you look?")
	fx.provider.mu.Lock()
	fx.provider.posts["s-general"][0].MentionedUserIDs = []string{"u-me"}
	fx.provider.mu.Unlock()

	model = applyUpdateWithCmd(t, model, model.poll()())
	require.True(t, model.thread.IsUnread(post.ID))
	require.Empty(t, fx.provider.markedRead)
	require.Len(t, fx.notified, 1)
	require.Contains(t, fx.notified[0], "Bob mentioned you in general")

	// Regaining focus with everything visible commits the read.
	model = applyUpdateWithCmd(t, model, tea.FocusMsg{})
	require.False(t, model.thread.IsUnread(post.ID))
	require.Equal(t, []string{"s-general"}, fx.provider.markedRead)
}

func TestMentionAutocompleteAndSubmit(t *testing.T) {
	fx := newFixture()
	model := fx.start(t)

	model = typeText(t, model, "@a")
	st := model.composer.State()
	require.True(t, st.Mention.Open)
	require.Len(t, st.Mention.Candidates, 2)
	require.Equal(t, "alice", st.Mention.Candidates[0].Username)
	require.Equal(t, "albert", st.Mention.Candidates[1].Username)
	require.Contains(t, model.View(), "@albert")

	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, 1, model.composer.State().Mention.SelectedIndex)
	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, model.composer.Suggesting())
	require.Equal(t, "@albert ", model.composer.Text())
	require.Empty(t, fx.provider.created)

	model = typeText(t, model, "hi")
	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, fx.provider.created, 1)
	req := fx.provider.created[0]
	require.Equal(t, "@albert hi", req.Text)
	require.Equal(t, "s-general", req.StreamID)
	require.Equal(t, []string{"u-albert"}, req.MentionedUserIDs)
	require.Equal(t, []string{"albert"}, req.Extra["autoMentions"])
	require.Empty(t, model.composer.Text())
	require.Len(t, model.thread.Posts(), 1)

	analytics := fx.bridge.eventsOfType(events.TypeAnalytics)
	require.Len(t, analytics, 1)
	require.Equal(t, "Post Created", analytics[0].Body.(events.Analytics).Label)
}

func TestFindReplaceEditsLastPostWithoutPosting(t *testing.T) {
	fx := newFixture()
	mine := fx.provider.addPost("s-general", "u-me", "I likde teh cat")
	model := fx.start(t)

	model = typeText(t, model, "s/teh/the/")
	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyEnter})

	require.Empty(t, fx.provider.created)
	require.Len(t, fx.provider.edits, 1)
	require.Equal(t, mine.ID, fx.provider.edits[0].postID)
	require.Equal(t, "I likde the cat", fx.provider.edits[0].text)
	post, ok := model.thread.Post(mine.ID)
	require.True(t, ok)
	require.Equal(t, "I likde the cat", post.Text)
	require.True(t, post.HasBeenEdited)
}

func TestUpArrowWalksOwnPostsAndSavesEdit(t *testing.T) {
	fx := newFixture()
	first := fx.provider.addPost("s-general", "u-me", "first")
	fx.provider.addPost("s-general", "u-bob", "not mine")
	second := fx.provider.addPost("s-general", "u-me", "second")
	model := fx.start(t)

	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyUp})
	editing, ok := model.thread.EditingPost()
	require.True(t, ok)
	require.Equal(t, second.ID, editing.ID)
	require.Equal(t, "second", model.composer.Text())

	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyUp})
	editing, ok = model.thread.EditingPost()
	require.True(t, ok)
	require.Equal(t, first.ID, editing.ID)
	require.Equal(t, "first", model.composer.Text())

	model = typeText(t, model, "!")
	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	_, ok = model.thread.EditingPost()
	require.False(t, ok)
	require.Len(t, fx.provider.edits, 1)
	require.Equal(t, first.ID, fx.provider.edits[0].postID)
	require.Equal(t, "first!", fx.provider.edits[0].text)
	require.Empty(t, fx.provider.created)
}

func TestEscapeCancelsEditThenClosesThread(t *testing.T) {
	fx := newFixture()
	fx.provider.addPost("s-general", "u-bob", "root post")
	mine := fx.provider.addPost("s-general", "u-me", "mine")
	model := fx.start(t)

	// The newest root is the user's own post.
	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyCtrlR})
	st := model.thread.State()
	require.True(t, st.ThreadPaneActive)
	require.Equal(t, mine.ID, st.ActiveThreadID)
	require.Len(t, fx.bridge.eventsOfType(events.TypeThreadSelected), 1)

	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyUp})
	require.NotEmpty(t, model.thread.State().EditingPostID)

	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyEsc})
	require.Empty(t, model.thread.State().EditingPostID)
	require.True(t, model.thread.State().ThreadPaneActive)
	require.Empty(t, model.composer.Text())

	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyEsc})
	require.False(t, model.thread.State().ThreadPaneActive)
	closed := fx.bridge.eventsOfType(events.TypeThreadClosed)
	require.Len(t, closed, 1)
	require.Equal(t, mine.ID, closed[0].Body.(events.ThreadClosed).Post.ID)
}

func TestReplyGoesToOpenThread(t *testing.T) {
	fx := newFixture()
	root := fx.provider.addPost("s-general", "u-bob", "question?")
	model := fx.start(t)

	model.thread.SelectPost(root.ID, true)
	model = typeText(t, model, "answer")
	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, fx.provider.created, 1)
	require.Equal(t, root.ID, fx.provider.created[0].ParentPostID)
	require.Contains(t, model.View(), "Thread")
}

func TestCodeHighlightedAttachesQuote(t *testing.T) {
	fx := newFixture()
	model := fx.start(t)

	quote := models.CodeQuote{
		File:       "main.go",
		QuoteText:  "x := 1",
		QuoteRange: models.Range{StartLine: 3, EndLine: 3},
		Authors:    []string{"alice@example.com", "nobody@example.com"},
	}
	model = applyUpdate(t, model, hostEventMsg{event: events.Event{
		Type: events.TypeCodeHighlighted,
		Body: events.CodeHighlighted{Quote: quote},
	}})
	st := model.composer.State()
	require.NotNil(t, st.QuotedCode)
	require.Equal(t, "@alice:  ", st.Text)
	require.Contains(t, model.View(), "main.go:3")

	model = typeText(t, model, "why?")
	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, fx.provider.created, 1)
	req := fx.provider.created[0]
	require.Len(t, req.CodeBlocks, 1)
	require.Equal(t, "main.go", req.CodeBlocks[0].File)
	require.Equal(t, []string{"u-alice"}, req.MentionedUserIDs)

	// The new post's file is now watched.
	subs := fx.bridge.eventsOfType(events.TypeSubscribeFileChanged)
	require.Len(t, subs, 1)
	require.Equal(t, "main.go", subs[0].Body.(events.FileSubscription).File)
}

func TestDismissQuote(t *testing.T) {
	fx := newFixture()
	model := fx.start(t)
	model = applyUpdate(t, model, hostEventMsg{event: events.Event{
		Type: events.TypeCodeHighlighted,
		Body: events.CodeHighlighted{Quote: models.CodeQuote{File: "a.go", QuoteText: "a", QuoteRange: models.Range{StartLine: 1, EndLine: 1}}},
	}})
	require.NotNil(t, model.composer.State().QuotedCode)

	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyCtrlX})
	require.Nil(t, model.composer.State().QuotedCode)
}

func TestFileChangedShowsDiffActions(t *testing.T) {
	fx := newFixture()
	fx.provider.mu.Lock()
	post := fx.provider.addPostLocked("s-general", "u-bob", "look here", "")
	post.CodeBlocks = []models.CodeBlock{{ID: "b1", File: "main.go", Code: "x := 1", Range: models.Range{StartLine: 1, EndLine: 1}}}
	fx.provider.posts["s-general"][0] = post
	fx.provider.mu.Unlock()

	model := fx.start(t)
	subs := fx.bridge.eventsOfType(events.TypeSubscribeFileChanged)
	require.Len(t, subs, 1)
	require.Equal(t, "b1", subs[0].Body.(events.FileSubscription).Blocks[0].ID)
	require.NotContains(t, model.View(), "[diff]")

	model = applyUpdate(t, model, hostEventMsg{event: events.Event{
		Type: events.TypeFileChanged,
		Body: events.FileChanged{File: "main.go", HasDiff: true},
	}})
	view := model.View()
	require.Contains(t, view, "[diff]")
	require.Contains(t, view, "[apply]")

	model = applyUpdate(t, model, hostEventMsg{event: events.Event{
		Type: events.TypeDiffReady,
		Body: events.DiffReady{CodeBlock: post.CodeBlocks[0], Diff: "--- quoted/main.go\n+++ working/main.go\n@@ -1 +1 @@\n-x := 1\n+x := 2\n"},
	}})
	require.Contains(t, model.View(), "Diff")
	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyEsc})
	require.Nil(t, model.diff)
}

func TestMarkerSelectedOpensThreadSilently(t *testing.T) {
	fx := newFixture()
	root := fx.provider.addPost("s-general", "u-bob", "root")
	model := fx.start(t)

	model = applyUpdate(t, model, hostEventMsg{event: events.Event{
		Type: events.TypeMarkerSelected,
		Body: events.MarkerSelected{PostID: root.ID},
	}})
	require.Equal(t, root.ID, model.thread.State().ActiveThreadID)
	require.Empty(t, fx.bridge.eventsOfType(events.TypeThreadSelected))
}

func TestStreamSwitchMovesSubscriptionsAndDrafts(t *testing.T) {
	fx := newFixture()
	fx.state = state.New(filepath.Join(t.TempDir(), "state.json"))
	fx.provider.mu.Lock()
	post := fx.provider.addPostLocked("s-general", "u-bob", "quoted", "")
	post.CodeBlocks = []models.CodeBlock{{ID: "b1", File: "main.go", Code: "x", Range: models.Range{StartLine: 1, EndLine: 1}}}
	fx.provider.posts["s-general"][0] = post
	fx.provider.mu.Unlock()
	fx.provider.addPost("s-random", "u-alice", "over in random")

	model := fx.start(t)
	model = typeText(t, model, "half written")

	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Equal(t, "s-random", model.thread.State().StreamID)
	require.Empty(t, model.composer.Text())
	require.Contains(t, model.View(), "over in random")
	require.Len(t, fx.bridge.eventsOfType(events.TypeUnsubscribeFileChanged), 1)
	require.Equal(t, "s-random", fx.state.LastStream())

	draft, ok := fx.state.Draft("s-general")
	require.True(t, ok)
	require.Equal(t, "half written", draft.Text)

	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyCtrlP})
	require.Equal(t, "s-general", model.thread.State().StreamID)
	require.Equal(t, "half written", model.composer.Text())
	require.Len(t, fx.bridge.eventsOfType(events.TypeSubscribeFileChanged), 2)
}

func TestStreamSwitchLogsTargetStream(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	fx := newFixture()
	fx.logger = &logger
	fx.provider.addPost("s-random", "u-alice", "over in random")

	model := fx.start(t)
	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Equal(t, "s-random", model.thread.State().StreamID)
	require.Contains(t, logs.String(), `"stream_id":"s-random"`)
	require.Contains(t, logs.String(), `"message":"switching stream"`)
	require.Contains(t, logs.String(), `"component":"streamview"`)
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	fx := newFixture()
	mine := fx.provider.addPost("s-general", "u-me", "oops")
	model := fx.start(t)

	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyUp})
	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyCtrlD})

	require.Len(t, fx.bridge.confirms, 1)
	require.Equal(t, []string{mine.ID}, fx.provider.deleted)
	_, ok := model.thread.Post(mine.ID)
	require.False(t, ok)
	_, editing := model.thread.EditingPost()
	require.False(t, editing)
}

func TestDeclinedDeleteKeepsPost(t *testing.T) {
	fx := newFixture()
	fx.bridge.confirm = false
	mine := fx.provider.addPost("s-general", "u-me", "keep me")
	model := fx.start(t)

	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyUp})
	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyCtrlD})

	require.Empty(t, fx.provider.deleted)
	_, ok := model.thread.Post(mine.ID)
	require.True(t, ok)
	require.Contains(t, model.View(), "delete cancelled")
}

func TestPromptAnsweredFromKeyboard(t *testing.T) {
	fx := newFixture()
	model := fx.start(t)

	term, err := host.NewTerminal(host.TerminalConfig{Root: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = term.Close() })

	answer := make(chan bool, 1)
	go func() {
		ok, _ := term.Confirm(context.Background(), host.ConfirmOptions{Title: "Delete post", Message: "sure?"})
		answer <- ok
	}()
	req := <-term.Prompts()

	model = applyUpdate(t, model, promptMsg{req: req})
	require.Contains(t, model.View(), "Delete post: sure?")

	// Other keys are swallowed while the prompt is up.
	model = applyUpdate(t, model, runeKey('x'))
	require.Empty(t, model.composer.Text())

	model = applyUpdate(t, model, runeKey('y'))
	require.Nil(t, model.prompt)
	select {
	case ok := <-answer:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("confirmation was not answered")
	}
}

func TestScrolledUpStaysPutOnNewPosts(t *testing.T) {
	fx := newFixture()
	fx.threshold = 5
	for i := 0; i < 50; i++ {
		fx.provider.addPost("s-general", "u-me", fmt.Sprintf("post %d", i))
	}
	model := fx.start(t)
	require.True(t, model.viewport.AtBottom())

	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyPgUp})
	require.True(t, model.thread.State().ScrolledOffBottom)
	offset := model.viewport.YOffset

	incoming := fx.provider.addPost("s-general", "u-bob", "new while scrolled up")
	model = applyUpdateWithCmd(t, model, model.poll()())
	require.Equal(t, offset, model.viewport.YOffset)
	require.True(t, model.thread.IsUnread(incoming.ID))
	require.True(t, model.thread.State().UnreadBelow)
	require.Contains(t, model.View(), "new posts below")

	// Scrolling back down reveals the post and commits the read.
	for i := 0; i < 5 && !model.viewport.AtBottom(); i++ {
		model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyPgDown})
	}
	require.False(t, model.thread.State().UnreadBelow)
	require.False(t, model.thread.IsUnread(incoming.ID))
	require.Contains(t, fx.provider.markedRead, "s-general")
}

func TestOwnPostScrollsToBottom(t *testing.T) {
	fx := newFixture()
	fx.threshold = 5
	for i := 0; i < 50; i++ {
		fx.provider.addPost("s-general", "u-me", fmt.Sprintf("post %d", i))
	}
	model := fx.start(t)
	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyPgUp})
	require.False(t, model.viewport.AtBottom())

	model = typeText(t, model, "mine")
	model = applyUpdateWithCmd(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, model.viewport.AtBottom())
}

func TestAltEnterInsertsNewline(t *testing.T) {
	fx := newFixture()
	model := fx.start(t)

	model = typeText(t, model, "one")
	model = applyUpdate(t, model, tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	model = typeText(t, model, "two")
	require.Equal(t, "one\ntwo", model.composer.Text())
	require.Empty(t, fx.provider.created)
	require.Equal(t, 2, model.input.Height())
}

func TestPopupWindow(t *testing.T) {
	tests := []struct {
		n, selected, limit int
		start, end         int
	}{
		{n: 3, selected: 0, limit: 8, start: 0, end: 3},
		{n: 10, selected: 0, limit: 0, start: 0, end: 10},
		{n: 10, selected: 2, limit: 4, start: 0, end: 4},
		{n: 10, selected: 7, limit: 4, start: 4, end: 8},
		{n: 10, selected: 9, limit: 4, start: 6, end: 10},
	}
	for _, tt := range tests {
		start, end := popupWindow(tt.n, tt.selected, tt.limit)
		require.Equal(t, tt.start, start, "n=%d selected=%d limit=%d", tt.n, tt.selected, tt.limit)
		require.Equal(t, tt.end, end, "n=%d selected=%d limit=%d", tt.n, tt.selected, tt.limit)
	}
}

func TestNewRequiresProvider(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestViewBeforeSize(t *testing.T) {
	model, err := New(Config{Provider: newFakeProvider()})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(model.View(), "Loading"))
}
