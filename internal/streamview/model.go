// Package streamview is the terminal stream panel: a bubbletea model that
// wires the composer, the thread controller, the data provider and the host.
package streamview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"
	zone "github.com/lrstanley/bubblezone"
	"github.com/rs/zerolog"

	"github.com/tOgg1/streampanel/internal/events"
	"github.com/tOgg1/streampanel/internal/host"
	"github.com/tOgg1/streampanel/internal/logging"
	"github.com/tOgg1/streampanel/internal/models"
	"github.com/tOgg1/streampanel/internal/streamview/composer"
	"github.com/tOgg1/streampanel/internal/streamview/data"
	"github.com/tOgg1/streampanel/internal/streamview/state"
	"github.com/tOgg1/streampanel/internal/streamview/styles"
	"github.com/tOgg1/streampanel/internal/streamview/textedit"
	"github.com/tOgg1/streampanel/internal/streamview/thread"
)

const (
	defaultPollInterval = 2 * time.Second
	confirmTimeout      = 5 * time.Minute
	maxComposerLines    = 5
	hostSubscriberID    = "host"
)

var errNoProvider = errors.New("streamview: provider is required")

type Config struct {
	Provider data.Provider
	Bridge   host.Bridge

	// State persists drafts and the last stream. Optional.
	State *state.Manager

	// Publisher carries outbound events to the host. Defaults to an
	// in-memory publisher with the bridge subscribed.
	Publisher events.Publisher

	Logger *zerolog.Logger

	Theme              string
	InitialStream      string
	PollInterval       time.Duration
	OffBottomThreshold int

	// SuggestionLimit caps the visible mention candidates; 0 shows all.
	SuggestionLimit int
	Notifications   bool
	RelativeTime    bool

	// Notify shows a desktop notification. Defaults to beeep.Notify.
	Notify func(title, message string) error

	Now func() time.Time
}

// Model is the stream panel.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	provider      data.Provider
	bridge        host.Bridge
	tuiState      *state.Manager
	publisher     events.Publisher
	ownsPublisher bool
	logger        zerolog.Logger
	notify        func(title, message string) error
	now           func() time.Time

	theme      styles.Theme
	postStyles styles.PostStyles
	codeStyles styles.CodeStyles
	zones      *zone.Manager

	width    int
	height   int
	viewport viewport.Model
	input    textarea.Model
	surface  *textedit.Textarea
	composer *composer.Machine
	thread   *thread.Controller
	queue    *dataQueue

	pollInterval    time.Duration
	suggestionLimit int
	notifications   bool
	relativeTime    bool

	users         []models.User
	streams       []models.Stream
	streamID      string
	initialStream string
	loading       bool

	fileDiffs     map[string]bool
	subscriptions []events.FileSubscription
	subscribed    map[string]bool // code block IDs with a live subscription

	diff         *events.DiffReady
	prompt       *host.ConfirmRequest
	status       string
	statusErr    bool
	nodes        []thread.NodeBox
	stickBottom  bool
	hostDetached bool
	quitting     bool
}

// New builds the panel model. Nothing is loaded until Init runs.
func New(cfg Config) (*Model, error) {
	if cfg.Provider == nil {
		return nil, errNoProvider
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "streamview").Logger()
	}
	theme, ok := styles.Lookup(cfg.Theme)
	if !ok && cfg.Theme != "" {
		logger.Warn().Str("theme", cfg.Theme).Msg("unknown theme, using default")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		ctx:             ctx,
		cancel:          cancel,
		provider:        cfg.Provider,
		bridge:          cfg.Bridge,
		tuiState:        cfg.State,
		publisher:       cfg.Publisher,
		logger:          logger,
		notify:          cfg.Notify,
		now:             cfg.Now,
		theme:           theme,
		codeStyles:      styles.NewCodeStyles(theme),
		zones:           zone.New(),
		viewport:        viewport.New(0, 0),
		pollInterval:    cfg.PollInterval,
		suggestionLimit: cfg.SuggestionLimit,
		notifications:   cfg.Notifications,
		relativeTime:    cfg.RelativeTime,
		initialStream:   cfg.InitialStream,
		fileDiffs:       make(map[string]bool),
		subscribed:      make(map[string]bool),
	}
	m.postStyles = styles.NewPostStyles(theme, nil)
	if m.pollInterval <= 0 {
		m.pollInterval = defaultPollInterval
	}
	if m.suggestionLimit < 0 {
		m.suggestionLimit = 0
	}
	if m.notify == nil {
		m.notify = func(title, message string) error { return beeep.Notify(title, message, "") }
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.tuiState != nil {
		prefs := m.tuiState.Preferences()
		m.relativeTime = m.relativeTime || prefs.RelativeTime
	}

	if m.publisher == nil {
		m.publisher = events.NewInMemoryPublisher()
		m.ownsPublisher = true
	}
	if m.bridge != nil {
		bridge := m.bridge
		if err := m.publisher.Subscribe(hostSubscriberID, events.Filter{}, func(event *events.Event) {
			bridge.Handle(ctx, event)
		}); err != nil {
			cancel()
			return nil, fmt.Errorf("subscribe host: %w", err)
		}
	}

	m.input = textarea.New()
	m.input.CharLimit = 0
	m.input.ShowLineNumbers = false
	m.input.Prompt = ""
	m.input.MaxHeight = 0
	m.input.Placeholder = "Message (enter to send, alt+enter for newline)"
	m.input.SetHeight(1)
	m.input.Focus()
	m.surface = textedit.NewTextarea(&m.input)

	m.queue = newDataQueue(ctx, cfg.Provider)
	m.composer = composer.New(composer.Options{
		Surface:  m.surface,
		Roster:   m.roster,
		OnSubmit: m.routeSubmission,
		Logger:   cfg.Logger,
	})
	m.thread = thread.New(thread.Options{
		CurrentUserID:      cfg.Provider.CurrentUserID(),
		OffBottomThreshold: cfg.OffBottomThreshold,
		Notifier:           m.publisher,
		Data:               m.queue,
		FocusComposer:      func() { m.input.Focus() },
		Roster:             m.roster,
		Logger:             cfg.Logger,
	})
	// A freshly started terminal program has focus until told otherwise.
	m.thread.SetFocus(true)
	return m, nil
}

// Run starts the panel in the alternate screen and blocks until it quits.
func Run(cfg Config) error {
	model, err := New(cfg)
	if err != nil {
		return err
	}
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithReportFocus())
	_, err = program.Run()
	return err
}

// Close saves the current draft and releases the publisher subscription.
// The bridge is owned by the caller.
func (m *Model) Close() error {
	if m == nil {
		return nil
	}
	m.saveDraft()
	m.unsubscribeFiles()
	m.cancel()
	if m.bridge != nil {
		_ = m.publisher.Unsubscribe(hostSubscriberID)
	}
	if closer, ok := m.publisher.(interface{ Close() }); ok && m.ownsPublisher {
		closer.Close()
	}
	if m.tuiState != nil {
		return m.tuiState.Close()
	}
	return nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadMetadata(),
		m.waitHostEvent(),
		m.waitPrompt(),
		m.pollTick(),
		textarea.Blink,
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	m.relayout()
	return m, tea.Batch(cmd, m.queue.drain())
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		return nil
	case tea.FocusMsg:
		m.thread.SetFocus(true)
		return nil
	case tea.BlurMsg:
		m.thread.SetFocus(false)
		return nil
	case tea.KeyMsg:
		return m.handleKey(typed)
	case tea.MouseMsg:
		return m.handleMouse(typed)

	case metadataLoadedMsg:
		if typed.err != nil {
			m.setError("load streams", typed.err)
			return nil
		}
		m.users = typed.users
		m.streams = typed.streams
		return m.switchStream(m.pickInitialStream())
	case streamLoadedMsg:
		return m.applyStreamLoaded(typed)
	case pollTickMsg:
		return tea.Batch(m.poll(), m.pollTick())
	case postsPolledMsg:
		return m.applyPolled(typed)
	case postCreatedMsg:
		if typed.err != nil {
			m.setError("post", typed.err)
			return nil
		}
		if m.thread.AddPost(*typed.post) {
			m.stickBottom = true
		}
		m.subscribeFiles()
		return nil
	case postEditedMsg:
		if typed.err != nil {
			m.setError("edit post", typed.err)
		}
		return nil
	case postDeletedMsg:
		if typed.err != nil {
			m.setError("delete post", typed.err)
			return nil
		}
		m.thread.RemovePost(typed.postID)
		m.setStatus("post deleted")
		return nil
	case markedReadMsg:
		if typed.err != nil {
			m.logger.Warn().Err(typed.err).Str("stream_id", typed.streamID).Msg("mark read failed")
			return nil
		}
		m.logger.Debug().Str("stream_id", typed.streamID).Int("seq", typed.seq).Msg("stream marked read")
		return nil
	case deleteConfirmedMsg:
		return m.applyDeleteConfirmed(typed)
	case notifyDoneMsg:
		if typed.err != nil {
			m.logger.Debug().Err(typed.err).Msg("desktop notification failed")
		}
		return nil

	case hostEventMsg:
		m.handleHostEvent(typed.event)
		return m.waitHostEvent()
	case hostClosedMsg:
		m.hostDetached = true
		return nil
	case promptMsg:
		m.prompt = typed.req
		return m.waitPrompt()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) roster() []models.User {
	return m.users
}

func (m *Model) setStatus(text string) {
	m.status = text
	m.statusErr = false
}

func (m *Model) setError(action string, err error) {
	m.logger.Warn().Err(err).Str("action", action).Msg("panel operation failed")
	m.status = action + ": " + err.Error()
	m.statusErr = true
}

func (m *Model) pickInitialStream() string {
	candidates := []string{m.initialStream}
	if m.tuiState != nil {
		candidates = append(candidates, m.tuiState.LastStream())
	}
	for _, want := range candidates {
		if want == "" {
			continue
		}
		for _, stream := range m.streams {
			if stream.ID == want || stream.Name == want {
				return stream.ID
			}
		}
	}
	if len(m.streams) > 0 {
		return m.streams[0].ID
	}
	return ""
}

func (m *Model) streamName(id string) string {
	for _, stream := range m.streams {
		if stream.ID == id {
			return stream.Name
		}
	}
	return id
}

func (m *Model) loadMetadata() tea.Cmd {
	ctx, provider := m.ctx, m.provider
	return func() tea.Msg {
		users, err := provider.Users(ctx)
		if err != nil {
			return metadataLoadedMsg{err: err}
		}
		streams, err := provider.Streams(ctx)
		return metadataLoadedMsg{users: users, streams: streams, err: err}
	}
}

func (m *Model) loadStream(streamID string) tea.Cmd {
	ctx, provider := m.ctx, m.provider
	return func() tea.Msg {
		posts, err := provider.Posts(ctx, streamID, 0)
		if err != nil {
			return streamLoadedMsg{streamID: streamID, err: err}
		}
		lastRead, err := provider.LastReadSeqNum(ctx, streamID)
		return streamLoadedMsg{streamID: streamID, posts: posts, lastRead: lastRead, err: err}
	}
}

func (m *Model) pollTick() tea.Cmd {
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

// poll reloads the whole stream so edits and deletions show up too.
func (m *Model) poll() tea.Cmd {
	if m.streamID == "" || m.loading {
		return nil
	}
	ctx, provider, streamID := m.ctx, m.provider, m.streamID
	return func() tea.Msg {
		posts, err := provider.Posts(ctx, streamID, 0)
		if err != nil {
			return postsPolledMsg{streamID: streamID, err: err}
		}
		users, err := provider.Users(ctx)
		return postsPolledMsg{streamID: streamID, posts: posts, users: users, err: err}
	}
}

func (m *Model) switchStream(streamID string) tea.Cmd {
	if streamID == "" || (streamID == m.streamID && !m.loading) {
		return nil
	}
	m.saveDraft()
	m.unsubscribeFiles()
	m.streamID = streamID
	m.loading = true
	m.diff = nil
	if m.tuiState != nil {
		m.tuiState.SetLastStream(streamID)
	}
	logger := logging.WithStream(m.logger, streamID)
	logger.Debug().Msg("switching stream")
	return m.loadStream(streamID)
}

func (m *Model) applyStreamLoaded(msg streamLoadedMsg) tea.Cmd {
	if msg.streamID != m.streamID {
		return nil
	}
	m.loading = false
	if msg.err != nil {
		m.setError("load stream", msg.err)
		return nil
	}
	m.thread.SetStream(msg.streamID, msg.posts, msg.lastRead)
	m.stickBottom = true
	m.setStatus("")

	if _, editing := m.thread.EditingPost(); !editing {
		m.composer.Reset()
		m.restoreDraft()
	}
	if m.tuiState != nil {
		if threadID := m.tuiState.OpenThread(msg.streamID); threadID != "" {
			m.thread.SelectPost(threadID, false)
		}
	}
	m.subscribeFiles()
	return nil
}

func (m *Model) applyPolled(msg postsPolledMsg) tea.Cmd {
	if msg.streamID != m.streamID || m.loading {
		return nil
	}
	if msg.err != nil {
		m.logger.Warn().Err(msg.err).Str("stream_id", msg.streamID).Msg("poll failed")
		return nil
	}
	if len(msg.users) > 0 {
		m.users = msg.users
	}

	me := m.thread.CurrentUserID()
	var cmds []tea.Cmd
	for _, post := range msg.posts {
		prev, known := m.thread.Post(post.ID)
		if known && postsEqual(prev, post) {
			continue
		}
		if m.thread.AddPost(post) {
			m.stickBottom = true
		}
		if !known && post.AuthorID != me && post.Mentions(me) && !post.Deactivated {
			cmds = append(cmds, m.notifyMention(post))
		}
	}
	m.subscribeFiles()
	return tea.Batch(cmds...)
}

func postsEqual(a, b models.Post) bool {
	return a.Text == b.Text && a.Deactivated == b.Deactivated && a.HasBeenEdited == b.HasBeenEdited &&
		a.SeqNum == b.SeqNum && len(a.CodeBlocks) == len(b.CodeBlocks)
}

func (m *Model) restoreDraft() {
	if m.tuiState == nil {
		return
	}
	draft, ok := m.tuiState.Draft(m.streamID)
	if !ok {
		return
	}
	m.composer.Restore(draft.Text, draft.Quote)
}

func (m *Model) saveDraft() {
	if m.tuiState == nil || m.streamID == "" {
		return
	}
	if _, editing := m.thread.EditingPost(); editing {
		return
	}
	st := m.composer.State()
	m.tuiState.SetDraft(state.Draft{
		StreamID:     m.streamID,
		ParentPostID: m.thread.State().ActiveThreadID,
		Text:         st.Text,
		Quote:        st.QuotedCode,
		UpdatedAt:    m.now().UTC(),
	})
}

func (m *Model) rememberThread() {
	if m.tuiState == nil || m.streamID == "" {
		return
	}
	m.tuiState.SetOpenThread(m.streamID, m.thread.State().ActiveThreadID)
}

// routeSubmission runs inside composer.Submit, which already reset the
// composer.
func (m *Model) routeSubmission(sub composer.Submission) {
	if _, editing := m.thread.EditingPost(); editing {
		m.thread.SaveEdit(sub.Text)
		m.input.Focus()
		return
	}
	if m.tuiState != nil {
		m.tuiState.DeleteDraft(m.streamID)
	}
	if m.thread.TryFindReplace(sub.Text) {
		m.setStatus("last post edited")
		return
	}
	if m.streamID == "" {
		m.setStatus("no stream selected")
		return
	}

	req := data.NewPost{
		StreamID:         m.streamID,
		Text:             sub.Text,
		MentionedUserIDs: sub.MentionedUserIDs,
	}
	if st := m.thread.State(); st.ThreadPaneActive {
		req.ParentPostID = st.ActiveThreadID
	}
	if sub.Quote != nil {
		req.CodeBlocks = []models.CodeBlock{sub.Quote.CodeBlock()}
	}
	if len(sub.AutoMentions) > 0 {
		req.Extra = map[string]any{"autoMentions": sub.AutoMentions}
	}

	m.publisher.Publish(m.ctx, events.New(events.TypeAnalytics, events.Analytics{
		Label: "Post Created",
		Payload: map[string]any{
			"streamId":    m.streamID,
			"reply":       req.ParentPostID != "",
			"codeBlocks":  len(req.CodeBlocks),
			"mentions":    len(req.MentionedUserIDs),
			"autoMention": len(sub.AutoMentions) > 0,
		},
	}))

	ctx, provider := m.ctx, m.provider
	m.queue.pending = append(m.queue.pending, func() tea.Msg {
		post, err := provider.CreatePost(ctx, req)
		return postCreatedMsg{post: post, err: err}
	})
}

func (m *Model) requestDelete() tea.Cmd {
	post, ok := m.thread.EditingPost()
	if !ok {
		return nil
	}
	if m.bridge == nil {
		return func() tea.Msg { return deleteConfirmedMsg{postID: post.ID, ok: true} }
	}
	ctx, bridge := m.ctx, m.bridge
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, confirmTimeout)
		defer cancel()
		ok, err := bridge.Confirm(ctx, host.ConfirmOptions{
			Title:        "Delete post",
			Message:      "Delete this post? This cannot be undone.",
			ConfirmLabel: "Delete",
			CancelLabel:  "Cancel",
		})
		return deleteConfirmedMsg{postID: post.ID, ok: ok, err: err}
	}
}

func (m *Model) applyDeleteConfirmed(msg deleteConfirmedMsg) tea.Cmd {
	if msg.err != nil {
		m.setError("confirm delete", msg.err)
		return nil
	}
	if !msg.ok {
		m.setStatus("delete cancelled")
		return nil
	}
	if editing, ok := m.thread.EditingPost(); ok && editing.ID == msg.postID {
		m.thread.CancelEdit()
		m.composer.Reset()
	}
	ctx, provider, postID := m.ctx, m.provider, msg.postID
	return func() tea.Msg {
		return postDeletedMsg{postID: postID, err: provider.DeletePost(ctx, postID)}
	}
}
