package host

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/streampanel/internal/events"
	"github.com/tOgg1/streampanel/internal/logging"
	"github.com/tOgg1/streampanel/internal/models"
)

const defaultEventBuffer = 64

// Built-in commands registered by every Terminal.
const (
	ScopeEditor      = "editor"
	CommandHighlight = "highlight"
)

// TerminalConfig configures a Terminal host.
type TerminalConfig struct {
	// Root resolves relative code block paths. Defaults to the working directory.
	Root string

	EventBuffer   int
	WatchDebounce time.Duration
	Logger        zerolog.Logger
}

// Terminal is the host used when the panel runs as a standalone terminal
// program. Files are read from Root, confirmations are shown by the panel
// itself through Prompts, and editor selections come from the highlight
// command.
type Terminal struct {
	root    string
	logger  zerolog.Logger
	watcher *fileWatcher

	events  chan events.Event
	prompts chan *ConfirmRequest

	mu       sync.Mutex
	closed   bool
	commands map[string]CommandHandler
	blocks   map[string][]models.CodeBlock // absolute path -> subscribed blocks
}

var _ Bridge = (*Terminal)(nil)

// NewTerminal starts a terminal host with its file watcher.
func NewTerminal(cfg TerminalConfig) (*Terminal, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	t := &Terminal{
		root:     absRoot,
		logger:   cfg.Logger.With().Str("component", "host").Logger(),
		events:   make(chan events.Event, buffer),
		prompts:  make(chan *ConfirmRequest, 1),
		commands: make(map[string]CommandHandler),
		blocks:   make(map[string][]models.CodeBlock),
	}
	watcher, err := newFileWatcher(t.logger, cfg.WatchDebounce, t.fileChanged)
	if err != nil {
		return nil, fmt.Errorf("start file watcher: %w", err)
	}
	t.watcher = watcher

	if err := t.RegisterCommand(ScopeEditor, CommandHighlight, t.highlight); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return t, nil
}

// Root is the directory code block paths are resolved against.
func (t *Terminal) Root() string { return t.root }

func (t *Terminal) Events() <-chan events.Event { return t.events }

// Prompts delivers confirmation requests for the panel to display.
func (t *Terminal) Prompts() <-chan *ConfirmRequest { return t.prompts }

func (t *Terminal) Confirm(ctx context.Context, opts ConfirmOptions) (bool, error) {
	if t.isClosed() {
		return false, ErrClosed
	}
	req := &ConfirmRequest{Options: opts, reply: make(chan bool, 1)}
	select {
	case t.prompts <- req:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-req.reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (t *Terminal) RegisterCommand(scope, name string, handler CommandHandler) error {
	if strings.TrimSpace(scope) == "" || strings.TrimSpace(name) == "" || handler == nil {
		return errors.New("command scope, name and handler are required")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	key := commandKey(scope, name)
	if _, ok := t.commands[key]; ok {
		return fmt.Errorf("%w: %s", ErrCommandExists, key)
	}
	t.commands[key] = handler
	return nil
}

// Commands lists registered commands as "scope.name", sorted.
func (t *Terminal) Commands() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.commands))
	for key := range t.commands {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func (t *Terminal) RunCommand(ctx context.Context, scope, name string, args ...string) error {
	t.mu.Lock()
	handler, ok := t.commands[commandKey(scope, name)]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, commandKey(scope, name))
	}
	return handler(ctx, args...)
}

// Handle reacts to outbound panel events. It is registered as a publisher
// subscriber, so it only does file-local work and never blocks on the panel.
func (t *Terminal) Handle(ctx context.Context, event *events.Event) {
	if event == nil {
		return
	}
	log := t.logger.With().Str("event", string(event.Type)).Logger()

	switch body := event.Body.(type) {
	case events.FileSubscription:
		if event.Type == events.TypeUnsubscribeFileChanged {
			t.unsubscribe(body)
			return
		}
		if err := t.subscribe(body); err != nil {
			log.Warn().Err(err).Str("file", body.File).Msg("subscribe failed")
		}
	case events.CodeBlockAction:
		switch event.Type {
		case events.TypeShowDiff:
			t.showDiff(body)
		case events.TypeApplyPatch:
			t.applyPatch(body)
		}
	case events.Analytics:
		log.Info().Str("label", body.Label).Fields(logging.RedactMap(body.Payload)).Msg("analytics")
	case events.ThreadSelected:
		log.Debug().Str("thread_id", body.ThreadID).Str("stream_id", body.StreamID).Msg("thread selected")
	case events.ThreadClosed:
		log.Debug().Str("post_id", body.Post.ID).Msg("thread closed")
	default:
		log.Debug().Msg("unhandled event")
	}
}

// Subscriber returns an events.EventHandler that forwards to Handle.
func (t *Terminal) Subscriber(ctx context.Context) events.EventHandler {
	return func(event *events.Event) { t.Handle(ctx, event) }
}

// Emit queues an inbound event for the panel. Events are dropped when the
// panel is not keeping up.
func (t *Terminal) Emit(event events.Event) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case t.events <- event:
		return true
	default:
		t.logger.Warn().Str("event", string(event.Type)).Msg("event buffer full, dropping")
		return false
	}
}

func (t *Terminal) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.events)
	t.mu.Unlock()
	return t.watcher.Close()
}

func (t *Terminal) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Terminal) resolve(file string) string {
	if filepath.IsAbs(file) {
		return filepath.Clean(file)
	}
	return filepath.Join(t.root, file)
}

func (t *Terminal) subscribe(sub events.FileSubscription) error {
	path := t.resolve(sub.File)
	if err := t.watcher.Add(path); err != nil {
		return err
	}
	t.mu.Lock()
	t.blocks[path] = append(t.blocks[path], sub.Blocks...)
	t.mu.Unlock()
	t.logger.Debug().Str("file", sub.File).Int("blocks", len(sub.Blocks)).Msg("watching file")
	return nil
}

func (t *Terminal) unsubscribe(sub events.FileSubscription) {
	path := t.resolve(sub.File)
	t.watcher.Remove(path)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.watcher.Watching(path) {
		delete(t.blocks, path)
		return
	}
	if len(sub.Blocks) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(sub.Blocks))
	for _, block := range sub.Blocks {
		drop[block.ID] = struct{}{}
	}
	kept := t.blocks[path][:0]
	for _, block := range t.blocks[path] {
		if _, ok := drop[block.ID]; !ok {
			kept = append(kept, block)
		}
	}
	t.blocks[path] = kept
}

// fileChanged runs on the watcher goroutine.
func (t *Terminal) fileChanged(path string) {
	t.mu.Lock()
	blocks := append([]models.CodeBlock(nil), t.blocks[path]...)
	t.mu.Unlock()

	hasDiff := false
	for _, block := range blocks {
		differs, err := BlockDiffers(path, block)
		if err != nil {
			// Deleted or unreadable files count as changed.
			hasDiff = true
			break
		}
		if differs {
			hasDiff = true
			break
		}
	}
	t.Emit(events.Event{
		Type: events.TypeFileChanged,
		Body: events.FileChanged{File: t.display(path), HasDiff: hasDiff},
	})
}

// display turns an absolute path back into the root-relative name used by posts.
func (t *Terminal) display(path string) string {
	rel, err := filepath.Rel(t.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func (t *Terminal) showDiff(action events.CodeBlockAction) {
	diff, err := BlockDiff(t.resolve(action.CodeBlock.File), action.CodeBlock)
	if err != nil {
		t.logger.Warn().Err(err).Str("file", action.CodeBlock.File).Msg("diff failed")
		return
	}
	t.Emit(events.Event{
		Type: events.TypeDiffReady,
		Body: events.DiffReady{CodeBlock: action.CodeBlock, Diff: diff},
	})
}

func (t *Terminal) applyPatch(action events.CodeBlockAction) {
	path := t.resolve(action.CodeBlock.File)
	if err := ApplyBlock(path, action.CodeBlock); err != nil {
		t.logger.Warn().Err(err).Str("file", action.CodeBlock.File).Msg("apply patch failed")
		return
	}
	t.logger.Info().Str("post_id", action.PostID).Str("location", action.CodeBlock.Location()).Msg("patch applied")
}

// highlight implements editor.highlight: args are a "file:start-end"
// location followed by optional author emails.
func (t *Terminal) highlight(_ context.Context, args ...string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing location", ErrInvalidLocation)
	}
	file, r, err := ParseLocation(args[0])
	if err != nil {
		return err
	}
	path := t.resolve(file)
	quote, err := ReadQuote(path, t.display(path), r)
	if err != nil {
		return err
	}
	quote.Authors = append([]string(nil), args[1:]...)
	if !t.Emit(events.Event{Type: events.TypeCodeHighlighted, Body: events.CodeHighlighted{Quote: quote}}) {
		return ErrClosed
	}
	return nil
}
