// Package state persists panel session state (drafts, last stream) across runs.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/tOgg1/streampanel/internal/models"
)

const (
	CurrentVersion = 1

	defaultDebounce = 1 * time.Second
	maxDrafts       = 100
	draftMaxAge     = 30 * 24 * time.Hour
)

type PanelState struct {
	Version     int               `json:"version"`
	Drafts      map[string]Draft  `json:"drafts,omitempty"`      // stream ID -> unsent composer text
	LastStream  string            `json:"last_stream,omitempty"` // stream opened on the previous run
	ThreadPane  map[string]string `json:"thread_pane,omitempty"` // stream ID -> open thread ID
	Preferences Preferences       `json:"preferences,omitempty"`
}

type Draft struct {
	StreamID     string            `json:"stream_id"`
	ParentPostID string            `json:"parent_post_id,omitempty"`
	Text         string            `json:"text,omitempty"`
	Quote        *models.CodeQuote `json:"quote,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at,omitempty"`
}

// Empty reports whether the draft carries nothing worth restoring.
func (d Draft) Empty() bool {
	return strings.TrimSpace(d.Text) == "" && d.Quote == nil
}

type Preferences struct {
	RelativeTime  bool `json:"relative_time,omitempty"`
	Notifications bool `json:"notifications,omitempty"`
}

type Manager struct {
	path     string
	lockPath string

	mu        sync.Mutex
	state     PanelState
	dirty     bool
	timer     *time.Timer
	debounce  time.Duration
	lastWrite time.Time
}

func New(path string) *Manager {
	path = strings.TrimSpace(path)
	lockPath := ""
	if path != "" {
		lockPath = path + ".lock"
	}
	return &Manager{
		path:     path,
		lockPath: lockPath,
		state: PanelState{
			Version:    CurrentVersion,
			Drafts:     make(map[string]Draft),
			ThreadPane: make(map[string]string),
		},
		debounce: defaultDebounce,
	}
}

func (m *Manager) Path() string { return m.path }

// SetDebounce changes the delay between the first change and the save.
func (m *Manager) SetDebounce(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d <= 0 {
		d = defaultDebounce
	}
	m.debounce = d
}

func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.path == "" {
		return nil
	}

	loaded, err := m.loadLocked()
	if err != nil {
		return err
	}
	m.state = loaded
	m.dirty = false
	return nil
}

func (m *Manager) Snapshot() PanelState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.state)
}

func (m *Manager) LastStream() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.LastStream
}

func (m *Manager) SetLastStream(streamID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	streamID = strings.TrimSpace(streamID)
	if streamID == "" || streamID == m.state.LastStream {
		return
	}
	m.state.LastStream = streamID
	m.markDirtyLocked()
}

func (m *Manager) Draft(streamID string) (Draft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	streamID = strings.TrimSpace(streamID)
	if streamID == "" || len(m.state.Drafts) == 0 {
		return Draft{}, false
	}
	draft, ok := m.state.Drafts[streamID]
	if !ok {
		return Draft{}, false
	}
	return cloneDraft(draft), true
}

// SetDraft stores the draft for its stream. An empty draft deletes it.
func (m *Manager) SetDraft(draft Draft) {
	m.mu.Lock()
	defer m.mu.Unlock()
	streamID := strings.TrimSpace(draft.StreamID)
	if streamID == "" {
		return
	}
	if draft.Empty() {
		m.deleteDraftLocked(streamID)
		return
	}
	if m.state.Drafts == nil {
		m.state.Drafts = make(map[string]Draft)
	}
	draft.StreamID = streamID
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = time.Now().UTC()
	}
	if prev, ok := m.state.Drafts[streamID]; ok && draftsEqual(prev, draft) {
		return
	}
	m.state.Drafts[streamID] = cloneDraft(draft)
	m.markDirtyLocked()
}

func (m *Manager) DeleteDraft(streamID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteDraftLocked(strings.TrimSpace(streamID))
}

func (m *Manager) deleteDraftLocked(streamID string) {
	if streamID == "" || len(m.state.Drafts) == 0 {
		return
	}
	if _, ok := m.state.Drafts[streamID]; !ok {
		return
	}
	delete(m.state.Drafts, streamID)
	m.markDirtyLocked()
}

// OpenThread returns the thread that was open in the stream, if any.
func (m *Manager) OpenThread(streamID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ThreadPane[strings.TrimSpace(streamID)]
}

// SetOpenThread records the open thread for a stream. An empty id clears it.
func (m *Manager) SetOpenThread(streamID, threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	streamID = strings.TrimSpace(streamID)
	threadID = strings.TrimSpace(threadID)
	if streamID == "" || m.state.ThreadPane[streamID] == threadID {
		return
	}
	if m.state.ThreadPane == nil {
		m.state.ThreadPane = make(map[string]string)
	}
	if threadID == "" {
		delete(m.state.ThreadPane, streamID)
	} else {
		m.state.ThreadPane[streamID] = threadID
	}
	m.markDirtyLocked()
}

func (m *Manager) Preferences() Preferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Preferences
}

func (m *Manager) SetPreferences(prefs Preferences) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Preferences == prefs {
		return
	}
	m.state.Preferences = prefs
	m.markDirtyLocked()
}

func (m *Manager) SaveSoon() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markDirtyLocked()
}

func (m *Manager) Close() error {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	needsSave := m.dirty
	m.mu.Unlock()
	if !needsSave {
		return nil
	}
	return m.SaveNow()
}

func (m *Manager) SaveNow() error {
	m.mu.Lock()
	if m.path == "" {
		m.mu.Unlock()
		return nil
	}
	state := cloneState(m.state)
	m.dirty = false
	m.mu.Unlock()

	state.Version = CurrentVersion
	state = normalizeState(state, time.Now().UTC())

	if err := withFileLock(m.lockPath, func() error {
		return writeAtomicJSON(m.path, state)
	}); err != nil {
		m.mu.Lock()
		m.dirty = true
		m.mu.Unlock()
		return fmt.Errorf("save panel state: %w", err)
	}

	m.mu.Lock()
	m.lastWrite = time.Now().UTC()
	m.mu.Unlock()
	return nil
}

// Dirty reports whether changes are waiting to be written.
func (m *Manager) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

func (m *Manager) markDirtyLocked() {
	m.dirty = true
	if m.path == "" {
		return
	}
	if m.timer == nil {
		m.timer = time.AfterFunc(m.debounce, func() {
			_ = m.SaveNow()
		})
		return
	}
	_ = m.timer.Reset(m.debounce)
}

func (m *Manager) loadLocked() (PanelState, error) {
	var out PanelState
	if err := withFileLock(m.lockPath, func() error {
		payload, err := os.ReadFile(m.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				out = PanelState{Version: CurrentVersion}
				return nil
			}
			return err
		}
		if len(payload) == 0 {
			out = PanelState{Version: CurrentVersion}
			return nil
		}
		if err := json.Unmarshal(payload, &out); err != nil {
			return fmt.Errorf("decode %s: %w", m.path, err)
		}
		return nil
	}); err != nil {
		return PanelState{}, err
	}

	if out.Version <= 0 {
		out.Version = CurrentVersion
	}
	return normalizeState(out, time.Now().UTC()), nil
}

func withFileLock(lockPath string, fn func() error) error {
	if strings.TrimSpace(lockPath) == "" {
		return fn()
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock %s: %w", lockPath, err)
	}
	defer func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}()
	return fn()
}

func writeAtomicJSON(path string, state PanelState) error {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// normalizeState drops empty and stale drafts and keeps the newest maxDrafts.
func normalizeState(state PanelState, now time.Time) PanelState {
	if state.ThreadPane == nil {
		state.ThreadPane = make(map[string]string)
	}
	for streamID, threadID := range state.ThreadPane {
		if strings.TrimSpace(streamID) == "" || strings.TrimSpace(threadID) == "" {
			delete(state.ThreadPane, streamID)
		}
	}

	drafts := make([]Draft, 0, len(state.Drafts))
	for key, draft := range state.Drafts {
		if draft.StreamID == "" {
			draft.StreamID = key
		}
		if draft.Empty() {
			continue
		}
		if !draft.UpdatedAt.IsZero() && now.Sub(draft.UpdatedAt) > draftMaxAge {
			continue
		}
		drafts = append(drafts, draft)
	}
	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].UpdatedAt.After(drafts[j].UpdatedAt)
	})
	if len(drafts) > maxDrafts {
		drafts = drafts[:maxDrafts]
	}
	state.Drafts = make(map[string]Draft, len(drafts))
	for _, draft := range drafts {
		state.Drafts[draft.StreamID] = draft
	}
	return state
}

func cloneState(state PanelState) PanelState {
	out := state
	if state.Drafts != nil {
		out.Drafts = make(map[string]Draft, len(state.Drafts))
		for k, v := range state.Drafts {
			out.Drafts[k] = cloneDraft(v)
		}
	}
	if state.ThreadPane != nil {
		out.ThreadPane = make(map[string]string, len(state.ThreadPane))
		for k, v := range state.ThreadPane {
			out.ThreadPane[k] = v
		}
	}
	return out
}

func cloneDraft(d Draft) Draft {
	if d.Quote != nil {
		q := *d.Quote
		q.Authors = append([]string(nil), d.Quote.Authors...)
		d.Quote = &q
	}
	return d
}

func draftsEqual(a, b Draft) bool {
	if a.Text != b.Text || a.ParentPostID != b.ParentPostID {
		return false
	}
	if (a.Quote == nil) != (b.Quote == nil) {
		return false
	}
	if a.Quote == nil {
		return true
	}
	return a.Quote.File == b.Quote.File && a.Quote.QuoteRange == b.Quote.QuoteRange && a.Quote.QuoteText == b.Quote.QuoteText
}
