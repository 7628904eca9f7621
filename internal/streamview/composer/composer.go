// Package composer holds the message composer's state machine: the text,
// the quoted code attachment, auto-mentions and the mention popup.
package composer

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tOgg1/streampanel/internal/models"
	"github.com/tOgg1/streampanel/internal/streamview/mention"
	"github.com/tOgg1/streampanel/internal/streamview/textedit"
)

// NBSP follows inserted mentions so that the word before the caret is no
// longer an "@" word and the popup stays closed.
const NBSP = "\u00a0"

var mentionWordRe = regexp.MustCompile(`^@([\p{L}\p{N}_.+-]*)$`)

// Key is a composer key after the host's key mapping.
type Key int

const (
	KeyUnknown Key = iota
	KeyUp
	KeyDown
	KeyTab
	KeyEnter
	KeyShiftEnter
	KeyEscape
)

// MentionPopup is the autocomplete popup. SelectedIndex indexes Candidates
// while Open is true.
type MentionPopup struct {
	Open          bool
	Prefix        string
	Candidates    []models.User
	SelectedIndex int
}

// Selected returns the highlighted candidate.
func (p MentionPopup) Selected() (models.User, bool) {
	if !p.Open || p.SelectedIndex < 0 || p.SelectedIndex >= len(p.Candidates) {
		return models.User{}, false
	}
	return p.Candidates[p.SelectedIndex], true
}

// State is a snapshot of the composer.
type State struct {
	Text         string
	QuotedCode   *models.CodeQuote
	AutoMentions []string
	Mention      MentionPopup
}

// Submission is a finalized message.
type Submission struct {
	Text             string
	Quote            *models.CodeQuote
	MentionedUserIDs []string
	AutoMentions     []string
}

// Options configures a Machine.
type Options struct {
	// Surface is the only writer of the composer text.
	Surface textedit.Surface

	// Roster returns the current team roster.
	Roster func() []models.User

	// OnSubmit receives finalized messages.
	OnSubmit func(Submission)

	Logger *zerolog.Logger
}

// Machine is the composer state machine (Idle while the popup is closed,
// Suggesting while it is open).
type Machine struct {
	surface  textedit.Surface
	roster   func() []models.User
	onSubmit func(Submission)
	logger   zerolog.Logger

	text         string
	quote        *models.CodeQuote
	autoMentions []string
	popup        MentionPopup
}

// New creates a Machine in the Idle state.
func New(opts Options) *Machine {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "composer").Logger()
	}
	surface := opts.Surface
	if surface == nil {
		surface = textedit.NewBuffer("")
	}
	m := &Machine{
		surface:  surface,
		roster:   opts.Roster,
		onSubmit: opts.OnSubmit,
		logger:   logger,
	}
	m.text = surface.Value()
	return m
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	state := State{
		Text:         m.text,
		AutoMentions: append([]string(nil), m.autoMentions...),
		Mention:      m.popup,
	}
	state.Mention.Candidates = append([]models.User(nil), m.popup.Candidates...)
	if m.quote != nil {
		quote := *m.quote
		state.QuotedCode = &quote
	}
	return state
}

// Suggesting reports whether the mention popup is open.
func (m *Machine) Suggesting() bool {
	return m.popup.Open
}

// Text returns the composer text as last read from the surface.
func (m *Machine) Text() string {
	return m.text
}

func (m *Machine) users() []models.User {
	if m.roster == nil {
		return nil
	}
	return m.roster()
}

// HandleInput reacts to a change of the surface's text.
func (m *Machine) HandleInput() {
	m.text = m.surface.Value()
	m.pruneAutoMentions()

	word, ok := textedit.WordBeforeCursor(m.surface)
	if !ok {
		m.closePopup()
		return
	}
	match := mentionWordRe.FindStringSubmatch(word)
	if match == nil {
		m.closePopup()
		return
	}

	prefix := match[1]
	candidates := mention.Match(prefix, m.users())
	if len(candidates) == 0 {
		m.closePopup()
		return
	}
	if !m.popup.Open {
		m.logger.Debug().Str("prefix", prefix).Int("candidates", len(candidates)).Msg("mention popup opened")
	}
	m.popup = MentionPopup{Open: true, Prefix: prefix, Candidates: candidates, SelectedIndex: 0}
}

// pruneAutoMentions drops auto-mentions whose "@name" is gone from the text.
func (m *Machine) pruneAutoMentions() {
	if len(m.autoMentions) == 0 {
		return
	}
	kept := m.autoMentions[:0]
	for _, name := range m.autoMentions {
		if strings.Contains(m.text, "@"+name) {
			kept = append(kept, name)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	m.autoMentions = kept
}

func (m *Machine) closePopup() {
	m.popup = MentionPopup{}
}

// CloseSuggestions closes the popup without touching the text.
func (m *Machine) CloseSuggestions() {
	m.closePopup()
}

// HandleKey processes a key and reports whether the composer consumed it.
func (m *Machine) HandleKey(key Key) bool {
	if m.popup.Open {
		n := len(m.popup.Candidates)
		switch key {
		case KeyUp:
			m.popup.SelectedIndex = (m.popup.SelectedIndex - 1 + n) % n
			return true
		case KeyDown:
			m.popup.SelectedIndex = (m.popup.SelectedIndex + 1) % n
			return true
		case KeyTab, KeyEnter:
			m.Confirm(m.popup.SelectedIndex)
			return true
		case KeyEscape:
			m.closePopup()
			return true
		}
		return false
	}

	if key == KeyEnter {
		m.Submit()
		return true
	}
	return false
}

// Confirm inserts candidate i in place of the typed prefix.
func (m *Machine) Confirm(i int) {
	if !m.popup.Open || i < 0 || i >= len(m.popup.Candidates) {
		return
	}
	if _, ok := m.surface.Cursor(); !ok {
		m.closePopup()
		return
	}
	user := m.popup.Candidates[i]
	identity := user.Identity()
	m.surface.ReplaceBeforeCursor(len([]rune(m.popup.Prefix)), identity+NBSP)
	if !containsString(m.autoMentions, identity) {
		m.autoMentions = append(m.autoMentions, identity)
	}
	m.logger.Debug().Str("user", identity).Msg("mention confirmed")
	m.closePopup()
	m.text = m.surface.Value()
}

// Submit emits the current text when it is not blank and resets the
// composer. It reports whether a submission happened.
func (m *Machine) Submit() bool {
	m.text = m.surface.Value()
	text := NormalizeText(m.text, textedit.IsMarkup(m.surface))
	if strings.TrimSpace(text) == "" {
		return false
	}

	submission := Submission{
		Text:             text,
		Quote:            m.quote,
		MentionedUserIDs: mention.MentionedUserIDs(text, m.users()),
		AutoMentions:     m.autoMentions,
	}
	m.Reset()
	m.logger.Debug().Int("mentions", len(submission.MentionedUserIDs)).Msg("submit")
	if m.onSubmit != nil {
		m.onSubmit(submission)
	}
	return true
}

// AttachQuote attaches highlighted code and mentions its known authors.
func (m *Machine) AttachQuote(quote models.CodeQuote) {
	q := quote
	m.quote = &q

	var names []string
	for _, email := range quote.Authors {
		user, ok := models.FindUserByEmail(m.users(), email)
		if !ok {
			continue
		}
		if identity := user.Identity(); identity != "" && !containsString(names, identity) {
			names = append(names, identity)
		}
	}
	m.autoMentions = names

	if len(names) > 0 {
		mentions := make([]string, len(names))
		for i, name := range names {
			mentions[i] = "@" + name
		}
		m.surface.ReplaceBeforeCursor(0, strings.Join(mentions, ", ")+": "+NBSP)
	}
	m.surface.Focus()
	m.text = m.surface.Value()
	m.closePopup()
	m.logger.Debug().Str("file", quote.File).Strs("authors", names).Msg("quote attached")
}

// DismissQuote drops the attachment and refocuses the composer.
func (m *Machine) DismissQuote() {
	m.quote = nil
	m.surface.Focus()
}

// Reset clears text, quote, auto-mentions and the popup.
func (m *Machine) Reset() {
	m.surface.SetValue("")
	m.text = ""
	m.quote = nil
	m.autoMentions = nil
	m.closePopup()
}

// SetText replaces the composer text, e.g. when editing an existing post.
func (m *Machine) SetText(text string) {
	m.surface.SetValue(text)
	m.surface.Focus()
	m.text = m.surface.Value()
	m.closePopup()
}

// Restore brings back a saved draft without re-inserting quote mentions.
func (m *Machine) Restore(text string, quote *models.CodeQuote) {
	m.surface.SetValue(text)
	m.text = m.surface.Value()
	m.quote = nil
	if quote != nil {
		q := *quote
		m.quote = &q
	}
	m.autoMentions = nil
	m.closePopup()
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
