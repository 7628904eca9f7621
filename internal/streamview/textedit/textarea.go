package textedit

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

// Textarea adapts a bubbles textarea to Surface. The model stays owned by
// the caller; Textarea edits it in place.
type Textarea struct {
	model *textarea.Model
}

// NewTextarea wraps model.
func NewTextarea(model *textarea.Model) *Textarea {
	return &Textarea{model: model}
}

func (t *Textarea) Value() string {
	return t.model.Value()
}

// Cursor converts the textarea's row/column caret into a rune offset.
func (t *Textarea) Cursor() (int, bool) {
	if !t.model.Focused() {
		return 0, false
	}
	value := t.model.Value()
	if value == "" {
		return 0, true
	}
	lines := strings.Split(value, "\n")
	row := t.model.Line()
	if row < 0 {
		row = 0
	}
	if row >= len(lines) {
		row = len(lines) - 1
	}
	info := t.model.LineInfo()
	col := info.StartColumn + info.ColumnOffset
	if col < 0 {
		col = 0
	}
	if n := len([]rune(lines[row])); col > n {
		col = n
	}

	pos := 0
	for i := 0; i < row; i++ {
		pos += len([]rune(lines[i])) + 1
	}
	return pos + col, true
}

func (t *Textarea) ReplaceBeforeCursor(deleteCount int, insert string) {
	offset, ok := t.Cursor()
	if !ok {
		return
	}
	if deleteCount > offset {
		deleteCount = offset
	}
	backspace := tea.KeyMsg{Type: tea.KeyBackspace}
	for i := 0; i < deleteCount; i++ {
		*t.model, _ = t.model.Update(backspace)
	}
	if insert != "" {
		t.model.InsertString(insert)
	}
}

func (t *Textarea) SetValue(value string) {
	t.model.SetValue(value)
}

func (t *Textarea) Focus() {
	_ = t.model.Focus()
}

var _ Surface = (*Textarea)(nil)
