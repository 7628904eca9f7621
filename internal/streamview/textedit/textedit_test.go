package textedit

import (
	"testing"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/stretchr/testify/require"
)

func TestBufferReplaceBeforeCursor(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		caret     int
		delete    int
		insert    string
		want      string
		wantCaret int
	}{
		{name: "replace prefix", text: "hi @al", caret: 6, delete: 2, insert: "albert ", want: "hi @albert ", wantCaret: 11},
		{name: "delete clamped to caret", text: "ab", caret: 1, delete: 5, insert: "X", want: "Xb", wantCaret: 1},
		{name: "caret in the middle", text: "@al tail", caret: 3, delete: 2, insert: "alice", want: "@alice tail", wantCaret: 6},
		{name: "multibyte runes", text: "é@ü", caret: 3, delete: 1, insert: "üwe", want: "é@üwe", wantCaret: 5},
		{name: "pure insert", text: "ab", caret: 1, delete: 0, insert: "-", want: "a-b", wantCaret: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuffer(tt.text)
			b.SetCursor(tt.caret)
			b.ReplaceBeforeCursor(tt.delete, tt.insert)
			require.Equal(t, tt.want, b.Value())
			caret, ok := b.Cursor()
			require.True(t, ok)
			require.Equal(t, tt.wantCaret, caret)
		})
	}
}

func TestBufferWithoutCaretIsNoOp(t *testing.T) {
	b := NewBuffer("@al")
	b.Blur()
	b.ReplaceBeforeCursor(2, "albert")
	require.Equal(t, "@al", b.Value())

	_, ok := b.Cursor()
	require.False(t, ok)
	_, ok = WordBeforeCursor(b)
	require.False(t, ok)

	b.Focus()
	caret, ok := b.Cursor()
	require.True(t, ok)
	require.Equal(t, 3, caret)
}

func TestWordBeforeCursor(t *testing.T) {
	b := NewBuffer("hello @al")
	word, ok := WordBeforeCursor(b)
	require.True(t, ok)
	require.Equal(t, "@al", word)

	b = NewBuffer("@albert x")
	word, _ = WordBeforeCursor(b)
	require.Equal(t, "x", word)

	b = NewBuffer("line\n@b")
	b.SetCursor(4)
	word, _ = WordBeforeCursor(b)
	require.Equal(t, "line", word)

	b = NewBuffer("trailing ")
	word, _ = WordBeforeCursor(b)
	require.Equal(t, "", word)
}

func TestIsMarkup(t *testing.T) {
	require.False(t, IsMarkup(NewBuffer("x")))
	require.True(t, IsMarkup(NewMarkupBuffer("<p>x</p>")))
	model := textarea.New()
	require.False(t, IsMarkup(NewTextarea(&model)))
}

func TestTextareaAdapter(t *testing.T) {
	model := textarea.New()
	model.SetWidth(40)
	model.SetHeight(3)
	surface := NewTextarea(&model)

	surface.SetValue("ping @al")
	_, ok := surface.Cursor()
	require.False(t, ok, "blurred textarea has no caret")
	surface.ReplaceBeforeCursor(2, "albert ")
	require.Equal(t, "ping @al", surface.Value())

	surface.Focus()
	caret, ok := surface.Cursor()
	require.True(t, ok)
	require.Equal(t, 8, caret)

	surface.ReplaceBeforeCursor(2, "albert ")
	require.Equal(t, "ping @albert ", surface.Value())
	caret, _ = surface.Cursor()
	require.Equal(t, 13, caret)
}

func TestTextareaCursorAcrossLines(t *testing.T) {
	model := textarea.New()
	model.SetWidth(40)
	model.SetHeight(3)
	surface := NewTextarea(&model)
	surface.Focus()
	surface.SetValue("first\n@bo")

	caret, ok := surface.Cursor()
	require.True(t, ok)
	require.Equal(t, 9, caret)

	word, _ := WordBeforeCursor(surface)
	require.Equal(t, "@bo", word)
}
