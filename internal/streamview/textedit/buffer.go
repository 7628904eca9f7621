package textedit

// Buffer is an in-memory Surface. It backs headless use and tests.
type Buffer struct {
	text     []rune
	caret    int
	hasCaret bool
	markup   bool
}

// NewBuffer returns a focused buffer holding text with the caret at the end.
func NewBuffer(text string) *Buffer {
	runes := []rune(text)
	return &Buffer{text: runes, caret: len(runes), hasCaret: true}
}

// NewMarkupBuffer returns a buffer whose value is rich-text markup.
func NewMarkupBuffer(markup string) *Buffer {
	b := NewBuffer(markup)
	b.markup = true
	return b
}

func (b *Buffer) Value() string {
	return string(b.text)
}

func (b *Buffer) Cursor() (int, bool) {
	if !b.hasCaret {
		return 0, false
	}
	return b.caret, true
}

func (b *Buffer) ReplaceBeforeCursor(deleteCount int, insert string) {
	if !b.hasCaret {
		return
	}
	if deleteCount > b.caret {
		deleteCount = b.caret
	}
	if deleteCount < 0 {
		deleteCount = 0
	}
	start := b.caret - deleteCount
	ins := []rune(insert)

	next := make([]rune, 0, len(b.text)-deleteCount+len(ins))
	next = append(next, b.text[:start]...)
	next = append(next, ins...)
	next = append(next, b.text[b.caret:]...)
	b.text = next
	b.caret = start + len(ins)
}

func (b *Buffer) SetValue(value string) {
	b.text = []rune(value)
	b.caret = len(b.text)
}

func (b *Buffer) Focus() {
	if !b.hasCaret {
		b.hasCaret = true
		b.caret = len(b.text)
	}
}

// Blur drops the caret.
func (b *Buffer) Blur() {
	b.hasCaret = false
}

// SetCursor moves the caret, clamped to the text.
func (b *Buffer) SetCursor(offset int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(b.text) {
		offset = len(b.text)
	}
	b.caret = offset
}

// Type inserts text at the caret as if it were typed.
func (b *Buffer) Type(text string) {
	b.ReplaceBeforeCursor(0, text)
}

func (b *Buffer) Markup() bool {
	return b.markup
}

var _ Surface = (*Buffer)(nil)
var _ MarkupSurface = (*Buffer)(nil)
