// Package textedit abstracts the editable text surface behind the composer.
// Offsets are counted in runes.
package textedit

// Surface is an editable text field with a caret.
type Surface interface {
	// Value returns the current contents.
	Value() string

	// Cursor returns the caret offset. ok is false when the surface has no
	// live caret (for example while it is blurred).
	Cursor() (offset int, ok bool)

	// ReplaceBeforeCursor deletes up to deleteCount runes before the caret,
	// inserts text there and leaves the caret after the insertion. It does
	// nothing when there is no caret.
	ReplaceBeforeCursor(deleteCount int, insert string)

	// SetValue replaces the contents and moves the caret to the end.
	SetValue(value string)

	// Focus gives the surface the caret.
	Focus()
}

// MarkupSurface is implemented by surfaces whose Value holds rich-text
// markup instead of plain text.
type MarkupSurface interface {
	Markup() bool
}

// IsMarkup reports whether the surface's value is markup.
func IsMarkup(s Surface) bool {
	m, ok := s.(MarkupSurface)
	return ok && m.Markup()
}

// WordBeforeCursor returns the run of non-whitespace runes that ends at the
// caret. Non-breaking spaces count as whitespace.
func WordBeforeCursor(s Surface) (string, bool) {
	offset, ok := s.Cursor()
	if !ok {
		return "", false
	}
	runes := []rune(s.Value())
	if offset > len(runes) {
		offset = len(runes)
	}
	start := offset
	for start > 0 && !IsSpace(runes[start-1]) {
		start--
	}
	return string(runes[start:offset]), true
}

// IsSpace reports whether r separates words in the composer.
func IsSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v', '\u00a0':
		return true
	}
	return false
}
