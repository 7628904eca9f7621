package models

import (
	"fmt"
	"strings"
)

// Range is a region of a file. Lines are 1-based and inclusive.
type Range struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col,omitempty"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col,omitempty"`
}

// Valid reports whether the range spans at least one line.
func (r Range) Valid() bool {
	return r.StartLine > 0 && r.EndLine >= r.StartLine
}

func (r Range) String() string {
	if r.StartLine == r.EndLine {
		return fmt.Sprintf("%d", r.StartLine)
	}
	return fmt.Sprintf("%d-%d", r.StartLine, r.EndLine)
}

// CodeBlock is a code excerpt attached to a post.
type CodeBlock struct {
	ID          string `json:"id"`
	File        string `json:"file"`
	Code        string `json:"code"`
	Range       Range  `json:"range"`
	PreContext  string `json:"pre_context,omitempty"`
	PostContext string `json:"post_context,omitempty"`
}

// Location renders "file:lines".
func (b CodeBlock) Location() string {
	if !b.Range.Valid() {
		return b.File
	}
	return b.File + ":" + b.Range.String()
}

// Validate checks the block fields.
func (b CodeBlock) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(b.File) == "" {
		validation.AddMessage("file", "code block file is required")
	}
	if !b.Range.Valid() {
		validation.Add("range", ErrInvalidRange)
	}
	return validation.Err()
}

// CodeQuote is a highlighted region the user is about to comment on.
type CodeQuote struct {
	QuoteText   string `json:"quote_text"`
	QuoteRange  Range  `json:"quote_range"`
	PreContext  string `json:"pre_context,omitempty"`
	PostContext string `json:"post_context,omitempty"`
	File        string `json:"file"`
	// Authors are emails of the people who last touched the region.
	Authors []string `json:"authors,omitempty"`
}

// CodeBlock converts the quote into the block stored with a post.
func (q CodeQuote) CodeBlock() CodeBlock {
	return CodeBlock{
		File:        q.File,
		Code:        q.QuoteText,
		Range:       q.QuoteRange,
		PreContext:  q.PreContext,
		PostContext: q.PostContext,
	}
}
