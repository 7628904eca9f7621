package host

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tOgg1/streampanel/internal/models"
)

const quoteContextLines = 3

// ErrInvalidLocation is returned for malformed "file:start-end" strings.
var ErrInvalidLocation = errors.New("invalid location")

// ParseLocation parses "file:line" or "file:start-end".
func ParseLocation(location string) (string, models.Range, error) {
	location = strings.TrimSpace(location)
	colon := strings.LastIndex(location, ":")
	if colon <= 0 || colon == len(location)-1 {
		return "", models.Range{}, fmt.Errorf("%w: %q (want file:start-end)", ErrInvalidLocation, location)
	}
	file, lines := location[:colon], location[colon+1:]

	startText, endText, found := strings.Cut(lines, "-")
	if !found {
		endText = startText
	}
	start, err := strconv.Atoi(strings.TrimSpace(startText))
	if err != nil {
		return "", models.Range{}, fmt.Errorf("%w: bad start line in %q", ErrInvalidLocation, location)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endText))
	if err != nil {
		return "", models.Range{}, fmt.Errorf("%w: bad end line in %q", ErrInvalidLocation, location)
	}
	r := models.Range{StartLine: start, EndLine: end}
	if !r.Valid() {
		return "", models.Range{}, fmt.Errorf("%w: %q", models.ErrInvalidRange, location)
	}
	return file, r, nil
}

// ReadQuote reads the lines of r from path with a few lines of context on
// each side. The range is clamped to the file.
func ReadQuote(path, displayName string, r models.Range) (models.CodeQuote, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return models.CodeQuote{}, fmt.Errorf("read %s: %w", displayName, err)
	}
	lines := splitLines(string(content))
	if len(lines) == 0 || r.StartLine > len(lines) {
		return models.CodeQuote{}, fmt.Errorf("%w: %s has %d lines", models.ErrInvalidRange, displayName, len(lines))
	}
	if r.EndLine > len(lines) {
		r.EndLine = len(lines)
	}

	pre := max(0, r.StartLine-1-quoteContextLines)
	post := min(len(lines), r.EndLine+quoteContextLines)
	return models.CodeQuote{
		File:        displayName,
		QuoteText:   strings.Join(lines[r.StartLine-1:r.EndLine], "\n"),
		QuoteRange:  r,
		PreContext:  strings.Join(lines[pre:r.StartLine-1], "\n"),
		PostContext: strings.Join(lines[r.EndLine:post], "\n"),
	}, nil
}

// splitLines splits on "\n" and drops the empty element after a final newline.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
