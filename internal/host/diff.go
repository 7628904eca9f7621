package host

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/tOgg1/streampanel/internal/models"
)

// currentLines returns the lines of the file currently at the block's range.
// A missing range past the end of the file yields the lines that exist.
func currentLines(path string, r models.Range) ([]string, []string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	lines := splitLines(string(content))
	start := min(max(r.StartLine-1, 0), len(lines))
	end := min(max(r.EndLine, start), len(lines))
	return lines, lines[start:end], nil
}

// BlockDiffers reports whether the file no longer matches the quoted block.
func BlockDiffers(path string, block models.CodeBlock) (bool, error) {
	_, current, err := currentLines(path, block.Range)
	if err != nil {
		return false, err
	}
	return strings.Join(current, "\n") != strings.TrimRight(block.Code, "\n"), nil
}

// BlockDiff renders a unified diff from the quoted block to the file's
// current content at the same range. Empty when they match.
func BlockDiff(path string, block models.CodeBlock) (string, error) {
	_, current, err := currentLines(path, block.Range)
	if err != nil {
		return "", err
	}
	quoted := difflib.SplitLines(strings.TrimRight(block.Code, "\n") + "\n")
	working := difflib.SplitLines(strings.Join(current, "\n") + "\n")
	ud := difflib.UnifiedDiff{
		A:        quoted,
		B:        working,
		FromFile: "quoted/" + filepath.ToSlash(block.Location()),
		ToFile:   "working/" + filepath.ToSlash(block.File),
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", block.Location(), err)
	}
	return text, nil
}

// ApplyBlock writes the quoted code back over the block's range.
func ApplyBlock(path string, block models.CodeBlock) error {
	lines, _, err := currentLines(path, block.Range)
	if err != nil {
		return err
	}
	start := min(max(block.Range.StartLine-1, 0), len(lines))
	end := min(max(block.Range.EndLine, start), len(lines))

	patched := make([]string, 0, len(lines))
	patched = append(patched, lines[:start]...)
	patched = append(patched, splitLines(strings.TrimRight(block.Code, "\n")+"\n")...)
	patched = append(patched, lines[end:]...)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp := path + ".streampanel.tmp"
	if err := os.WriteFile(tmp, []byte(strings.Join(patched, "\n")+"\n"), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", block.File, err)
	}
	return os.Rename(tmp, path)
}
